package core

// StatusDisplay is the narrow interface to the status-display collaborator.
// Rendering (image cache, text, battery bar) lives in the target packages;
// a missing image or display is a soft failure, never fatal.
type StatusDisplay interface {
	ShowBattery(percent int, external bool)
	ShowVolume(index int)
	ShowBrightness(index int)
	ShowImage(theme int, kind string)
}

// NopDisplay is used when no display hardware is present.
type NopDisplay struct{}

func (NopDisplay) ShowBattery(percent int, external bool) {}
func (NopDisplay) ShowVolume(index int)                   {}
func (NopDisplay) ShowBrightness(index int)               {}
func (NopDisplay) ShowImage(theme int, kind string)       {}
