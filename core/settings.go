// Persisted settings codec. The byte storage itself is an external
// collaborator behind SettingsStore; this file only fixes the layout:
// theme index, volume index, brightness index, validity marker.
package core

// Settings byte layout
const (
	settingsOffTheme      = 0
	settingsOffVolume     = 1
	settingsOffBrightness = 2
	settingsOffMarker     = 3
	settingsLen           = 4

	settingsMarker = 0xA5
)

// SettingsStore is the persistence collaborator.
type SettingsStore interface {
	Load(buf []byte) error
	Store(buf []byte) error
}

// Settings are the user-changeable persisted values. Loaded once at boot,
// written opportunistically on change, never re-read until next boot.
type Settings struct {
	Theme      uint8
	Volume     uint8
	Brightness uint8
}

// defaultSettings picks the middle volume and brightness presets.
func defaultSettings(cfg *Config) Settings {
	return Settings{
		Theme:      0,
		Volume:     uint8(len(cfg.VolumePresets) / 2),
		Brightness: uint8(len(cfg.BrightnessLevels) / 2),
	}
}

// LoadSettings reads the stored bytes. A read error or mismatched validity
// marker means "use defaults", never an error. Stored indices are clamped
// into the configured ranges in case the preset tables shrank.
func LoadSettings(store SettingsStore, cfg *Config) Settings {
	def := defaultSettings(cfg)
	if store == nil {
		return def
	}

	var buf [settingsLen]byte
	if err := store.Load(buf[:]); err != nil {
		RecordFault(FaultSettings, 0, 0)
		DebugPrintln("[SETTINGS] load failed, using defaults")
		return def
	}
	if buf[settingsOffMarker] != settingsMarker {
		DebugPrintln("[SETTINGS] no valid settings, using defaults")
		return def
	}

	s := Settings{
		Theme:      buf[settingsOffTheme],
		Volume:     buf[settingsOffVolume],
		Brightness: buf[settingsOffBrightness],
	}
	if int(s.Theme) >= len(cfg.Themes) {
		s.Theme = def.Theme
	}
	if int(s.Volume) >= len(cfg.VolumePresets) {
		s.Volume = def.Volume
	}
	if int(s.Brightness) >= len(cfg.BrightnessLevels) {
		s.Brightness = def.Brightness
	}
	return s
}

// SaveSettings writes the settings with a fresh validity marker.
// Failures are logged and recorded but not escalated; the device keeps
// running on the in-memory values.
func SaveSettings(store SettingsStore, s Settings) {
	if store == nil {
		return
	}
	var buf [settingsLen]byte
	buf[settingsOffTheme] = s.Theme
	buf[settingsOffVolume] = s.Volume
	buf[settingsOffBrightness] = s.Brightness
	buf[settingsOffMarker] = settingsMarker
	if err := store.Store(buf[:]); err != nil {
		RecordFault(FaultSettings, 0, 1)
		DebugPrintln("[SETTINGS] store failed")
	}
}
