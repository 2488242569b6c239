// Package assets serves the sound clips compiled into the firmware image.
// Clips live under sounds/<theme>/<event>.wav and are produced offline by the
// saberwav tool; a missing file degrades that event to silence at runtime.
package assets

import (
	"embed"
	"io"
	"io/fs"

	"saber/core"
)

//go:embed all:sounds
var sounds embed.FS

// Store resolves (theme index, event name) pairs to embedded WAV files.
type Store struct {
	fsys   fs.FS
	themes []string
}

// NewStore returns the clip store over the embedded asset tree. themes maps
// theme indices to directory names, usually the configured theme names.
func NewStore(themes []string) *Store {
	return &Store{fsys: sounds, themes: themes}
}

// NewStoreFS is NewStore over an arbitrary filesystem (tests, host tools).
func NewStoreFS(fsys fs.FS, themes []string) *Store {
	return &Store{fsys: fsys, themes: themes}
}

// Open implements core.ClipStore.
func (s *Store) Open(theme int, event string) (io.ReadCloser, error) {
	if theme < 0 || theme >= len(s.themes) {
		return nil, fs.ErrNotExist
	}
	return s.fsys.Open("sounds/" + s.themes[theme] + "/" + event + ".wav")
}

var _ core.ClipStore = (*Store)(nil)

// ThemeNames extracts the directory-name list from a configured theme table.
func ThemeNames(themes []core.Theme) []string {
	names := make([]string, len(themes))
	for i := range themes {
		names[i] = themes[i].Name
	}
	return names
}
