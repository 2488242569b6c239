package assets

import (
	"io"
	"testing"
	"testing/fstest"

	"saber/core"
)

func TestStoreResolvesThemeAndEvent(t *testing.T) {
	fsys := fstest.MapFS{
		"sounds/jedi/idle.wav":  {Data: []byte("jedi-idle")},
		"sounds/rebel/hit.wav":  {Data: []byte("rebel-hit")},
		"sounds/rebel/idle.wav": {Data: []byte("rebel-idle")},
	}
	store := NewStoreFS(fsys, []string{"jedi", "rebel"})

	rc, err := store.Open(1, core.EventHit)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "rebel-hit" {
		t.Errorf("read %q", data)
	}
}

func TestStoreRejectsMissingAssets(t *testing.T) {
	store := NewStoreFS(fstest.MapFS{}, []string{"jedi"})
	if _, err := store.Open(0, core.EventSwing); err == nil {
		t.Error("missing clip opened without error")
	}
	if _, err := store.Open(5, core.EventIdle); err == nil {
		t.Error("out-of-range theme opened without error")
	}
	if _, err := store.Open(-1, core.EventIdle); err == nil {
		t.Error("negative theme opened without error")
	}
}

func TestThemeNames(t *testing.T) {
	cfg := core.DefaultConfig()
	names := ThemeNames(cfg.Themes)
	if len(names) != len(cfg.Themes) {
		t.Fatalf("%d names for %d themes", len(names), len(cfg.Themes))
	}
	for i, n := range names {
		if n != cfg.Themes[i].Name {
			t.Errorf("name %d = %q", i, n)
		}
	}
}
