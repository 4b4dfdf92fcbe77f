package config

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/taigrr/tilekit/pkg/overlay"
	"github.com/taigrr/tilekit/pkg/tileset"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func parse(t *testing.T, args ...string) *Flags {
	t.Helper()
	fs := flag.NewFlagSet("tilekit", flag.ContinueOnError)
	f := RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Tileset.Options != tileset.DefaultOptions() {
		t.Errorf("tileset options = %+v", cfg.Tileset.Options)
	}
	if !cfg.Tileset.CreatePhysicsMeshes {
		t.Error("physics meshes disabled by default")
	}
	if cfg.Overlay.Provider() != nil {
		t.Error("default overlay should be none")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "tilekit.yaml", "tileset:\n  options:\n    maximum_screen_space_error: 4\noverlay:\n  kind: debug_colorize\n"},
		{"toml", "tilekit.toml", "[tileset.options]\nmaximum_screen_space_error = 4.0\n\n[overlay]\nkind = \"debug_colorize\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			writeFile(t, path, tt.content)

			cfg, used, err := Load(parse(t, "-config", path))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if used != path {
				t.Errorf("path = %q", used)
			}
			if got := cfg.Tileset.Options.MaximumScreenSpaceError; got != 4 {
				t.Errorf("sse = %v, want 4", got)
			}
			// untouched keys keep their defaults
			if !cfg.Tileset.Options.ForbidHoles {
				t.Error("ForbidHoles lost its default")
			}
			if p := cfg.Overlay.Provider(); p == nil || p.Kind != overlay.KindDebugColorize {
				t.Errorf("Provider() = %+v", p)
			}
		})
	}
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilekit.yaml")
	writeFile(t, path, "tileset: [")
	if _, _, err := Load(parse(t, "-config", path)); err == nil {
		t.Error("expected a parse error")
	}
	if _, _, err := Load(parse(t, "-config", filepath.Join(t.TempDir(), "missing.yaml"))); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilekit.yaml")
	writeFile(t, path, "tileset:\n  dir: /data/tiles\n  options:\n    maximum_screen_space_error: 4\n")

	cfg, _, err := Load(parse(t, "-config", path, "-dir", "/other", "-max-sse", "8", "-debug", "-tms", "/tms", "-wireframe"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tileset.Dir != "/other" || cfg.Tileset.Options.MaximumScreenSpaceError != 8 {
		t.Errorf("tileset = %+v", cfg.Tileset)
	}
	if cfg.Logging.Level != "debug" || !cfg.Tileset.LogSelectionStats {
		t.Error("-debug not applied")
	}
	p := cfg.Overlay.Provider()
	if p == nil || p.Kind != overlay.KindTileMapService || p.TMS.URL != "/tms" {
		t.Errorf("Provider() = %+v", p)
	}
	if cfg.Preview.Mode != "wireframe" {
		t.Errorf("Mode = %q", cfg.Preview.Mode)
	}
}

func TestHomeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	path := filepath.Join(t.TempDir(), "tilekit.yaml")
	writeFile(t, path, "overlay:\n  tms:\n    url: ~/imagery\n")

	cfg, _, err := Load(parse(t, "-config", path, "-dir", "~/tiles"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Overlay.TMS.URL != filepath.Join(home, "imagery") {
		t.Errorf("TMS.URL = %q", cfg.Overlay.TMS.URL)
	}
	if cfg.Tileset.Dir != filepath.Join(home, "tiles") {
		t.Errorf("Dir = %q", cfg.Tileset.Dir)
	}
}

func TestSaveAndLoad(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Tileset.Options.MaximumCachedBytes = 1 << 20
			cfg.Overlay.Kind = "tile_map_service"
			cfg.Overlay.TMS.URL = "/tms"

			path := filepath.Join(t.TempDir(), "nested", name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo() error = %v", err)
			}
			got, _, err := Load(parse(t, "-config", path))
			if err != nil {
				t.Fatal(err)
			}
			if got.Tileset.Options.MaximumCachedBytes != 1<<20 || got.Overlay.TMS.URL != "/tms" {
				t.Errorf("reloaded = %+v", got)
			}
		})
	}
}

func TestApply(t *testing.T) {
	cfg := Default()
	cfg.Tileset.Options.MaximumScreenSpaceError = 2
	cfg.Tileset.LogSelectionStats = true

	ts := tileset.New(cfg.Tileset.Context(), "test", cfg.Tileset.Dir, nil)
	if err := cfg.Tileset.Apply(ts); err != nil {
		t.Fatal(err)
	}
	if ts.Options.MaximumScreenSpaceError != 2 || !ts.LogSelectionStats {
		t.Errorf("tileset = %+v", ts.Options)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tilekit.yaml")
	writeFile(t, path, "preview:\n  fps: 10\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	flags := parse(t)
	go func() {
		done <- Watch(ctx, path, flags, nil, func(c *Config) {
			select {
			case changes <- c:
			default:
			}
		})
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-changes:
			// a reload can catch the file mid-write
			if c.Preview.FPS != 60 {
				continue
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch() error = %v", err)
			}
			return
		case <-tick.C:
			// the watcher may not be registered yet; keep rewriting
			writeFile(t, path, "preview:\n  fps: 60\n")
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
