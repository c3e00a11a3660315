package emu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), cfgFilename)

	cfg := DefaultConfig()
	cfg.General.BootROM = "/roms/dmg_boot.bin"
	cfg.Video.Scale = 4
	cfg.Audio.SampleRate = 48000
	cfg.Input.Keys[0] = "D"

	if err := saveConfig(path, cfg); err != nil {
		t.Fatal(err)
	}
	got := loadConfig(path)
	if diff := cmp.Diff(cfg, got, cmpopts.IgnoreFields(Config{}, "TraceOut")); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigDefaults(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		got := loadConfig(filepath.Join(dir, "missing.toml"))
		if diff := cmp.Diff(DefaultConfig(), got, cmpopts.IgnoreFields(Config{}, "TraceOut")); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.toml")
		content := `
[video]
scale = 0
palette = ["#FFFFFF"]

[audio]
sample_rate = 12345

[input]
keys = ["D", "", "", "", "", "", "", ""]
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		got := loadConfig(path)

		want := DefaultConfig()
		want.Input.Keys[0] = "D"
		if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Config{}, "TraceOut")); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})
}
