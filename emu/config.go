package emu

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"dotboy/emu/log"
	"dotboy/hw"
	"dotboy/hw/input"
)

type Config struct {
	General GeneralConfig `toml:"general"`
	Video   VideoConfig   `toml:"video"`
	Audio   AudioConfig   `toml:"audio"`
	Input   input.Config  `toml:"input"`

	TraceOut  io.WriteCloser `toml:"-"`
	TraceJSON bool           `toml:"-"`
}

type GeneralConfig struct {
	BootROM string `toml:"boot_rom"`
	SaveDir string `toml:"save_dir"`
}

// saveDir returns the directory of battery saves.
func (gcfg *GeneralConfig) saveDir() string {
	if gcfg.SaveDir != "" {
		return gcfg.SaveDir
	}
	return filepath.Join(ConfigDir(), "saves")
}

type VideoConfig struct {
	Scale        int      `toml:"scale"`
	Palette      []string `toml:"palette"`
	DisableVSync bool     `toml:"disable_vsync"`
}

// Check replaces invalid video settings with defaults.
func (vcfg *VideoConfig) Check() {
	if vcfg.Scale < 1 || vcfg.Scale > 10 {
		log.ModEmu.Warnf("Invalid scale %d, fallback to %d", vcfg.Scale, defaultConfig.Video.Scale)
		vcfg.Scale = defaultConfig.Video.Scale
	}
	if _, err := hw.ParsePalette(vcfg.Palette); err != nil {
		log.ModEmu.Warnf("Invalid palette: %v, fallback to default", err)
		vcfg.Palette = defaultConfig.Video.Palette
	}
}

// palette returns the parsed palette, Check must have been called.
func (vcfg *VideoConfig) palette() hw.Palette {
	pal, _ := hw.ParsePalette(vcfg.Palette)
	return pal
}

type AudioConfig struct {
	DisableAudio bool   `toml:"disable_audio"`
	SampleRate   int    `toml:"sample_rate"`
	WAVDump      string `toml:"wav_dump"`
}

// Check replaces invalid audio settings with defaults.
func (acfg *AudioConfig) Check() {
	switch acfg.SampleRate {
	case 22050, 32000, 44100, 48000, 96000:
	default:
		log.ModEmu.Warnf("Invalid sample rate %d, fallback to %d", acfg.SampleRate, defaultConfig.Audio.SampleRate)
		acfg.SampleRate = defaultConfig.Audio.SampleRate
	}
}

// Check validates the whole configuration, replacing invalid values with
// defaults.
func (cfg *Config) Check() {
	cfg.Video.Check()
	cfg.Audio.Check()
	for b, key := range cfg.Input.Keys {
		if key == "" {
			cfg.Input.Keys[b] = defaultConfig.Input.Keys[b]
		}
	}
}

var defaultConfig = Config{
	Video: VideoConfig{
		Scale:   3,
		Palette: []string{"#E0F8D0", "#88C070", "#346856", "#081820"},
	},
	Audio: AudioConfig{
		SampleRate: 44100,
	},
	Input: input.DefaultConfig(),
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	cfg := defaultConfig
	cfg.Video.Palette = append([]string(nil), defaultConfig.Video.Palette...)
	return cfg
}

const DefaultFileMode = os.FileMode(0755)

var ConfigDir = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("dotboy")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

const cfgFilename = "config.toml"

// LoadConfigOrDefault loads the configuration from the dotboy config
// directory, or provides the default one.
func LoadConfigOrDefault() Config {
	return loadConfig(filepath.Join(ConfigDir(), cfgFilename))
}

func loadConfig(path string) Config {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !os.IsNotExist(err) {
			log.ModEmu.WarnZ("failed to load config, using defaults").
				String("path", path).
				Error("err", err).
				End()
		}
		cfg = DefaultConfig()
	}
	cfg.Check()
	return cfg
}

// SaveConfig into dotboy config directory.
func SaveConfig(cfg Config) error {
	return saveConfig(filepath.Join(ConfigDir(), cfgFilename), cfg)
}

func saveConfig(path string, cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}
