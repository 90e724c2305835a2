// engine_config.go - anotherworld.toml engine configuration

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const ConfigFileName = "anotherworld.toml"

// Config is the engine configuration. Fields left out of the file take
// their defaults; command line flags override both.
type Config struct {
	Data   DataConfig   `toml:"data"`
	Save   SaveConfig   `toml:"save"`
	Video  VideoConfig  `toml:"video"`
	Audio  AudioConfig  `toml:"audio"`
	Engine EngineConfig `toml:"engine"`
	Log    LogConfig    `toml:"log"`
	Script ScriptConfig `toml:"script"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

type DataConfig struct {
	Dir string `toml:"dir"`
}

type SaveConfig struct {
	Dir  string `toml:"dir"`
	Slot int    `toml:"slot"`
}

type VideoConfig struct {
	Backend    string `toml:"backend"` // "ebiten" or "headless"
	Scale      int    `toml:"scale"`
	Fullscreen bool   `toml:"fullscreen"`
	StatusBar  bool   `toml:"status-bar"`
}

type AudioConfig struct {
	Enabled    *bool `toml:"enabled"`
	SampleRate int   `toml:"sample-rate"`
}

type EngineConfig struct {
	Part     uint16 `toml:"part"`
	FastMode bool   `toml:"fast"`
	Terminal bool   `toml:"terminal"`
}

type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

type ScriptConfig struct {
	File   string `toml:"file"`
	Reload bool   `toml:"reload"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// SoundEnabled reports whether audio output is wanted.
func (c *Config) SoundEnabled() bool {
	return c.Audio.Enabled == nil || *c.Audio.Enabled
}

func (c *Config) applyDefaults() {
	if c.Data.Dir == "" {
		c.Data.Dir = "."
	}
	if c.Save.Dir == "" {
		c.Save.Dir = c.Data.Dir
	}
	if c.Video.Backend == "" {
		c.Video.Backend = "ebiten"
	}
	if c.Video.Scale == 0 {
		c.Video.Scale = 3
	}
	c.Video.Scale = ClampScale(c.Video.Scale)
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = defaultSampleRate
	}
	if c.Engine.Part == 0 {
		c.Engine.Part = PartFirst
	}
	c.Save.Slot = min(max(c.Save.Slot, 0), maxSaveSlots-1)
}

// Validate checks values the defaults cannot repair.
func (c *Config) Validate() error {
	if _, ok := PartSlots(c.Engine.Part); !ok {
		return fmt.Errorf("engine.part 0x%04X: %w", c.Engine.Part, ErrInvalidPart)
	}
	switch c.Video.Backend {
	case "ebiten", "headless":
	default:
		return fmt.Errorf("video.backend %q: must be ebiten or headless", c.Video.Backend)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("audio.sample-rate %d out of range", c.Audio.SampleRate)
	}
	return nil
}

// LoadConfig parses the configuration file at path. A missing file is not
// an error when optional is set; the defaults are returned instead.
func LoadConfig(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	// Relative directories are taken from the file's location.
	base := filepath.Dir(c.Path)
	for _, p := range []*string{&c.Data.Dir, &c.Save.Dir, &c.Script.File, &c.Log.File} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}

	c.applyDefaults()
	return &c, nil
}
