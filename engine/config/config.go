package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting size, if applicable.
	StartWidth  uint32 `toml:"start_width"`
	StartHeight uint32 `toml:"start_height"`
	// Frames per second the run loop targets. Also drives the polling
	// interval of the asset manager's priority barriers.
	TargetFPS float64 `toml:"target_fps"`
	// Headless skips window creation; the run loop is pumped by a timer.
	Headless bool `toml:"headless"`
}

type AssetsConfig struct {
	// Root directory that asset source paths are resolved against.
	Root string `toml:"root"`
	// Path of the JSON asset directory to load at startup.
	Directory string `toml:"directory"`
	// Hot-reload assets whose source files change on disk.
	WatchFiles bool `toml:"watch_files"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Assets      AssetsConfig      `toml:"assets"`
	Logging     LoggingConfig     `toml:"logging"`
}

func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:        "Atlas Application",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
			TargetFPS:   60,
		},
		Assets: AssetsConfig{
			Root: "assets",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML configuration file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Application.TargetFPS <= 0 {
		return fmt.Errorf("application.target_fps must be positive, got %v", c.Application.TargetFPS)
	}
	if c.Application.Name == "" {
		return fmt.Errorf("application.name must not be empty")
	}
	if c.Assets.Root == "" {
		return fmt.Errorf("assets.root must not be empty")
	}
	return nil
}
