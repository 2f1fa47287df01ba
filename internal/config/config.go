// Package config loads the toml configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	// DBPath is the sqlite file holding stored formulas.
	DBPath string `toml:"db_path"`
	// Listen is the address for serve mode.
	Listen string `toml:"listen"`
	// Sheet is the sheet name edits are stored under.
	Sheet string `toml:"sheet"`

	UI UIConfig `toml:"ui"`
}

type UIConfig struct {
	ColWidth int `toml:"col_width"`
	Cols     int `toml:"cols"`
	Rows     int `toml:"rows"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath: defaultDBPath(),
		Listen: ":8080",
		Sheet:  "main",
		UI: UIConfig{
			ColWidth: 12,
			Cols:     8,
			Rows:     40,
		},
	}
}

// Load reads the config file at path, falling back to defaults for any
// key the file omits. A missing file is not an error; malformed toml is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath is ~/.config/gridsheet/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "gridsheet", "config.toml")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gridsheet.db"
	}
	return filepath.Join(home, ".local", "share", "gridsheet", "cells.db")
}
