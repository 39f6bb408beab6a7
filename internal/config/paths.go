package config

import (
	"os"
	"path/filepath"
)

// XDGConfigHome returns the XDG config home or a fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}

	return filepath.Join(home, ".config")
}

// DefaultPath returns the default TOML config path.
func DefaultPath() string {
	return filepath.Join(XDGConfigHome(), "ramanalyze", "config.toml")
}
