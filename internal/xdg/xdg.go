// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package xdg provides helpers to resolve XDG Base Directory paths for panelq.
// It implements the XDG Base Directory specification for determining appropriate
// locations for configuration files and state data on Unix-like systems.
//
// The config dir holds config.yaml and the dataset registry; the state dir holds
// the query log and the metrics textfile. Both fall back to the traditional
// locations when XDG variables are unset and are created private (0700).
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "panelq"

// ConfigDir returns the XDG config directory for panelq.
// It falls back to ~/.config/panelq when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return appDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for panelq.
// It falls back to ~/.local/state/panelq when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return appDir("XDG_STATE_HOME", ".local", "state")
}

func appDir(env string, fallback ...string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(append([]string{home}, fallback...)...)
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
