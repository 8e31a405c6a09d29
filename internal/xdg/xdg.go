// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

// Package xdg resolves XDG Base Directory paths for Audio-Draft.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "audiodraft"

// ConfigFileName is the default configuration file inside ConfigDir.
const ConfigFileName = "config.yaml"

// ConfigDir returns the XDG config directory for audiodraft.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", oops.Code("XDG_HOME_UNKNOWN").Wrap(err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}

// ConfigFile returns the default configuration file path.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}
