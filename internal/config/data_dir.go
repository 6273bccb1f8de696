// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvDataDir names the data directory variable.
const EnvDataDir = "CAMHLS_DATA"

// ResolveDataDirFromEnv resolves the data directory from the environment.
func ResolveDataDirFromEnv() string {
	return strings.TrimSpace(ParseString(EnvDataDir, ""))
}

// DefaultConfigPath returns ${CAMHLS_DATA}/config.yaml when that file exists.
func DefaultConfigPath() (string, bool) {
	dir := ResolveDataDirFromEnv()
	if dir == "" {
		return "", false
	}
	path := filepath.Join(dir, "config.yaml")
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// resolveUnder makes p absolute, interpreting relative paths against base.
func resolveUnder(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
