package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// profile holds connection defaults. Secrets are never read from or written to it.
type profile struct {
	APIURL       string `toml:"api_url"`
	HLSURL       string `toml:"hls_url"`
	Username     string `toml:"username"`
	CatchAllPath string `toml:"catch_all_path"`
}

func defaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mtxctl", "profile.toml")
}

// loadProfile reads path. A missing file at the default location is not an error.
func loadProfile(path string, explicit bool) (profile, error) {
	var p profile
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return p, nil
		}
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return p, nil
}
