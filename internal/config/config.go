// internal/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

type Config struct {
	Encoding struct {
		CheckContentMarkers bool `json:"check_content_markers"`
		ValidateUTF8        bool `json:"validate_utf8"`
	} `json:"encoding"`

	Decoder struct {
		StrictTags bool `json:"strict_tags"`
	} `json:"decoder"`

	Vault struct {
		Root      string `json:"root"`
		CacheSize int    `json:"cache_size"`
	} `json:"vault"`

	LogLevel string `json:"log_level"` // debug, info, warn, error
}

// Default returns the built-in configuration: both detection rules on,
// permissive tags, vault under the user cache dir.
func Default() *Config {
	var c Config
	c.Encoding.CheckContentMarkers = true
	c.Encoding.ValidateUTF8 = true
	c.Vault.CacheSize = 128
	c.LogLevel = "warn"

	if cache, err := os.UserCacheDir(); err == nil {
		c.Vault.Root = filepath.Join(cache, "emtar", "vault")
	} else {
		c.Vault.Root = filepath.Join(os.TempDir(), "emtar-vault")
	}
	return &c
}

// Path resolves the config file location: EMTAR_CONFIG if set,
// otherwise emtar.json under the user config dir.
func Path() string {
	if p := os.Getenv("EMTAR_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "emtar.json"
	}
	return filepath.Join(dir, "emtar", "emtar.json")
}

// Load reads a config file over the defaults. A missing file is not an
// error; the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	config := Default()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}

	return config, nil
}
