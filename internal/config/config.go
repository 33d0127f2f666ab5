// Package config holds the ringctl settings: defaults, an optional JSON
// settings file, and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sugawarayuuta/sonnet"
)

// Config mirrors the settings file, every field can also be set by a flag.
type Config struct {
	Capacity int    `json:"capacity"` // [1:…] ring size in bytes
	Chunk    int    `json:"chunk"`    // [1:…] size of each read/write request
	Writers  int    `json:"writers"`  // [1:…] stress writers
	Readers  int    `json:"readers"`  // [1:…] stress readers
	Bytes    int64  `json:"bytes"`    // [1:…] bytes per stress writer
	LogPath  string `json:"logPath"`
	Debug    bool   `json:"debug"`
	AuditDB  string `json:"auditDB"` // sqlite file for run reports, disabled when empty
}

// Default returns the settings used when neither file nor flag overrides them.
// The capacity matches the reference ring device.
func Default() Config {
	return Config{
		Capacity: 10,
		Chunk:    4096,
		Writers:  4,
		Readers:  4,
		Bytes:    1 << 20,
	}
}

// Load overlays the JSON file at path onto cfg. A missing file is not an
// error, the defaults stay in place.
func Load(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("no config file found, using defaults", "path", path)
			return nil
		}
		return err
	}

	if err := sonnet.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	slog.Debug("config loaded", "path", path)
	return nil
}

// Validate checks every numeric setting against its range.
func (c Config) Validate() error {
	for _, v := range []struct {
		name  string
		value int64
	}{
		{"capacity", int64(c.Capacity)},
		{"chunk", int64(c.Chunk)},
		{"writers", int64(c.Writers)},
		{"readers", int64(c.Readers)},
		{"bytes", c.Bytes},
	} {
		if v.value < 1 {
			return fmt.Errorf(
				"value of %s '%d' out of range [1:...]",
				v.name,
				v.value,
			)
		}
	}
	return nil
}
