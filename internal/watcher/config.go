package watcher

import (
	"fmt"
	"time"
)

// DefaultDebounce is how long a file must sit quiet after its last
// write before it gets ingested.
const DefaultDebounce = 500 * time.Millisecond

// Config controls the watch-directory ingest loop.
type Config struct {
	// Dir is the directory to watch for PDF case documents. Empty
	// disables the watcher.
	Dir string `koanf:"dir"`

	// Debounce is the quiet period after the last write event before a
	// file is ingested. Copies and downloads produce bursts of write
	// events; the debounce collapses each burst into one ingest.
	Debounce time.Duration `koanf:"debounce"`
}

// ApplyDefaults fills unset fields with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Debounce == 0 {
		c.Debounce = DefaultDebounce
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Debounce < 0 {
		return fmt.Errorf("%w: debounce must not be negative, got %s", ErrInvalidConfig, c.Debounce)
	}
	return nil
}

// Enabled reports whether a watch directory is configured.
func (c *Config) Enabled() bool {
	return c.Dir != ""
}
