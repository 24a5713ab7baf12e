// Package config assembles the daemon configuration from defaults, an
// optional YAML file, and INTERVIEWD_-prefixed environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (INTERVIEWD_SERVER_PORT, INTERVIEWD_ORACLE_MODEL, ...)
//  2. YAML config file (~/.config/interviewd/config.yaml)
//  3. Built-in defaults
//
// Each section maps onto the owning package's Config type; validation
// is delegated to those packages so a section rejects exactly what its
// consumer would reject.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/interviewd/internal/chunker"
	"github.com/fyrsmithlabs/interviewd/internal/embeddings"
	"github.com/fyrsmithlabs/interviewd/internal/extraction"
	"github.com/fyrsmithlabs/interviewd/internal/factstore"
	"github.com/fyrsmithlabs/interviewd/internal/logging"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/server"
	"github.com/fyrsmithlabs/interviewd/internal/telemetry"
	"github.com/fyrsmithlabs/interviewd/internal/watcher"
)

// appDirName is the directory under ~/.config (and /etc) holding the
// daemon's config file and default data.
const appDirName = "interviewd"

// Config is the complete daemon configuration, one section per
// subsystem.
type Config struct {
	Server     server.Config     `koanf:"server"`
	Logging    logging.Config    `koanf:"logging"`
	Telemetry  telemetry.Config  `koanf:"telemetry"`
	FactStore  factstore.Config  `koanf:"factstore"`
	Chunker    chunker.Config    `koanf:"chunker"`
	Embeddings embeddings.Config `koanf:"embeddings"`
	Oracle     oracle.Config     `koanf:"oracle"`
	Extraction extraction.Config `koanf:"extraction"`
	Watcher    watcher.Config    `koanf:"watcher"`
}

// NewDefaultConfig returns the built-in defaults. The fact store data
// directory is placed under the user's config directory when the home
// directory can be resolved; API keys have no default and come from
// the config file or environment.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Logging:   *logging.NewDefaultConfig(),
		Telemetry: telemetry.NewDefaultConfig(),
		Chunker:   chunker.DefaultConfig(),
	}
	cfg.Server.ApplyDefaults()
	cfg.FactStore.ApplyDefaults()
	cfg.Embeddings.ApplyDefaults()
	cfg.Oracle.ApplyDefaults()
	cfg.Extraction.ApplyDefaults()
	cfg.Watcher.ApplyDefaults()

	if home, err := os.UserHomeDir(); err == nil {
		cfg.FactStore.DataDir = filepath.Join(home, ".config", appDirName, "facts")
	}
	return cfg
}

// Validate checks every section, wrapping failures with the section
// name.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := c.FactStore.Validate(); err != nil {
		return fmt.Errorf("factstore: %w", err)
	}
	if err := c.Chunker.Validate(); err != nil {
		return fmt.Errorf("chunker: %w", err)
	}
	if err := c.Embeddings.Validate(); err != nil {
		return fmt.Errorf("embeddings: %w", err)
	}
	if err := c.Oracle.Validate(); err != nil {
		return fmt.Errorf("oracle: %w", err)
	}
	if err := c.Extraction.Validate(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	if err := c.Watcher.Validate(); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	return nil
}
