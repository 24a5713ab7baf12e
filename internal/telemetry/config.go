package telemetry

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig indicates the telemetry configuration is invalid.
var ErrInvalidConfig = errors.New("invalid telemetry config")

// Supported OTLP transport protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

// Config holds metrics export configuration.
type Config struct {
	Enabled         bool          `koanf:"enabled"`
	Endpoint        string        `koanf:"endpoint"`
	Protocol        string        `koanf:"protocol"`
	ServiceName     string        `koanf:"service_name"`
	ServiceVersion  string        `koanf:"service_version"`
	Insecure        bool          `koanf:"insecure"` // Use insecure connection (no TLS)
	ExportInterval  time.Duration `koanf:"export_interval"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// NewDefaultConfig returns production-ready telemetry defaults.
// Telemetry is disabled by default for installs without an OTEL
// collector; set telemetry.enabled in config.yaml to turn it on.
func NewDefaultConfig() Config {
	return Config{
		Enabled:         false,
		Endpoint:        "localhost:4317",
		Protocol:        ProtocolGRPC,
		ServiceName:     "interviewd",
		ServiceVersion:  "0.1.0",
		Insecure:        true, // Insecure by default for local dev; set false for production TLS
		ExportInterval:  15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// ApplyDefaults fills unset fields with production defaults. Insecure is
// left alone: it only matters alongside an explicit endpoint.
func (c *Config) ApplyDefaults() {
	def := NewDefaultConfig()
	if c.Endpoint == "" {
		c.Endpoint = def.Endpoint
	}
	if c.Protocol == "" {
		c.Protocol = def.Protocol
	}
	if c.ServiceName == "" {
		c.ServiceName = def.ServiceName
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = def.ServiceVersion
	}
	if c.ExportInterval == 0 {
		c.ExportInterval = def.ExportInterval
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required when telemetry is enabled", ErrInvalidConfig)
	}
	if c.Protocol != ProtocolGRPC && c.Protocol != ProtocolHTTP {
		return fmt.Errorf("%w: protocol must be %q or %q, got %q",
			ErrInvalidConfig, ProtocolGRPC, ProtocolHTTP, c.Protocol)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("%w: service_name is required when telemetry is enabled", ErrInvalidConfig)
	}
	if c.ServiceVersion == "" {
		return fmt.Errorf("%w: service_version is required when telemetry is enabled", ErrInvalidConfig)
	}

	// Security: prevent insecure connections to remote endpoints.
	if c.Insecure && !c.isLocalEndpoint() {
		return fmt.Errorf("%w: insecure connections to remote endpoints are not allowed; "+
			"set insecure=false for TLS or use a local endpoint (localhost/127.0.0.1)", ErrInvalidConfig)
	}

	if c.ExportInterval <= 0 {
		return fmt.Errorf("%w: export_interval must be positive", ErrInvalidConfig)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidConfig)
	}

	return nil
}

// isLocalEndpoint checks if the endpoint is a local address.
func (c *Config) isLocalEndpoint() bool {
	host := stripScheme(c.Endpoint)

	// Handle IPv6 addresses (may be bracketed like [::1]:4317)
	if strings.HasPrefix(host, "[") {
		if idx := strings.Index(host, "]:"); idx != -1 {
			host = host[1:idx]
		} else if strings.HasSuffix(host, "]") {
			host = host[1 : len(host)-1]
		}
	} else if strings.Count(host, ":") == 1 {
		// IPv4 or hostname with port: localhost:4317
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}
	}
	// Unbracketed IPv6 (::1, ::1:4317) falls through to the prefix check.

	return host == "localhost" ||
		host == "127.0.0.1" ||
		host == "::1" ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(host, "::1")
}
