// Package config loads the environment/config surface this server
// exposes: listen address, default bound ports, event-loop thread
// count, and the various capacity and timeout knobs. It follows the
// teacher's Config struct + Default...Config() constructor pattern,
// overlaid by a YAML file and then by environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// TLSConfig configures HTTPS listeners. No self-signed certificate
// generation: both fields must name real files on disk for TLS to be
// enabled.
type TLSConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	CertFile string `json:"certFile,omitempty" yaml:"certFile,omitempty"`
	KeyFile  string `json:"keyFile,omitempty" yaml:"keyFile,omitempty"`
}

// Config is the server's full environment/configuration surface.
type Config struct {
	// ListenAddr is the IP address every bound port listens on.
	ListenAddr string `json:"listenAddr" yaml:"listenAddr"`
	// Ports are the default bound ports, opened at Start.
	Ports []int `json:"ports" yaml:"ports"`
	// EventLoopThreads sizes the scheduler's worker pool.
	EventLoopThreads int `json:"eventLoopThreads" yaml:"eventLoopThreads"`
	// MaxLogEntries bounds the request/response log's ring buffer.
	MaxLogEntries int `json:"maxLogEntries" yaml:"maxLogEntries"`
	// MaxExpectations is loaded from file and environment; no other
	// package reads it, so the store does not limit how many
	// expectations it accepts.
	MaxExpectations int `json:"maxExpectations" yaml:"maxExpectations"`
	// MaxWebSocketQueue bounds each callback registration's send queue.
	MaxWebSocketQueue int `json:"maxWebSocketQueue" yaml:"maxWebSocketQueue"`
	// CallbackResponseTimeout bounds how long an ObjectCallback waits
	// for a remote client's response.
	CallbackResponseTimeout time.Duration `json:"callbackResponseTimeout" yaml:"callbackResponseTimeout"`
	// SocketConnectionTimeout is loaded from file and environment; no
	// other package reads it, so outbound forward connections are not
	// bounded by it.
	SocketConnectionTimeout time.Duration `json:"socketConnectionTimeout" yaml:"socketConnectionTimeout"`
	// MaxSocketTimeout is loaded from file and environment; no other
	// package reads it, so no socket deadline is capped by it.
	MaxSocketTimeout time.Duration `json:"maxSocketTimeout" yaml:"maxSocketTimeout"`
	// TLS configures HTTPS listeners.
	TLS TLSConfig `json:"tls" yaml:"tls"`
	// LogLevel is the minimum level logged: debug, info, warn, or error.
	LogLevel string `json:"logLevel" yaml:"logLevel"`
	// LogFormat selects the slog handler: text or json.
	LogFormat string `json:"logFormat" yaml:"logFormat"`
	// LogLokiURL, if set, also ships every log line to a Loki push
	// endpoint (e.g. "http://localhost:3100/loki/api/v1/push").
	LogLokiURL string `json:"logLokiUrl,omitempty" yaml:"logLokiUrl,omitempty"`
}

// Default returns a Config with sensible defaults, matching the
// teacher's DefaultServerConfiguration pattern.
func Default() *Config {
	return &Config{
		ListenAddr:              "0.0.0.0",
		Ports:                   []int{8080},
		EventLoopThreads:        4,
		MaxLogEntries:           1000,
		MaxExpectations:         10000,
		MaxWebSocketQueue:       32,
		CallbackResponseTimeout: 120 * time.Second,
		SocketConnectionTimeout: 10 * time.Second,
		MaxSocketTimeout:        5 * time.Minute,
		LogLevel:                "info",
		LogFormat:               "text",
	}
}

// LoadFile overlays path's YAML content onto a fresh default Config.
// A missing file is not an error: the defaults stand as-is.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// environment variable names for the overlay applied by ApplyEnv.
const (
	envListenAddr              = "MOCKDCORE_LISTEN_ADDR"
	envEventLoopThreads        = "MOCKDCORE_EVENT_LOOP_THREADS"
	envMaxLogEntries           = "MOCKDCORE_MAX_LOG_ENTRIES"
	envMaxExpectations         = "MOCKDCORE_MAX_EXPECTATIONS"
	envMaxWebSocketQueue       = "MOCKDCORE_MAX_WEBSOCKET_QUEUE"
	envCallbackResponseTimeout = "MOCKDCORE_CALLBACK_RESPONSE_TIMEOUT"
	envSocketConnectionTimeout = "MOCKDCORE_SOCKET_CONNECTION_TIMEOUT"
	envMaxSocketTimeout        = "MOCKDCORE_MAX_SOCKET_TIMEOUT"
	envTLSCertFile             = "MOCKDCORE_TLS_CERT_FILE"
	envTLSKeyFile              = "MOCKDCORE_TLS_KEY_FILE"
	envLogLevel                = "MOCKDCORE_LOG_LEVEL"
	envLogFormat               = "MOCKDCORE_LOG_FORMAT"
	envLogLokiURL              = "MOCKDCORE_LOG_LOKI_URL"
)

// ApplyEnv overlays recognized environment variables onto cfg,
// mutating it in place. Malformed values are reported, not silently
// ignored, per the ConfigurationError taxonomy.
func (cfg *Config) ApplyEnv() error {
	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if err := overlayInt(envEventLoopThreads, &cfg.EventLoopThreads); err != nil {
		return err
	}
	if err := overlayInt(envMaxLogEntries, &cfg.MaxLogEntries); err != nil {
		return err
	}
	if err := overlayInt(envMaxExpectations, &cfg.MaxExpectations); err != nil {
		return err
	}
	if err := overlayInt(envMaxWebSocketQueue, &cfg.MaxWebSocketQueue); err != nil {
		return err
	}
	if err := overlayDuration(envCallbackResponseTimeout, &cfg.CallbackResponseTimeout); err != nil {
		return err
	}
	if err := overlayDuration(envSocketConnectionTimeout, &cfg.SocketConnectionTimeout); err != nil {
		return err
	}
	if err := overlayDuration(envMaxSocketTimeout, &cfg.MaxSocketTimeout); err != nil {
		return err
	}
	if v := os.Getenv(envTLSCertFile); v != "" {
		cfg.TLS.CertFile = v
		cfg.TLS.Enabled = true
	}
	if v := os.Getenv(envTLSKeyFile); v != "" {
		cfg.TLS.KeyFile = v
		cfg.TLS.Enabled = true
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envLogFormat); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv(envLogLokiURL); v != "" {
		cfg.LogLokiURL = v
	}
	return nil
}

func overlayInt(envVar string, dest *int) error {
	v := os.Getenv(envVar)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s=%q is not an integer: %w", envVar, v, err)
	}
	*dest = n
	return nil
}

func overlayDuration(envVar string, dest *time.Duration) error {
	v := os.Getenv(envVar)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s=%q is not a duration: %w", envVar, v, err)
	}
	*dest = d
	return nil
}
