// Package config loads and validates the YAML configuration for a node
// host process: logging, telemetry, the overlay engine's tunables, and the
// admin surface.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/8xFF/decentralized-sdn/internal/logger"
)

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout | otlp
	Endpoint string `yaml:"endpoint"`
}

type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

type FileLoggerConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

type LoggerConfig struct {
	Active   bool             `yaml:"active"`
	Level    string           `yaml:"level"`
	Encoding string           `yaml:"encoding"` // console | json
	Mode     string           `yaml:"mode"`     // stdout | file
	File     FileLoggerConfig `yaml:"file"`
}

// RouterSyncConfig tunes the periodic neighbour-exchange feature (§4.5).
type RouterSyncConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// NeighboursConfig tunes the neighbour lifecycle state machine (§4.6).
type NeighboursConfig struct {
	TimeoutMs     int64   `yaml:"timeoutMs"`
	PingRateHz    float64 `yaml:"pingRateHz"`
	PingBurst     int     `yaml:"pingBurst"`
}

// DhtKvConfig tunes the eventually-consistent key/value feature.
type DhtKvConfig struct {
	GetTimeoutMs   int64         `yaml:"getTimeoutMs"`
	SyncInterval   time.Duration `yaml:"syncInterval"`
}

// DataPlaneConfig sizes the worker pool and the broadcast dedup history.
type DataPlaneConfig struct {
	Workers        int `yaml:"workers"`
	HistorySize    int `yaml:"historySize"`
}

type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
}

type EngineConfig struct {
	RouterSync RouterSyncConfig `yaml:"routerSync"`
	Neighbours NeighboursConfig `yaml:"neighbours"`
	DhtKv      DhtKvConfig      `yaml:"dhtKv"`
	DataPlane  DataPlaneConfig  `yaml:"dataPlane"`
}

type NodeConfig struct {
	Id         string   `yaml:"id"` // hex uint32, optional
	Bind       string   `yaml:"bind"`
	Port       int      `yaml:"port"`
	StaticPeers []string `yaml:"staticPeers"`
}

type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	Engine    EngineConfig    `yaml:"engine"`
	Node      NodeConfig      `yaml:"node"`
	Admin     AdminConfig     `yaml:"admin"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LoadConfig reads and parses the YAML configuration file at path. It
// performs only syntactic parsing; call ValidateConfig afterwards.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnvOverrides overrides selected, deployment-specific fields from
// environment variables.
//
//	NODE_ID, NODE_BIND, NODE_PORT, NODE_STATIC_PEERS (comma-separated)
//	ADMIN_ENABLED, ADMIN_BIND
//	LOGGER_ACTIVE, LOGGER_LEVEL, LOGGER_ENCODING, LOGGER_MODE, LOGGER_FILE_PATH
//	TRACE_ENABLED, TRACE_EXPORTER, TRACE_ENDPOINT
func (cfg *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NODE_ID"); v != "" {
		cfg.Node.Id = v
	}
	if v := os.Getenv("NODE_BIND"); v != "" {
		cfg.Node.Bind = v
	} else if cfg.Node.Bind == "" {
		cfg.Node.Bind = "0.0.0.0"
	}
	if v := os.Getenv("NODE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Node.Port = port
		}
	}
	if v := os.Getenv("NODE_STATIC_PEERS"); v != "" {
		cfg.Node.StaticPeers = strings.Split(v, ",")
	}
	if v := os.Getenv("ADMIN_ENABLED"); v != "" {
		cfg.Admin.Enabled = parseBool(v)
	}
	if v := os.Getenv("ADMIN_BIND"); v != "" {
		cfg.Admin.Bind = v
	}
	if v := os.Getenv("LOGGER_ACTIVE"); v != "" {
		cfg.Logger.Active = parseBool(v)
	}
	if v := os.Getenv("LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("LOGGER_ENCODING"); v != "" {
		cfg.Logger.Encoding = v
	}
	if v := os.Getenv("LOGGER_MODE"); v != "" {
		cfg.Logger.Mode = v
	}
	if v := os.Getenv("LOGGER_FILE_PATH"); v != "" {
		cfg.Logger.File.Path = v
	}
	if v := os.Getenv("TRACE_ENABLED"); v != "" {
		cfg.Telemetry.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("TRACE_EXPORTER"); v != "" {
		cfg.Telemetry.Tracing.Exporter = v
	}
	if v := os.Getenv("TRACE_ENDPOINT"); v != "" {
		cfg.Telemetry.Tracing.Endpoint = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(v)
	return v == "true" || v == "1" || v == "yes"
}

// ValidateConfig performs structural validation, accumulating every error
// found rather than failing on the first one.
func (cfg *Config) ValidateConfig() error {
	var errs []string

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.level: %s", cfg.Logger.Level))
	}
	switch cfg.Logger.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.encoding: %s", cfg.Logger.Encoding))
	}
	switch cfg.Logger.Mode {
	case "stdout":
	case "file":
		if cfg.Logger.File.Path == "" {
			errs = append(errs, "logger.file.path is required when mode=file")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.mode: %s", cfg.Logger.Mode))
	}

	if cfg.Engine.RouterSync.Interval <= 0 {
		errs = append(errs, "engine.routerSync.interval must be > 0")
	}
	if cfg.Engine.Neighbours.TimeoutMs <= 0 {
		errs = append(errs, "engine.neighbours.timeoutMs must be > 0")
	}
	if cfg.Engine.Neighbours.PingRateHz <= 0 {
		errs = append(errs, "engine.neighbours.pingRateHz must be > 0")
	}
	if cfg.Engine.DataPlane.Workers <= 0 {
		errs = append(errs, "engine.dataPlane.workers must be > 0")
	}
	if cfg.Engine.DataPlane.HistorySize <= 0 {
		errs = append(errs, "engine.dataPlane.historySize must be > 0")
	}
	if cfg.Engine.DhtKv.GetTimeoutMs <= 0 {
		errs = append(errs, "engine.dhtKv.getTimeoutMs must be > 0")
	}

	if cfg.Node.Port < 0 || cfg.Node.Port > 65535 {
		errs = append(errs, fmt.Sprintf("node.port must be in [0,65535], got %d", cfg.Node.Port))
	}
	for _, p := range cfg.Node.StaticPeers {
		if _, _, err := net.SplitHostPort(p); err != nil {
			errs = append(errs, fmt.Sprintf("invalid static peer address %q: %v", p, err))
		}
	}

	if cfg.Telemetry.Tracing.Enabled {
		switch cfg.Telemetry.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			errs = append(errs, fmt.Sprintf("invalid telemetry.tracing.exporter: %s", cfg.Telemetry.Tracing.Exporter))
		}
		if cfg.Telemetry.Tracing.Exporter == "otlp" && cfg.Telemetry.Tracing.Endpoint == "" {
			errs = append(errs, "telemetry.tracing.endpoint is required for the otlp exporter")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogConfig prints the loaded configuration at DEBUG level.
func (cfg *Config) LogConfig(lgr logger.Logger) {
	lgr.Debug("loaded configuration",
		logger.F("logger.active", cfg.Logger.Active),
		logger.F("logger.level", cfg.Logger.Level),
		logger.F("logger.encoding", cfg.Logger.Encoding),
		logger.F("logger.mode", cfg.Logger.Mode),

		logger.F("engine.routerSync.interval", cfg.Engine.RouterSync.Interval.String()),
		logger.F("engine.neighbours.timeoutMs", cfg.Engine.Neighbours.TimeoutMs),
		logger.F("engine.neighbours.pingRateHz", cfg.Engine.Neighbours.PingRateHz),
		logger.F("engine.dhtKv.getTimeoutMs", cfg.Engine.DhtKv.GetTimeoutMs),
		logger.F("engine.dataPlane.workers", cfg.Engine.DataPlane.Workers),
		logger.F("engine.dataPlane.historySize", cfg.Engine.DataPlane.HistorySize),

		logger.F("node.id", cfg.Node.Id),
		logger.F("node.bind", cfg.Node.Bind),
		logger.F("node.port", cfg.Node.Port),
		logger.F("node.staticPeers", cfg.Node.StaticPeers),

		logger.F("admin.enabled", cfg.Admin.Enabled),
		logger.F("admin.bind", cfg.Admin.Bind),

		logger.F("telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled),
		logger.F("telemetry.tracing.exporter", cfg.Telemetry.Tracing.Exporter),
		logger.F("telemetry.tracing.endpoint", cfg.Telemetry.Tracing.Endpoint),
	)
}
