package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/airspace-deconfliction/core"
	"github.com/signalsfoundry/airspace-deconfliction/internal/logging"
)

// EnvPrefix is prepended to every environment override, e.g.
// DECONFLICT_DECONFLICTION_SAFETY_BUFFER.
const EnvPrefix = "DECONFLICT"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// ServerConfig holds listener settings for the gRPC service.
type ServerConfig struct {
	GRPCAddress     string        `mapstructure:"grpc_address"`
	MetricsAddress  string        `mapstructure:"metrics_address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DeconflictionConfig holds detector parameters and service limits.
type DeconflictionConfig struct {
	SafetyBuffer   float64 `mapstructure:"safety_buffer"`   // metres
	TimeResolution float64 `mapstructure:"time_resolution"` // seconds
	Workers        int     `mapstructure:"workers"`
	ChunkSize      int     `mapstructure:"chunk_size"`
	MaxSamples     int     `mapstructure:"max_samples"`
	CacheSize      int     `mapstructure:"cache_size"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// TracingConfig governs OpenTelemetry initialisation.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Exporter    string  `mapstructure:"exporter"` // stdout | otlp
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Config holds the entire configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Deconfliction DeconflictionConfig `mapstructure:"deconfliction"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			GRPCAddress:     ":50051",
			MetricsAddress:  ":9090",
			ShutdownTimeout: 5 * time.Second,
		},
		Deconfliction: DeconflictionConfig{
			SafetyBuffer:   core.DefaultSafetyBuffer,
			TimeResolution: core.DefaultTimeResolution,
			Workers:        runtime.NumCPU(),
			ChunkSize:      core.DefaultChunkSize,
			MaxSamples:     1_000_000,
			CacheSize:      256,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			MaxSizeMB: 64,
		},
		Tracing: TracingConfig{
			ServiceName: "deconfliction-grpc",
			Exporter:    "stdout",
			SampleRatio: 1,
		},
	}
}

// Validate checks ranges that would otherwise surface as runtime failures.
func (c Config) Validate() error {
	d := c.Deconfliction
	var problems []string
	if err := d.Detector().Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if d.Workers < 0 {
		problems = append(problems, fmt.Sprintf("deconfliction.workers must be >= 0, got %d", d.Workers))
	}
	if d.ChunkSize < 0 {
		problems = append(problems, fmt.Sprintf("deconfliction.chunk_size must be >= 0, got %d", d.ChunkSize))
	}
	if d.MaxSamples < 0 {
		problems = append(problems, fmt.Sprintf("deconfliction.max_samples must be >= 0, got %d", d.MaxSamples))
	}
	if d.CacheSize < 0 {
		problems = append(problems, fmt.Sprintf("deconfliction.cache_size must be >= 0, got %d", d.CacheSize))
	}
	if r := c.Tracing.SampleRatio; r < 0 || r > 1 {
		problems = append(problems, fmt.Sprintf("tracing.sample_ratio must be within [0,1], got %g", r))
	}
	switch strings.ToLower(c.Tracing.Exporter) {
	case "", "stdout", "otlp", "otlpgrpc":
	default:
		problems = append(problems, fmt.Sprintf("tracing.exporter %q is not supported", c.Tracing.Exporter))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Detector converts the section into detector parameters.
func (d DeconflictionConfig) Detector() core.DetectorConfig {
	return core.DetectorConfig{
		SafetyBuffer:   d.SafetyBuffer,
		TimeResolution: d.TimeResolution,
		Workers:        d.Workers,
		ChunkSize:      d.ChunkSize,
	}
}

// Logger converts the section into logger options.
func (l LoggingConfig) Logger() logging.Config {
	return logging.Config{
		Level:      l.Level,
		Format:     l.Format,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
		AddSource:  true,
	}
}

// Loader reads configuration from an optional file plus the environment and
// can watch the file for changes.
type Loader struct {
	v *viper.Viper

	mu      sync.RWMutex
	current Config
}

// NewLoader prepares a viper instance seeded with defaults. An empty path
// loads defaults and environment overrides only.
func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	}
	return &Loader{v: v}
}

// Load reads, decodes and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	if l.v.ConfigFileUsed() != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", l.v.ConfigFileUsed(), err)
		}
	}
	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = *cfg
	l.mu.Unlock()
	return cfg, nil
}

// Current returns the last successfully loaded configuration.
func (l *Loader) Current() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Watch calls onChange with every valid configuration written to the file
// after Load. Invalid edits are reported through onError and leave the
// current configuration in place. Watch is a no-op without a config file.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		l.mu.Lock()
		l.current = *cfg
		l.mu.Unlock()
		if onChange != nil {
			onChange(cfg)
		}
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is a convenience wrapper around NewLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// setDefaults registers every key so AutomaticEnv can resolve overrides for
// keys absent from the file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.grpc_address", d.Server.GRPCAddress)
	v.SetDefault("server.metrics_address", d.Server.MetricsAddress)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("deconfliction.safety_buffer", d.Deconfliction.SafetyBuffer)
	v.SetDefault("deconfliction.time_resolution", d.Deconfliction.TimeResolution)
	v.SetDefault("deconfliction.workers", d.Deconfliction.Workers)
	v.SetDefault("deconfliction.chunk_size", d.Deconfliction.ChunkSize)
	v.SetDefault("deconfliction.max_samples", d.Deconfliction.MaxSamples)
	v.SetDefault("deconfliction.cache_size", d.Deconfliction.CacheSize)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.sample_ratio", d.Tracing.SampleRatio)
}
