// Package config loads the rftool service configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (RFTOOL_*, e.g. RFTOOL_SERVER_COMMAND_ADDR)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cyberinferno/rftool/gpio"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "RFTOOL"

// Config is the rftool service configuration.
type Config struct {
	// Logging controls log output
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server holds the command and data channel listeners
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// DataPath selects and tunes the sample source streamed to clients
	DataPath DataPathConfig `mapstructure:"datapath" yaml:"datapath"`

	// Hardware describes the board and its clock chip
	Hardware HardwareConfig `mapstructure:"hardware" yaml:"hardware"`

	// GPIO configures the GPIO controller; its initialization is fatal on failure
	GPIO GPIOConfig `mapstructure:"gpio" yaml:"gpio"`

	// MemMap configures the register window; its initialization is fatal on failure
	MemMap MemMapConfig `mapstructure:"memmap" yaml:"memmap"`

	// ReadbackCache caches converter getters between configuration changes
	ReadbackCache CacheConfig `mapstructure:"readback_cache" yaml:"readback_cache"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn or error
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error" yaml:"level"`

	// Format is json or console
	Format string `mapstructure:"format" validate:"required,oneof=json console" yaml:"format"`

	// Dir, when set, also writes daily log files into this directory
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ServerConfig holds the listener addresses and session policy.
type ServerConfig struct {
	CommandAddr string `mapstructure:"command_addr" validate:"required,listen_addr" yaml:"command_addr"`
	DataAddr    string `mapstructure:"data_addr" validate:"required,listen_addr" yaml:"data_addr"`

	// IdleTimeout ends sessions whose client sends no command for this long.
	// Default: 0 (wait indefinitely)
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gte=0" yaml:"idle_timeout"`
}

// DataPathConfig selects the sample source.
type DataPathConfig struct {
	// Mover is "sim" (synthetic tone) or "device" (DMA character device)
	Mover string `mapstructure:"mover" validate:"required,oneof=sim device" yaml:"mover"`

	// Device is the DMA character device read by the device mover
	Device string `mapstructure:"device" validate:"required_if=Mover device" yaml:"device"`

	// ChunkSize is the size of each device read in bytes
	ChunkSize int `mapstructure:"chunk_size" validate:"gt=0" yaml:"chunk_size"`

	// PollInterval bounds how long the worker goes without checking whether
	// it should stop
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0" yaml:"poll_interval"`

	FrameSamples  int           `mapstructure:"frame_samples" validate:"gt=0" yaml:"frame_samples"`
	SampleRateHz  float64       `mapstructure:"sample_rate_hz" validate:"gt=0" yaml:"sample_rate_hz"`
	ToneHz        float64       `mapstructure:"tone_hz" validate:"gte=0,ltfield=SampleRateHz" yaml:"tone_hz"`
	Amplitude     float64       `mapstructure:"amplitude" validate:"gt=0,lte=32767" yaml:"amplitude"`
	FrameInterval time.Duration `mapstructure:"frame_interval" validate:"gte=0" yaml:"frame_interval"`
}

// HardwareConfig describes the board.
type HardwareConfig struct {
	// Board is zcu216 or zcu208
	Board string `mapstructure:"board" validate:"required,oneof=zcu216 zcu208" yaml:"board"`

	// Clock is "sim" for the simulated clock chip or "none" when no chip is
	// fitted
	Clock string `mapstructure:"clock" validate:"required,oneof=sim none" yaml:"clock"`

	// ClockConfigs is the number of predefined clock configurations
	ClockConfigs int `mapstructure:"clock_configs" validate:"gt=0" yaml:"clock_configs"`
}

// GPIOConfig configures the GPIO controller.
type GPIOConfig struct {
	// Backend is "sim" or "sysfs"
	Backend string `mapstructure:"backend" validate:"required,oneof=sim sysfs" yaml:"backend"`

	// SysfsRoot is the sysfs GPIO class directory
	SysfsRoot string `mapstructure:"sysfs_root" validate:"required_if=Backend sysfs" yaml:"sysfs_root"`

	// ChipBase is the sysfs number of the first line of the GPIO chip
	ChipBase int `mapstructure:"chip_base" validate:"gte=0" yaml:"chip_base"`

	Pins []gpio.Pin `mapstructure:"pins" validate:"dive" yaml:"pins"`
}

// MemMapConfig configures the register window.
type MemMapConfig struct {
	// Backend is "sim" or "devmem"
	Backend string `mapstructure:"backend" validate:"required,oneof=sim devmem" yaml:"backend"`

	// Path is the physical memory device used by the devmem backend
	Path string `mapstructure:"path" validate:"required_if=Backend devmem" yaml:"path"`

	// Base is the physical base address; it must be page aligned
	Base int64 `mapstructure:"base" validate:"gte=0" yaml:"base"`

	// Size is the window size in bytes
	Size int `mapstructure:"size" validate:"gt=0" yaml:"size"`
}

// CacheConfig configures the converter read-back cache.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Backend is "memory" or "redis"
	Backend string `mapstructure:"backend" validate:"required,oneof=memory redis" yaml:"backend"`

	TTL time.Duration `mapstructure:"ttl" validate:"gt=0" yaml:"ttl"`

	// RedisAddr is required for the redis backend
	RedisAddr string `mapstructure:"redis_addr" validate:"required_if=Backend redis" yaml:"redis_addr"`

	// Namespace prefixes redis keys so several boards can share one server
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required,listen_addr" yaml:"addr"`
}

// Load reads configuration from defaults, the file at configPath (if any)
// and RFTOOL_* environment variables, then validates it.
//
// Parameters:
//   - configPath: Path to a YAML file; empty uses defaults and environment only
//
// Returns:
//   - The validated configuration, or the read, decode or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Save writes cfg to path as YAML, creating the parent directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	return data, nil
}

// setDefaults registers every field of def with viper so that environment
// variables can override keys absent from the file.
func setDefaults(v *viper.Viper, def *Config) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}

	setTree(v, "", tree)
	return nil
}

func setTree(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		if sub, ok := val.(map[string]any); ok {
			setTree(v, key, sub)
			continue
		}

		v.SetDefault(key, val)
	}
}

// normalize lowercases enumerated values so files may use any case.
func normalize(cfg *Config) {
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	cfg.Hardware.Board = strings.ToLower(cfg.Hardware.Board)
	cfg.Hardware.Clock = strings.ToLower(cfg.Hardware.Clock)
	cfg.GPIO.Backend = strings.ToLower(cfg.GPIO.Backend)
	cfg.MemMap.Backend = strings.ToLower(cfg.MemMap.Backend)
	cfg.DataPath.Mover = strings.ToLower(cfg.DataPath.Mover)
	cfg.ReadbackCache.Backend = strings.ToLower(cfg.ReadbackCache.Backend)
}
