package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cyberinferno/rftool/gpio"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rftool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoad(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeFile(t, `
logging:
  level: DEBUG
server:
  command_addr: "127.0.0.1:9001"
  idle_timeout: 30s
hardware:
  board: ZCU208
gpio:
  pins:
    - number: 5
      direction: out
readback_cache:
  enabled: true
  backend: redis
  redis_addr: "redis:6379"
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.Equal(t, "127.0.0.1:9001", cfg.Server.CommandAddr)
		assert.Equal(t, "0.0.0.0:8082", cfg.Server.DataAddr)
		assert.Equal(t, 30*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, "zcu208", cfg.Hardware.Board)
		assert.Equal(t, []gpio.Pin{{Number: 5, Direction: gpio.Out}}, cfg.GPIO.Pins)
		assert.True(t, cfg.ReadbackCache.Enabled)
		assert.Equal(t, "redis", cfg.ReadbackCache.Backend)
		assert.Equal(t, 30*time.Second, cfg.ReadbackCache.TTL)
		assert.Equal(t, 100*time.Millisecond, cfg.DataPath.PollInterval)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeFile(t, "server:\n  command_addr: \"127.0.0.1:9001\"\n")
		t.Setenv("RFTOOL_SERVER_COMMAND_ADDR", "127.0.0.1:9101")
		t.Setenv("RFTOOL_DATAPATH_POLL_INTERVAL", "250ms")
		t.Setenv("RFTOOL_METRICS_ENABLED", "true")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9101", cfg.Server.CommandAddr)
		assert.Equal(t, 250*time.Millisecond, cfg.DataPath.PollInterval)
		assert.True(t, cfg.Metrics.Enabled)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		path := writeFile(t, "datapath:\n  mover: laser\n")
		_, err := Load(path)
		require.Error(t, err)

		var verrs validator.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Equal(t, "Mover", verrs[0].Field())
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "Level"},
		{"command address", func(c *Config) { c.Server.CommandAddr = "8081" }, "CommandAddr"},
		{"port out of range", func(c *Config) { c.Server.DataAddr = ":70000" }, "DataAddr"},
		{"negative idle timeout", func(c *Config) { c.Server.IdleTimeout = -time.Second }, "IdleTimeout"},
		{"device mover without device", func(c *Config) { c.DataPath.Mover = "device"; c.DataPath.Device = "" }, "Device"},
		{"tone above sample rate", func(c *Config) { c.DataPath.ToneHz = 300e6 }, "ToneHz"},
		{"amplitude", func(c *Config) { c.DataPath.Amplitude = 40000 }, "Amplitude"},
		{"board", func(c *Config) { c.Hardware.Board = "zcu102" }, "Board"},
		{"pin direction", func(c *Config) { c.GPIO.Pins[0].Direction = "both" }, "Direction"},
		{"sysfs without root", func(c *Config) { c.GPIO.Backend = "sysfs"; c.GPIO.SysfsRoot = "" }, "SysfsRoot"},
		{"memmap size", func(c *Config) { c.MemMap.Size = 0 }, "Size"},
		{"redis without address", func(c *Config) { c.ReadbackCache.Backend = "redis"; c.ReadbackCache.RedisAddr = "" }, "RedisAddr"},
		{"cache ttl", func(c *Config) { c.ReadbackCache.TTL = 0 }, "TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}

	t.Run("port zero is allowed", func(t *testing.T) {
		cfg := Default()
		cfg.Server.CommandAddr = "127.0.0.1:0"
		assert.NoError(t, Validate(cfg))
	})
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rftool.yaml")
	cfg := Default()
	cfg.Server.IdleTimeout = 90 * time.Second
	cfg.Hardware.Board = "zcu208"

	require.NoError(t, Save(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Contains(t, raw, "readback_cache")
	assert.Contains(t, string(data), "idle_timeout: 1m30s")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
