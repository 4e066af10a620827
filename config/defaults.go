package config

import (
	"time"

	"github.com/cyberinferno/rftool/gpio"
)

// Default returns the configuration of a bench setup without hardware: the
// simulated converter, clock, GPIO and register window on the standard ports.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			CommandAddr: "0.0.0.0:8081",
			DataAddr:    "0.0.0.0:8082",
		},
		DataPath: DataPathConfig{
			Mover:        "sim",
			Device:       "/dev/xdma0_c2h_0",
			ChunkSize:    64 * 1024,
			PollInterval: 100 * time.Millisecond,
			FrameSamples: 1024,
			SampleRateHz: 245.76e6,
			ToneHz:       10e6,
			Amplitude:    8191,
		},
		Hardware: HardwareConfig{
			Board:        "zcu216",
			Clock:        "sim",
			ClockConfigs: 4,
		},
		GPIO: GPIOConfig{
			Backend:   "sim",
			SysfsRoot: gpio.DefaultSysfsRoot,
			ChipBase:  0,
			Pins: []gpio.Pin{
				{Number: 0, Direction: gpio.Out},
				{Number: 1, Direction: gpio.Out},
				{Number: 2, Direction: gpio.In},
				{Number: 3, Direction: gpio.In},
			},
		},
		MemMap: MemMapConfig{
			Backend: "sim",
			Path:    "/dev/mem",
			Base:    0xA0000000,
			Size:    64 * 1024,
		},
		ReadbackCache: CacheConfig{
			Enabled:   false,
			Backend:   "memory",
			TTL:       30 * time.Second,
			RedisAddr: "localhost:6379",
			Namespace: "rftool:",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "0.0.0.0:9100",
		},
	}
}
