// Package server assembles the rftool service from its configuration: the
// hardware collaborators, the startup default pass, the command set, the data
// path and the session manager.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/cyberinferno/rftool/cacher"
	"github.com/cyberinferno/rftool/command"
	"github.com/cyberinferno/rftool/config"
	"github.com/cyberinferno/rftool/datapath"
	"github.com/cyberinferno/rftool/gpio"
	"github.com/cyberinferno/rftool/logger"
	"github.com/cyberinferno/rftool/memmap"
	"github.com/cyberinferno/rftool/metrics"
	"github.com/cyberinferno/rftool/rfdc"
	"github.com/cyberinferno/rftool/session"
	"github.com/cyberinferno/rftool/tcpserver"
)

// ErrResourceInit marks a startup failure of a resource the service cannot
// run without. The process should exit with a failure status.
var ErrResourceInit = errors.New("resource initialization failed")

// Option customizes a Server before its resources are created.
type Option func(*Server)

// WithVersion sets the text returned by GetVersion.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithGPIO uses ctrl instead of the controller selected by the configuration.
// Init is still called on it.
func WithGPIO(ctrl gpio.Controller) Option {
	return func(s *Server) { s.gpio = ctrl }
}

// WithMemory uses region instead of the one selected by the configuration.
func WithMemory(region memmap.Region) Option {
	return func(s *Server) { s.memory = region }
}

// WithConverter uses conv instead of a simulator for the configured board.
func WithConverter(conv rfdc.Converter) Option {
	return func(s *Server) { s.converter = conv }
}

// WithRegistry registers metrics with reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithSessionHook is called after every session teardown.
func WithSessionHook(fn func(session.Summary)) Option {
	return func(s *Server) { s.onSessionEnd = fn }
}

// Server is the assembled service.
type Server struct {
	cfg *config.Config
	log logger.Logger

	version      string
	onSessionEnd func(session.Summary)

	memory    memmap.Region
	gpio      gpio.Controller
	platform  *rfdc.Platform
	converter rfdc.Converter
	cached    *rfdc.CachedConverter
	startup   rfdc.StartupReport
	registry  *prometheus.Registry
	recorder  metrics.Recorder
	listener  *tcpserver.PairListener
	manager   *session.Manager

	closeOnce sync.Once
}

// New initializes every collaborator in startup order and binds both
// listeners. Memory map and GPIO failures are fatal and wrapped in
// ErrResourceInit; a missing clock chip or failed default steps are logged
// and startup continues.
//
// Parameters:
//   - ctx: Bounds the startup work, including the Redis connectivity check
//   - cfg: Validated service configuration
//   - log: Root logger
//   - opts: Overrides for tests and embedding
//
// Returns:
//   - The server, ready to Run, or the startup error
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Server, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	board, err := rfdc.BoardByName(cfg.Hardware.Board)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNop()
	}

	s := &Server{cfg: cfg, log: log.With(logger.Field{Key: "component", Value: "server"}), version: "dev"}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initMemory(); err != nil {
		return nil, err
	}

	if err := s.initGPIO(); err != nil {
		_ = s.memory.Close()
		return nil, err
	}

	s.initPlatform(board)
	s.initConverter(ctx)
	s.applyDefaults(ctx, board)

	if err := s.initSessions(log); err != nil {
		s.release()
		return nil, err
	}

	return s, nil
}

func (s *Server) initMemory() error {
	if s.memory != nil {
		return nil
	}

	mc := s.cfg.MemMap
	switch mc.Backend {
	case "devmem":
		region, err := memmap.OpenDevMem(mc.Path, mc.Base, mc.Size)
		if err != nil {
			return fmt.Errorf("%w: memory map %s: %v", ErrResourceInit, mc.Path, err)
		}
		s.memory = region
	default:
		s.memory = memmap.NewSim(mc.Size)
	}

	s.log.Info("memory map ready", logger.Field{Key: "backend", Value: mc.Backend}, logger.Field{Key: "size", Value: s.memory.Size()})
	return nil
}

func (s *Server) initGPIO() error {
	gc := s.cfg.GPIO
	if s.gpio == nil {
		var err error
		switch gc.Backend {
		case "sysfs":
			s.gpio, err = gpio.NewSysfs(gc.SysfsRoot, gc.ChipBase, gc.Pins)
		default:
			s.gpio, err = gpio.NewSim(gc.Pins)
		}
		if err != nil {
			return fmt.Errorf("%w: gpio: %v", ErrResourceInit, err)
		}
	}

	if err := s.gpio.Init(); err != nil {
		return fmt.Errorf("%w: gpio init: %v", ErrResourceInit, err)
	}

	s.log.Info("gpio ready", logger.Field{Key: "backend", Value: gc.Backend}, logger.Field{Key: "pins", Value: len(gc.Pins)})
	return nil
}

func (s *Server) initPlatform(board rfdc.Board) {
	var clock rfdc.Clock
	if s.cfg.Hardware.Clock == "sim" {
		clock = rfdc.NewSimClock(s.cfg.Hardware.ClockConfigs)
	}

	s.platform = rfdc.NewPlatform(board, clock)
	if err := s.platform.InitClock(); err != nil {
		s.log.Warn("clock chip unavailable", logger.Field{Key: "error", Value: err.Error()})
		return
	}

	s.log.Info("clock chip configured", logger.Field{Key: "lmk_config", Value: s.platform.LMKConfig()})
}

// initConverter falls back to the uncached converter when the read-back
// cache cannot be created.
func (s *Server) initConverter(ctx context.Context) {
	if s.converter == nil {
		s.converter = rfdc.NewSimulator(s.platform.Board())
	}

	cc := s.cfg.ReadbackCache
	if !cc.Enabled {
		return
	}

	opts := cacher.Options{Backend: cc.Backend, TTL: cc.TTL, RedisAddr: cc.RedisAddr}

	opts.Namespace = cc.Namespace + "mixer:"
	mixers, err := cacher.New[rfdc.MixerSettings](ctx, opts)
	if err != nil {
		s.log.Warn("read-back cache disabled", logger.Field{Key: "error", Value: err.Error()})
		return
	}

	opts.Namespace = cc.Namespace + "value:"
	values, err := cacher.New[uint32](ctx, opts)
	if err != nil {
		_ = mixers.Close()
		s.log.Warn("read-back cache disabled", logger.Field{Key: "error", Value: err.Error()})
		return
	}

	s.cached = rfdc.NewCachedConverter(s.converter, mixers, values, cc.TTL, s.log)
	s.converter = s.cached
	s.log.Info("read-back cache enabled", logger.Field{Key: "backend", Value: cc.Backend})
}

func (s *Server) applyDefaults(ctx context.Context, board rfdc.Board) {
	s.startup = rfdc.ApplyDefaults(ctx, s.converter, board)

	for _, step := range s.startup.Failures() {
		s.log.Warn("default step failed", logger.Field{Key: "step", Value: step.String()})
	}

	s.log.Info("startup defaults applied",
		logger.Field{Key: "steps", Value: len(s.startup.Steps)},
		logger.Field{Key: "failures", Value: len(s.startup.Failures())},
	)
}

func (s *Server) initSessions(log logger.Logger) error {
	if s.cfg.Metrics.Enabled {
		if s.registry == nil {
			s.registry = prometheus.NewRegistry()
		}

		rec, err := metrics.NewPrometheus(s.registry)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		s.recorder = rec
	} else {
		s.recorder = metrics.Nop{}
	}

	registry := command.NewDefaultRegistry(command.Deps{
		Converter: s.converter,
		Platform:  s.platform,
		GPIO:      s.gpio,
		Memory:    s.memory,
		Startup:   s.Startup,
		Version:   s.version,
	})

	mover, err := newMover(s.cfg.DataPath)
	if err != nil {
		return fmt.Errorf("data path: %w", err)
	}

	s.listener = &tcpserver.PairListener{
		Logger:      log,
		Name:        "rftool",
		DataAddr:    s.cfg.Server.DataAddr,
		CommandAddr: s.cfg.Server.CommandAddr,
	}
	if err := s.listener.Start(); err != nil {
		return err
	}

	s.manager, err = session.NewManager(session.Config{
		Acceptor:     s.listener,
		Processor:    command.NewProcessor(registry, log, s.recorder),
		Worker:       datapath.NewWorker(mover, s.cfg.DataPath.PollInterval, log, s.recorder),
		Logger:       log,
		Recorder:     s.recorder,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
		OnSessionEnd: s.onSessionEnd,
	})
	return err
}

func newMover(dc config.DataPathConfig) (datapath.Mover, error) {
	if dc.Mover == "device" {
		return datapath.NewDeviceMover(dc.Device, dc.ChunkSize, dc.PollInterval)
	}

	return datapath.NewSimMover(datapath.SimConfig{
		FrameSamples:  dc.FrameSamples,
		SampleRateHz:  dc.SampleRateHz,
		ToneHz:        dc.ToneHz,
		Amplitude:     dc.Amplitude,
		FrameInterval: dc.FrameInterval,
		MaxWait:       dc.PollInterval,
	})
}

// Run serves sessions, and the metrics endpoint when enabled, until ctx is
// cancelled or serving fails. Hardware resources are released on return.
//
// Parameters:
//   - ctx: Cancelling it ends the active session and stops the server
//
// Returns:
//   - nil after a clean shutdown, or the first serving error
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	g, gctx := errgroup.WithContext(ctx)

	if s.cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(gctx, s.cfg.Metrics.Addr, s.registry, s.log)
		})
	}

	g.Go(func() error {
		return s.manager.Serve(gctx)
	})

	data, cmd := s.listener.Addrs()
	s.log.Info("serving",
		logger.Field{Key: "data_addr", Value: addrString(data)},
		logger.Field{Key: "command_addr", Value: addrString(cmd)},
	)

	return g.Wait()
}

// Close stops the listeners and releases hardware resources. Run calls it on
// return; calling it again is a no-op.
func (s *Server) Close() error {
	s.release()
	return nil
}

func (s *Server) release() {
	s.closeOnce.Do(func() {
		if s.listener != nil {
			s.listener.Stop()
		}
		if s.cached != nil {
			_ = s.cached.Close()
		}
		if err := s.gpio.Deinit(); err != nil {
			s.log.Warn("gpio deinit failed", logger.Field{Key: "error", Value: err.Error()})
		}
		if err := s.memory.Close(); err != nil {
			s.log.Warn("memory unmap failed", logger.Field{Key: "error", Value: err.Error()})
		}
	})
}

// Addrs returns the bound data and command addresses.
func (s *Server) Addrs() (data, command net.Addr) {
	return s.listener.Addrs()
}

// Startup returns the report of the startup default pass.
func (s *Server) Startup() rfdc.StartupReport {
	return s.startup
}

// Platform returns the hardware facts established at startup.
func (s *Server) Platform() *rfdc.Platform {
	return s.platform
}

// Manager returns the session manager.
func (s *Server) Manager() *session.Manager {
	return s.manager
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
