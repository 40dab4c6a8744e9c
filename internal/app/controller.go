// ABOUTME: Daemon orchestration
// ABOUTME: Wires playback, activity monitoring and capture attachment, and orders shutdown
package app

import (
	"context"
	"sync"

	"github.com/Resonate-Protocol/ambient-go/internal/backend"
	"github.com/Resonate-Protocol/ambient-go/internal/monitor"
	"github.com/Resonate-Protocol/ambient-go/internal/player"
	"github.com/Resonate-Protocol/ambient-go/internal/topology"
	"github.com/rs/zerolog"
)

// BackendOpener connects to the audio server
type BackendOpener func() (backend.Backend, error)

// Config holds controller configuration
type Config struct {
	Monitor  monitor.Config
	Topology topology.Config
}

// Status is a combined view for display
type Status struct {
	Running          bool
	BackendConnected bool
	Player           player.State
	Monitor          monitor.Snapshot
	Capture          topology.Status
}

// Controller runs the engine, the sampling loop and the topology loop
type Controller struct {
	base   zerolog.Logger
	log    zerolog.Logger
	config Config
	engine *player.Engine
	open   BackendOpener

	monitor *monitor.Monitor

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	backend backend.Backend
	watcher *topology.Watcher
}

// New creates a controller around an initialized engine
func New(engine *player.Engine, open BackendOpener, config Config, logger zerolog.Logger) *Controller {
	return &Controller{
		base:    logger,
		log:     logger.With().Str("component", "controller").Logger(),
		config:  config,
		engine:  engine,
		open:    open,
		monitor: monitor.New(engine, engine.SelfOutput(), config.Monitor, logger),
	}
}

// Start begins playback and both monitor loops. Calling it while running
// does nothing.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}
	c.running = true

	c.log.Info().Msg("starting")
	c.engine.Play()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.monitor.Resume()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.monitor.Run(ctx)
	}()

	b, err := c.open()
	if err != nil {
		c.log.Error().Err(err).Msg("backend connect failed, system audio monitoring inactive")
		return
	}
	c.backend = b
	c.watcher = topology.New(b, c.monitor, c.config.Topology, c.base)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.watcher.Run(ctx)
	}()
}

// Stop shuts down in order: playback, monitor loops, capture, backend.
// It is safe to call more than once.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.running = false

	c.log.Info().Msg("stopping")
	// the sampling loop would restart playback while the engine drains
	c.monitor.Halt()
	c.engine.Stop()

	c.cancel()
	c.wg.Wait()

	if c.watcher != nil {
		if err := c.watcher.Close(); err != nil {
			c.log.Warn().Err(err).Msg("failed to release capture")
		}
		c.watcher = nil
	}

	if c.backend != nil {
		if err := c.backend.Close(); err != nil {
			c.log.Warn().Err(err).Msg("failed to close backend")
		}
		c.backend = nil
	}

	c.log.Info().Msg("stopped")
}

// Status reports the current state of every component
func (c *Controller) Status() Status {
	c.mu.Lock()
	running := c.running
	connected := c.backend != nil
	watcher := c.watcher
	c.mu.Unlock()

	s := Status{
		Running:          running,
		BackendConnected: connected,
		Player:           c.engine.State(),
		Monitor:          c.monitor.Snapshot(),
	}
	if watcher != nil {
		s.Capture = watcher.Status()
	}
	return s
}
