// Package sim hosts the planet walking simulation: it owns the entity registry,
// runs the core systems in a fixed order once per tick and publishes an
// immutable Snapshot after each one.
package sim

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/zeusync/planetwalk/internal/config"
	"github.com/zeusync/planetwalk/internal/core/events"
	"github.com/zeusync/planetwalk/internal/core/events/bus"
	"github.com/zeusync/planetwalk/internal/core/input"
	"github.com/zeusync/planetwalk/internal/core/models"
	"github.com/zeusync/planetwalk/internal/core/observability/log"
	"github.com/zeusync/planetwalk/internal/core/system"
	"github.com/zeusync/planetwalk/internal/core/systems/debugline"
	"github.com/zeusync/planetwalk/internal/core/systems/locomotion"
)

// Simulation is single threaded: Tick, Steps and Run must be called from one
// goroutine. Push, Latest, Pause and Resume are safe from any goroutine.
type Simulation struct {
	*scene

	log      log.Log
	events   bus.EventBus
	registry *Registry
	manager  system.Manager

	input  *input.State
	queue  *input.Queue
	speed  locomotion.Speed
	toggle *debugline.Toggle

	tickRate   time.Duration
	clearColor models.Color

	frame   int64
	elapsed float64
	dt      float64
	paused  atomic.Bool
	latest  atomic.Pointer[Snapshot]
}

// New builds the scene described by cfg. It fails with ErrNoAlignPlanet when
// no planet is flagged as the alignment reference.
func New(cfg config.Config, logger log.Log, eventBus bus.EventBus) (*Simulation, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	if eventBus == nil {
		eventBus = bus.New()
	}
	keymap, err := cfg.Keymap()
	if err != nil {
		return nil, errors.Wrap(err, "keymap")
	}

	reg := NewRegistry(eventBus, logger.With(log.String("component", "registry")))
	sc, err := bootstrap(cfg, reg)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		scene:      sc,
		log:        logger,
		events:     eventBus,
		registry:   reg,
		manager:    system.NewManager(),
		input:      input.NewState(keymap),
		queue:      &input.Queue{},
		speed:      locomotion.Speed{Walk: cfg.Player.WalkSpeed, Turn: cfg.Player.TurnSpeed},
		toggle:     debugline.NewToggle(debugline.DefaultIndicator(sc.agentHeight)),
		tickRate:   cfg.Sim.TickRate,
		clearColor: models.Color(cfg.Sim.ClearColor),
	}
	s.toggle.Track(sc.agent, cfg.DirectionLine.Visible)

	if err = s.registerStages(); err != nil {
		return nil, err
	}
	s.manager.OnSystemError(func(name string, err error) {
		s.log.Warn("system failed", log.String("system", name), log.Error(err))
		_ = s.events.Publish(bus.NewEvent(events.SystemFailed, events.SourceSystems, err))
	})

	s.latest.Store(s.snapshot())
	s.log.Info("scene ready",
		log.Int("entities", reg.Len()),
		log.Int("planets", sc.planets.Len()),
		log.Uint64("agent", uint64(sc.agent)),
	)
	return s, nil
}

// Push queues input for the next tick.
func (s *Simulation) Push(evs ...input.Event) {
	s.queue.Push(evs...)
}

// Tick drains queued input, runs every stage once and publishes the snapshot.
// Stage failures are joined into the returned error; the snapshot is still produced.
func (s *Simulation) Tick(dt float64) (*Snapshot, error) {
	if !s.registry.Exists(s.agent) {
		return nil, ErrNoAgent
	}
	for _, ev := range s.queue.Drain() {
		s.input.Apply(ev)
	}

	s.dt = dt
	if !s.IsPaused() {
		s.frame++
		s.elapsed += dt
	}
	err := s.manager.Update(dt, s)
	s.input.EndFrame()

	snap := s.snapshot()
	s.latest.Store(snap)
	if perr := s.events.Publish(bus.NewEvent(events.SnapshotPublished, events.SourceSimulation, snap)); perr != nil {
		s.log.Warn("snapshot subscriber failed", log.Error(perr))
	}
	return snap, err
}

// Steps runs n ticks back to back with the configured tick rate as dt.
func (s *Simulation) Steps(n int) (*Snapshot, error) {
	snap := s.Latest()
	dt := s.tickRate.Seconds()
	for i := 0; i < n; i++ {
		var err error
		if snap, err = s.Tick(dt); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

// Run ticks at the configured rate until ctx is cancelled. Stage failures are
// logged; losing the agent stops the loop.
func (s *Simulation) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tickRate)
	defer ticker.Stop()

	dt := s.tickRate.Seconds()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if _, err := s.Tick(dt); err != nil {
			if errors.Is(err, ErrNoAgent) {
				return err
			}
			s.log.Warn("tick failed", log.Int64("frame", s.frame), log.Error(err))
		}
	}
}

// Latest returns the most recently published snapshot.
func (s *Simulation) Latest() *Snapshot { return s.latest.Load() }

func (s *Simulation) Pause()  { s.paused.Store(true) }
func (s *Simulation) Resume() { s.paused.Store(false) }

func (s *Simulation) Registry() *Registry       { return s.registry }
func (s *Simulation) Manager() system.Manager   { return s.manager }
func (s *Simulation) Toggle() *debugline.Toggle { return s.toggle }
func (s *Simulation) Agent() models.EntityID    { return s.agent }
func (s *Simulation) Camera() models.EntityID   { return s.camera }
func (s *Simulation) TickRate() time.Duration   { return s.tickRate }
func (s *Simulation) CameraRadius() float64     { return s.rig.Radius }

// system.World

func (s *Simulation) DeltaTime() float64 { return s.dt }
func (s *Simulation) TotalTime() time.Duration {
	return time.Duration(s.elapsed * float64(time.Second))
}
func (s *Simulation) FrameCount() int64    { return s.frame }
func (s *Simulation) Events() bus.EventBus { return s.events }
func (s *Simulation) IsPaused() bool       { return s.paused.Load() }

func (s *Simulation) snapshot() *Snapshot {
	snap := &Snapshot{
		Frame:         s.frame,
		Elapsed:       s.elapsed,
		ClearColor:    s.clearColor,
		Agent:         s.agent,
		Entities:      s.registry.Views(),
		DirectionLine: s.toggle.State(s.agent).String(),
	}
	if cam, ok := s.registry.World(s.camera); ok {
		snap.Camera = CameraView{
			ID:       s.camera,
			Position: cam.Position,
			Rotation: quatArray(cam.Rotation),
			Radius:   s.rig.Radius,
			Offset:   s.rig.Offset(),
		}
	}
	return snap
}
