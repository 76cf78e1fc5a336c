package sim

import (
	"github.com/zeusync/planetwalk/internal/core/events"
	"github.com/zeusync/planetwalk/internal/core/events/bus"
	"github.com/zeusync/planetwalk/internal/core/input"
	"github.com/zeusync/planetwalk/internal/core/observability/log"
	"github.com/zeusync/planetwalk/internal/core/system"
	"github.com/zeusync/planetwalk/internal/core/systems/locomotion"
	"github.com/zeusync/planetwalk/internal/core/systems/orientation"
	"github.com/zeusync/planetwalk/internal/core/systems/physics"
)

// Stage names, in execution order.
const (
	StageLocomotion    = "locomotion"
	StageCollision     = "collision"
	StageOrientation   = "orientation"
	StageCamera        = "camera"
	StageDirectionLine = "direction_line"
)

const (
	priorityLocomotion    = system.PriorityHighest
	priorityCollision     = system.PriorityHighest - 100
	priorityOrientation   = system.PriorityHighest - 200
	priorityCamera        = system.PriorityHighest - 300
	priorityDirectionLine = system.PriorityHighest - 400
)

// CollisionReport is the payload of a collision.resolved event.
type CollisionReport struct {
	Agent    physics.Transform
	Contacts []physics.Contact
}

func (s *Simulation) registerStages() error {
	for _, st := range []system.System{
		&locomotionStage{sim: s},
		&collisionStage{sim: s},
		&orientationStage{sim: s},
		&cameraStage{sim: s},
		&directionLineStage{sim: s},
	} {
		if err := s.manager.RegisterSystem(st); err != nil {
			return err
		}
	}
	return nil
}

// agentTransform reads the agent's transform. The agent is a root entity,
// so its local transform is its world transform.
func (s *Simulation) agentTransform() (physics.Transform, error) {
	t, ok := s.registry.Local(s.agent)
	if !ok {
		return physics.Transform{}, ErrNoAgent
	}
	return t, nil
}

func publish(world system.World, typ string, data any) {
	if world == nil || world.Events() == nil {
		return
	}
	_ = world.Events().Publish(bus.NewEvent(typ, events.SourceSystems, data))
}

type locomotionStage struct{ sim *Simulation }

func (*locomotionStage) Name() string              { return StageLocomotion }
func (*locomotionStage) Priority() system.Priority { return priorityLocomotion }

func (st *locomotionStage) Update(dt float64, _ system.World) error {
	s := st.sim
	t, err := s.agentTransform()
	if err != nil {
		return err
	}
	axes := s.input.Axes()
	if axes.IsZero() {
		return nil
	}
	locomotion.Step(&t, axes, dt, s.speed)
	return s.registry.SetLocal(s.agent, t)
}

type collisionStage struct{ sim *Simulation }

func (*collisionStage) Name() string              { return StageCollision }
func (*collisionStage) Priority() system.Priority { return priorityCollision }

func (st *collisionStage) Update(_ float64, world system.World) error {
	s := st.sim
	t, err := s.agentTransform()
	if err != nil {
		return err
	}
	res := physics.Resolve(t.Position, s.agentHeight/2, s.planets.All())
	if !res.Collided() {
		return nil
	}
	t.Position = res.Position
	if err = s.registry.SetLocal(s.agent, t); err != nil {
		return err
	}
	s.log.Debug("agent pushed out of planet",
		log.Int("contacts", len(res.Contacts)),
		log.Float64("depth", res.Contacts[0].Depth),
	)
	publish(world, events.CollisionResolved, CollisionReport{Agent: t, Contacts: res.Contacts})
	return nil
}

type orientationStage struct{ sim *Simulation }

func (*orientationStage) Name() string              { return StageOrientation }
func (*orientationStage) Priority() system.Priority { return priorityOrientation }

func (st *orientationStage) Update(_ float64, world system.World) error {
	s := st.sim
	planet, ok := s.planets.AlignTarget()
	if !ok {
		return ErrNoAlignPlanet
	}
	t, err := s.agentTransform()
	if err != nil {
		return err
	}
	res := orientation.Align(t, planet.Transform)
	if res.Degenerate || res.Fallback {
		s.log.Debug("orientation fell back",
			log.Bool("degenerate", res.Degenerate),
			log.Bool("fallback", res.Fallback),
			log.Vec3("position", t.Position),
		)
		publish(world, events.OrientationDegenerate, res)
	}
	t.Rotation = res.Rotation
	return s.registry.SetLocal(s.agent, t)
}

type cameraStage struct{ sim *Simulation }

func (*cameraStage) Name() string              { return StageCamera }
func (*cameraStage) Priority() system.Priority { return priorityCamera }

func (st *cameraStage) Update(dt float64, _ system.World) error {
	s := st.sim
	if !s.registry.Exists(s.camera) {
		return nil
	}
	if wheel := s.input.Wheel(); wheel != 0 {
		s.rig.ApplyZoom(wheel, dt)
	}
	return s.registry.SetLocal(s.camera, s.rig.Local())
}

type directionLineStage struct{ sim *Simulation }

func (*directionLineStage) Name() string              { return StageDirectionLine }
func (*directionLineStage) Priority() system.Priority { return priorityDirectionLine }

func (st *directionLineStage) Update(_ float64, world system.World) error {
	s := st.sim
	if s.input.JustPressed(input.ActionToggleDirectionLines) {
		s.toggle.Flip()
	}
	transitions, err := s.toggle.Sync(s.registry)
	for _, tr := range transitions {
		s.log.Info("direction line toggled",
			log.Uint64("agent", uint64(tr.Agent)),
			log.String("state", tr.To.String()),
		)
		publish(world, events.DirectionLineToggled, tr)
	}
	return err
}
