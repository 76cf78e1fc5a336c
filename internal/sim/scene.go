package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/zeusync/planetwalk/internal/config"
	"github.com/zeusync/planetwalk/internal/core/models"
	"github.com/zeusync/planetwalk/internal/core/systems/camera"
	"github.com/zeusync/planetwalk/internal/core/systems/physics"
)

var (
	ErrNoAlignPlanet = errors.New("no planet is flagged as align target")
	ErrNoAgent       = errors.New("agent does not exist")
)

// scene holds the singletons created at session start.
type scene struct {
	agent       models.EntityID
	agentHeight float64
	camera      models.EntityID
	rig         *camera.Rig
	planets     *physics.Registry
}

// bootstrap spawns planets, lights, the agent and its camera into reg.
func bootstrap(cfg config.Config, reg *Registry) (*scene, error) {
	sc := &scene{planets: physics.NewRegistry()}

	for _, pc := range cfg.Planets {
		local := physics.NewTransform(mgl64.Vec3(pc.Position))
		id, err := reg.Spawn(models.KindPlanet, pc.Name, local, models.Visual{
			Shape:     models.ShapeSphere,
			Radius:    pc.Radius,
			Segments:  models.SphereSegments(pc.Radius, cfg.Sim.MinSphereSegments),
			Color:     models.Color(pc.Color),
			Texture:   pc.Texture,
			NormalMap: pc.NormalMap,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "spawn planet %s", pc.Name)
		}
		err = sc.planets.Add(physics.Planet{ID: id, Transform: local, Radius: pc.Radius, AlignTarget: pc.Align})
		if err != nil {
			return nil, err
		}
		if pc.Light != nil {
			_, err = reg.SpawnChild(id, models.KindLight, physics.NewTransform(mgl64.Vec3{}), models.Visual{
				Radius:    pc.Light.Radius,
				Color:     models.Color(pc.Light.Color),
				Intensity: pc.Light.Intensity,
				Range:     pc.Light.Range,
				Shadows:   pc.Light.Shadows,
			})
			if err != nil {
				return nil, errors.Wrapf(err, "spawn light of %s", pc.Name)
			}
		}
	}
	if _, ok := sc.planets.AlignTarget(); !ok {
		return nil, ErrNoAlignPlanet
	}

	p := cfg.Player
	agentLocal := physics.NewTransform(mgl64.Vec3(p.Position)).
		WithRotation(mgl64.QuatRotate(p.PitchX, physics.AxisX))
	agent, err := reg.Spawn(models.KindAgent, "player", agentLocal, models.Visual{
		Shape:  models.ShapeCapsule,
		Radius: p.Radius,
		Depth:  p.Depth,
		Color:  models.Color(p.Color),
	})
	if err != nil {
		return nil, errors.Wrap(err, "spawn agent")
	}
	sc.agent = agent
	sc.agentHeight = p.Depth

	rig, err := camera.NewRig(mgl64.Vec3(cfg.Camera.Offset), cfg.Camera.MinRadius, cfg.Camera.MaxRadius, cfg.Camera.ZoomSpeed)
	if err != nil {
		return nil, errors.Wrap(err, "camera rig")
	}
	sc.rig = rig
	sc.camera, err = reg.SpawnChild(agent, models.KindCamera, rig.Local(), models.Visual{})
	if err != nil {
		return nil, errors.Wrap(err, "spawn camera")
	}
	return sc, nil
}
