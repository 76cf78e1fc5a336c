package sim

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/zeusync/planetwalk/internal/core/events"
	"github.com/zeusync/planetwalk/internal/core/events/bus"
	"github.com/zeusync/planetwalk/internal/core/models"
	"github.com/zeusync/planetwalk/internal/core/observability/log"
	"github.com/zeusync/planetwalk/internal/core/systems/physics"
)

var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrParentNotFound = errors.New("parent entity not found")
)

// Entity is one node of the scene tree. Local is relative to Parent,
// or to the world when Parent is models.None.
type Entity struct {
	ID     models.EntityID
	Kind   models.Kind
	Name   string
	Parent models.EntityID
	Local  physics.Transform
	Visual models.Visual
}

// Registry owns every entity of the simulation. It is not safe for concurrent
// use; only the tick goroutine touches it.
type Registry struct {
	next     models.EntityID
	entities map[models.EntityID]*Entity
	children map[models.EntityID][]models.EntityID
	events   bus.EventBus
	log      log.Log
}

// NewRegistry creates an empty registry. Spawns and despawns are announced on
// eventBus when it is not nil. Subscriber failures are logged and never undo
// the mutation.
func NewRegistry(eventBus bus.EventBus, logger log.Log) *Registry {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Registry{
		entities: make(map[models.EntityID]*Entity),
		children: make(map[models.EntityID][]models.EntityID),
		events:   eventBus,
		log:      logger,
	}
}

// Spawn creates a root entity.
func (r *Registry) Spawn(kind models.Kind, name string, local physics.Transform, visual models.Visual) (models.EntityID, error) {
	return r.spawn(models.None, kind, name, local, visual)
}

// SpawnChild creates an entity attached to parent.
func (r *Registry) SpawnChild(parent models.EntityID, kind models.Kind, local physics.Transform, visual models.Visual) (models.EntityID, error) {
	if !r.Exists(parent) {
		return models.None, errors.Wrapf(ErrParentNotFound, "parent %s", parent)
	}
	return r.spawn(parent, kind, string(kind), local, visual)
}

func (r *Registry) spawn(parent models.EntityID, kind models.Kind, name string, local physics.Transform, visual models.Visual) (models.EntityID, error) {
	r.next++
	e := &Entity{ID: r.next, Kind: kind, Name: name, Parent: parent, Local: local, Visual: visual}
	r.entities[e.ID] = e
	if parent.Valid() {
		r.children[parent] = append(r.children[parent], e.ID)
	}
	r.publish(events.EntitySpawned, r.view(e))
	return e.ID, nil
}

func (r *Registry) Exists(id models.EntityID) bool {
	_, ok := r.entities[id]
	return ok
}

// Despawn removes id and, depth first, everything attached to it.
// Despawning an unknown entity is a no-op.
func (r *Registry) Despawn(id models.EntityID) error {
	e, ok := r.entities[id]
	if !ok {
		return nil
	}
	for _, child := range append([]models.EntityID(nil), r.children[id]...) {
		_ = r.Despawn(child)
	}
	delete(r.children, id)
	delete(r.entities, id)
	if e.Parent.Valid() {
		siblings := r.children[e.Parent]
		for i, s := range siblings {
			if s == id {
				r.children[e.Parent] = append(siblings[:i:i], siblings[i+1:]...)
				break
			}
		}
	}
	r.publish(events.EntityDespawned, DespawnView{ID: id, Kind: e.Kind, Parent: e.Parent})
	return nil
}

func (r *Registry) Get(id models.EntityID) (Entity, bool) {
	e, ok := r.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

func (r *Registry) Children(id models.EntityID) []models.EntityID {
	return append([]models.EntityID(nil), r.children[id]...)
}

func (r *Registry) Len() int { return len(r.entities) }

// Local returns the parent-relative transform of id.
func (r *Registry) Local(id models.EntityID) (physics.Transform, bool) {
	e, ok := r.entities[id]
	if !ok {
		return physics.Transform{}, false
	}
	return e.Local, true
}

func (r *Registry) SetLocal(id models.EntityID, t physics.Transform) error {
	e, ok := r.entities[id]
	if !ok {
		return errors.Wrapf(ErrEntityNotFound, "entity %s", id)
	}
	e.Local = t
	return nil
}

// World composes the transforms from the root down to id.
func (r *Registry) World(id models.EntityID) (physics.Transform, bool) {
	e, ok := r.entities[id]
	if !ok {
		return physics.Transform{}, false
	}
	if !e.Parent.Valid() {
		return e.Local, true
	}
	parent, ok := r.World(e.Parent)
	if !ok {
		return e.Local, true
	}
	return parent.Mul(e.Local), true
}

// All returns every entity ordered by ID, which is spawn order.
func (r *Registry) All() []Entity {
	out := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Views returns world-space views of every entity ordered by ID.
func (r *Registry) Views() []EntityView {
	all := r.All()
	out := make([]EntityView, 0, len(all))
	for i := range all {
		out = append(out, r.view(&all[i]))
	}
	return out
}

func (r *Registry) view(e *Entity) EntityView {
	world, _ := r.World(e.ID)
	return newEntityView(*e, world)
}

func (r *Registry) publish(typ string, data any) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(bus.NewEvent(typ, events.SourceRegistry, data)); err != nil {
		r.log.Warn("entity event subscriber failed", log.String("event", typ), log.Error(err))
	}
}
