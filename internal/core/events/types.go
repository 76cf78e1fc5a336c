// Package events names the simulation events carried over the bus.
package events

// Event types published by the simulation.
const (
	EntitySpawned         = "entity.spawn"
	EntityDespawned       = "entity.despawn"
	DirectionLineToggled  = "debugline.toggled"
	CollisionResolved     = "collision.resolved"
	OrientationDegenerate = "orientation.degenerate"
	SystemFailed          = "system.failed"
	SnapshotPublished     = "snapshot.published"
)

// Source names used when publishing.
const (
	SourceRegistry   = "sim.registry"
	SourceSystems    = "sim.systems"
	SourceDebugLine  = "sim.debugline"
	SourceSimulation = "sim"
)
