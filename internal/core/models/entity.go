package models

import "strconv"

// EntityID identifies an entity in the registry. Zero is never assigned.
type EntityID uint64

// None is the zero EntityID, used to mean "no entity".
const None EntityID = 0

func (id EntityID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Valid reports whether id refers to an entity at all.
func (id EntityID) Valid() bool { return id != None }

// Kind tags what an entity is for renderers and queries.
type Kind string

const (
	KindPlanet    Kind = "planet"
	KindAgent     Kind = "agent"
	KindCamera    Kind = "camera"
	KindLight     Kind = "light"
	KindIndicator Kind = "indicator"
)

// Shape is the mesh family a renderer should build for an entity.
type Shape string

const (
	ShapeNone    Shape = ""
	ShapeSphere  Shape = "sphere"
	ShapeCapsule Shape = "capsule"
)

// Color is linear RGB in [0, 1]. Light colors may exceed 1.
type Color [3]float64

// Visual describes how a spawned entity should look. The simulation never reads it back.
type Visual struct {
	Shape     Shape   `json:"shape,omitempty"`
	Radius    float64 `json:"radius,omitempty"`
	Depth     float64 `json:"depth,omitempty"`
	Segments  int     `json:"segments,omitempty"`
	Color     Color   `json:"color"`
	Texture   string  `json:"texture,omitempty"`
	NormalMap string  `json:"normal_map,omitempty"`

	// Light parameters, only meaningful for KindLight.
	Intensity float64 `json:"intensity,omitempty"`
	Range     float64 `json:"range,omitempty"`
	Shadows   bool    `json:"shadows,omitempty"`
}

// SphereSegments returns the tessellation for a sphere of the given radius.
// Small spheres are clamped up to minimum so they stay round.
func SphereSegments(radius float64, minimum int) int {
	n := int(radius * 8)
	if n < minimum {
		return minimum
	}
	return n
}
