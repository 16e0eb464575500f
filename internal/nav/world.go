package nav

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Terrain answers surface height lookups in grid coordinates.
type Terrain interface {
	SurfaceHeight(x, z int) float32
}

// Obstacle is whatever occupies a world position, named like "wall.12".
type Obstacle struct {
	Name string
}

// Is reports whether the obstacle's name is of the given kind, ignoring
// any instance suffix (so "wall.3" is a "wall").
func (o Obstacle) Is(kind string) bool {
	return SameType(o.Name, kind)
}

// SameType compares an instance name against a kind by prefix.
func SameType(name, kind string) bool {
	if kind == "" {
		return false
	}
	return strings.HasPrefix(name, kind)
}

// ObstacleQuery is the collision query consumed by the search.
type ObstacleQuery interface {
	ObstacleAt(pos mgl32.Vec3) (Obstacle, bool)
}

// Grid bounds the valid cells and scales cells into world space.
type Grid interface {
	Range() int
	Spacing() int
}

// World is everything the Finder needs from the surrounding engine.
type World interface {
	Terrain
	ObstacleQuery
	Grid
}

// Target is a collectible item.
type Target interface {
	Position() mgl32.Vec3
}

// TargetSource lists the live, uncollected targets.
type TargetSource interface {
	Targets() []Target
}
