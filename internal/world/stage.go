package world

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Garsondee/Terrain-Sense/internal/nav"
)

// Heightmap generates terrain heights per grid vertex.
type Heightmap struct {
	Kind       string  // "flat" or "hills"
	Amplitude  float64 // hill height in world units
	Wavelength float64 // hill period in cells
}

// SurfaceHeight returns the terrain height at grid vertex (x, z).
func (h Heightmap) SurfaceHeight(x, z int) float32 {
	if h.Kind != "hills" || h.Amplitude == 0 {
		return 0
	}
	wl := h.Wavelength
	if wl <= 0 {
		wl = 64
	}
	fx := float64(x) * 2 * math.Pi / wl
	fz := float64(z) * 2 * math.Pi / wl
	return float32(h.Amplitude * (2 + math.Sin(fx) + math.Cos(fz*0.7+fx*0.3)))
}

// Treasure is a collectible item placed on the terrain.
type Treasure struct {
	Name string
	pos  mgl32.Vec3
}

// Position implements nav.Target.
func (t *Treasure) Position() mgl32.Vec3 { return t.pos }

// Stage is the world the agent navigates: terrain, static obstacles and
// the live treasure collection.
type Stage struct {
	rng       int
	spacing   int
	terrain   Heightmap
	obstacles map[nav.Cell]string
	treasures []*Treasure
	counts    map[string]int
}

// NewStage creates an empty stage covering grid cells [0, rng].
func NewStage(rng, spacing int, terrain Heightmap) *Stage {
	return &Stage{
		rng:       rng,
		spacing:   spacing,
		terrain:   terrain,
		obstacles: make(map[nav.Cell]string),
		counts:    make(map[string]int),
	}
}

// Range is the maximum grid index on either axis.
func (s *Stage) Range() int { return s.rng }

// Spacing is the world distance between grid vertices.
func (s *Stage) Spacing() int { return s.spacing }

// SurfaceHeight implements nav.Terrain.
func (s *Stage) SurfaceHeight(x, z int) float32 { return s.terrain.SurfaceHeight(x, z) }

// HeightAt returns the terrain height under a world position.
func (s *Stage) HeightAt(pos mgl32.Vec3) float32 {
	c := nav.CellOf(pos, s.spacing)
	return s.terrain.SurfaceHeight(c.X, c.Z)
}

// CellPosition places a grid cell on the terrain in world space.
func (s *Stage) CellPosition(x, z int) mgl32.Vec3 {
	return nav.Cell{X: x, Z: z}.World(s.SurfaceHeight(x, z), s.spacing)
}

func (s *Stage) nextName(kind string) string {
	n := s.counts[kind]
	s.counts[kind] = n + 1
	return fmt.Sprintf("%s.%d", kind, n)
}

// AddWall places one brick per offset around origin. Overlapping bricks
// keep their first name.
func (s *Stage) AddWall(origin nav.Cell, bricks []nav.Cell) {
	for _, b := range bricks {
		c := origin.Add(b.X, b.Z)
		if _, taken := s.obstacles[c]; taken {
			continue
		}
		s.obstacles[c] = s.nextName("wall")
	}
}

// AddTemple occupies the square footprint of the given radius around center.
func (s *Stage) AddTemple(center nav.Cell, radius int) {
	name := s.nextName("temple")
	for dz := -radius; dz <= radius; dz++ {
		for dx := -radius; dx <= radius; dx++ {
			s.obstacles[center.Add(dx, dz)] = name
		}
	}
}

// AddTreasure places a treasure at grid cell (x, z).
func (s *Stage) AddTreasure(x, z int) *Treasure {
	t := &Treasure{Name: s.nextName("treasure"), pos: s.CellPosition(x, z)}
	s.treasures = append(s.treasures, t)
	return t
}

// ObstacleAt implements nav.ObstacleQuery.
func (s *Stage) ObstacleAt(pos mgl32.Vec3) (nav.Obstacle, bool) {
	name, ok := s.obstacles[nav.CellOf(pos, s.spacing)]
	return nav.Obstacle{Name: name}, ok
}

// Blocking reports whether pos sits on an obstacle of a blocking kind.
func (s *Stage) Blocking(pos mgl32.Vec3) bool {
	obs, ok := s.ObstacleAt(pos)
	if !ok {
		return false
	}
	for _, kind := range nav.DefaultBlockingKinds {
		if obs.Is(kind) {
			return true
		}
	}
	return false
}

// ObstacleCells lists occupied cells in a stable order.
func (s *Stage) ObstacleCells() []nav.Cell {
	cells := make([]nav.Cell, 0, len(s.obstacles))
	for c := range s.obstacles {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Z != cells[j].Z {
			return cells[i].Z < cells[j].Z
		}
		return cells[i].X < cells[j].X
	})
	return cells
}

// ObstacleName returns the name of the obstacle on cell c, if any.
func (s *Stage) ObstacleName(c nav.Cell) (string, bool) {
	name, ok := s.obstacles[c]
	return name, ok
}

// Targets implements nav.TargetSource with the treasures not yet collected.
func (s *Stage) Targets() []nav.Target {
	out := make([]nav.Target, len(s.treasures))
	for i, t := range s.treasures {
		out[i] = t
	}
	return out
}

// Treasures returns the remaining treasures.
func (s *Stage) Treasures() []*Treasure {
	out := make([]*Treasure, len(s.treasures))
	copy(out, s.treasures)
	return out
}

// Collect removes t from the stage. It reports false if t was already gone.
func (s *Stage) Collect(t *Treasure) bool {
	for i, cur := range s.treasures {
		if cur == t {
			s.treasures = append(s.treasures[:i], s.treasures[i+1:]...)
			return true
		}
	}
	return false
}

// TreasureNear returns the first treasure within radius cells of pos.
func (s *Stage) TreasureNear(pos mgl32.Vec3, radius int) *Treasure {
	from := nav.CellOf(pos, s.spacing)
	for _, t := range s.treasures {
		if from.Distance(nav.CellOf(t.pos, s.spacing)) < radius {
			return t
		}
	}
	return nil
}
