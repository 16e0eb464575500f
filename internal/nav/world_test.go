package nav

import "github.com/go-gl/mathgl/mgl32"

// testWorld is a flat grid with named obstacle cells.
type testWorld struct {
	rng       int
	spacing   int
	height    float32
	obstacles map[Cell]string
	targets   []Target
}

func newTestWorld(rng, spacing int) *testWorld {
	return &testWorld{rng: rng, spacing: spacing, obstacles: make(map[Cell]string)}
}

func (w *testWorld) Range() int   { return w.rng }
func (w *testWorld) Spacing() int { return w.spacing }

func (w *testWorld) SurfaceHeight(x, z int) float32 { return w.height }

func (w *testWorld) ObstacleAt(pos mgl32.Vec3) (Obstacle, bool) {
	name, ok := w.obstacles[CellOf(pos, w.spacing)]
	return Obstacle{Name: name}, ok
}

func (w *testWorld) Targets() []Target { return w.targets }

// wallX places wall cells on column x for z in [z0, z1].
func (w *testWorld) wallX(x, z0, z1 int) {
	for z := z0; z <= z1; z++ {
		w.obstacles[Cell{X: x, Z: z}] = "wall.0"
	}
}

func (w *testWorld) addTarget(x, z int) {
	w.targets = append(w.targets, testTarget{float32(x * w.spacing), 0, float32(z * w.spacing)})
}

func (w *testWorld) node(x, z int) *Node {
	return NewNode(Cell{X: x, Z: z}.World(w.height, w.spacing), RoleWaypoint)
}

type testTarget mgl32.Vec3

func (t testTarget) Position() mgl32.Vec3 { return mgl32.Vec3(t) }
