package world

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultCollectRadius is how close, in cells, the body must get to tag a treasure.
const DefaultCollectRadius = 2

// Body is the movable agent: a position on the terrain and a forward vector.
type Body struct {
	stage         *Stage
	pos           mgl32.Vec3
	forward       mgl32.Vec3
	step          float32
	stepSize      float32
	collectRadius int
	collected     int
	blocked       int
}

// NewBody places a body on the stage at grid cell (x, z), facing +Z.
func NewBody(stage *Stage, x, z int, step, stepSize float32) *Body {
	if step <= 0 {
		step = 1
	}
	if stepSize <= 0 {
		stepSize = 1
	}
	return &Body{
		stage:         stage,
		pos:           stage.CellPosition(x, z),
		forward:       mgl32.Vec3{0, 0, 1},
		step:          step,
		stepSize:      stepSize,
		collectRadius: DefaultCollectRadius,
	}
}

// Position returns the body's world position.
func (b *Body) Position() mgl32.Vec3 { return b.pos }

// Forward returns the unit facing vector on the XZ plane.
func (b *Body) Forward() mgl32.Vec3 { return b.forward }

// SetForward replaces the facing vector.
func (b *Body) SetForward(v mgl32.Vec3) { b.forward = v }

// Step is the number of step-size units moved per frame.
func (b *Body) Step() float32 { return b.step }

// StepSize is the world distance of one step unit.
func (b *Body) StepSize() float32 { return b.stepSize }

// Collected is the number of treasures tagged so far.
func (b *Body) Collected() int { return b.collected }

// BlockedMoves counts frames where an obstacle stopped all movement.
func (b *Body) BlockedMoves() int { return b.blocked }

// SetCollectRadius changes the tagging distance in cells.
func (b *Body) SetCollectRadius(cells int) { b.collectRadius = cells }

// Advance moves one frame along the forward vector. It slides along a
// single axis when the full move would enter a blocking obstacle and stays
// put when both axes are blocked. A treasure within the collect radius
// after moving is removed from the stage and returned.
func (b *Body) Advance() *Treasure {
	dist := b.step * b.stepSize
	delta := mgl32.Vec3{b.forward.X() * dist, 0, b.forward.Z() * dist}

	moved := false
	for _, d := range []mgl32.Vec3{delta, {delta.X(), 0, 0}, {0, 0, delta.Z()}} {
		if d.X() == 0 && d.Z() == 0 {
			continue
		}
		next := b.pos.Add(d)
		if !b.inBounds(next) || b.stage.Blocking(next) {
			continue
		}
		b.pos = next
		moved = true
		break
	}
	if !moved {
		b.blocked++
	}
	b.pos[1] = b.stage.HeightAt(b.pos)

	t := b.stage.TreasureNear(b.pos, b.collectRadius)
	if t == nil {
		return nil
	}
	b.stage.Collect(t)
	b.collected++
	return t
}

func (b *Body) inBounds(p mgl32.Vec3) bool {
	limit := float32(b.stage.Range() * b.stage.Spacing())
	return p.X() >= 0 && p.Z() >= 0 && p.X() <= limit && p.Z() <= limit
}
