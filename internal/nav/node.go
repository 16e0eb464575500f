package nav

import (
	"fmt"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// heuristicScale tunes the octile estimate toward diagonal movement on
// the reference terrain.
const heuristicScale = 1.75

// Role is the navigational type of a Node.
type Role int

const (
	RoleVertex   Role = iota // non-navigable terrain vertex
	RoleWaypoint             // navigable vertex, patrol or goal point
	RolePath                 // committed route node
	RoleOpen                 // frontier node of a search
	RoleClosed               // evaluated or rejected by a search
)

func (r Role) String() string {
	switch r {
	case RoleVertex:
		return "vertex"
	case RoleWaypoint:
		return "waypoint"
	case RolePath:
		return "path"
	case RoleOpen:
		return "open"
	case RoleClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var roleColors = [...]color.RGBA{
	RoleVertex:   {R: 0, G: 0, B: 0, A: 255},
	RoleWaypoint: {R: 255, G: 255, B: 0, A: 255},
	RolePath:     {R: 0, G: 0, B: 255, A: 255},
	RoleOpen:     {R: 255, G: 255, B: 255, A: 255},
	RoleClosed:   {R: 255, G: 0, B: 0, A: 255},
}

// Cell is a discrete (X, Z) coordinate on the navigation grid.
type Cell struct {
	X, Z int
}

// CellOf truncates a world position to its grid cell.
func CellOf(pos mgl32.Vec3, spacing int) Cell {
	if spacing <= 0 {
		spacing = 1
	}
	return Cell{X: int(pos.X()) / spacing, Z: int(pos.Z()) / spacing}
}

// World returns the world-space position of the cell at the given height.
func (c Cell) World(height float32, spacing int) mgl32.Vec3 {
	return mgl32.Vec3{float32(c.X * spacing), height, float32(c.Z * spacing)}
}

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Z) }

// Add offsets the cell by (dx, dz).
func (c Cell) Add(dx, dz int) Cell {
	return Cell{X: c.X + dx, Z: c.Z + dz}
}

// Distance is the truncated Euclidean distance between two cells.
func (c Cell) Distance(o Cell) int {
	dx := c.X - o.X
	dz := c.Z - o.Z
	return int(math.Sqrt(float64(dx*dx + dz*dz)))
}

// Heuristic estimates the cost from c to goal with an octile-style formula:
//
//	scale*(dx+dz) + (dx²+dz² - 2*scale) * min(dx, dz)
//
// The estimate can exceed the true cost, so routes are not guaranteed
// shortest. Path shapes depend on it; keep it as is.
func (c Cell) Heuristic(goal Cell) int {
	dx := math.Abs(float64(c.X - goal.X))
	dz := math.Abs(float64(c.Z - goal.Z))
	cost := dx*dx + dz*dz
	return int(heuristicScale*(dx+dz) + (cost-2*heuristicScale)*math.Min(dx, dz))
}

// Node is a point on the navigation grid tagged with a Role.
// Its position never changes after construction.
type Node struct {
	pos  mgl32.Vec3
	role Role
	tag  color.RGBA
}

// NewNode creates a node at pos with the given role.
func NewNode(pos mgl32.Vec3, role Role) *Node {
	n := &Node{pos: pos}
	n.SetRole(role)
	return n
}

// NodeAt builds a Waypoint node on the grid cell under pos, at terrain height.
func NodeAt(t Terrain, pos mgl32.Vec3, spacing int) *Node {
	c := CellOf(pos, spacing)
	return NewNode(c.World(t.SurfaceHeight(c.X, c.Z), spacing), RoleWaypoint)
}

// Position returns the node's world position.
func (n *Node) Position() mgl32.Vec3 { return n.pos }

// Role returns the node's navigational type.
func (n *Node) Role() Role { return n.role }

// SetRole changes the role. Only the display tag follows it.
func (n *Node) SetRole(r Role) {
	n.role = r
	if int(r) >= 0 && int(r) < len(roleColors) {
		n.tag = roleColors[r]
	}
}

// DisplayTag is the marker colour for the node's role.
func (n *Node) DisplayTag() color.RGBA { return n.tag }

// Cell returns the grid cell holding the node.
func (n *Node) Cell(spacing int) Cell { return CellOf(n.pos, spacing) }

// Equal reports whether both nodes sit at the same world position.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	return n.pos == o.pos
}

// DistanceBetween is the truncated grid distance between two nodes.
func (n *Node) DistanceBetween(o *Node, spacing int) int {
	return n.Cell(spacing).Distance(o.Cell(spacing))
}

// DistanceTo is the truncated grid distance from the node to a world position.
func (n *Node) DistanceTo(pos mgl32.Vec3, spacing int) int {
	return n.Cell(spacing).Distance(CellOf(pos, spacing))
}

// Heuristic is Cell.Heuristic between the cells of n and goal.
func (n *Node) Heuristic(goal *Node, spacing int) int {
	return n.Cell(spacing).Heuristic(goal.Cell(spacing))
}
