package nav

import (
	"container/heap"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultBlockingKinds are the obstacle kinds that poison a cell for a search.
var DefaultBlockingKinds = []string{"wall", "temple"}

// --- A* pathfinding ---

type searchNode struct {
	cell  Cell
	f     int
	seq   int // insertion order, breaks f ties first-come first-served
	index int // heap index
}

type openList []*searchNode

func (ol openList) Len() int { return len(ol) }
func (ol openList) Less(i, j int) bool {
	if ol[i].f != ol[j].f {
		return ol[i].f < ol[j].f
	}
	return ol[i].seq < ol[j].seq
}
func (ol openList) Swap(i, j int)       { ol[i], ol[j] = ol[j], ol[i]; ol[i].index = i; ol[j].index = j }
func (ol *openList) Push(x interface{}) { n := x.(*searchNode); n.index = len(*ol); *ol = append(*ol, n) }
func (ol *openList) Pop() interface{} {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

// Neighbour offsets: orthogonal first, then diagonals.
var dirs = [8][2]int{
	{0, 1}, {0, -1}, {1, 0}, {-1, 0},
	{1, 1}, {-1, -1}, {1, -1}, {-1, 1},
}

// Outcome classifies how a search ended.
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeUnreachable
	OutcomeCapped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeCapped:
		return "capped"
	default:
		return "unknown"
	}
}

// Stats describes the most recent search.
type Stats struct {
	Outcome   Outcome
	Expanded  int // cells moved from open to closed
	Rejected  int // neighbours outside the grid
	Obstacles int // cells closed because an obstacle sits on them
	Length    int // nodes in the returned path
	Duration  time.Duration
}

// Finder runs A* searches over a World's grid.
// A Finder is not safe for concurrent use.
type Finder struct {
	world         World
	blocking      []string
	trace         func(*Node)
	maxExpansions int
	last          Stats
}

// FinderOption configures a Finder.
type FinderOption func(*Finder)

// WithBlockingKinds replaces the obstacle kinds that close a cell.
func WithBlockingKinds(kinds ...string) FinderOption {
	return func(f *Finder) { f.blocking = kinds }
}

// WithTrace receives every cell as it is opened or closed, as a node
// tagged RoleOpen or RoleClosed.
func WithTrace(fn func(*Node)) FinderOption {
	return func(f *Finder) { f.trace = fn }
}

// WithMaxExpansions aborts a search after n expansions. Zero means no cap.
func WithMaxExpansions(n int) FinderOption {
	return func(f *Finder) { f.maxExpansions = n }
}

// NewFinder creates a Finder over w.
func NewFinder(w World, opts ...FinderOption) *Finder {
	f := &Finder{world: w, blocking: DefaultBlockingKinds}
	for _, o := range opts {
		o(f)
	}
	return f
}

// LastStats returns the statistics of the previous FindPath call.
func (f *Finder) LastStats() Stats { return f.last }

// FindPath searches for a route from start to goal and returns it as a
// Single path in start-to-goal order, start cell excluded. It returns nil
// when the goal cannot be reached; that is an ordinary outcome.
func (f *Finder) FindPath(start, goal *Node) *Path {
	began := time.Now()
	stats := Stats{Outcome: OutcomeUnreachable}
	defer func() {
		stats.Duration = time.Since(began)
		f.last = stats
		observeSearch(stats)
	}()

	spacing := f.world.Spacing()
	scx, gcx := start.Cell(spacing), goal.Cell(spacing)

	gScore := map[Cell]int{scx: 0}
	fScore := map[Cell]int{scx: scx.Heuristic(gcx)}
	cameFrom := make(map[Cell]Cell)
	closed := make(map[Cell]bool)
	inOpen := map[Cell]bool{scx: true}

	seq := 0
	ol := &openList{{cell: scx, f: fScore[scx], seq: seq}}
	heap.Init(ol)

	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*searchNode)
		delete(inOpen, cur.cell)
		if cur.cell == gcx {
			path := f.buildPath(cameFrom, scx, gcx)
			stats.Outcome = OutcomeFound
			stats.Length = path.Len()
			return path
		}
		closed[cur.cell] = true
		stats.Expanded++
		f.emit(cur.cell, RoleClosed)
		if f.maxExpansions > 0 && stats.Expanded >= f.maxExpansions {
			stats.Outcome = OutcomeCapped
			return nil
		}

		for _, d := range dirs {
			nc := cur.cell.Add(d[0], d[1])
			if !f.inRange(nc) {
				stats.Rejected++
				continue
			}
			if closed[nc] {
				continue
			}
			if f.blocked(nc) {
				// The obstacle cell stays closed for the rest of the search.
				closed[nc] = true
				stats.Obstacles++
				f.emit(nc, RoleClosed)
				continue
			}
			if inOpen[nc] {
				continue
			}

			tentative := gScore[cur.cell] + cur.cell.Distance(nc)
			if prev, ok := gScore[nc]; !ok || tentative < prev {
				cameFrom[nc] = cur.cell
				gScore[nc] = tentative
				fScore[nc] = tentative + nc.Heuristic(gcx)
			}
			seq++
			heap.Push(ol, &searchNode{cell: nc, f: fScore[nc], seq: seq})
			inOpen[nc] = true
			f.emit(nc, RoleOpen)
		}
	}
	return nil
}

// inRange rejects cells on or outside the grid border.
func (f *Finder) inRange(c Cell) bool {
	r := f.world.Range()
	return c.X > 0 && c.Z > 0 && c.X < r && c.Z < r
}

func (f *Finder) blocked(c Cell) bool {
	obs, ok := f.world.ObstacleAt(f.worldPos(c))
	if !ok {
		return false
	}
	for _, kind := range f.blocking {
		if obs.Is(kind) {
			return true
		}
	}
	return false
}

func (f *Finder) worldPos(c Cell) mgl32.Vec3 {
	return c.World(f.world.SurfaceHeight(c.X, c.Z), f.world.Spacing())
}

func (f *Finder) emit(c Cell, role Role) {
	if f.trace == nil {
		return
	}
	f.trace(NewNode(f.worldPos(c), role))
}

func (f *Finder) buildPath(cameFrom map[Cell]Cell, start, goal Cell) *Path {
	cells := []Cell{goal}
	for c := goal; c != start; {
		prev, ok := cameFrom[c]
		if !ok || prev == start {
			break
		}
		cells = append(cells, prev)
		c = prev
	}
	// Reverse
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	nodes := make([]*Node, len(cells))
	for i, c := range cells {
		nodes[i] = NewNode(f.worldPos(c), RolePath)
	}
	return NewPath(ModeSingle, nodes...)
}
