package nav

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
)

// Mode is the traversal policy applied when a Path runs out of nodes.
type Mode int

const (
	ModeSingle  Mode = iota // traverse once, then report Done
	ModeReverse             // reverse the sequence and walk it back
	ModeLoop                // wrap around to the first node
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeReverse:
		return "reverse"
	case ModeLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "":
		return ModeSingle, nil
	case "reverse":
		return ModeReverse, nil
	case "loop":
		return ModeLoop, nil
	}
	return ModeSingle, fmt.Errorf("unknown path mode %q", s)
}

// Path is an ordered sequence of nodes with a cursor.
//
// Reverse traversal reverses the sequence in place, and Reverse/Shuffle
// do the same on demand. A Path must have a single owner; Nodes returns a
// copy so nobody else holds the backing slice.
type Path struct {
	nodes []*Node
	mode  Mode
	next  int
	done  bool
}

// NewPath creates a path over nodes. The path takes ownership of them.
func NewPath(mode Mode, nodes ...*Node) *Path {
	return &Path{nodes: nodes, mode: mode}
}

// NewPathFromCells builds a path of Waypoint nodes from (x, z) grid cells,
// placing each node on the terrain surface.
func NewPathFromCells(t Terrain, spacing int, mode Mode, cells []Cell) *Path {
	nodes := make([]*Node, 0, len(cells))
	for _, c := range cells {
		nodes = append(nodes, NewNode(c.World(t.SurfaceHeight(c.X, c.Z), spacing), RoleWaypoint))
	}
	return NewPath(mode, nodes...)
}

// ReadPathFile reads one "x z" grid pair per line and returns a path of
// Path-tagged nodes. Blank lines and lines starting with '#' are skipped.
func ReadPathFile(r io.Reader, t Terrain, spacing int, mode Mode) (*Path, error) {
	var nodes []*Node
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, fmt.Errorf("path file line %d: want \"x z\", got %q", line, text)
		}
		x, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("path file line %d: %w", line, err)
		}
		z, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("path file line %d: %w", line, err)
		}
		c := Cell{X: x, Z: z}
		nodes = append(nodes, NewNode(c.World(t.SurfaceHeight(x, z), spacing), RolePath))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read path file: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("path file has no nodes")
	}
	return NewPath(mode, nodes...), nil
}

// Mode returns the traversal policy.
func (p *Path) Mode() Mode { return p.mode }

// SetMode changes the traversal policy.
func (p *Path) SetMode(m Mode) { p.mode = m }

// Len is the number of nodes.
func (p *Path) Len() int { return len(p.nodes) }

// Done reports whether a Single path has handed out its last node.
func (p *Path) Done() bool { return p.done }

// Cursor is the index of the node Next will return.
func (p *Path) Cursor() int { return p.next }

// Nodes returns a copy of the sequence in its current order.
func (p *Path) Nodes() []*Node {
	out := make([]*Node, len(p.nodes))
	copy(out, p.nodes)
	return out
}

// Last returns the final node, or nil for an empty path.
func (p *Path) Last() *Node {
	if len(p.nodes) == 0 {
		return nil
	}
	return p.nodes[len(p.nodes)-1]
}

// Append adds a node to the end of the sequence.
func (p *Path) Append(n *Node) {
	p.nodes = append(p.nodes, n)
}

// Next returns the node under the cursor and advances it per Mode.
// It returns nil only for an empty path. A Single path keeps returning
// its final node once Done; callers must check Done.
func (p *Path) Next() *Node {
	count := len(p.nodes)
	switch {
	case count == 0:
		return nil
	case count == 1:
		if p.mode == ModeSingle {
			p.done = true
		}
		return p.nodes[0]
	case p.next < count-1:
		n := p.nodes[p.next]
		p.next++
		return n
	}

	// At the last node: stop, reverse or loop.
	switch p.mode {
	case ModeReverse:
		p.Reverse()
		p.next = 0
		n := p.nodes[p.next]
		p.next++
		return n
	case ModeLoop:
		n := p.nodes[p.next]
		p.next = 0
		return n
	default:
		p.done = true
		return p.nodes[p.next]
	}
}

// Current returns the node under the cursor without advancing.
// It panics on an empty path.
func (p *Path) Current() *Node {
	if len(p.nodes) == 0 {
		panic("nav: Current on empty path")
	}
	return p.nodes[p.next]
}

// Reverse reverses the node order in place.
func (p *Path) Reverse() {
	for i, j := 0, len(p.nodes)-1; i < j; i, j = i+1, j-1 {
		p.nodes[i], p.nodes[j] = p.nodes[j], p.nodes[i]
	}
}

// RandomNode moves the cursor to a random node other than the last one.
func (p *Path) RandomNode(rng *rand.Rand) {
	if len(p.nodes) < 2 {
		p.next = 0
		return
	}
	p.next = rng.Intn(len(p.nodes) - 1)
}

// Shuffle reverses the path with even odds and then seeks a random node.
func (p *Path) Shuffle(rng *rand.Rand) {
	if rng.Intn(100) > 50 {
		p.Reverse()
	}
	p.RandomNode(rng)
}
