// Package viewer renders the navigation simulation top-down with ebiten.
package viewer

import (
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/Garsondee/Terrain-Sense/internal/agent"
	"github.com/Garsondee/Terrain-Sense/internal/nav"
	"github.com/Garsondee/Terrain-Sense/internal/sim"
)

const (
	mapSize      = 880 // square map viewport in pixels
	mapMargin    = 12
	screenWidth  = mapSize + 2*mapMargin + panelWidth
	screenHeight = mapSize + 2*mapMargin
	statusFrames = 180
)

var (
	colGround   = color.RGBA{R: 26, G: 40, B: 26, A: 255}
	colWall     = color.RGBA{R: 150, G: 120, B: 90, A: 255}
	colTemple   = color.RGBA{R: 200, G: 180, B: 120, A: 255}
	colTreasure = color.RGBA{R: 250, G: 210, B: 40, A: 255}
	colAgent    = color.RGBA{R: 230, G: 70, B: 70, A: 255}
	colFacing   = color.RGBA{R: 255, G: 160, B: 160, A: 255}
	colPatrol   = color.RGBA{R: 120, G: 120, B: 60, A: 160}
	colRoute    = color.RGBA{R: 60, G: 120, B: 255, A: 220}
)

// keys handled with edge triggering.
var watchedKeys = []ebiten.Key{ebiten.KeyN, ebiten.KeySpace, ebiten.KeyC, ebiten.KeyH}

// searchTrace keeps the open/closed cells of the most recent search.
type searchTrace struct {
	cur  []*nav.Node
	last []*nav.Node
}

func (t *searchTrace) record(n *nav.Node) { t.cur = append(t.cur, n) }

// finish publishes the cells gathered since the previous search.
func (t *searchTrace) finish() {
	t.last = t.cur
	t.cur = nil
}

// Game implements ebiten.Game over a Sim.
type Game struct {
	sim      *sim.Sim
	trace    *searchTrace
	panel    *EventPanel
	face     text.Face
	prevKeys map[ebiten.Key]bool

	paused    bool
	showHUD   bool
	status    string
	statusTTL int

	copyText func(string) error
}

// New builds the simulation from opts and wraps it in a viewer.
func New(opts ...sim.Option) (*Game, error) {
	g := &Game{
		trace:    &searchTrace{},
		panel:    NewEventPanel(),
		face:     text.NewGoXFace(basicfont.Face7x13),
		prevKeys: make(map[ebiten.Key]bool),
		showHUD:  true,
		copyText: clipboard.WriteAll,
	}
	opts = append(opts, sim.WithControllerOptions(
		agent.WithFinderOptions(nav.WithTrace(g.trace.record)),
	))
	s, err := sim.New(opts...)
	if err != nil {
		return nil, err
	}
	g.sim = s
	s.Log.OnAdd(g.onEvent)
	return g, nil
}

// Sim returns the underlying simulation.
func (g *Game) Sim() *sim.Sim { return g.sim }

func (g *Game) onEvent(e agent.Event) {
	if e.Category == agent.CatSearch {
		g.trace.finish()
	}
	if e.Category == agent.CatWaypoint {
		return
	}
	g.panel.Add(e)
}

// Update polls input and advances the simulation one frame unless paused.
func (g *Game) Update() error {
	g.handleInput()
	if g.statusTTL > 0 {
		g.statusTTL--
	}
	if !g.paused {
		g.sim.Step()
	}
	return nil
}

func (g *Game) handleInput() {
	for _, k := range watchedKeys {
		down := ebiten.IsKeyPressed(k)
		if down && !g.prevKeys[k] {
			g.onKey(k)
		}
		g.prevKeys[k] = down
	}
}

// onKey handles one key press.
func (g *Game) onKey(k ebiten.Key) {
	switch k {
	case ebiten.KeyN:
		g.sim.Toggle()
	case ebiten.KeySpace:
		g.paused = !g.paused
	case ebiten.KeyH:
		g.showHUD = !g.showHUD
	case ebiten.KeyC:
		if err := g.copyText(g.sim.Report()); err != nil {
			g.setStatus("copy failed: " + err.Error())
		} else {
			g.setStatus("report copied to clipboard")
		}
	}
}

func (g *Game) setStatus(s string) {
	g.status = s
	g.statusTTL = statusFrames
}

// Layout implements ebiten.Game.
func (g *Game) Layout(_, _ int) (int, int) { return screenWidth, screenHeight }

// toScreen maps a world position onto the map viewport.
func (g *Game) toScreen(p mgl32.Vec3) (float32, float32) {
	world := float32(g.sim.Stage.Range() * g.sim.Stage.Spacing())
	scale := mapSize / world
	return mapMargin + p.X()*scale, mapMargin + p.Z()*scale
}

// cellPixels is the on-screen size of one grid cell, at least one pixel.
func (g *Game) cellPixels() float32 {
	return float32(math.Max(1, float64(mapSize)/float64(g.sim.Stage.Range())))
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 8, G: 10, B: 8, A: 255})
	vector.FillRect(screen, mapMargin, mapMargin, mapSize, mapSize, colGround, false)

	g.drawTrace(screen)
	g.drawObstacles(screen)
	g.drawPath(screen, g.sim.Patrol, colPatrol)
	if route := g.sim.Ctl.Route(); route != nil {
		g.drawPath(screen, route, colRoute)
	}
	g.drawTreasures(screen)
	g.drawAgent(screen)

	vector.StrokeRect(screen, mapMargin-1, mapMargin-1, mapSize+2, mapSize+2, 2.0, color.RGBA{R: 60, G: 90, B: 60, A: 255}, false)
	if g.showHUD {
		g.drawHUD(screen)
	}
	g.panel.Draw(screen, g.face, mapSize+2*mapMargin, screenHeight)
}

func (g *Game) drawTrace(screen *ebiten.Image) {
	px := g.cellPixels()
	for _, n := range g.trace.last {
		x, y := g.toScreen(n.Position())
		c := n.DisplayTag()
		c.A = 50
		vector.FillRect(screen, x, y, px, px, c, false)
	}
}

func (g *Game) drawObstacles(screen *ebiten.Image) {
	st := g.sim.Stage
	px := g.cellPixels()
	for _, c := range st.ObstacleCells() {
		name, _ := st.ObstacleName(c)
		col := colWall
		if nav.SameType(name, "temple") {
			col = colTemple
		}
		x, y := g.toScreen(st.CellPosition(c.X, c.Z))
		vector.FillRect(screen, x, y, px, px, col, false)
	}
}

func (g *Game) drawPath(screen *ebiten.Image, p *nav.Path, line color.RGBA) {
	nodes := p.Nodes()
	for i, n := range nodes {
		x, y := g.toScreen(n.Position())
		if i > 0 {
			px, py := g.toScreen(nodes[i-1].Position())
			vector.StrokeLine(screen, px, py, x, y, 1.0, line, false)
		}
		vector.FillRect(screen, x-2, y-2, 4, 4, n.DisplayTag(), false)
	}
	if p.Mode() == nav.ModeLoop && len(nodes) > 2 {
		fx, fy := g.toScreen(nodes[0].Position())
		lx, ly := g.toScreen(nodes[len(nodes)-1].Position())
		vector.StrokeLine(screen, lx, ly, fx, fy, 1.0, line, false)
	}
}

func (g *Game) drawTreasures(screen *ebiten.Image) {
	for _, t := range g.sim.Stage.Treasures() {
		x, y := g.toScreen(t.Position())
		vector.FillCircle(screen, x, y, 5, colTreasure, true)
	}
	if goal := g.sim.Ctl.Goal(); goal != nil {
		x, y := g.toScreen(goal.Position())
		vector.StrokeCircle(screen, x, y, 9, 1.5, goal.DisplayTag(), true)
	}
}

func (g *Game) drawAgent(screen *ebiten.Image) {
	pos := g.sim.Body.Position()
	x, y := g.toScreen(pos)
	vector.FillCircle(screen, x, y, 5, colAgent, true)
	fwd := g.sim.Ctl.Forward()
	vector.StrokeLine(screen, x, y, x+fwd.X()*16, y+fwd.Z()*16, 2.0, colFacing, true)
	if wp := g.sim.Ctl.CurrentWaypoint(); wp != nil {
		wx, wy := g.toScreen(wp.Position())
		vector.StrokeLine(screen, x, y, wx, wy, 1.0, color.RGBA{R: 255, G: 255, B: 255, A: 70}, false)
	}
}

// hudLines is the text shown in the HUD overlay.
func (g *Game) hudLines() []string {
	snap := g.sim.Snapshot()
	lines := []string{
		fmt.Sprintf("T=%d  mode=%s  pathfinding=%v", snap.Tick, snap.Mode, g.sim.Ctl.IsPathfinding()),
		fmt.Sprintf("cell=%s  waypoint=%s  heading=%.0fdeg", snap.Cell, snap.Waypoint,
			agent.Heading(g.sim.Ctl.Forward())*180/math.Pi),
		fmt.Sprintf("treasures collected=%d remaining=%d", snap.Collected, snap.Remaining),
		fmt.Sprintf("searches=%d unreachable=%d blocked=%d", snap.Searches, snap.Unreachable, snap.Blocked),
	}
	if st := g.sim.Ctl.Finder().LastStats(); st.Expanded > 0 {
		lines = append(lines, fmt.Sprintf("last search: %s, %d expanded, %d nodes, %s",
			st.Outcome, st.Expanded, st.Length, st.Duration.Round(time.Microsecond)))
	}
	lines = append(lines, "N toggle  SPACE pause  C copy report  H hud")
	if g.paused {
		lines = append(lines, "PAUSED")
	}
	if g.statusTTL > 0 {
		lines = append(lines, g.status)
	}
	return lines
}

func (g *Game) drawHUD(screen *ebiten.Image) {
	lines := g.hudLines()
	h := float32(len(lines)*panelLineHeight + 8)
	vector.FillRect(screen, mapMargin+6, mapMargin+6, 420, h, color.RGBA{R: 0, G: 0, B: 0, A: 170}, false)
	drawText(screen, g.face, strings.Join(lines, "\n"), mapMargin+10, mapMargin+10, color.White)
}

// WindowSize is the preferred window size.
func WindowSize() (int, int) { return screenWidth, screenHeight }
