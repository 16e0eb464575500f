package viewer

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/Terrain-Sense/internal/agent"
)

const (
	panelWidth      = 340
	panelMaxEntries = 60
	panelLineHeight = 14
)

// categoryColors marks event rows by category.
var categoryColors = map[string]color.RGBA{
	agent.CatMode:     {R: 230, G: 200, B: 60, A: 255},
	agent.CatSearch:   {R: 90, G: 140, B: 230, A: 255},
	agent.CatWaypoint: {R: 110, G: 110, B: 110, A: 255},
	agent.CatToggle:   {R: 200, G: 120, B: 220, A: 255},
	agent.CatTag:      {R: 80, G: 210, B: 110, A: 255},
	agent.CatStuck:    {R: 230, G: 110, B: 50, A: 255},
	agent.CatFacing:   {R: 220, G: 60, B: 60, A: 255},
}

// EventPanel is a ring buffer of recent controller events rendered on-screen.
type EventPanel struct {
	entries []agent.Event
	head    int
	count   int
}

// NewEventPanel creates a panel with a fixed capacity.
func NewEventPanel() *EventPanel {
	return &EventPanel{
		entries: make([]agent.Event, panelMaxEntries),
	}
}

// Add appends an event, dropping the oldest when full.
func (p *EventPanel) Add(e agent.Event) {
	p.entries[p.head] = e
	p.head = (p.head + 1) % panelMaxEntries
	if p.count < panelMaxEntries {
		p.count++
	}
}

// Recent returns entries in chronological order (oldest first).
func (p *EventPanel) Recent() []agent.Event {
	result := make([]agent.Event, p.count)
	for i := 0; i < p.count; i++ {
		idx := (p.head - p.count + i + panelMaxEntries) % panelMaxEntries
		result[i] = p.entries[idx]
	}
	return result
}

// Draw renders the panel on the right side of the screen.
func (p *EventPanel) Draw(screen *ebiten.Image, face text.Face, panelX, panelH int) {
	x := float32(panelX)
	vector.FillRect(screen, x, 0, panelWidth, float32(panelH), color.RGBA{R: 10, G: 12, B: 14, A: 248}, false)
	vector.StrokeLine(screen, x, 0, x, float32(panelH), 1.0, color.RGBA{R: 50, G: 60, B: 80, A: 255}, false)

	vector.FillRect(screen, x, 0, panelWidth, 18, color.RGBA{R: 20, G: 26, B: 36, A: 255}, false)
	drawText(screen, face, "NAV EVENTS", panelX+8, 3, color.White)
	vector.StrokeLine(screen, x, 18, x+panelWidth, 18, 1.0, color.RGBA{R: 50, G: 70, B: 100, A: 200}, false)

	entries := p.Recent()

	// Newest at the bottom.
	maxVisible := (panelH - 26) / panelLineHeight
	if len(entries) > maxVisible {
		entries = entries[len(entries)-maxVisible:]
	}
	highlight := 3

	y := 22
	for i, e := range entries {
		recent := i >= len(entries)-highlight
		if recent {
			vector.FillRect(screen, x+2, float32(y), panelWidth-4, panelLineHeight, color.RGBA{R: 28, G: 36, B: 48, A: 160}, false)
		}
		dot, ok := categoryColors[e.Category]
		if !ok {
			dot = color.RGBA{R: 160, G: 160, B: 160, A: 255}
		}
		vector.FillRect(screen, x+5, float32(y+4), 3, 6, dot, false)

		fg := color.RGBA{R: 150, G: 150, B: 150, A: 255}
		if recent {
			fg = color.RGBA{R: 240, G: 240, B: 240, A: 255}
		}
		drawText(screen, face, fmt.Sprintf("%5d %-8s %s", e.Tick, e.Key, e.Value), panelX+12, y+1, fg)
		y += panelLineHeight
	}
}

func drawText(dst *ebiten.Image, face text.Face, s string, x, y int, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(clr)
	op.LineSpacing = panelLineHeight
	text.Draw(dst, s, face, op)
}
