package world

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v3"

	"github.com/Garsondee/Terrain-Sense/internal/nav"
)

//go:embed scenarios/*.yaml
var builtin embed.FS

// ErrInvalidScenario is wrapped by every validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// TerrainConfig selects the procedural heightmap.
type TerrainConfig struct {
	Kind       string  `yaml:"kind" json:"kind"`
	Amplitude  float64 `yaml:"amplitude" json:"amplitude"`
	Wavelength float64 `yaml:"wavelength" json:"wavelength"`
}

// WallConfig is a run of bricks placed relative to an origin cell.
type WallConfig struct {
	Origin []int   `yaml:"origin" json:"origin"`
	Bricks [][]int `yaml:"bricks" json:"bricks"`
}

// TempleConfig is a square obstacle footprint.
type TempleConfig struct {
	Center []int `yaml:"center" json:"center"`
	Radius int   `yaml:"radius" json:"radius"`
}

// AgentConfig places the navigating agent and tunes its controller.
type AgentConfig struct {
	Label      string  `yaml:"label" json:"label"`
	Start      []int   `yaml:"start" json:"start"`
	Step       float32 `yaml:"step" json:"step"`
	StepSize   float32 `yaml:"stepSize" json:"stepSize"`
	TagRadius  int     `yaml:"tagRadius" json:"tagRadius"`
	GoalRadius float32 `yaml:"goalRadius" json:"goalRadius"`
	StuckLimit int     `yaml:"stuckLimit" json:"stuckLimit"`
}

// PatrolConfig is the persistent patrol route, inline or from a path file.
type PatrolConfig struct {
	Mode  string  `yaml:"mode" json:"mode"`
	Nodes [][]int `yaml:"nodes" json:"nodes"`
	File  string  `yaml:"file" json:"file"`
}

// Scenario describes a whole map.
type Scenario struct {
	Name      string         `yaml:"name" json:"name"`
	Range     int            `yaml:"range" json:"range"`
	Spacing   int            `yaml:"spacing" json:"spacing"`
	Terrain   TerrainConfig  `yaml:"terrain" json:"terrain"`
	Walls     []WallConfig   `yaml:"walls" json:"walls"`
	Temples   []TempleConfig `yaml:"temples" json:"temples"`
	Treasures [][]int        `yaml:"treasures" json:"treasures"`
	Agent     AgentConfig    `yaml:"agent" json:"agent"`
	Patrol    PatrolConfig   `yaml:"patrol" json:"patrol"`

	dir string // directory of the scenario file, for relative patrol files
}

// DefaultScenario returns the built-in reference map.
func DefaultScenario() *Scenario {
	data, err := builtin.ReadFile("scenarios/default.yaml")
	if err != nil {
		panic(fmt.Sprintf("world: embedded scenario missing: %v", err))
	}
	sc, err := ParseScenario(data, "yaml")
	if err != nil {
		panic(fmt.Sprintf("world: embedded scenario broken: %v", err))
	}
	return sc
}

// LoadScenario reads a YAML or HJSON (by .hjson extension) scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".hjson") {
		format = "hjson"
	}
	sc, err := ParseScenario(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.dir = filepath.Dir(path)
	return sc, nil
}

// ParseScenario decodes and validates scenario data in "yaml" or "hjson".
func ParseScenario(data []byte, format string) (*Scenario, error) {
	sc := &Scenario{}
	switch format {
	case "hjson":
		if err := hjson.Unmarshal(data, sc); err != nil {
			return nil, fmt.Errorf("decode hjson: %w", err)
		}
	case "yaml", "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(sc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown scenario format %q", format)
	}
	sc.applyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Scenario) applyDefaults() {
	if sc.Name == "" {
		sc.Name = "unnamed"
	}
	if sc.Spacing == 0 {
		sc.Spacing = 1
	}
	if sc.Agent.Label == "" {
		sc.Agent.Label = "np"
	}
	if sc.Agent.Step == 0 {
		sc.Agent.Step = 1
	}
	if sc.Agent.StepSize == 0 {
		sc.Agent.StepSize = float32(sc.Spacing) / 5
	}
	if sc.Agent.TagRadius == 0 {
		sc.Agent.TagRadius = 2
	}
	if sc.Patrol.Mode == "" {
		sc.Patrol.Mode = "loop"
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScenario, fmt.Sprintf(format, args...))
}

func (sc *Scenario) cellInRange(p []int) bool {
	return len(p) == 2 && p[0] >= 0 && p[1] >= 0 && p[0] <= sc.Range && p[1] <= sc.Range
}

// Validate checks the scenario for consistency.
func (sc *Scenario) Validate() error {
	if sc.Range < 4 {
		return invalid("range %d too small", sc.Range)
	}
	if sc.Spacing <= 0 {
		return invalid("spacing must be positive, got %d", sc.Spacing)
	}
	switch sc.Terrain.Kind {
	case "", "flat", "hills":
	default:
		return invalid("unknown terrain kind %q", sc.Terrain.Kind)
	}
	for i, w := range sc.Walls {
		if !sc.cellInRange(w.Origin) {
			return invalid("wall %d: origin %v outside grid", i, w.Origin)
		}
		for j, b := range w.Bricks {
			if len(b) != 2 {
				return invalid("wall %d brick %d: want [dx, dz], got %v", i, j, b)
			}
		}
	}
	for i, t := range sc.Temples {
		if !sc.cellInRange(t.Center) || t.Radius < 0 {
			return invalid("temple %d: bad center %v or radius %d", i, t.Center, t.Radius)
		}
	}
	for i, t := range sc.Treasures {
		if !sc.cellInRange(t) {
			return invalid("treasure %d: %v outside grid", i, t)
		}
	}
	if !sc.cellInRange(sc.Agent.Start) {
		return invalid("agent start %v outside grid", sc.Agent.Start)
	}
	if sc.Agent.Step < 0 || sc.Agent.StepSize < 0 || sc.Agent.TagRadius < 0 || sc.Agent.StuckLimit < 0 {
		return invalid("agent tuning values must not be negative")
	}
	if _, err := nav.ParseMode(sc.Patrol.Mode); err != nil {
		return invalid("patrol: %v", err)
	}
	if sc.Patrol.File == "" && len(sc.Patrol.Nodes) == 0 {
		return invalid("patrol needs nodes or a file")
	}
	for i, n := range sc.Patrol.Nodes {
		if !sc.cellInRange(n) {
			return invalid("patrol node %d: %v outside grid", i, n)
		}
	}
	return nil
}

// BuildStage materialises the terrain, obstacles and treasures.
func (sc *Scenario) BuildStage() *Stage {
	st := NewStage(sc.Range, sc.Spacing, Heightmap{
		Kind:       sc.Terrain.Kind,
		Amplitude:  sc.Terrain.Amplitude,
		Wavelength: sc.Terrain.Wavelength,
	})
	for _, w := range sc.Walls {
		bricks := make([]nav.Cell, len(w.Bricks))
		for i, b := range w.Bricks {
			bricks[i] = nav.Cell{X: b[0], Z: b[1]}
		}
		st.AddWall(nav.Cell{X: w.Origin[0], Z: w.Origin[1]}, bricks)
	}
	for _, t := range sc.Temples {
		st.AddTemple(nav.Cell{X: t.Center[0], Z: t.Center[1]}, t.Radius)
	}
	for _, t := range sc.Treasures {
		st.AddTreasure(t[0], t[1])
	}
	return st
}

// BuildPatrol creates the patrol route on st.
func (sc *Scenario) BuildPatrol(st *Stage) (*nav.Path, error) {
	mode, err := nav.ParseMode(sc.Patrol.Mode)
	if err != nil {
		return nil, invalid("patrol: %v", err)
	}
	if sc.Patrol.File != "" {
		name := sc.Patrol.File
		if !filepath.IsAbs(name) && sc.dir != "" {
			name = filepath.Join(sc.dir, name)
		}
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("open patrol file: %w", err)
		}
		defer f.Close()
		return nav.ReadPathFile(f, st, st.Spacing(), mode)
	}
	cells := make([]nav.Cell, len(sc.Patrol.Nodes))
	for i, n := range sc.Patrol.Nodes {
		cells[i] = nav.Cell{X: n[0], Z: n[1]}
	}
	return nav.NewPathFromCells(st, st.Spacing(), mode, cells), nil
}

// BuildBody places the agent's body on st.
func (sc *Scenario) BuildBody(st *Stage) *Body {
	b := NewBody(st, sc.Agent.Start[0], sc.Agent.Start[1], sc.Agent.Step, sc.Agent.StepSize)
	b.SetCollectRadius(sc.Agent.TagRadius)
	return b
}
