// Package sim runs the navigation stack headless: scenario, stage, body
// and controller stepped frame by frame with structured event logging.
package sim

import (
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Garsondee/Terrain-Sense/internal/agent"
	"github.com/Garsondee/Terrain-Sense/internal/nav"
	"github.com/Garsondee/Terrain-Sense/internal/world"
)

// Sim is a deterministic headless simulation of one navigating agent.
// It mirrors the viewer's Update loop without any rendering.
type Sim struct {
	Scenario *world.Scenario
	Stage    *world.Stage
	Body     *world.Body
	Patrol   *nav.Path
	Ctl      *agent.Controller
	Log      *agent.EventLog

	logger      *log.Logger
	rng         *rand.Rand
	shuffle     bool
	toggleEvery int
	ctlOpts     []agent.Option
	tick        int
}

// optionKind controls the pass in which an option is applied.
type optionKind int

const (
	optInfra optionKind = iota // scenario, seed, logging; applied first
	optStage                   // extra obstacles and treasures; applied after the stage is built
	optAgent                   // patrol and controller tuning; applied before the controller is built
)

// Option is a builder function applied to a Sim during construction.
type Option struct {
	kind optionKind
	fn   func(*Sim)
}

// WithScenario replaces the built-in default scenario.
func WithScenario(sc *world.Scenario) Option {
	return Option{optInfra, func(s *Sim) { s.Scenario = sc }}
}

// WithSeed sets the RNG seed used by randomised options.
func WithSeed(seed int64) Option {
	return Option{optInfra, func(s *Sim) {
		s.rng = rand.New(rand.NewSource(seed)) // #nosec G404 -- simulation
	}}
}

// WithVerbose enables per-tick position entries in the event log.
func WithVerbose(v bool) Option {
	return Option{optInfra, func(s *Sim) { s.Log = agent.NewEventLog(v) }}
}

// WithLogger sets the structured logger passed to the controller.
func WithLogger(l *log.Logger) Option {
	return Option{optInfra, func(s *Sim) { s.logger = l }}
}

// WithToggleEvery requests a mode toggle every n ticks, like a player
// pressing N on a schedule. Zero disables it.
func WithToggleEvery(n int) Option {
	return Option{optInfra, func(s *Sim) { s.toggleEvery = n }}
}

// WithTreasure adds a treasure at grid cell (x, z).
func WithTreasure(x, z int) Option {
	return Option{optStage, func(s *Sim) { s.Stage.AddTreasure(x, z) }}
}

// WithWall adds a wall of bricks relative to origin.
func WithWall(origin nav.Cell, bricks ...nav.Cell) Option {
	return Option{optStage, func(s *Sim) { s.Stage.AddWall(origin, bricks) }}
}

// WithShuffledPatrol may reverse the patrol and starts it at a random node.
func WithShuffledPatrol() Option {
	return Option{optAgent, func(s *Sim) { s.shuffle = true }}
}

// WithControllerOptions forwards options to the agent controller.
func WithControllerOptions(opts ...agent.Option) Option {
	return Option{optAgent, func(s *Sim) { s.ctlOpts = append(s.ctlOpts, opts...) }}
}

// New constructs a Sim from the given options in ordered passes:
//  1. Infrastructure (scenario, seed, logging)
//  2. Build the stage, then stage options
//  3. Build body and patrol, then agent options
//  4. Build the controller
func New(opts ...Option) (*Sim, error) {
	s := &Sim{
		Log:    agent.NewEventLog(false),
		logger: log.New(io.Discard),
		rng:    rand.New(rand.NewSource(1)), // #nosec G404 -- simulation default
	}
	apply := func(kind optionKind) {
		for _, o := range opts {
			if o.kind == kind {
				o.fn(s)
			}
		}
	}

	apply(optInfra)
	if s.Scenario == nil {
		s.Scenario = world.DefaultScenario()
	}
	if err := s.Scenario.Validate(); err != nil {
		return nil, err
	}

	s.Stage = s.Scenario.BuildStage()
	apply(optStage)

	patrol, err := s.Scenario.BuildPatrol(s.Stage)
	if err != nil {
		return nil, fmt.Errorf("build patrol: %w", err)
	}
	s.Patrol = patrol
	s.Body = s.Scenario.BuildBody(s.Stage)
	apply(optAgent)
	if s.shuffle {
		s.Patrol.Shuffle(s.rng)
	}

	ac := s.Scenario.Agent
	base := []agent.Option{
		agent.WithLogger(s.logger),
		agent.WithEventLog(s.Log),
		agent.WithLabel(ac.Label),
		agent.WithTagRadius(ac.TagRadius),
		agent.WithGoalRadius(ac.GoalRadius),
		agent.WithStuckLimit(ac.StuckLimit),
	}
	s.Ctl = agent.New(s.Stage, s.Body, s.Patrol, append(base, s.ctlOpts...)...)
	return s, nil
}

// Toggle requests a mode toggle, applied on the next Step.
func (s *Sim) Toggle() { s.Ctl.RequestModeToggle() }

// Step runs one frame: scheduled toggle, controller update, then movement.
func (s *Sim) Step() {
	s.tick++
	if s.toggleEvery > 0 && s.tick%s.toggleEvery == 0 {
		s.Toggle()
	}
	s.Ctl.Update()
	if t := s.Body.Advance(); t != nil {
		s.Log.Add(s.tick, s.Ctl.Label(), agent.CatTag, "collect", t.Name, float64(len(s.Stage.Treasures())))
	}
	pos := s.Body.Position()
	s.Log.AddVerbose(s.tick, s.Ctl.Label(), "move", "position",
		nav.CellOf(pos, s.Stage.Spacing()).String(), float64(pos.Y()))
}

// RunTicks advances the simulation n ticks.
func (s *Sim) RunTicks(n int) {
	for i := 0; i < n; i++ {
		s.Step()
	}
}

// RunUntil advances the simulation up to maxTicks, stopping early if
// predicate returns true. Returns the tick at which the predicate was
// satisfied, or -1.
func (s *Sim) RunUntil(predicate func(*Sim) bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		s.Step()
		if predicate(s) {
			return s.tick
		}
	}
	return -1
}

// CurrentTick returns the current simulation tick.
func (s *Sim) CurrentTick() int { return s.tick }

// Snapshot is a lightweight summary of the simulation at a tick.
type Snapshot struct {
	Tick        int
	Mode        agent.Mode
	Cell        nav.Cell
	Waypoint    nav.Cell
	Collected   int
	Remaining   int
	ModeChanges int
	Searches    int
	Unreachable int
	Ignored     int
	Backoffs    int
	Degenerate  int
	Blocked     int
	Commits     int
}

// Snapshot captures the current state.
func (s *Sim) Snapshot() Snapshot {
	sp := s.Stage.Spacing()
	snap := Snapshot{
		Tick:        s.tick,
		Mode:        s.Ctl.Mode(),
		Cell:        nav.CellOf(s.Body.Position(), sp),
		Collected:   s.Body.Collected(),
		Remaining:   len(s.Stage.Treasures()),
		ModeChanges: s.Log.CountCategory(agent.CatMode, "change"),
		Searches:    s.Log.CountCategory(agent.CatSearch, ""),
		Unreachable: s.Log.CountCategory(agent.CatSearch, nav.OutcomeUnreachable.String()),
		Ignored:     s.Log.CountCategory(agent.CatToggle, "ignored"),
		Backoffs:    s.Log.CountCategory(agent.CatStuck, "backoff"),
		Degenerate:  s.Ctl.DegenerateFacings(),
		Blocked:     s.Body.BlockedMoves(),
		Commits:     s.Log.CountCategory(agent.CatWaypoint, "commit"),
	}
	if wp := s.Ctl.CurrentWaypoint(); wp != nil {
		snap.Waypoint = wp.Cell(sp)
	}
	return snap
}

// FirstTick returns the tick of the first event matching category and key
// whose value contains substr, or -1.
func (s *Sim) FirstTick(category, key, substr string) int {
	for _, e := range s.Log.Filter(category, key) {
		if substr == "" || strings.Contains(e.Value, substr) {
			return e.Tick
		}
	}
	return -1
}

// Report returns a short human-readable summary of the run so far.
func (s *Sim) Report() string {
	snap := s.Snapshot()
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s at T=%03d ---\n", s.Scenario.Name, snap.Tick)
	fmt.Fprintf(&sb, "agent %s: mode=%s cell=%s waypoint=%s\n",
		s.Ctl.Label(), snap.Mode, snap.Cell, snap.Waypoint)
	fmt.Fprintf(&sb, "treasures: collected=%d remaining=%d\n", snap.Collected, snap.Remaining)
	fmt.Fprintf(&sb, "phase_markers: first_pursuit=%d first_tag=%d first_resume=%d\n",
		s.FirstTick(agent.CatMode, "change", "→ pursuit"),
		s.FirstTick(agent.CatTag, "goal", ""),
		s.FirstTick(agent.CatTag, "resume", ""))
	fmt.Fprintf(&sb, "event_totals: mode_change=%d search=%d unreachable=%d toggle_ignored=%d waypoint=%d\n",
		snap.ModeChanges, snap.Searches, snap.Unreachable, snap.Ignored, snap.Commits)
	fmt.Fprintf(&sb, "movement: blocked=%d backoff=%d degenerate_facing=%d\n",
		snap.Blocked, snap.Backoffs, snap.Degenerate)
	if st := s.Ctl.Finder().LastStats(); st.Expanded > 0 {
		fmt.Fprintf(&sb, "last_search: outcome=%s expanded=%d obstacles=%d length=%d\n",
			st.Outcome, st.Expanded, st.Obstacles, st.Length)
	}
	return sb.String()
}
