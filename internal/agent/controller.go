// Package agent drives a navigating agent between its patrol route and
// A* pursuit of the nearest treasure.
package agent

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Garsondee/Terrain-Sense/internal/nav"
)

// DefaultTagRadius is the grid distance below which a goal counts as reached.
const DefaultTagRadius = 2

// Mode is the controller's navigation mode.
type Mode int

const (
	ModePatrol     Mode = iota // follow the persistent patrol path
	ModePursuit                // follow an A* route to the nearest treasure
	ModeRecovering             // follow an A* route back to where pursuit began
)

func (m Mode) String() string {
	switch m {
	case ModePatrol:
		return "patrol"
	case ModePursuit:
		return "pursuit"
	case ModeRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// World is everything the controller needs to know about its surroundings.
type World interface {
	nav.World
	nav.TargetSource
}

// Body is the movable agent the controller steers. The controller only
// turns it; moving it along Forward is the caller's job.
type Body interface {
	Position() mgl32.Vec3
	Forward() mgl32.Vec3
	SetForward(mgl32.Vec3)
	Step() float32
	StepSize() float32
}

type state interface {
	mode() Mode
}

// patrolState follows Controller.patrolWP, which survives excursions.
type patrolState struct{}

func (patrolState) mode() Mode { return ModePatrol }

type pursuitState struct {
	goal   *nav.Node
	resume *nav.Node
	route  *nav.Path
	wp     *nav.Node
}

func (*pursuitState) mode() Mode { return ModePursuit }

// recover is the only way to enter Recovering: it carries the resume
// node of the pursuit it backs out of.
func (s *pursuitState) recover(route *nav.Path) *recoveringState {
	return &recoveringState{resume: s.resume, route: route}
}

type recoveringState struct {
	resume *nav.Node
	route  *nav.Path
	wp     *nav.Node
}

func (*recoveringState) mode() Mode { return ModeRecovering }

// Controller is the per-agent navigation state machine. Call Update once
// per frame, then move the body along its forward vector.
// A Controller is not safe for concurrent use.
type Controller struct {
	world  World
	body   Body
	patrol *nav.Path
	finder *nav.Finder
	goals  *nav.GoalSelector

	logger     *log.Logger
	events     *EventLog
	label      string
	finderOpts []nav.FinderOption
	snap       float32
	tagRadius  int
	goalRadius float32
	stuckLimit int

	state      state
	patrolWP   *nav.Node
	pending    int
	tick       int
	stuck      int
	degenerate int
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithEventLog records navigation events into l.
func WithEventLog(l *EventLog) Option {
	return func(c *Controller) { c.events = l }
}

// WithFinderOptions passes options to the controller's A* finder.
func WithFinderOptions(opts ...nav.FinderOption) Option {
	return func(c *Controller) { c.finderOpts = append(c.finderOpts, opts...) }
}

// WithTagRadius sets the grid distance at which goals count as reached.
func WithTagRadius(cells int) Option {
	return func(c *Controller) { c.tagRadius = cells }
}

// WithGoalRadius limits pursuit to treasures within r world units. Zero
// means unlimited.
func WithGoalRadius(r float32) Option {
	return func(c *Controller) { c.goalRadius = r }
}

// WithStuckLimit makes the controller back off after n updates without
// reaching a waypoint while following an A* route. Zero disables it.
func WithStuckLimit(n int) Option {
	return func(c *Controller) { c.stuckLimit = n }
}

// WithLabel names the agent in logs and events.
func WithLabel(label string) Option {
	return func(c *Controller) { c.label = label }
}

// SnapDistance is a little larger than one frame of movement, in world units.
func SnapDistance(step, stepSize float32) float32 {
	d := int(1.5 * float64(step*stepSize))
	if d < 1 {
		d = 1
	}
	return float32(d)
}

// New creates a controller in Patrol mode heading for the patrol path's
// first node.
func New(w World, body Body, patrol *nav.Path, opts ...Option) *Controller {
	c := &Controller{
		world:     w,
		body:      body,
		patrol:    patrol,
		logger:    log.New(io.Discard),
		events:    NewEventLog(false),
		label:     "np",
		tagRadius: DefaultTagRadius,
		state:     patrolState{},
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("agent", c.label)
	c.finder = nav.NewFinder(w, c.finderOpts...)
	c.goals = nav.NewGoalSelector(w, w, w.Spacing())
	c.snap = SnapDistance(body.Step(), body.StepSize())
	if patrol != nil {
		c.patrolWP = patrol.Next()
	}
	return c
}

// RequestModeToggle queues a Patrol/Pursuit toggle for the next Update.
func (c *Controller) RequestModeToggle() {
	c.pending++
	c.events.Add(c.tick, c.label, CatToggle, "requested", c.Mode().String(), 0)
}

// Update applies queued toggles and advances the current mode by one frame.
func (c *Controller) Update() {
	c.tick++
	for ; c.pending > 0; c.pending-- {
		c.applyToggle()
	}
	switch s := c.state.(type) {
	case patrolState:
		c.updatePatrol()
	case *pursuitState:
		c.updatePursuit(s)
	case *recoveringState:
		c.updateRecovering(s)
	}
}

// Mode returns the current navigation mode.
func (c *Controller) Mode() Mode { return c.state.mode() }

// IsPathfinding reports whether the agent is following an A* route.
func (c *Controller) IsPathfinding() bool { return c.state.mode() != ModePatrol }

// CurrentWaypoint is the node the agent is heading for.
func (c *Controller) CurrentWaypoint() *nav.Node {
	switch s := c.state.(type) {
	case patrolState:
		return c.patrolWP
	case *pursuitState:
		return s.wp
	case *recoveringState:
		return s.wp
	}
	return nil
}

// Route is the active A* route, or nil while patrolling.
func (c *Controller) Route() *nav.Path {
	switch s := c.state.(type) {
	case *pursuitState:
		return s.route
	case *recoveringState:
		return s.route
	}
	return nil
}

// Goal is the pursued treasure node in Pursuit and the resume node in
// Recovering. It is nil while patrolling.
func (c *Controller) Goal() *nav.Node {
	switch s := c.state.(type) {
	case *pursuitState:
		return s.goal
	case *recoveringState:
		return s.resume
	}
	return nil
}

// Forward is the agent's current facing vector.
func (c *Controller) Forward() mgl32.Vec3 { return c.body.Forward() }

// Patrol returns the persistent patrol path.
func (c *Controller) Patrol() *nav.Path { return c.patrol }

// Finder exposes the A* finder, e.g. for its LastStats.
func (c *Controller) Finder() *nav.Finder { return c.finder }

// Events returns the controller's event log.
func (c *Controller) Events() *EventLog { return c.events }

// Label is the agent name used in logs.
func (c *Controller) Label() string { return c.label }

// Tick is the number of Update calls so far.
func (c *Controller) Tick() int { return c.tick }

// SnapDistance is the waypoint snap radius in world units.
func (c *Controller) SnapDistance() float32 { return c.snap }

// DegenerateFacings counts frames where the facing update was skipped.
func (c *Controller) DegenerateFacings() int { return c.degenerate }

func (c *Controller) applyToggle() {
	if _, patrolling := c.state.(patrolState); !patrolling {
		c.transition(patrolState{}, "toggle")
		return
	}
	c.beginPursuit()
}

func (c *Controller) beginPursuit() {
	pos := c.body.Position()
	if len(c.world.Targets()) == 0 {
		c.ignoreToggle("no targets left")
		return
	}
	goal := c.goals.ClosestNode(pos, c.goalRadius)
	if goal == nil {
		c.ignoreToggle(fmt.Sprintf("no target within %.0f", c.goalRadius))
		return
	}
	route := c.search(pos, goal)
	if route == nil {
		c.ignoreToggle("goal " + c.cellOf(goal).String() + " unreachable")
		return
	}
	s := &pursuitState{
		goal:   goal,
		resume: nav.NewNode(pos, nav.RoleWaypoint),
		route:  route,
	}
	s.wp = route.Next()
	c.transition(s, "toggle")
}

func (c *Controller) ignoreToggle(reason string) {
	c.logger.Info("toggle ignored", "reason", reason)
	c.events.Add(c.tick, c.label, CatToggle, "ignored", reason, 0)
}

func (c *Controller) updatePatrol() {
	if c.patrolWP == nil {
		return
	}
	c.advance(ModePatrol, c.patrol, &c.patrolWP)
	c.face(c.patrolWP)
}

func (c *Controller) updatePursuit(s *pursuitState) {
	c.follow(ModePursuit, s.route, &s.wp)
	pos := c.body.Position()
	if s.goal.DistanceTo(pos, c.world.Spacing()) < c.tagRadius {
		c.events.Add(c.tick, c.label, CatTag, "goal", c.cellOf(s.goal).String(), 0)
		c.recover(s, "goal tagged")
		return
	}
	if c.stalled() {
		c.recover(s, "stuck")
	}
}

// recover heads back to the pursuit's resume node, or straight to Patrol
// when no route back exists.
func (c *Controller) recover(s *pursuitState, reason string) {
	route := c.search(c.body.Position(), s.resume)
	if route == nil {
		c.transition(patrolState{}, reason+", no route back")
		return
	}
	r := s.recover(route)
	r.wp = route.Next()
	c.transition(r, reason)
	c.face(r.wp)
}

func (c *Controller) updateRecovering(r *recoveringState) {
	c.follow(ModeRecovering, r.route, &r.wp)
	if r.resume.DistanceTo(c.body.Position(), c.world.Spacing()) < c.tagRadius {
		c.events.Add(c.tick, c.label, CatTag, "resume", c.cellOf(r.resume).String(), 0)
		c.transition(patrolState{}, "resumed")
		return
	}
	if c.stalled() {
		c.transition(patrolState{}, "stuck")
	}
}

// follow steps along an A* route and faces its current waypoint.
func (c *Controller) follow(m Mode, route *nav.Path, wp **nav.Node) {
	c.stuck++
	c.advance(m, route, wp)
	c.face(*wp)
}

// advance takes the path's next node once *wp is within snap distance.
// A path that keeps handing out the same node commits nothing.
func (c *Controller) advance(m Mode, p *nav.Path, wp **nav.Node) {
	if !c.reached(*wp) {
		return
	}
	if next := p.Next(); next != *wp {
		*wp = next
		c.commit(m, next)
	}
}

func (c *Controller) stalled() bool {
	if c.stuckLimit <= 0 || c.stuck < c.stuckLimit {
		return false
	}
	c.logger.Warn("no waypoint progress, backing off", "mode", c.Mode(), "updates", c.stuck)
	c.events.Add(c.tick, c.label, CatStuck, "backoff", c.Mode().String(), float64(c.stuck))
	return true
}

func (c *Controller) search(from mgl32.Vec3, goal *nav.Node) *nav.Path {
	start := nav.NewNode(from, nav.RoleVertex)
	route := c.finder.FindPath(start, goal)
	st := c.finder.LastStats()
	detail := fmt.Sprintf("%s → %s, %d expanded", c.cellOf(start), c.cellOf(goal), st.Expanded)
	c.events.Add(c.tick, c.label, CatSearch, st.Outcome.String(), detail, float64(st.Expanded))
	c.logger.Debug("search",
		"outcome", st.Outcome,
		"from", c.cellOf(start),
		"to", c.cellOf(goal),
		"expanded", st.Expanded,
		"length", st.Length,
		"took", st.Duration)
	return route
}

func (c *Controller) transition(next state, reason string) {
	from := c.state.mode()
	c.state = next
	c.stuck = 0
	to := next.mode()
	if from == to {
		return
	}
	transitions.WithLabelValues(from.String(), to.String()).Inc()
	c.events.Add(c.tick, c.label, CatMode, "change", fmt.Sprintf("%s → %s (%s)", from, to, reason), 0)
	c.logger.Info("mode change", "from", from, "to", to, "reason", reason)
}

func (c *Controller) commit(m Mode, wp *nav.Node) {
	c.stuck = 0
	waypointCommits.WithLabelValues(m.String()).Inc()
	c.events.Add(c.tick, c.label, CatWaypoint, "commit", c.cellOf(wp).String(), 0)
	c.logger.Debug("waypoint", "mode", m, "cell", c.cellOf(wp))
}

// reached measures on the XZ plane.
func (c *Controller) reached(wp *nav.Node) bool {
	return flat(wp.Position()).Sub(flat(c.body.Position())).Len() <= c.snap
}

func (c *Controller) face(wp *nav.Node) {
	fwd, err := TurnToFace(c.body.Position(), c.body.Forward(), wp.Position())
	if err != nil {
		c.degenerate++
		degenerateFacings.Inc()
		c.logger.Warn("facing skipped", "err", err, "target", c.cellOf(wp))
		c.events.Add(c.tick, c.label, CatFacing, "degenerate", c.cellOf(wp).String(), 0)
		return
	}
	c.body.SetForward(fwd)
}

func (c *Controller) cellOf(n *nav.Node) nav.Cell { return n.Cell(c.world.Spacing()) }
