package agent

import (
	"testing"

	"github.com/Garsondee/Terrain-Sense/internal/nav"
	"github.com/Garsondee/Terrain-Sense/internal/world"
)

const testSpacing = 10

// rig is a flat 64x64 stage with a square loop patrol and an agent
// standing on the patrol's first node.
type rig struct {
	stage  *world.Stage
	body   *world.Body
	patrol *nav.Path
	events *EventLog
	ctl    *Controller
}

func newRig(t *testing.T, opts ...Option) *rig {
	t.Helper()
	st := world.NewStage(64, testSpacing, world.Heightmap{})
	patrol := nav.NewPathFromCells(st, testSpacing, nav.ModeLoop, []nav.Cell{
		{X: 10, Z: 10}, {X: 50, Z: 10}, {X: 50, Z: 50}, {X: 10, Z: 50},
	})
	body := world.NewBody(st, 10, 10, 1, 2)
	events := NewEventLog(false)
	opts = append([]Option{WithEventLog(events)}, opts...)
	return &rig{
		stage:  st,
		body:   body,
		patrol: patrol,
		events: events,
		ctl:    New(st, body, patrol, opts...),
	}
}

// tick runs one frame: controller update, then movement.
func (r *rig) tick() {
	r.ctl.Update()
	r.body.Advance()
}

// runUntil ticks until pred holds, failing after max frames.
func (r *rig) runUntil(t *testing.T, max int, what string, pred func() bool) {
	t.Helper()
	for i := 0; i < max; i++ {
		r.tick()
		if pred() {
			return
		}
	}
	t.Fatalf("%s did not happen within %d ticks (mode=%s)\n%s", what, max, r.ctl.Mode(), r.events.Format())
}

func TestSnapDistance(t *testing.T) {
	cases := []struct {
		step, size float32
		want       float32
	}{
		{1, 30, 45},
		{1, 2, 3},
		{2, 5, 15},
		{0.1, 1, 1},
		{0, 0, 1},
	}
	for _, tc := range cases {
		if got := SnapDistance(tc.step, tc.size); got != tc.want {
			t.Fatalf("SnapDistance(%v, %v) = %v, want %v", tc.step, tc.size, got, tc.want)
		}
	}
}

func TestNew_StartsPatrollingFirstNode(t *testing.T) {
	r := newRig(t)
	if r.ctl.Mode() != ModePatrol || r.ctl.IsPathfinding() {
		t.Fatalf("expected patrol, got %s", r.ctl.Mode())
	}
	if wp := r.ctl.CurrentWaypoint(); wp == nil || wp.Cell(testSpacing) != (nav.Cell{X: 10, Z: 10}) {
		t.Fatalf("expected the first patrol node, got %v", wp)
	}
	if r.ctl.Route() != nil || r.ctl.Goal() != nil {
		t.Fatal("patrol should have no route or goal")
	}
}

func TestPatrol_AdvancesWithinSnapDistance(t *testing.T) {
	r := newRig(t)
	r.tick()
	if wp := r.ctl.CurrentWaypoint(); wp.Cell(testSpacing) != (nav.Cell{X: 50, Z: 10}) {
		t.Fatalf("standing on node 0 should commit node 1, got %v", wp.Cell(testSpacing))
	}
	if fwd := r.body.Forward(); fwd.X() < 0.99 {
		t.Fatalf("agent should face +X toward node 1, got %v", fwd)
	}
	r.runUntil(t, 1000, "reaching node 2", func() bool {
		return r.ctl.CurrentWaypoint().Cell(testSpacing) == (nav.Cell{X: 50, Z: 50})
	})
	if r.events.CountCategory(CatWaypoint, "commit") != 2 {
		t.Fatalf("expected two commits\n%s", r.events.Format())
	}
}

func TestToggle_NoTargetsIsNoOp(t *testing.T) {
	r := newRig(t)
	r.tick()
	wp := r.ctl.CurrentWaypoint()
	cursor := r.patrol.Cursor()

	r.ctl.RequestModeToggle()
	r.ctl.Update()

	if r.ctl.Mode() != ModePatrol {
		t.Fatalf("toggle without targets must stay in patrol, got %s", r.ctl.Mode())
	}
	if r.ctl.CurrentWaypoint() != wp || r.patrol.Cursor() != cursor {
		t.Fatal("patrol state must be untouched")
	}
	if !r.events.HasEntry(CatToggle, "ignored", "no targets") {
		t.Fatalf("expected an ignored toggle event\n%s", r.events.Format())
	}
	if r.events.CountCategory(CatSearch, "") != 0 {
		t.Fatal("no search should run without targets")
	}
}

func TestToggle_TakenOnlyOnUpdate(t *testing.T) {
	r := newRig(t)
	r.stage.AddTreasure(30, 30)
	r.ctl.RequestModeToggle()
	if r.ctl.Mode() != ModePatrol {
		t.Fatal("toggle must wait for Update")
	}
	r.ctl.Update()
	if r.ctl.Mode() != ModePursuit || !r.ctl.IsPathfinding() {
		t.Fatalf("expected pursuit, got %s", r.ctl.Mode())
	}
	if r.ctl.Route() == nil || r.ctl.CurrentWaypoint() == nil {
		t.Fatal("pursuit must commit a route and its first waypoint in the same update")
	}
	if r.ctl.Goal().Cell(testSpacing) != (nav.Cell{X: 30, Z: 30}) {
		t.Fatalf("unexpected goal %v", r.ctl.Goal().Cell(testSpacing))
	}
}

func TestPursuitRecoversThenResumesPatrol(t *testing.T) {
	r := newRig(t)
	r.stage.AddTreasure(30, 30)
	r.tick() // commits patrol node 1
	savedWP := r.ctl.CurrentWaypoint()
	savedCursor := r.patrol.Cursor()

	r.ctl.RequestModeToggle()
	r.tick()
	if r.ctl.Mode() != ModePursuit {
		t.Fatalf("expected pursuit, got %s", r.ctl.Mode())
	}

	r.runUntil(t, 3000, "recovering", func() bool { return r.ctl.Mode() == ModeRecovering })
	if !r.events.HasEntry(CatTag, "goal", "(30,30)") {
		t.Fatalf("expected the goal to be tagged\n%s", r.events.Format())
	}
	if r.ctl.Goal().Cell(testSpacing) != (nav.Cell{X: 10, Z: 10}) {
		t.Fatalf("recovery should head for the resume point, got %v", r.ctl.Goal().Cell(testSpacing))
	}

	r.runUntil(t, 3000, "patrol", func() bool { return r.ctl.Mode() == ModePatrol })
	if r.ctl.CurrentWaypoint() != savedWP {
		t.Fatalf("patrol waypoint reset: got %v, want %v",
			r.ctl.CurrentWaypoint().Cell(testSpacing), savedWP.Cell(testSpacing))
	}
	if r.patrol.Cursor() != savedCursor {
		t.Fatalf("patrol cursor moved from %d to %d", savedCursor, r.patrol.Cursor())
	}
	if r.body.Collected() != 1 {
		t.Fatalf("expected one treasure collected, got %d", r.body.Collected())
	}
	var modes []string
	for _, e := range r.events.Filter(CatMode, "change") {
		modes = append(modes, e.Value)
	}
	if len(modes) != 3 {
		t.Fatalf("expected three mode changes, got %v", modes)
	}
}

func TestToggleDuringPursuit_ReturnsToPatrol(t *testing.T) {
	r := newRig(t)
	r.stage.AddTreasure(40, 40)
	r.tick()
	savedWP := r.ctl.CurrentWaypoint()

	r.ctl.RequestModeToggle()
	for i := 0; i < 10; i++ {
		r.tick()
	}
	if r.ctl.Mode() != ModePursuit {
		t.Fatalf("expected pursuit, got %s", r.ctl.Mode())
	}
	r.ctl.RequestModeToggle()
	r.ctl.Update()
	if r.ctl.Mode() != ModePatrol {
		t.Fatalf("second toggle should abort pursuit, got %s", r.ctl.Mode())
	}
	if r.ctl.CurrentWaypoint() != savedWP {
		t.Fatal("aborting pursuit must restore the patrol waypoint")
	}
}

func TestRetoggle_RecomputesGoal(t *testing.T) {
	r := newRig(t)
	near := r.stage.AddTreasure(15, 15)
	r.stage.AddTreasure(40, 12)

	r.ctl.RequestModeToggle()
	r.ctl.Update()
	if r.ctl.Goal().Cell(testSpacing) != (nav.Cell{X: 15, Z: 15}) {
		t.Fatalf("expected the near treasure, got %v", r.ctl.Goal().Cell(testSpacing))
	}
	r.ctl.RequestModeToggle()
	r.ctl.Update()

	r.stage.Collect(near)
	r.ctl.RequestModeToggle()
	r.ctl.Update()
	if r.ctl.Goal().Cell(testSpacing) != (nav.Cell{X: 40, Z: 12}) {
		t.Fatalf("re-toggle should pick the remaining treasure, got %v", r.ctl.Goal().Cell(testSpacing))
	}
	if n := r.events.CountCategory(CatSearch, "found"); n != 2 {
		t.Fatalf("expected two searches, got %d", n)
	}
}

func TestToggle_UnreachableGoalIsNoOp(t *testing.T) {
	r := newRig(t)
	r.stage.AddTreasure(30, 30)
	var ring []nav.Cell
	for d := -2; d <= 2; d++ {
		ring = append(ring, nav.Cell{X: d, Z: -2}, nav.Cell{X: d, Z: 2}, nav.Cell{X: -2, Z: d}, nav.Cell{X: 2, Z: d})
	}
	r.stage.AddWall(nav.Cell{X: 30, Z: 30}, ring)

	r.ctl.RequestModeToggle()
	r.ctl.Update()
	if r.ctl.Mode() != ModePatrol {
		t.Fatalf("walled-in goal must leave the agent patrolling, got %s", r.ctl.Mode())
	}
	if !r.events.HasEntry(CatSearch, "unreachable", "") || !r.events.HasEntry(CatToggle, "ignored", "unreachable") {
		t.Fatalf("expected unreachable search and ignored toggle\n%s", r.events.Format())
	}
}

func TestToggle_GoalRadius(t *testing.T) {
	r := newRig(t, WithGoalRadius(100))
	r.stage.AddTreasure(30, 10) // 20 cells, 200 world units
	r.ctl.RequestModeToggle()
	r.ctl.Update()
	if r.ctl.Mode() != ModePatrol {
		t.Fatal("treasure beyond the goal radius must be ignored")
	}

	r = newRig(t, WithGoalRadius(200))
	r.stage.AddTreasure(30, 10)
	r.ctl.RequestModeToggle()
	r.ctl.Update()
	if r.ctl.Mode() != ModePursuit {
		t.Fatal("treasure at the goal radius should be pursued")
	}
}

func TestStuckLimit_BacksOff(t *testing.T) {
	r := newRig(t, WithStuckLimit(5))
	r.stage.AddTreasure(40, 40)
	r.ctl.RequestModeToggle()
	// The body never moves, so no waypoint is ever reached.
	for i := 0; i < 4; i++ {
		r.ctl.Update()
	}
	if r.ctl.Mode() != ModePursuit {
		t.Fatalf("backed off too early: %s", r.ctl.Mode())
	}
	r.ctl.Update()
	if r.ctl.Mode() != ModeRecovering {
		t.Fatalf("expected recovering after the stuck limit, got %s", r.ctl.Mode())
	}
	if !r.events.HasEntry(CatStuck, "backoff", "pursuit") {
		t.Fatalf("expected a backoff event\n%s", r.events.Format())
	}
	r.ctl.Update()
	if r.ctl.Mode() != ModePatrol {
		t.Fatalf("agent still at the resume point should resume patrol, got %s", r.ctl.Mode())
	}
}

func TestDegenerateFacing_SkipsFrame(t *testing.T) {
	st := world.NewStage(64, testSpacing, world.Heightmap{})
	patrol := nav.NewPathFromCells(st, testSpacing, nav.ModeLoop, []nav.Cell{{X: 10, Z: 10}})
	body := world.NewBody(st, 10, 10, 1, 2)
	events := NewEventLog(false)
	ctl := New(st, body, patrol, WithEventLog(events))

	before := body.Forward()
	ctl.Update()
	if ctl.DegenerateFacings() != 1 {
		t.Fatalf("expected one degenerate facing, got %d", ctl.DegenerateFacings())
	}
	if body.Forward() != before {
		t.Fatalf("orientation must not change on a degenerate frame: %v", body.Forward())
	}
	if events.CountCategory(CatFacing, "degenerate") != 1 {
		t.Fatalf("expected a facing event\n%s", events.Format())
	}
	if events.CountCategory(CatWaypoint, "commit") != 0 {
		t.Fatal("a one-node patrol should never commit a new waypoint")
	}
}

func TestForwardStaysUnitLength(t *testing.T) {
	r := newRig(t)
	r.stage.AddTreasure(33, 47)
	r.ctl.RequestModeToggle()
	for i := 0; i < 500; i++ {
		r.tick()
		if l := r.ctl.Forward().Len(); l < 0.999 || l > 1.001 {
			t.Fatalf("tick %d: forward length %v", i, l)
		}
		if r.ctl.Forward().Y() != 0 {
			t.Fatalf("tick %d: forward left the XZ plane: %v", i, r.ctl.Forward())
		}
	}
}
