package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/Garsondee/Terrain-Sense/internal/agent"
	"github.com/Garsondee/Terrain-Sense/internal/world"
)

const smallMap = `
name: small
range: 64
spacing: 10
treasures:
  - [40, 40]
agent:
  start: [10, 10]
  step: 1
  stepSize: 2
patrol:
  mode: loop
  nodes: [[10, 10], [50, 10], [50, 50], [10, 50]]
`

func smallScenario(t *testing.T) *world.Scenario {
	t.Helper()
	sc, err := world.ParseScenario([]byte(smallMap), "yaml")
	if err != nil {
		t.Fatalf("parse scenario: %v", err)
	}
	return sc
}

func TestAvg(t *testing.T) {
	if got := avg(7, 2); got != 3.5 {
		t.Fatalf("avg(7,2) = %v, want 3.5", got)
	}
	if got := avg(5, 0); got != 0 {
		t.Fatalf("avg with zero runs = %v, want 0", got)
	}
}

func TestAvgTickString(t *testing.T) {
	if got := avgTickString(nil); got != "n/a" {
		t.Fatalf("empty = %q, want n/a", got)
	}
	if got := avgTickString([]int{10, 20, 40}); got != "23.3" {
		t.Fatalf("got %q, want 23.3", got)
	}
}

func TestFirstTick(t *testing.T) {
	entries := []agent.Event{
		{Tick: 3, Category: agent.CatMode, Key: "change", Value: "patrol → pursuit (toggle)"},
		{Tick: 9, Category: agent.CatMode, Key: "change", Value: "pursuit → recovering (goal tagged)"},
	}
	if got := firstTick(entries, agent.CatMode, "change", "→ recovering"); got != 9 {
		t.Fatalf("firstTick = %d, want 9", got)
	}
	if got := firstTick(entries, agent.CatTag, "goal", ""); got != -1 {
		t.Fatalf("missing event = %d, want -1", got)
	}
}

func TestDetectStall(t *testing.T) {
	cases := []struct {
		name string
		rs   runStats
		want bool
	}{
		{"never pursued", runStats{firstPursuitTick: -1, firstTagTick: -1, firstStuckTick: -1}, false},
		{"tagged cleanly", runStats{firstPursuitTick: 600, firstTagTick: 900, firstStuckTick: -1}, false},
		{"stuck before tag", runStats{firstPursuitTick: 600, firstTagTick: 1500, firstStuckTick: 1200, backoffs: 1}, true},
		{"no tag yet", runStats{firstPursuitTick: 600, firstTagTick: -1, firstStuckTick: -1}, true},
	}
	for _, tc := range cases {
		got, reason := detectStall(tc.rs)
		if got != tc.want {
			t.Fatalf("%s: stalled=%v (reason=%s), want %v", tc.name, got, reason, tc.want)
		}
	}
}

func TestJoinCounts(t *testing.T) {
	if got := joinCounts(nil); got != "none" {
		t.Fatalf("empty = %q, want none", got)
	}
	got := joinCounts(map[string]int{"no targets left": 2, "goal (1,1) unreachable": 1})
	if got != "goal (1,1) unreachable(1),no targets left(2)" {
		t.Fatalf("got %q", got)
	}
}

func TestCollectRun_SmallScenario(t *testing.T) {
	cfg := reportConfig{ticks: 1200, toggleEvery: 5}
	rs, err := collectRun(1, 42, smallScenario(t), cfg, log.New(io.Discard))
	if err != nil {
		t.Fatalf("collectRun: %v", err)
	}
	if rs.firstPursuitTick != 5 {
		t.Fatalf("first pursuit at %d, want 5", rs.firstPursuitTick)
	}
	if rs.searches == 0 {
		t.Fatalf("expected at least one search")
	}
	if !strings.Contains(rs.report, "--- small at T=1200 ---") {
		t.Fatalf("unexpected report header:\n%s", rs.report)
	}
}

func TestRun_WritesReport(t *testing.T) {
	var out bytes.Buffer
	cfg := reportConfig{runs: 2, ticks: 200, toggleEvery: 50, seedBase: 1, seedStep: 1, shuffle: true, logLevel: "error"}
	if err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{"=== Headless Navigation Report ===", "--- Run 1 (seed=1) ---", "--- Run 2 (seed=2) ---", "=== Aggregate ===", "runs=2"} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
}

func TestRun_RejectsBadFlags(t *testing.T) {
	if err := run(context.Background(), reportConfig{runs: 0, ticks: 10, logLevel: "warn"}, io.Discard); err == nil {
		t.Fatalf("expected error for runs=0")
	}
	if err := run(context.Background(), reportConfig{runs: 1, ticks: 10, logLevel: "loud"}, io.Discard); err == nil {
		t.Fatalf("expected error for bad log level")
	}
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"scenario", "runs", "ticks", "toggle-every", "seed-base", "seed-step", "log-level", "copy", "metrics-addr"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("missing flag --%s", name)
		}
	}
}
