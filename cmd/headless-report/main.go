package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Garsondee/Terrain-Sense/internal/agent"
	"github.com/Garsondee/Terrain-Sense/internal/nav"
	"github.com/Garsondee/Terrain-Sense/internal/sim"
	"github.com/Garsondee/Terrain-Sense/internal/world"
)

type runStats struct {
	runIndex int
	seed     int64

	firstPursuitTick int
	firstTagTick     int
	firstResumeTick  int
	firstStuckTick   int

	modeChanges  int
	searches     int
	unreachable  int
	capped       int
	ignored      int
	backoffs     int
	degenerate   int
	blocked      int
	commits      int
	collected    int
	remaining    int
	ignoreReason map[string]int

	finalMode agent.Mode
	report    string
}

type reportConfig struct {
	scenarioPath string
	runs         int
	ticks        int
	toggleEvery  int
	seedBase     int64
	seedStep     int64
	shuffle      bool
	logLevel     string
	copy         bool
	metricsAddr  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := reportConfig{}
	cmd := &cobra.Command{
		Use:          "headless-report",
		Short:        "Run the navigation simulation headless and print per-run reports",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.scenarioPath, "scenario", "", "scenario file (.yaml or .hjson); empty uses the built-in map")
	f.IntVar(&cfg.runs, "runs", 5, "number of headless simulation runs")
	f.IntVar(&cfg.ticks, "ticks", 3600, "ticks per run")
	f.IntVar(&cfg.toggleEvery, "toggle-every", 600, "press the mode toggle every n ticks (0 disables)")
	f.Int64Var(&cfg.seedBase, "seed-base", 42, "base RNG seed for run 1")
	f.Int64Var(&cfg.seedStep, "seed-step", 1, "seed increment between runs")
	f.BoolVar(&cfg.shuffle, "shuffle", true, "start each run's patrol at a seeded random node")
	f.StringVar(&cfg.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	f.BoolVar(&cfg.copy, "copy", false, "copy the full report to the clipboard")
	f.StringVar(&cfg.metricsAddr, "metrics-addr", "", "serve prometheus /metrics on this address after the runs until interrupted")
	return cmd
}

func run(ctx context.Context, cfg reportConfig, out io.Writer) error {
	if cfg.runs <= 0 {
		return errors.New("--runs must be > 0")
	}
	if cfg.ticks <= 0 {
		return errors.New("--ticks must be > 0")
	}
	level, err := log.ParseLevel(cfg.logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: level, Prefix: "headless"})

	sc := world.DefaultScenario()
	if cfg.scenarioPath != "" {
		if sc, err = world.LoadScenario(cfg.scenarioPath); err != nil {
			return err
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Headless Navigation Report ===\n")
	fmt.Fprintf(&sb, "scenario=%s runs=%d ticks=%d toggle_every=%d seed_base=%d seed_step=%d\n\n",
		sc.Name, cfg.runs, cfg.ticks, cfg.toggleEvery, cfg.seedBase, cfg.seedStep)

	all := make([]runStats, 0, cfg.runs)
	for i := 0; i < cfg.runs; i++ {
		seed := cfg.seedBase + int64(i)*cfg.seedStep
		rs, err := collectRun(i+1, seed, sc, cfg, logger)
		if err != nil {
			return fmt.Errorf("run %d: %w", i+1, err)
		}
		all = append(all, rs)
		printRun(&sb, rs)
	}
	printAggregate(&sb, all)

	if _, err := io.WriteString(out, sb.String()); err != nil {
		return err
	}
	if cfg.copy {
		if err := clipboard.WriteAll(sb.String()); err != nil {
			logger.Warn("clipboard copy failed", "err", err)
		} else {
			logger.Info("report copied to clipboard")
		}
	}
	if cfg.metricsAddr != "" {
		return serveMetrics(ctx, cfg.metricsAddr, logger)
	}
	return nil
}

func collectRun(runIndex int, seed int64, sc *world.Scenario, cfg reportConfig, logger *log.Logger) (runStats, error) {
	opts := []sim.Option{
		sim.WithScenario(sc),
		sim.WithSeed(seed),
		sim.WithToggleEvery(cfg.toggleEvery),
		sim.WithLogger(logger.With("run", runIndex)),
	}
	if cfg.shuffle {
		opts = append(opts, sim.WithShuffledPatrol())
	}
	s, err := sim.New(opts...)
	if err != nil {
		return runStats{}, err
	}
	s.RunTicks(cfg.ticks)

	entries := s.Log.Entries()
	reasons := map[string]int{}
	capped := 0
	for _, e := range entries {
		switch e.Category {
		case agent.CatToggle:
			if e.Key == "ignored" {
				reasons[e.Value]++
			}
		case agent.CatSearch:
			if e.Key == nav.OutcomeCapped.String() {
				capped++
			}
		}
	}

	snap := s.Snapshot()
	return runStats{
		runIndex:         runIndex,
		seed:             seed,
		firstPursuitTick: firstTick(entries, agent.CatMode, "change", "→ pursuit"),
		firstTagTick:     firstTick(entries, agent.CatTag, "goal", ""),
		firstResumeTick:  firstTick(entries, agent.CatTag, "resume", ""),
		firstStuckTick:   firstTick(entries, agent.CatStuck, "backoff", ""),
		modeChanges:      snap.ModeChanges,
		searches:         snap.Searches,
		unreachable:      snap.Unreachable,
		capped:           capped,
		ignored:          snap.Ignored,
		backoffs:         snap.Backoffs,
		degenerate:       snap.Degenerate,
		blocked:          snap.Blocked,
		commits:          snap.Commits,
		collected:        snap.Collected,
		remaining:        snap.Remaining,
		ignoreReason:     reasons,
		finalMode:        snap.Mode,
		report:           s.Report(),
	}, nil
}

func firstTick(entries []agent.Event, category, key, contains string) int {
	for _, e := range entries {
		if e.Category != category || e.Key != key {
			continue
		}
		if contains == "" || strings.Contains(e.Value, contains) {
			return e.Tick
		}
	}
	return -1
}

// detectStall flags runs where the agent set off after a treasure but
// never tagged it.
func detectStall(rs runStats) (bool, string) {
	if rs.firstPursuitTick < 0 {
		return false, "never_pursued"
	}
	if rs.firstTagTick >= 0 && (rs.firstStuckTick < 0 || rs.firstTagTick < rs.firstStuckTick) {
		return false, "tagged_before_stuck"
	}
	if rs.backoffs > 0 {
		return true, fmt.Sprintf("stuck_backoffs=%d blocked_moves=%d", rs.backoffs, rs.blocked)
	}
	if rs.firstTagTick < 0 {
		return true, "pursuit_without_tag"
	}
	return false, "ok"
}

func printRun(w io.Writer, rs runStats) {
	fmt.Fprintf(w, "--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Fprintf(w, "phase_markers: first_pursuit=%d first_tag=%d first_resume=%d first_stuck=%d\n",
		rs.firstPursuitTick, rs.firstTagTick, rs.firstResumeTick, rs.firstStuckTick)
	fmt.Fprintf(w, "event_totals: mode_change=%d search=%d unreachable=%d capped=%d toggle_ignored=%d waypoint=%d\n",
		rs.modeChanges, rs.searches, rs.unreachable, rs.capped, rs.ignored, rs.commits)
	fmt.Fprintf(w, "movement: blocked=%d backoff=%d degenerate_facing=%d final_mode=%s\n",
		rs.blocked, rs.backoffs, rs.degenerate, rs.finalMode)
	fmt.Fprintf(w, "treasures: collected=%d remaining=%d\n", rs.collected, rs.remaining)
	fmt.Fprintf(w, "ignored_toggles: %s\n", joinCounts(rs.ignoreReason))
	stalled, reason := detectStall(rs)
	fmt.Fprintf(w, "stalled=%v reason=%s\n\n", stalled, reason)
}

func printAggregate(w io.Writer, all []runStats) {
	totalChanges := 0
	totalSearches := 0
	totalUnreachable := 0
	totalIgnored := 0
	totalBackoffs := 0
	totalBlocked := 0
	totalCollected := 0
	stalledRuns := 0

	pursuitTicks := make([]int, 0, len(all))
	tagTicks := make([]int, 0, len(all))
	resumeTicks := make([]int, 0, len(all))
	reasons := map[string]int{}

	for _, rs := range all {
		totalChanges += rs.modeChanges
		totalSearches += rs.searches
		totalUnreachable += rs.unreachable
		totalIgnored += rs.ignored
		totalBackoffs += rs.backoffs
		totalBlocked += rs.blocked
		totalCollected += rs.collected
		if rs.firstPursuitTick >= 0 {
			pursuitTicks = append(pursuitTicks, rs.firstPursuitTick)
		}
		if rs.firstTagTick >= 0 {
			tagTicks = append(tagTicks, rs.firstTagTick)
		}
		if rs.firstResumeTick >= 0 {
			resumeTicks = append(resumeTicks, rs.firstResumeTick)
		}
		if stalled, _ := detectStall(rs); stalled {
			stalledRuns++
		}
		for r, n := range rs.ignoreReason {
			reasons[r] += n
		}
	}

	n := len(all)
	fmt.Fprintln(w, "=== Aggregate ===")
	fmt.Fprintf(w, "runs=%d stalled_runs=%d\n", n, stalledRuns)
	fmt.Fprintf(w, "avg_events_per_run: mode_change=%.1f search=%.1f unreachable=%.1f toggle_ignored=%.1f\n",
		avg(totalChanges, n), avg(totalSearches, n), avg(totalUnreachable, n), avg(totalIgnored, n))
	fmt.Fprintf(w, "avg_movement_per_run: blocked=%.1f backoff=%.1f collected=%.1f\n",
		avg(totalBlocked, n), avg(totalBackoffs, n), avg(totalCollected, n))
	fmt.Fprintf(w, "phase_marker_avg_ticks: first_pursuit=%s first_tag=%s first_resume=%s\n",
		avgTickString(pursuitTicks), avgTickString(tagTicks), avgTickString(resumeTicks))
	fmt.Fprintf(w, "ignored_toggles: %s\n", joinCounts(reasons))
}

// serveMetrics blocks serving /metrics until ctx is done or SIGINT/SIGTERM.
func serveMetrics(ctx context.Context, addr string, logger *log.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}

func joinCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s(%d)", k, counts[k]))
	}
	return strings.Join(parts, ",")
}
