package agent

import (
	"fmt"
	"strings"
)

// Event categories recorded by the controller.
const (
	CatMode     = "mode"     // change
	CatSearch   = "search"   // found, unreachable, capped
	CatWaypoint = "waypoint" // commit
	CatToggle   = "toggle"   // requested, ignored
	CatTag      = "tag"      // goal, resume
	CatStuck    = "stuck"    // backoff
	CatFacing   = "facing"   // degenerate
)

// Event is one recorded navigation event.
type Event struct {
	Tick     int
	Agent    string  // agent label, e.g. "np"
	Category string  // mode, search, waypoint, toggle, tag, stuck, facing
	Key      string  // specific event name within the category
	Value    string  // human-readable detail
	NumVal   float64 // optional numeric value for threshold checks
}

// String formats the event as a fixed-width log line.
//
//	[T=042] np   mode      change           patrol → pursuit
func (e Event) String() string {
	return fmt.Sprintf("[T=%03d] %-4s %-9s %-16s %s",
		e.Tick, e.Agent, e.Category, e.Key, e.Value)
}

// EventLog collects structured navigation events. It is unbounded and
// machine-readable; the viewer keeps its own ring buffer for display.
type EventLog struct {
	entries []Event
	verbose bool
	onAdd   func(Event)
}

// NewEventLog creates an EventLog. If verbose is true, per-tick entries
// (positions, distances) are also recorded.
func NewEventLog(verbose bool) *EventLog {
	return &EventLog{verbose: verbose}
}

// OnAdd registers fn to be called with every recorded event.
func (l *EventLog) OnAdd(fn func(Event)) { l.onAdd = fn }

// Add records a new entry.
func (l *EventLog) Add(tick int, agent, category, key, value string, numVal float64) {
	e := Event{
		Tick:     tick,
		Agent:    agent,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	}
	l.entries = append(l.entries, e)
	if l.onAdd != nil {
		l.onAdd(e)
	}
}

// AddVerbose records an entry only when verbose mode is on.
func (l *EventLog) AddVerbose(tick int, agent, category, key, value string, numVal float64) {
	if !l.verbose {
		return
	}
	l.Add(tick, agent, category, key, value, numVal)
}

// Entries returns all recorded entries.
func (l *EventLog) Entries() []Event {
	return l.entries
}

// Len is the number of recorded entries.
func (l *EventLog) Len() int { return len(l.entries) }

// Filter returns entries matching the given category and/or key.
// Pass empty string to match any value for that field.
func (l *EventLog) Filter(category, key string) []Event {
	var out []Event
	for _, e := range l.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterTickRange returns entries within [fromTick, toTick] inclusive.
func (l *EventLog) FilterTickRange(fromTick, toTick int) []Event {
	var out []Event
	for _, e := range l.entries {
		if e.Tick >= fromTick && e.Tick <= toTick {
			out = append(out, e)
		}
	}
	return out
}

// CountCategory returns how many entries match the given category and key.
func (l *EventLog) CountCategory(category, key string) int {
	return len(l.Filter(category, key))
}

// LastOf returns the most recent entry matching category+key, or false if none.
func (l *EventLog) LastOf(category, key string) (Event, bool) {
	entries := l.Filter(category, key)
	if len(entries) == 0 {
		return Event{}, false
	}
	return entries[len(entries)-1], true
}

// HasEntry returns true if at least one entry matches category, key, and value substring.
func (l *EventLog) HasEntry(category, key, valueSubstr string) bool {
	for _, e := range l.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		if valueSubstr != "" && !strings.Contains(e.Value, valueSubstr) {
			continue
		}
		return true
	}
	return false
}

// Format returns the full log as a single string for t.Log output.
func (l *EventLog) Format() string {
	var sb strings.Builder
	for _, e := range l.entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatRange returns a log string filtered to a tick range.
func (l *EventLog) FormatRange(fromTick, toTick int) string {
	var sb strings.Builder
	for _, e := range l.FilterTickRange(fromTick, toTick) {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
