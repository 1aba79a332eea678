package entities

import (
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the canonical history timestamp: local time with
// milliseconds, fixed width and zero padded, so lexical order equals
// chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000"

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
}

// FormatTimestamp renders t in the canonical layout.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// ParseTimestamp accepts the canonical layout and the ISO-8601 variants
// found in older files.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CompareTimestamps orders unparseable timestamps first (lexically among
// themselves), then parseable ones by instant.
func CompareTimestamps(a, b string) int {
	ta, okA := ParseTimestamp(a)
	tb, okB := ParseTimestamp(b)
	switch {
	case !okA && !okB:
		return strings.Compare(a, b)
	case !okA:
		return -1
	case !okB:
		return 1
	case ta.Before(tb):
		return -1
	case ta.After(tb):
		return 1
	default:
		return 0
	}
}

// SortHistory orders entries oldest first. Entries with equal timestamps
// keep their relative order.
func SortHistory(history []HistoryEntry) {
	sort.SliceStable(history, func(i, j int) bool {
		return CompareTimestamps(history[i].Timestamp, history[j].Timestamp) < 0
	})
}

// HistorySorted reports whether entries are in ascending order.
func HistorySorted(history []HistoryEntry) bool {
	for i := 1; i < len(history); i++ {
		if CompareTimestamps(history[i-1].Timestamp, history[i].Timestamp) > 0 {
			return false
		}
	}
	return true
}

// RepairResult describes what a repair pass changed on one exercise.
type RepairResult struct {
	Backfilled bool
	Resorted   bool
	Resynced   bool
}

// Changed reports whether the repair touched the exercise.
func (r RepairResult) Changed() bool {
	return r.Backfilled || r.Resorted || r.Resynced
}

// Repair restores the exercise invariants. A record that carries a
// measurement but no history gets a single backfilled entry; now stamps
// that entry when lastUpdated is empty. Repairing a repaired exercise is a
// no-op.
func (e *Exercise) Repair(now time.Time) RepairResult {
	var res RepairResult

	if e.History == nil {
		e.History = []HistoryEntry{}
	}

	if len(e.History) == 0 && e.carriesMeasurement() {
		ts := e.LastUpdated
		if strings.TrimSpace(ts) == "" {
			ts = FormatTimestamp(now)
		}
		e.History = append(e.History, HistoryEntry{
			Timestamp:   ts,
			Value:       e.CurrentValue,
			Unit:        e.Unit,
			Sets:        e.Sets,
			Repetitions: e.Repetitions,
		})
		res.Backfilled = true
	}

	for i := range e.History {
		if e.History[i].Unit == "" {
			e.History[i].Unit = DefaultUnit
			res.Resynced = true
		}
	}

	if !HistorySorted(e.History) {
		SortHistory(e.History)
		res.Resorted = true
	}

	if !e.IsConsistent() {
		e.syncCurrent()
		res.Resynced = true
	}

	return res
}

func (e *Exercise) carriesMeasurement() bool {
	return strings.TrimSpace(e.LastUpdated) != "" ||
		e.CurrentValue != 0 ||
		e.Sets != 0 ||
		e.Repetitions != 0
}
