package entities

import (
	"encoding/json"
	"errors"
	"time"
)

// Common errors
var (
	ErrExerciseNotFound       = errors.New("exercise not found")
	ErrHistoryIndexOutOfRange = errors.New("history index out of range")
	ErrInvalidExerciseName    = errors.New("invalid exercise name")
	ErrSaveFailed             = errors.New("failed to save document")
	ErrResetAborted           = errors.New("reset aborted")
	ErrImportFailed           = errors.New("import failed")
	ErrExportFailed           = errors.New("export failed")
	ErrInvalidMeasurement     = errors.New("measurement value must be a finite number")
	ErrMalformedDocument      = errors.New("malformed document")
	ErrMissingExercises       = errors.New("document has no exercises container")
)

// Defaults applied to an exercise whose history is empty.
const (
	DefaultValue       = 0.0
	DefaultUnit        = "-"
	DefaultSets        = 0
	DefaultRepetitions = 0
	DefaultLastUpdated = ""
)

// FieldExercises is the top-level document key holding the exercise map.
const FieldExercises = "exercises"

// HistoryEntry is one timestamped measurement of an exercise.
type HistoryEntry struct {
	Timestamp   string  `json:"timestamp"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	Sets        int     `json:"sets"`
	Repetitions int     `json:"repetitions"`
}

// Exercise is a tracked movement with its current state and history.
// The current state always mirrors the newest history entry.
type Exercise struct {
	MuscleGroup  string         `json:"muscleGroup"`
	CurrentValue float64        `json:"currentValue"`
	Unit         string         `json:"unit"`
	Sets         int            `json:"sets"`
	Repetitions  int            `json:"repetitions"`
	LastUpdated  string         `json:"lastUpdated"`
	History      []HistoryEntry `json:"history"`
}

// NewExercise builds an exercise from a first measurement. A measurement
// with zero value, sets and repetitions is treated as name-only and yields
// an empty history.
func NewExercise(muscleGroup string, value float64, unit string, sets, reps int, at time.Time) *Exercise {
	ex := &Exercise{
		MuscleGroup: muscleGroup,
		History:     []HistoryEntry{},
	}
	if value == 0 && sets == 0 && reps == 0 {
		ex.resetCurrent()
		return ex
	}
	if unit == "" {
		unit = DefaultUnit
	}
	ex.History = append(ex.History, HistoryEntry{
		Timestamp:   FormatTimestamp(at),
		Value:       value,
		Unit:        unit,
		Sets:        sets,
		Repetitions: reps,
	})
	ex.syncCurrent()
	return ex
}

// Business logic methods for Exercise

// HasHistory reports whether any measurement has been recorded.
func (e *Exercise) HasHistory() bool {
	return len(e.History) > 0
}

// Latest returns the newest history entry.
func (e *Exercise) Latest() (HistoryEntry, bool) {
	if len(e.History) == 0 {
		return HistoryEntry{}, false
	}
	return e.History[len(e.History)-1], true
}

// Record appends a measurement and refreshes the current state from the
// newest entry. An empty unit is stored as DefaultUnit.
func (e *Exercise) Record(entry HistoryEntry) {
	if entry.Unit == "" {
		entry.Unit = DefaultUnit
	}
	e.History = append(e.History, entry)
	SortHistory(e.History)
	e.syncCurrent()
}

// NextTimestamp formats now for a new entry. When now is not after the
// newest entry but less than a second behind it, as happens with rapid
// updates, the entry is stamped one millisecond past the newest so history
// stays strictly ascending. Larger backward jumps are kept as given.
func (e *Exercise) NextTimestamp(now time.Time) string {
	ts := FormatTimestamp(now)
	latest, ok := e.Latest()
	if !ok {
		return ts
	}
	newest, ok := ParseTimestamp(latest.Timestamp)
	if !ok {
		return ts
	}
	current, _ := ParseTimestamp(ts)
	if !current.After(newest) && newest.Sub(current) < time.Second {
		return FormatTimestamp(newest.Add(time.Millisecond))
	}
	return ts
}

// RemoveEntry deletes the history entry at index, counted against the
// ascending order.
func (e *Exercise) RemoveEntry(index int) error {
	SortHistory(e.History)
	if index < 0 || index >= len(e.History) {
		return ErrHistoryIndexOutOfRange
	}

	removed := e.History[index]
	wasNewest := index == len(e.History)-1
	e.History = append(e.History[:index], e.History[index+1:]...)

	if len(e.History) == 0 {
		e.resetCurrent()
		return nil
	}
	if removed.Timestamp == e.LastUpdated || wasNewest {
		e.syncCurrent()
	}
	return nil
}

// IsConsistent reports whether history is ordered and the current state
// matches the newest entry (or the defaults when history is empty).
func (e *Exercise) IsConsistent() bool {
	if !HistorySorted(e.History) {
		return false
	}
	latest, ok := e.Latest()
	if !ok {
		return e.CurrentValue == DefaultValue &&
			e.Unit == DefaultUnit &&
			e.Sets == DefaultSets &&
			e.Repetitions == DefaultRepetitions &&
			e.LastUpdated == DefaultLastUpdated
	}
	return e.CurrentValue == latest.Value &&
		e.Unit == latest.Unit &&
		e.Sets == latest.Sets &&
		e.Repetitions == latest.Repetitions &&
		e.LastUpdated == latest.Timestamp
}

// Clone returns a deep copy.
func (e *Exercise) Clone() *Exercise {
	if e == nil {
		return nil
	}
	cp := *e
	cp.History = append(make([]HistoryEntry, 0, len(e.History)), e.History...)
	return &cp
}

func (e *Exercise) syncCurrent() {
	latest, ok := e.Latest()
	if !ok {
		e.resetCurrent()
		return
	}
	e.CurrentValue = latest.Value
	e.Unit = latest.Unit
	e.Sets = latest.Sets
	e.Repetitions = latest.Repetitions
	e.LastUpdated = latest.Timestamp
}

func (e *Exercise) resetCurrent() {
	e.CurrentValue = DefaultValue
	e.Unit = DefaultUnit
	e.Sets = DefaultSets
	e.Repetitions = DefaultRepetitions
	e.LastUpdated = DefaultLastUpdated
}

// MarshalJSON always writes history as an array, never null.
func (e Exercise) MarshalJSON() ([]byte, error) {
	type exercise Exercise
	if e.History == nil {
		e.History = []HistoryEntry{}
	}
	return json.Marshal(exercise(e))
}
