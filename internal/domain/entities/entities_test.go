package entities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local)

func entry(ts string, value float64, unit string, sets, reps int) HistoryEntry {
	return HistoryEntry{Timestamp: ts, Value: value, Unit: unit, Sets: sets, Repetitions: reps}
}

func TestNewExerciseNameOnly(t *testing.T) {
	ex := NewExercise("Chest", 0, "kg", 0, 0, fixedNow)

	assert.Empty(t, ex.History)
	assert.NotNil(t, ex.History)
	assert.Equal(t, "Chest", ex.MuscleGroup)
	assert.Equal(t, DefaultValue, ex.CurrentValue)
	assert.Equal(t, DefaultUnit, ex.Unit)
	assert.Equal(t, DefaultLastUpdated, ex.LastUpdated)
	assert.True(t, ex.IsConsistent())
}

func TestNewExerciseWithMeasurement(t *testing.T) {
	ex := NewExercise("Chest", 60, "kg", 3, 10, fixedNow)

	require.Len(t, ex.History, 1)
	assert.Equal(t, entry("2024-03-10T12:00:00.000", 60, "kg", 3, 10), ex.History[0])
	assert.Equal(t, 60.0, ex.CurrentValue)
	assert.Equal(t, "2024-03-10T12:00:00.000", ex.LastUpdated)
	assert.True(t, ex.IsConsistent())
}

func TestRecordKeepsHistorySorted(t *testing.T) {
	ex := NewExercise("Legs", 100, "kg", 3, 5, fixedNow)

	// An entry stamped before the existing one lands first and does not
	// become the current state.
	ex.Record(entry("2024-03-01T08:00:00", 90, "kg", 3, 5))

	require.Len(t, ex.History, 2)
	assert.Equal(t, "2024-03-01T08:00:00", ex.History[0].Timestamp)
	assert.Equal(t, 100.0, ex.CurrentValue)
	assert.True(t, ex.IsConsistent())

	ex.Record(entry("2024-03-11T08:00:00", 105, "", 3, 5))
	assert.Equal(t, 105.0, ex.CurrentValue)
	assert.Equal(t, DefaultUnit, ex.Unit)
}

func TestRecordSameSecondStaysLast(t *testing.T) {
	ex := NewExercise("Chest", 60, "kg", 3, 10, fixedNow)
	ex.Record(entry(FormatTimestamp(fixedNow), 62.5, "kg", 3, 10))

	require.Len(t, ex.History, 2)
	assert.Equal(t, 62.5, ex.History[1].Value)
	assert.Equal(t, 62.5, ex.CurrentValue)
}

func TestNextTimestamp(t *testing.T) {
	ex := NewExercise("Chest", 60, "kg", 3, 10, fixedNow)

	same := ex.NextTimestamp(fixedNow)
	assert.Equal(t, "2024-03-10T12:00:00.001", same)

	ex.Record(entry(same, 62.5, "kg", 3, 10))
	assert.Equal(t, "2024-03-10T12:00:00.002", ex.NextTimestamp(fixedNow))

	later := fixedNow.Add(time.Minute)
	assert.Equal(t, FormatTimestamp(later), ex.NextTimestamp(later))

	earlier := fixedNow.Add(-time.Hour)
	assert.Equal(t, FormatTimestamp(earlier), ex.NextTimestamp(earlier))

	legacy := &Exercise{History: []HistoryEntry{entry("2024-03-10T12:00:00", 1, "kg", 1, 1)}}
	assert.Equal(t, "2024-03-10T12:00:00.001", legacy.NextTimestamp(fixedNow))
}

func TestExerciseUnmarshalCoercesFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Exercise
	}{
		{
			name:  "numeric strings",
			input: `{"muscleGroup": "Back", "currentValue": " 140.5 ", "unit": "kg", "sets": "3", "repetitions": "5"}`,
			want:  Exercise{MuscleGroup: "Back", CurrentValue: 140.5, Unit: "kg", Sets: 3, Repetitions: 5, History: []HistoryEntry{}},
		},
		{
			name:  "floats for integers",
			input: `{"sets": 3.0, "repetitions": 7.6}`,
			want:  Exercise{Sets: 3, Repetitions: 8, History: []HistoryEntry{}},
		},
		{
			name:  "unusable values become zero",
			input: `{"muscleGroup": 12, "currentValue": "heavy", "sets": {"a": 1}, "repetitions": "NaN", "lastUpdated": null}`,
			want:  Exercise{MuscleGroup: "12", History: []HistoryEntry{}},
		},
		{
			name:  "bad history entries skipped",
			input: `{"history": [null, "x", {"timestamp": "2024-03-01T00:00:00", "value": "60", "sets": "3"}]}`,
			want: Exercise{History: []HistoryEntry{
				{Timestamp: "2024-03-01T00:00:00", Value: 60, Sets: 3},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ex Exercise
			require.NoError(t, json.Unmarshal([]byte(tt.input), &ex))
			assert.Empty(t, cmp.Diff(tt.want, ex))
		})
	}
}

func TestExerciseUnmarshalRejectsNonObject(t *testing.T) {
	var ex Exercise
	assert.ErrorIs(t, json.Unmarshal([]byte(`"squat"`), &ex), ErrMalformedDocument)
}

func TestRemoveEntry(t *testing.T) {
	newExercise := func() *Exercise {
		return &Exercise{History: []HistoryEntry{
			entry("2024-03-01T00:00:00", 60, "kg", 3, 10),
			entry("2024-03-05T00:00:00", 62.5, "kg", 3, 10),
			entry("2024-03-09T00:00:00", 65, "kg", 3, 8),
		}}
	}

	t.Run("newest entry recomputes current", func(t *testing.T) {
		ex := newExercise()
		ex.syncCurrent()
		require.NoError(t, ex.RemoveEntry(2))
		assert.Equal(t, 62.5, ex.CurrentValue)
		assert.Equal(t, "2024-03-05T00:00:00", ex.LastUpdated)
		assert.True(t, ex.IsConsistent())
	})

	t.Run("older entry keeps current", func(t *testing.T) {
		ex := newExercise()
		ex.syncCurrent()
		require.NoError(t, ex.RemoveEntry(0))
		require.Len(t, ex.History, 2)
		assert.Equal(t, 65.0, ex.CurrentValue)
		assert.True(t, ex.IsConsistent())
	})

	t.Run("last remaining entry resets to defaults", func(t *testing.T) {
		ex := NewExercise("Back", 40, "kg", 3, 8, fixedNow)
		require.NoError(t, ex.RemoveEntry(0))
		assert.Empty(t, ex.History)
		assert.Equal(t, 0.0, ex.CurrentValue)
		assert.Equal(t, "-", ex.Unit)
		assert.Equal(t, "", ex.LastUpdated)
	})

	t.Run("out of range", func(t *testing.T) {
		ex := newExercise()
		ex.syncCurrent()
		before := ex.Clone()

		assert.ErrorIs(t, ex.RemoveEntry(3), ErrHistoryIndexOutOfRange)
		assert.ErrorIs(t, ex.RemoveEntry(-1), ErrHistoryIndexOutOfRange)
		assert.Empty(t, cmp.Diff(before, ex))
	})

	t.Run("index counts against sorted order", func(t *testing.T) {
		ex := &Exercise{History: []HistoryEntry{
			entry("2024-03-09T00:00:00", 65, "kg", 3, 8),
			entry("2024-03-01T00:00:00", 60, "kg", 3, 10),
		}}
		require.NoError(t, ex.RemoveEntry(0))
		require.Len(t, ex.History, 1)
		assert.Equal(t, 65.0, ex.History[0].Value)
	})
}

func TestCompareTimestamps(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"canonical ascending", "2024-03-01T00:00:00", "2024-03-02T00:00:00", -1},
		{"equal", "2024-03-01T10:00:00", "2024-03-01T10:00:00", 0},
		{"millis vs canonical", "2024-03-01T10:00:00.500", "2024-03-01T10:00:00", 1},
		{"date only", "2024-03-01", "2024-03-01T00:00:01", -1},
		{"unparseable first", "garbage", "2024-03-01T00:00:00", -1},
		{"parseable after unparseable", "2024-03-01T00:00:00", "", 1},
		{"unparseable lexical", "abc", "abd", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareTimestamps(tt.a, tt.b))
		})
	}
}

func TestRepairBackfillsFromTopLevelFields(t *testing.T) {
	ex := &Exercise{
		MuscleGroup:  "Chest",
		CurrentValue: 70,
		Unit:         "kg",
		Sets:         3,
		Repetitions:  8,
		LastUpdated:  "2024-02-01T09:30:00",
	}

	res := ex.Repair(fixedNow)

	assert.True(t, res.Backfilled)
	require.Len(t, ex.History, 1)
	assert.Equal(t, entry("2024-02-01T09:30:00", 70, "kg", 3, 8), ex.History[0])
	assert.True(t, ex.IsConsistent())
}

func TestRepairBackfillWithoutTimestampUsesNow(t *testing.T) {
	ex := &Exercise{CurrentValue: 20, Unit: "kg"}

	res := ex.Repair(fixedNow)

	assert.True(t, res.Backfilled)
	require.Len(t, ex.History, 1)
	assert.Equal(t, FormatTimestamp(fixedNow), ex.History[0].Timestamp)
	assert.Equal(t, FormatTimestamp(fixedNow), ex.LastUpdated)
}

func TestRepairEmptyRecordGetsDefaults(t *testing.T) {
	ex := &Exercise{MuscleGroup: "Core"}

	res := ex.Repair(fixedNow)

	assert.False(t, res.Backfilled)
	assert.True(t, res.Resynced)
	assert.NotNil(t, ex.History)
	assert.Empty(t, ex.History)
	assert.Equal(t, DefaultUnit, ex.Unit)
}

func TestRepairSortsAndResyncs(t *testing.T) {
	ex := &Exercise{
		CurrentValue: 60,
		Unit:         "kg",
		LastUpdated:  "2024-03-01T00:00:00",
		History: []HistoryEntry{
			entry("2024-03-09T00:00:00", 65, "kg", 3, 8),
			entry("2024-03-01T00:00:00", 60, "kg", 3, 10),
		},
	}

	res := ex.Repair(fixedNow)

	assert.True(t, res.Resorted)
	assert.True(t, res.Resynced)
	assert.Equal(t, "2024-03-01T00:00:00", ex.History[0].Timestamp)
	assert.Equal(t, 65.0, ex.CurrentValue)
	assert.Equal(t, 8, ex.Repetitions)
}

func TestRepairIsIdempotent(t *testing.T) {
	ex := &Exercise{
		CurrentValue: 1,
		History: []HistoryEntry{
			entry("2024-03-09T00:00:00", 65, "", 3, 8),
			entry("not a date", 60, "kg", 3, 10),
		},
	}
	ex.Repair(fixedNow)
	once := ex.Clone()

	res := ex.Repair(fixedNow)

	assert.False(t, res.Changed())
	assert.Empty(t, cmp.Diff(once, ex))
	assert.Equal(t, "not a date", ex.History[0].Timestamp)
}

func TestExerciseMarshalNeverWritesNullHistory(t *testing.T) {
	data, err := json.Marshal(&Exercise{Unit: "-"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"history":[]`)
}
