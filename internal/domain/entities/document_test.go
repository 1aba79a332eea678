package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRoundTripKeepsMeta(t *testing.T) {
	input := `{
		"version": 3,
		"exercises": {
			"Squat": {"muscleGroup": "Legs", "currentValue": 100, "unit": "kg", "sets": 3, "repetitions": 5,
				"lastUpdated": "2024-03-01T00:00:00",
				"history": [{"timestamp": "2024-03-01T00:00:00", "value": 100, "unit": "kg", "sets": 3, "repetitions": 5}]}
		},
		"settings": {"theme": "dark"}
	}`

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(input), &doc))

	require.Contains(t, doc.Exercises, "Squat")
	assert.JSONEq(t, `3`, string(doc.Meta["version"]))
	assert.JSONEq(t, `{"theme":"dark"}`, string(doc.Meta["settings"]))
	assert.NotContains(t, doc.Meta, FieldExercises)

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
}

func TestDocumentUnmarshalRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"array at top", `[]`, ErrMalformedDocument},
		{"no exercises", `{"version": 1}`, ErrMissingExercises},
		{"exercises not an object", `{"exercises": 5}`, ErrMissingExercises},
		{"exercises null", `{"exercises": null}`, ErrMissingExercises},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc Document
			assert.ErrorIs(t, json.Unmarshal([]byte(tt.input), &doc), tt.want)
		})
	}
}

func TestDocumentNamesSorted(t *testing.T) {
	doc := NewDocument()
	doc.Exercises["Squat"] = &Exercise{}
	doc.Exercises["Bench Press"] = &Exercise{}
	doc.Exercises["Pull-up"] = &Exercise{}

	assert.Equal(t, []string{"Bench Press", "Pull-up", "Squat"}, doc.Names())
}

func TestDocumentRepairDropsNullRecords(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"exercises": {"Ghost": null, "Plank": {"muscleGroup": "Core"}}}`), &doc))

	rep := doc.Repair(fixedNow)

	assert.Equal(t, []string{"Ghost"}, rep.Dropped)
	assert.True(t, rep.Changed())
	_, ok := doc.Get("Ghost")
	assert.False(t, ok)

	plank, ok := doc.Get("Plank")
	require.True(t, ok)
	assert.Equal(t, DefaultUnit, plank.Unit)
}

func TestDocumentKeepsGoodRecordsNextToBadOnes(t *testing.T) {
	input := `{"exercises": {
		"Deadlift": {"muscleGroup": "Back", "currentValue": "140", "unit": "kg", "sets": 3.0, "repetitions": "5",
			"lastUpdated": "2024-03-01T10:00:00",
			"history": [{"timestamp": "2024-03-01T10:00:00", "value": "140", "unit": "kg", "sets": 3.0, "repetitions": 5}]},
		"Plank": {"muscleGroup": "Core", "history": "none"},
		"Broken": "not a record",
		"Listed": [1, 2]
	}}`

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(input), &doc))

	rep := doc.Repair(fixedNow)
	assert.Equal(t, []string{"Broken", "Listed"}, rep.Dropped)
	assert.Equal(t, []string{"Deadlift", "Plank"}, doc.Names())

	deadlift := doc.Exercises["Deadlift"]
	assert.Equal(t, 140.0, deadlift.CurrentValue)
	assert.Equal(t, 3, deadlift.Sets)
	assert.Equal(t, 5, deadlift.Repetitions)
	require.Len(t, deadlift.History, 1)
	assert.Equal(t, entry("2024-03-01T10:00:00", 140, "kg", 3, 5), deadlift.History[0])

	plank := doc.Exercises["Plank"]
	assert.Empty(t, plank.History)
	assert.True(t, plank.IsConsistent())
}

func TestDocumentCloneIsDeep(t *testing.T) {
	doc := NewDocument()
	doc.Exercises["Squat"] = NewExercise("Legs", 100, "kg", 3, 5, fixedNow)
	doc.Meta["version"] = json.RawMessage(`1`)

	cp := doc.Clone()
	cp.Exercises["Squat"].History[0].Value = 1
	cp.Meta["version"][0] = '2'

	assert.Equal(t, 100.0, doc.Exercises["Squat"].History[0].Value)
	assert.Equal(t, "1", string(doc.Meta["version"]))
}

func TestChangeEventIDsAreUnique(t *testing.T) {
	a := NewChangeEvent(ChangeReasonAdd, "Squat", fixedNow)
	b := NewChangeEvent(ChangeReasonAdd, "Squat", fixedNow)

	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.Reason.IsValid())
	assert.False(t, ChangeReason("bogus").IsValid())
}
