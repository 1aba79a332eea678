package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Records written by hand or by other tools are read loosely: numbers may
// arrive as strings, integers as floats, and anything unusable becomes the
// zero value. Only a record that is not an object is rejected.

type looseFloat float64

func (f *looseFloat) UnmarshalJSON(data []byte) error {
	v, _ := coerceNumber(data)
	*f = looseFloat(v)
	return nil
}

type looseInt int

func (i *looseInt) UnmarshalJSON(data []byte) error {
	v, ok := coerceNumber(data)
	if !ok || math.Abs(v) > math.MaxInt32 {
		*i = 0
		return nil
	}
	*i = looseInt(math.Round(v))
	return nil
}

type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""
		return nil
	}
	switch t := v.(type) {
	case string:
		*s = looseString(t)
	case float64:
		*s = looseString(strings.TrimSpace(string(data)))
	default:
		*s = ""
	}
	return nil
}

func coerceNumber(data []byte) (float64, bool) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, false
	}

	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if t {
			f = 1
		}
	default:
		return 0, false
	}

	if !IsFinite(f) {
		return 0, false
	}
	return f, true
}

// IsFinite reports whether v can be stored in a document.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// UnmarshalJSON reads an exercise record, coercing mistyped fields. A
// history that is not an array is read as empty; unusable entries inside
// it are skipped.
func (e *Exercise) UnmarshalJSON(data []byte) error {
	var raw struct {
		MuscleGroup  looseString     `json:"muscleGroup"`
		CurrentValue looseFloat      `json:"currentValue"`
		Unit         looseString     `json:"unit"`
		Sets         looseInt        `json:"sets"`
		Repetitions  looseInt        `json:"repetitions"`
		LastUpdated  looseString     `json:"lastUpdated"`
		History      json.RawMessage `json:"history"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: exercise record: %v", ErrMalformedDocument, err)
	}

	*e = Exercise{
		MuscleGroup:  string(raw.MuscleGroup),
		CurrentValue: float64(raw.CurrentValue),
		Unit:         string(raw.Unit),
		Sets:         int(raw.Sets),
		Repetitions:  int(raw.Repetitions),
		LastUpdated:  string(raw.LastUpdated),
		History:      decodeHistory(raw.History),
	}
	return nil
}

func decodeHistory(data json.RawMessage) []HistoryEntry {
	history := []HistoryEntry{}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return history
	}
	for _, item := range items {
		if isNull(item) {
			continue
		}
		var entry HistoryEntry
		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}
		history = append(history, entry)
	}
	return history
}

// UnmarshalJSON reads a history entry, coercing mistyped fields.
func (h *HistoryEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Timestamp   looseString `json:"timestamp"`
		Value       looseFloat  `json:"value"`
		Unit        looseString `json:"unit"`
		Sets        looseInt    `json:"sets"`
		Repetitions looseInt    `json:"repetitions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: history entry: %v", ErrMalformedDocument, err)
	}

	*h = HistoryEntry{
		Timestamp:   string(raw.Timestamp),
		Value:       float64(raw.Value),
		Unit:        string(raw.Unit),
		Sets:        int(raw.Sets),
		Repetitions: int(raw.Repetitions),
	}
	return nil
}
