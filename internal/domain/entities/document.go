package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Document is the whole persisted state: the exercise map plus any other
// top-level fields, which are carried through untouched.
type Document struct {
	Exercises map[string]*Exercise
	Meta      map[string]json.RawMessage
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Exercises: map[string]*Exercise{},
		Meta:      map[string]json.RawMessage{},
	}
}

// MarshalJSON writes the exercises under FieldExercises next to the
// metadata fields. Keys come out sorted, so output is byte-stable.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.Meta)+1)
	for k, v := range d.Meta {
		if k == FieldExercises {
			continue
		}
		out[k] = v
	}

	exercises := d.Exercises
	if exercises == nil {
		exercises = map[string]*Exercise{}
	}
	raw, err := json.Marshal(exercises)
	if err != nil {
		return nil, fmt.Errorf("marshal exercises: %w", err)
	}
	out[FieldExercises] = raw

	return json.Marshal(out)
}

// UnmarshalJSON reads the canonical map-keyed shape. A document that is not
// an object or lacks the exercise map is rejected with ErrMalformedDocument
// or ErrMissingExercises; individual records are read loosely.
func (d *Document) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		return ErrMalformedDocument
	}

	raw, ok := top[FieldExercises]
	if !ok {
		return ErrMissingExercises
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrMissingExercises
	}

	var records map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	// A record that cannot be read is kept as nil so Repair drops it
	// without losing its neighbours.
	exercises := make(map[string]*Exercise, len(records))
	for name, record := range records {
		if isNull(record) {
			exercises[name] = nil
			continue
		}
		var ex Exercise
		if err := json.Unmarshal(record, &ex); err != nil {
			exercises[name] = nil
			continue
		}
		exercises[name] = &ex
	}

	delete(top, FieldExercises)
	d.Exercises = exercises
	d.Meta = top
	return nil
}

// Names returns exercise names in display order.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Exercises))
	for name := range d.Exercises {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named exercise.
func (d *Document) Get(name string) (*Exercise, bool) {
	ex, ok := d.Exercises[name]
	if !ok || ex == nil {
		return nil, false
	}
	return ex, true
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := &Document{
		Exercises: make(map[string]*Exercise, len(d.Exercises)),
		Meta:      make(map[string]json.RawMessage, len(d.Meta)),
	}
	for name, ex := range d.Exercises {
		cp.Exercises[name] = ex.Clone()
	}
	for k, v := range d.Meta {
		cp.Meta[k] = append(json.RawMessage(nil), v...)
	}
	return cp
}

// DocumentRepair summarizes a repair pass over a whole document.
type DocumentRepair struct {
	Dropped    []string
	Backfilled []string
	Resorted   []string
	Resynced   []string
}

// Changed reports whether the pass modified anything.
func (r DocumentRepair) Changed() bool {
	return len(r.Dropped)+len(r.Backfilled)+len(r.Resorted)+len(r.Resynced) > 0
}

// Repair restores invariants on every exercise and drops null or
// unreadable records.
func (d *Document) Repair(now time.Time) DocumentRepair {
	var rep DocumentRepair

	if d.Exercises == nil {
		d.Exercises = map[string]*Exercise{}
	}
	if d.Meta == nil {
		d.Meta = map[string]json.RawMessage{}
	}

	for _, name := range d.Names() {
		ex := d.Exercises[name]
		if ex == nil {
			delete(d.Exercises, name)
			rep.Dropped = append(rep.Dropped, name)
			continue
		}
		res := ex.Repair(now)
		if res.Backfilled {
			rep.Backfilled = append(rep.Backfilled, name)
		}
		if res.Resorted {
			rep.Resorted = append(rep.Resorted, name)
		}
		if res.Resynced {
			rep.Resynced = append(rep.Resynced, name)
		}
	}

	return rep
}
