package services

import (
	"time"

	"github.com/weightandsee/core/internal/domain/entities"
)

type seedEntry struct {
	daysAgo int
	value   float64
	sets    int
	reps    int
}

type seedExercise struct {
	name        string
	muscleGroup string
	unit        string
	entries     []seedEntry
}

var defaultSeed = []seedExercise{
	{name: "Bench Press", muscleGroup: "Chest", unit: "kg", entries: []seedEntry{
		{daysAgo: 7, value: 65, sets: 3, reps: 10},
		{daysAgo: 1, value: 70, sets: 3, reps: 8},
		{daysAgo: 0, value: 75, sets: 3, reps: 8},
	}},
	{name: "Squat", muscleGroup: "Legs", unit: "kg", entries: []seedEntry{
		{daysAgo: 1, value: 100, sets: 3, reps: 6},
		{daysAgo: 0, value: 110, sets: 3, reps: 5},
	}},
	{name: "Pull-up", muscleGroup: "Back", unit: entities.DefaultUnit, entries: []seedEntry{
		{daysAgo: 7, value: 0, sets: 3, reps: 6},
		{daysAgo: 0, value: 0, sets: 3, reps: 8},
	}},
}

type sampleExercise struct {
	name        string
	muscleGroup string
	unit        string
	start       float64
	step        float64
	sets        int
	reps        int
}

var sampleSeed = []sampleExercise{
	{"Bench Press", "Chest", "kg", 60, 2.5, 4, 8},
	{"Incline Dumbbell Press", "Chest", "kg", 22, 1, 3, 10},
	{"Squat", "Legs", "kg", 90, 5, 5, 5},
	{"Romanian Deadlift", "Legs", "kg", 80, 5, 3, 8},
	{"Pull-up", "Back", entities.DefaultUnit, 0, 0, 4, 6},
	{"Barbell Row", "Back", "kg", 55, 2.5, 4, 8},
	{"Overhead Press", "Shoulders", "kg", 35, 1.25, 4, 6},
	{"Biceps Curl", "Arms", "kg", 12, 1, 3, 12},
}

const sampleWeeks = 6

// DefaultDocument builds the first-run document.
func DefaultDocument(now time.Time) *entities.Document {
	doc := entities.NewDocument()
	for _, seed := range defaultSeed {
		ex := &entities.Exercise{MuscleGroup: seed.muscleGroup, History: []entities.HistoryEntry{}}
		for _, e := range seed.entries {
			ex.Record(entities.HistoryEntry{
				Timestamp:   entities.FormatTimestamp(now.AddDate(0, 0, -e.daysAgo)),
				Value:       e.value,
				Unit:        seed.unit,
				Sets:        e.sets,
				Repetitions: e.reps,
			})
		}
		doc.Exercises[seed.name] = ex
	}
	return doc
}

// SampleDocument builds a demo document with several weeks of
// progressive history per exercise. Rep-only exercises progress in reps.
func SampleDocument(now time.Time) *entities.Document {
	doc := entities.NewDocument()
	for _, seed := range sampleSeed {
		ex := &entities.Exercise{MuscleGroup: seed.muscleGroup, History: []entities.HistoryEntry{}}
		for week := 0; week < sampleWeeks; week++ {
			reps := seed.reps
			if seed.step == 0 {
				reps += week
			}
			ex.Record(entities.HistoryEntry{
				Timestamp:   entities.FormatTimestamp(now.AddDate(0, 0, -7*(sampleWeeks-1-week))),
				Value:       seed.start + seed.step*float64(week),
				Unit:        seed.unit,
				Sets:        seed.sets,
				Repetitions: reps,
			})
		}
		doc.Exercises[seed.name] = ex
	}
	return doc
}
