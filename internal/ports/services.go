package ports

import (
	"context"

	"github.com/weightandsee/core/internal/domain/entities"
)

// ExerciseStore interface for exercise tracking operations
type ExerciseStore interface {
	Load(ctx context.Context) (*entities.Document, error)
	ReloadIfChanged(ctx context.Context) (bool, error)

	AddExercise(ctx context.Context, req AddExerciseRequest) error
	UpdateExercise(ctx context.Context, name string, req UpdateExerciseRequest) error
	RemoveExercise(ctx context.Context, name string) error
	RemoveHistoryEntry(ctx context.Context, name string, index int) error
	ResetToDefault(ctx context.Context) error
	ResetToSample(ctx context.Context) error
	DeleteAll(ctx context.Context) error
	Export(ctx context.Context, target string) error
	Import(ctx context.Context, source string) error

	MuscleGroup(name string) string
	CurrentValue(name string) float64
	Unit(name string) string
	Repetitions(name string) int
	Sets(name string) int
	History(name string) []entities.HistoryEntry
	Exercise(name string) (*entities.Exercise, bool)
	Fields(name string) (ExerciseFields, bool)
	Names() []string
	List() []ExerciseSummary
	Document() *entities.Document
	Path() string
}

// EventSubscriber lets collaborators observe the store.
type EventSubscriber interface {
	SubscribeChanges(fn func(entities.ChangeEvent)) (unsubscribe func())
	SubscribeMessages(fn func(entities.Message)) (unsubscribe func())
}

// EventPublisher fans events out to subscribers.
type EventPublisher interface {
	PublishChange(event entities.ChangeEvent)
	PublishMessage(msg entities.Message)
}

// Request/Response Types

// Exercise related types
type AddExerciseRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	MuscleGroup string  `json:"muscleGroup" validate:"max=100"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit" validate:"max=20"`
	Sets        int     `json:"sets" validate:"gte=0,lte=1000"`
	Repetitions int     `json:"repetitions" validate:"gte=0,lte=10000"`
}

type UpdateExerciseRequest struct {
	Value       float64 `json:"value"`
	Unit        string  `json:"unit" validate:"max=20"`
	Sets        int     `json:"sets" validate:"gte=0,lte=1000"`
	Repetitions int     `json:"repetitions" validate:"gte=0,lte=10000"`
}

// Document related types
type TransferRequest struct {
	Path string `json:"path" validate:"required"`
}

type ResetRequest struct {
	Sample bool `json:"sample"`
}

// ExerciseSummary is one row of the display listing.
type ExerciseSummary struct {
	Name         string  `json:"name"`
	MuscleGroup  string  `json:"muscleGroup"`
	CurrentValue float64 `json:"currentValue"`
	Unit         string  `json:"unit"`
	Sets         int     `json:"sets"`
	Repetitions  int     `json:"repetitions"`
	LastUpdated  string  `json:"lastUpdated"`
	Entries      int     `json:"entries"`
}

// ExerciseFields bundles the per-field accessors.
type ExerciseFields struct {
	MuscleGroup  string  `json:"muscleGroup"`
	CurrentValue float64 `json:"currentValue"`
	Unit         string  `json:"unit"`
	Sets         int     `json:"sets"`
	Repetitions  int     `json:"repetitions"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
