package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/weightandsee/core/internal/domain/entities"
	"github.com/weightandsee/core/internal/infrastructure/logger"
	"github.com/weightandsee/core/internal/ports"
)

// ExerciseService owns the in-memory document and is its only mutation
// surface. Every accepted mutation is written to disk and announced to
// subscribers before the call returns.
type ExerciseService struct {
	repo    ports.DocumentRepository
	events  ports.EventPublisher
	metrics ports.StoreMetrics
	logger  *logger.Logger
	now     func() time.Time

	mu  sync.RWMutex
	doc *entities.Document
}

// Option configures an ExerciseService.
type Option func(*ExerciseService)

// WithClock overrides the time source used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *ExerciseService) {
		s.now = now
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m ports.StoreMetrics) Option {
	return func(s *ExerciseService) {
		s.metrics = m
	}
}

// NewExerciseService creates a new exercise service. The document starts
// empty until Load is called.
func NewExerciseService(repo ports.DocumentRepository, events ports.EventPublisher, logger *logger.Logger, opts ...Option) *ExerciseService {
	s := &ExerciseService{
		repo:    repo,
		events:  events,
		metrics: nopMetrics{},
		logger:  logger.WithComponent("exercise_store"),
		now:     time.Now,
		doc:     entities.NewDocument(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = NewEventHub()
	}
	return s
}

var _ ports.ExerciseStore = (*ExerciseService)(nil)

// Load reads the document from disk, repairs it, writes it back and
// notifies subscribers. Unreadable or malformed files are replaced by the
// default document; only a failed write is returned.
func (s *ExerciseService) Load(ctx context.Context) (*entities.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	s.mu.Lock()
	doc, outcome, details := s.readLocked(ctx)
	s.doc = doc
	err := s.saveLocked(ctx)
	snapshot := s.doc.Clone()
	count := len(s.doc.Exercises)
	s.mu.Unlock()

	s.logger.LogLoad(s.repo.Path(), string(outcome), details)
	s.metrics.ObserveLoad(outcome)
	s.finish("load", "", start, err, count)

	event := entities.NewChangeEvent(entities.ChangeReasonLoad, "", s.now())
	event.Outcome = outcome
	s.events.PublishChange(event)

	return snapshot, err
}

func (s *ExerciseService) readLocked(ctx context.Context) (*entities.Document, entities.LoadOutcome, map[string]interface{}) {
	now := s.now()

	doc, info, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Infow("No document found, creating defaults", "path", s.repo.Path())
		} else {
			s.logger.Warnw("Document unusable, falling back to defaults", "path", s.repo.Path(), "error", err)
		}
		return DefaultDocument(now), entities.LoadOutcomeDefaulted, map[string]interface{}{
			"reason": err.Error(),
		}
	}

	repair := doc.Repair(now)
	details := map[string]interface{}{
		"exercises": len(doc.Exercises),
		"bytes":     info.Size,
	}
	if len(info.Dropped) > 0 || len(repair.Dropped) > 0 {
		details["dropped"] = append(append([]string{}, info.Dropped...), repair.Dropped...)
	}
	if len(repair.Backfilled) > 0 {
		details["backfilled"] = repair.Backfilled
	}
	if len(repair.Resorted) > 0 {
		details["resorted"] = repair.Resorted
	}
	if len(repair.Resynced) > 0 {
		details["resynced"] = repair.Resynced
	}

	switch {
	case info.Migrated:
		return doc, entities.LoadOutcomeMigrated, details
	case repair.Changed():
		return doc, entities.LoadOutcomeRepaired, details
	default:
		return doc, entities.LoadOutcomeLoaded, details
	}
}

// ReloadIfChanged runs Load when the file on disk differs from what the
// store last read or wrote. It reports whether a reload happened.
func (s *ExerciseService) ReloadIfChanged(ctx context.Context) (bool, error) {
	changed, err := s.repo.Changed(ctx)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	s.logger.Infow("Document changed on disk, reloading", "path", s.repo.Path())
	_, err = s.Load(ctx)
	return true, err
}

// AddExercise inserts or overwrites the named exercise.
func (s *ExerciseService) AddExercise(ctx context.Context, req ports.AddExerciseRequest) error {
	return s.mutate(ctx, "add", entities.ChangeReasonAdd, req.Name, func(doc *entities.Document) error {
		if strings.TrimSpace(req.Name) == "" {
			return entities.ErrInvalidExerciseName
		}
		if !entities.IsFinite(req.Value) {
			return entities.ErrInvalidMeasurement
		}
		doc.Exercises[req.Name] = entities.NewExercise(req.MuscleGroup, req.Value, req.Unit, req.Sets, req.Repetitions, s.now())
		return nil
	})
}

// UpdateExercise records a new measurement for an existing exercise.
func (s *ExerciseService) UpdateExercise(ctx context.Context, name string, req ports.UpdateExerciseRequest) error {
	return s.mutate(ctx, "update", entities.ChangeReasonUpdate, name, func(doc *entities.Document) error {
		ex, ok := doc.Get(name)
		if !ok {
			return entities.ErrExerciseNotFound
		}
		if !entities.IsFinite(req.Value) {
			return entities.ErrInvalidMeasurement
		}
		ex.Record(entities.HistoryEntry{
			Timestamp:   ex.NextTimestamp(s.now()),
			Value:       req.Value,
			Unit:        req.Unit,
			Sets:        req.Sets,
			Repetitions: req.Repetitions,
		})
		return nil
	})
}

// RemoveExercise deletes an exercise and its history.
func (s *ExerciseService) RemoveExercise(ctx context.Context, name string) error {
	return s.mutate(ctx, "remove", entities.ChangeReasonRemove, name, func(doc *entities.Document) error {
		if _, ok := doc.Get(name); !ok {
			return entities.ErrExerciseNotFound
		}
		delete(doc.Exercises, name)
		return nil
	})
}

// RemoveHistoryEntry deletes one measurement. index counts from the oldest
// entry.
func (s *ExerciseService) RemoveHistoryEntry(ctx context.Context, name string, index int) error {
	return s.mutate(ctx, "remove_entry", entities.ChangeReasonRemoveEntry, name, func(doc *entities.Document) error {
		ex, ok := doc.Get(name)
		if !ok {
			return entities.ErrExerciseNotFound
		}
		return ex.RemoveEntry(index)
	})
}

// ResetToDefault deletes the file and starts over from the default
// document. A failed delete aborts the reset.
func (s *ExerciseService) ResetToDefault(ctx context.Context) error {
	return s.mutate(ctx, "reset_default", entities.ChangeReasonResetDefault, "", func(doc *entities.Document) error {
		if err := s.repo.Remove(ctx); err != nil {
			s.logger.Errorw("Could not delete document, reset aborted", "path", s.repo.Path(), "error", err)
			return fmt.Errorf("%w: %w", entities.ErrResetAborted, err)
		}
		s.replaceLocked(DefaultDocument(s.now()), doc)
		return nil
	})
}

// ResetToSample deletes the file if it can and loads the sample document.
func (s *ExerciseService) ResetToSample(ctx context.Context) error {
	return s.mutate(ctx, "reset_sample", entities.ChangeReasonResetSample, "", func(doc *entities.Document) error {
		if err := s.repo.Remove(ctx); err != nil {
			s.logger.Warnw("Could not delete document, continuing with sample data", "path", s.repo.Path(), "error", err)
		}
		s.replaceLocked(SampleDocument(s.now()), doc)
		return nil
	})
}

// DeleteAll empties the exercise map. Metadata is kept.
func (s *ExerciseService) DeleteAll(ctx context.Context) error {
	return s.mutate(ctx, "delete_all", entities.ChangeReasonDeleteAll, "", func(doc *entities.Document) error {
		doc.Exercises = map[string]*entities.Exercise{}
		return nil
	})
}

// Export writes the current document to target. The primary file and the
// in-memory document are untouched.
func (s *ExerciseService) Export(ctx context.Context, target string) error {
	start := time.Now()

	s.mu.RLock()
	snapshot := s.doc.Clone()
	s.mu.RUnlock()

	err := s.repo.WriteTo(ctx, target, snapshot)
	if err != nil {
		err = fmt.Errorf("%w: %w", entities.ErrExportFailed, err)
		s.message(entities.SeverityError, "Export failed", fmt.Sprintf("Could not write %s: %v", target, err))
	} else {
		s.message(entities.SeverityInfo, "Export complete",
			fmt.Sprintf("Exported %d exercises to %s", len(snapshot.Exercises), target))
	}

	s.finish("export", "", start, err, len(snapshot.Exercises))
	return err
}

// Import replaces the document with the one read from source and writes it
// to the primary file. On failure the current document is kept.
func (s *ExerciseService) Import(ctx context.Context, source string) error {
	start := time.Now()

	doc, info, err := s.repo.ReadFrom(ctx, source)
	if err != nil {
		err = fmt.Errorf("%w: %w", entities.ErrImportFailed, err)
		s.message(entities.SeverityError, "Import failed", fmt.Sprintf("Could not import %s: %v", source, err))
		s.mu.RLock()
		count := len(s.doc.Exercises)
		s.mu.RUnlock()
		s.finish("import", "", start, err, count)
		return err
	}

	repair := doc.Repair(s.now())
	if info.Migrated || repair.Changed() {
		s.logger.Infow("Imported document normalized", "source", source, "migrated", info.Migrated,
			"backfilled", repair.Backfilled, "resorted", repair.Resorted, "dropped", repair.Dropped)
	}

	s.mu.Lock()
	s.doc = doc
	err = s.saveLocked(ctx)
	count := len(s.doc.Exercises)
	s.mu.Unlock()

	s.finish("import", "", start, err, count)
	s.events.PublishChange(entities.NewChangeEvent(entities.ChangeReasonImport, "", s.now()))
	s.message(entities.SeverityInfo, "Import complete", fmt.Sprintf("Imported %d exercises from %s", count, source))

	return err
}

// Accessors

// MuscleGroup returns the muscle group of name, or "" if unknown.
func (s *ExerciseService) MuscleGroup(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ex, ok := s.doc.Get(name); ok {
		return ex.MuscleGroup
	}
	return ""
}

// CurrentValue returns the current value of name, or 0 if unknown.
func (s *ExerciseService) CurrentValue(name string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ex, ok := s.doc.Get(name); ok {
		return ex.CurrentValue
	}
	return 0
}

// Unit returns the unit of name, or "" if unknown.
func (s *ExerciseService) Unit(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ex, ok := s.doc.Get(name); ok {
		return ex.Unit
	}
	return ""
}

// Repetitions returns the repetitions of name, or 0 if unknown.
func (s *ExerciseService) Repetitions(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ex, ok := s.doc.Get(name); ok {
		return ex.Repetitions
	}
	return 0
}

// Sets returns the sets of name, or 0 if unknown.
func (s *ExerciseService) Sets(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ex, ok := s.doc.Get(name); ok {
		return ex.Sets
	}
	return 0
}

// History returns a copy of the history of name, oldest first. Unknown
// names yield an empty slice.
func (s *ExerciseService) History(name string) []entities.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ex, ok := s.doc.Get(name)
	if !ok {
		return []entities.HistoryEntry{}
	}
	return append(make([]entities.HistoryEntry, 0, len(ex.History)), ex.History...)
}

// Exercise returns a copy of the named exercise.
func (s *ExerciseService) Exercise(name string) (*entities.Exercise, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ex, ok := s.doc.Get(name)
	if !ok {
		return nil, false
	}
	return ex.Clone(), true
}

// Fields returns the accessor bundle for name.
func (s *ExerciseService) Fields(name string) (ports.ExerciseFields, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ex, ok := s.doc.Get(name)
	if !ok {
		return ports.ExerciseFields{}, false
	}
	return ports.ExerciseFields{
		MuscleGroup:  ex.MuscleGroup,
		CurrentValue: ex.CurrentValue,
		Unit:         ex.Unit,
		Sets:         ex.Sets,
		Repetitions:  ex.Repetitions,
	}, true
}

// Names returns exercise names in display order.
func (s *ExerciseService) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Names()
}

// List returns one summary row per exercise, ordered by name.
func (s *ExerciseService) List() []ports.ExerciseSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := s.doc.Names()
	rows := make([]ports.ExerciseSummary, 0, len(names))
	for _, name := range names {
		ex := s.doc.Exercises[name]
		rows = append(rows, ports.ExerciseSummary{
			Name:         name,
			MuscleGroup:  ex.MuscleGroup,
			CurrentValue: ex.CurrentValue,
			Unit:         ex.Unit,
			Sets:         ex.Sets,
			Repetitions:  ex.Repetitions,
			LastUpdated:  ex.LastUpdated,
			Entries:      len(ex.History),
		})
	}
	return rows
}

// Document returns a deep copy of the current document.
func (s *ExerciseService) Document() *entities.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Path returns the primary file path.
func (s *ExerciseService) Path() string {
	return s.repo.Path()
}

// mutate applies fn under the write lock. A rejection from fn leaves the
// document untouched and fires nothing; otherwise the document is saved and
// a change event is published even if the save failed.
func (s *ExerciseService) mutate(ctx context.Context, op string, reason entities.ChangeReason, name string, fn func(doc *entities.Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	s.mu.Lock()
	if err := fn(s.doc); err != nil {
		count := len(s.doc.Exercises)
		s.mu.Unlock()
		s.finish(op, name, start, err, count)
		return err
	}
	err := s.saveLocked(ctx)
	count := len(s.doc.Exercises)
	s.mu.Unlock()

	s.finish(op, name, start, err, count)
	s.events.PublishChange(entities.NewChangeEvent(reason, name, s.now()))
	return err
}

// replaceLocked swaps the document contents in place so that fn callbacks
// holding doc see the new state.
func (s *ExerciseService) replaceLocked(next, doc *entities.Document) {
	doc.Exercises = next.Exercises
	doc.Meta = next.Meta
}

func (s *ExerciseService) saveLocked(ctx context.Context) error {
	if err := s.repo.Save(ctx, s.doc); err != nil {
		s.metrics.ObserveSaveFailure()
		s.logger.WithError(err).Errorw("Failed to save document", "path", s.repo.Path())
		return fmt.Errorf("%w: %w", entities.ErrSaveFailed, err)
	}
	return nil
}

func (s *ExerciseService) finish(op, name string, start time.Time, err error, count int) {
	elapsed := time.Since(start)
	s.metrics.ObserveOperation(op, err, elapsed)
	s.metrics.SetExerciseCount(count)
	s.logger.LogStoreOperation(op, name, float64(elapsed.Nanoseconds())/1e6, err)
}

func (s *ExerciseService) message(severity entities.Severity, title, body string) {
	s.events.PublishMessage(entities.NewMessage(severity, title, body, s.now()))
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, error, time.Duration) {}
func (nopMetrics) ObserveLoad(entities.LoadOutcome)             {}
func (nopMetrics) ObserveSaveFailure()                          {}
func (nopMetrics) SetExerciseCount(int)                         {}
