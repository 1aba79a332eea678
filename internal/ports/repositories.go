package ports

import (
	"context"
	"time"

	"github.com/weightandsee/core/internal/domain/entities"
)

// DocumentRepository defines the interface for document persistence.
// Read errors wrap os.ErrNotExist when the file is absent and
// entities.ErrMalformedDocument / entities.ErrMissingExercises when the
// content is not a usable document.
type DocumentRepository interface {
	Path() string
	Load(ctx context.Context) (*entities.Document, DecodeInfo, error)
	Save(ctx context.Context, doc *entities.Document) error
	Remove(ctx context.Context) error
	Changed(ctx context.Context) (bool, error)
	ReadFrom(ctx context.Context, source string) (*entities.Document, DecodeInfo, error)
	WriteTo(ctx context.Context, target string, doc *entities.Document) error
}

// DecodeInfo describes how raw bytes were turned into a document.
type DecodeInfo struct {
	Migrated bool
	Dropped  []string
	Size     int
}

// StoreMetrics records store activity. Implementations must be safe for
// concurrent use.
type StoreMetrics interface {
	ObserveOperation(op string, err error, duration time.Duration)
	ObserveLoad(outcome entities.LoadOutcome)
	ObserveSaveFailure()
	SetExerciseCount(n int)
}
