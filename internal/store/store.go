// Package store persists validation-run history.
package store

import (
	"context"
	"time"

	"github.com/certlab/mrvalidate/internal/model"
)

// Run is one recorded validation of a single test item.
type Run struct {
	ID        string                  `json:"id"`
	TENumber  string                  `json:"te_number"`
	Status    model.Status            `json:"status"`
	Result    *model.ValidationResult `json:"result,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	TENumber string       `json:"te_number,omitempty"`
	Status   model.Status `json:"status,omitempty"`
	Limit    int          `json:"limit,omitempty"`
	Offset   int          `json:"offset,omitempty"`
}

// Store defines the validation-history persistence interface.
type Store interface {
	RecordRun(ctx context.Context, result *model.ValidationResult) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
