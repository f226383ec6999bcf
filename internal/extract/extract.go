// Package extract adapts the external document-extraction collaborator
// into normalized test-item data. It performs shape normalization only;
// business validation lives in the checker.
package extract

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/certlab/mrvalidate/internal/config"
	"github.com/certlab/mrvalidate/internal/model"
	"github.com/certlab/mrvalidate/internal/resilience"
)

// Cell is one raw table cell as reported by the collaborator.
type Cell struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Text string `json:"text"`
}

// RawRecord is the opaque structured record the collaborator guarantees
// can be normalized into model.TestItemData.
type RawRecord struct {
	ID         string
	PageNumber int
	Caption    string
	Metadata   map[string]string
	Cells      []Cell
	HasImage   bool
	ImageData  []byte

	// Corrupted marks the record as only partially readable; whatever
	// fields the collaborator recovered are still populated.
	Corrupted   bool
	CorruptNote string
}

// Source is the document-extraction collaborator boundary. Lookup
// returns (nil, nil) when the id is absent from the report.
type Source interface {
	Lookup(ctx context.Context, id string) (*RawRecord, error)
	Items(ctx context.Context) ([]string, error)
}

// Extractor locates the raw record for a test item and normalizes it.
// Collaborator calls are rate-limited, deadline-bound, and retried a
// fixed small number of times on transient failures.
type Extractor struct {
	source  Source
	timeout time.Duration
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// New builds an extractor over the given source.
func New(source Source, cfg config.ExtractConfig) *Extractor {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 20
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 2
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Extractor{
		source:  source,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retry: resilience.RetryConfig{
			MaxAttempts:    attempts,
			InitialBackoff: 200 * time.Millisecond,
			OnRetry:        resilience.RetryLogger("extract", "lookup"),
		},
	}
}

// Extract returns the normalized data for id. A corrupted source yields
// a typed ErrCorruptedSource carrying the recoverable partial data.
func (e *Extractor) Extract(ctx context.Context, id string) (*model.TestItemData, error) {
	// limiter.Wait fails only when the context is done or the deadline
	// cannot accommodate the wait; both land in the timeout kind.
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, model.WrapError(model.ErrTimeout, id, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rec, err := resilience.DoVal(callCtx, e.retry, func(ctx context.Context) (*RawRecord, error) {
		return e.source.Lookup(ctx, id)
	})
	if err != nil {
		// Deadline and caller cancellation share the timeout kind; any
		// other lookup failure is a source I/O error. Absence is only
		// ever signalled by a nil record.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || callCtx.Err() != nil {
			zap.L().Warn("extract: lookup timed out or cancelled", zap.String("te_number", id))
			return nil, model.WrapError(model.ErrTimeout, id, err)
		}
		zap.L().Warn("extract: lookup failed", zap.String("te_number", id), zap.Error(err))
		return nil, model.WrapError(model.ErrSource, id, err)
	}
	if rec == nil {
		return nil, model.NewError(model.ErrTestItemNotFound, id, "test item not present in source report")
	}

	data := Normalize(rec)
	if rec.Corrupted {
		note := rec.CorruptNote
		if note == "" {
			note = "source report partially unreadable"
		}
		zap.L().Warn("extract: corrupted source", zap.String("te_number", id), zap.String("note", note))
		return nil, &model.Error{
			Kind:    model.ErrCorruptedSource,
			ID:      id,
			Message: note,
			Partial: data,
		}
	}
	return data, nil
}

// Items lists the test-item ids present in the source report.
func (e *Extractor) Items(ctx context.Context) ([]string, error) {
	return e.source.Items(ctx)
}

// Normalize converts a raw record into TestItemData: the first cell row
// becomes the table header, remaining rows become data rows, missing
// fields get zero values. No business validation happens here.
func Normalize(rec *RawRecord) *model.TestItemData {
	meta := rec.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return &model.TestItemData{
		ID:         rec.ID,
		PageNumber: rec.PageNumber,
		Metadata:   meta,
		Table:      gridFromCells(rec.Cells),
		HasImage:   rec.HasImage,
		ImageData:  rec.ImageData,
		Caption:    rec.Caption,
	}
}

func gridFromCells(cells []Cell) model.TableData {
	if len(cells) == 0 {
		return model.TableData{}
	}

	maxRow, maxCol := 0, 0
	for _, c := range cells {
		if c.Row > maxRow {
			maxRow = c.Row
		}
		if c.Col > maxCol {
			maxCol = c.Col
		}
	}

	grid := make([][]string, maxRow+1)
	for i := range grid {
		grid[i] = make([]string, maxCol+1)
	}
	// Deterministic fill: later duplicates win in (row, col) order.
	sorted := make([]Cell, len(cells))
	copy(sorted, cells)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Col < sorted[j].Col
	})
	for _, c := range sorted {
		if c.Row >= 0 && c.Col >= 0 {
			grid[c.Row][c.Col] = c.Text
		}
	}

	return model.TableData{
		Headers: grid[0],
		Rows:    grid[1:],
	}
}
