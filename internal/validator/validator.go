// Package validator is the controller tying extraction, rule lookup,
// and evaluation together for single items and batches.
package validator

import (
	"context"
	"errors"
	"regexp"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/certlab/mrvalidate/internal/engine"
	"github.com/certlab/mrvalidate/internal/extract"
	"github.com/certlab/mrvalidate/internal/model"
)

var idPattern = regexp.MustCompile(`^TE\d{2}\.\d{2}\.\d{2}$`)

// Validator runs the full pipeline for test items.
type Validator struct {
	extractor   *extract.Extractor
	engine      *engine.Engine
	concurrency int
}

// New builds a validator. concurrency bounds parallel extraction work
// in ValidateMany; values below 1 fall back to 5.
func New(ex *extract.Extractor, eng *engine.Engine, concurrency int) *Validator {
	if concurrency < 1 {
		concurrency = 5
	}
	return &Validator{extractor: ex, engine: eng, concurrency: concurrency}
}

// ValidateOne validates a single test item. The id is checked
// syntactically before any I/O; extraction and rule-lookup failures
// propagate as typed errors. A corrupted source still yields a result:
// the partial data is evaluated and a failing source-integrity entry is
// appended.
func (v *Validator) ValidateOne(ctx context.Context, id string) (*model.ValidationResult, error) {
	if !idPattern.MatchString(id) {
		return nil, model.NewError(model.ErrInvalidIdentifier, id, "identifier does not match TEnn.nn.nn")
	}

	data, err := v.extractor.Extract(ctx, id)
	if err != nil {
		var typed *model.Error
		if errors.As(err, &typed) && typed.Kind == model.ErrCorruptedSource && typed.Partial != nil {
			return v.engine.EvaluatePartial(id, typed.Partial, typed.Message)
		}
		return nil, err
	}

	return v.engine.Evaluate(id, data)
}

// ItemOutcome is one entry of a batch response: either a result or a
// typed error, never both.
type ItemOutcome struct {
	ID     string
	Result *model.ValidationResult
	Err    error
}

// WithConcurrency returns a copy of the validator with a different
// batch concurrency bound.
func (v *Validator) WithConcurrency(n int) *Validator {
	if n < 1 {
		return v
	}
	return &Validator{extractor: v.extractor, engine: v.engine, concurrency: n}
}

// Items lists the test-item ids present in the source report.
func (v *Validator) Items(ctx context.Context) ([]string, error) {
	return v.extractor.Items(ctx)
}

// ValidateMany validates ids concurrently, bounded by the configured
// concurrency. Outcomes are returned in input order regardless of
// completion order, and one item's failure never aborts its siblings.
func (v *Validator) ValidateMany(ctx context.Context, ids []string) []ItemOutcome {
	outcomes := make([]ItemOutcome, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			res, err := v.ValidateOne(gctx, id)
			outcomes[i] = ItemOutcome{ID: id, Result: res, Err: err}
			if err != nil {
				zap.L().Warn("validate: item failed",
					zap.String("te_number", id),
					zap.Error(err),
				)
			}
			// Errors are captured per item; returning nil keeps the
			// batch going.
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

// ValidateAll enumerates every test item present in the source report
// and validates the batch.
func (v *Validator) ValidateAll(ctx context.Context) ([]ItemOutcome, error) {
	ids, err := v.extractor.Items(ctx)
	if err != nil {
		return nil, err
	}
	return v.ValidateMany(ctx, ids), nil
}
