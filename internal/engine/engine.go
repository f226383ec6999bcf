// Package engine combines per-check compliance results into a final
// verdict according to the matched rule.
package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/certlab/mrvalidate/internal/checker"
	"github.com/certlab/mrvalidate/internal/model"
	"github.com/certlab/mrvalidate/internal/rules"
)

// Engine evaluates test-item data against the active rule set.
type Engine struct {
	rules *rules.Store
}

// New builds an engine over the given rule store.
func New(store *rules.Store) *Engine {
	return &Engine{rules: store}
}

// Evaluate looks up the rule for id and runs exactly the checks the
// rule declares, in declaration order. The verdict is PASS only when
// every executed check passed. Weights contribute to the informational
// score but never to the verdict.
func (e *Engine) Evaluate(id string, data *model.TestItemData) (*model.ValidationResult, error) {
	rule, err := e.rules.RulesFor(id)
	if err != nil {
		return nil, err
	}

	checks := make([]model.ComplianceResult, 0, len(rule.Checks))
	for _, spec := range rule.Checks {
		checks = append(checks, checker.Run(spec.Kind, data, rule, spec.Weight))
	}

	result := assemble(id, rule.Name, checks)
	zap.L().Debug("engine: evaluated",
		zap.String("te_number", id),
		zap.String("status", string(result.Status)),
		zap.Float64("score", result.Score),
	)
	return result, nil
}

// EvaluatePartial evaluates partially recovered data for id and appends
// a distinguished failing source-integrity entry carrying note. The
// verdict is always FAIL; the regular check results document how much
// of the item could still be judged.
func (e *Engine) EvaluatePartial(id string, partial *model.TestItemData, note string) (*model.ValidationResult, error) {
	rule, err := e.rules.RulesFor(id)
	if err != nil {
		return nil, err
	}

	checks := make([]model.ComplianceResult, 0, len(rule.Checks)+1)
	for _, spec := range rule.Checks {
		checks = append(checks, checker.Run(spec.Kind, partial, rule, spec.Weight))
	}
	if note == "" {
		note = "source report partially unreadable"
	}
	checks = append(checks, model.ComplianceResult{
		CheckKind:         model.CheckSourceIntegrity,
		Passed:            false,
		Message:           note,
		StandardReference: "",
		Weight:            0,
	})

	result := assemble(id, rule.Name, checks)
	zap.L().Warn("engine: evaluated on partial data",
		zap.String("te_number", id),
		zap.String("note", note),
	)
	return result, nil
}

// assemble applies the aggregation policy: all-pass verdict, weighted
// score as informational metadata, reasons and evidence in declaration
// order, standard references de-duplicated in first-seen order.
func assemble(id, name string, checks []model.ComplianceResult) *model.ValidationResult {
	result := &model.ValidationResult{
		TestItemName: name,
		ID:           id,
		Status:       model.StatusPass,
		Checks:       checks,
		Timestamp:    time.Now().UTC(),
	}

	for _, c := range checks {
		if c.Passed {
			result.Score += c.Weight
		} else {
			result.Status = model.StatusFail
		}
	}

	seenRef := make(map[string]bool)
	for _, c := range checks {
		// On FAIL only failing checks contribute reasons; on PASS the
		// passing checks document the satisfied requirements.
		include := c.Passed == (result.Status == model.StatusPass)
		if include {
			result.Reasons = append(result.Reasons, c.Message)
			if c.Evidence != "" {
				result.Evidence = append(result.Evidence, c.Evidence)
			}
			if c.StandardReference != "" && !seenRef[c.StandardReference] {
				seenRef[c.StandardReference] = true
				result.StandardReferences = append(result.StandardReferences, c.StandardReference)
			}
		}
	}

	return result
}
