package model

import "time"

// Status is the final verdict for a test item. Exactly two states are
// exposed externally; partial outcomes are expressed through reasons.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// Verdict returns the localized verdict token used by the text
// rendering and the original report format.
func (s Status) Verdict() string {
	if s == StatusPass {
		return "통과"
	}
	return "실패"
}

// ComplianceResult is the outcome of one compliance check. Created by
// the checker, never mutated, consumed by the engine.
type ComplianceResult struct {
	CheckKind         CheckKind `json:"check_kind"`
	Passed            bool      `json:"passed"`
	Message           string    `json:"message"`
	StandardReference string    `json:"standard_reference"`
	Evidence          string    `json:"evidence,omitempty"`
	Weight            float64   `json:"weight"`
}

// ValidationResult is the final verdict for one test item.
type ValidationResult struct {
	TestItemName       string             `json:"test_item_name"`
	ID                 string             `json:"id"`
	Status             Status             `json:"status"`
	Score              float64            `json:"score"`
	Reasons            []string           `json:"reasons"`
	Evidence           []string           `json:"evidence"`
	StandardReferences []string           `json:"standard_references"`
	Checks             []ComplianceResult `json:"checks"`
	Timestamp          time.Time          `json:"timestamp"`
}
