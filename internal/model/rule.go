package model

import "time"

// CheckKind identifies one compliance-check facet. The four kinds below
// are the only ones the engine knows how to run; rule configs carrying
// any other kind are rejected at load time.
type CheckKind string

const (
	CheckMetadataCompleteness CheckKind = "metadata_completeness"
	CheckTableStructure       CheckKind = "table_structure"
	CheckContentAccuracy      CheckKind = "content_accuracy"
	CheckRequiredElements     CheckKind = "required_elements"

	// CheckSourceIntegrity is never configured in a rule. The engine
	// appends it as a distinguished failing entry when the source report
	// was only partially readable for the item under validation.
	CheckSourceIntegrity CheckKind = "source_integrity"
)

// KnownCheckKinds lists the configurable check kinds.
var KnownCheckKinds = []CheckKind{
	CheckMetadataCompleteness,
	CheckTableStructure,
	CheckContentAccuracy,
	CheckRequiredElements,
}

// IsConfigurable reports whether k may appear in a rule's check list.
func (k CheckKind) IsConfigurable() bool {
	switch k {
	case CheckMetadataCompleteness, CheckTableStructure, CheckContentAccuracy, CheckRequiredElements:
		return true
	}
	return false
}

// CheckSpec is one entry of a rule's check list: which check runs and
// how much it contributes to the weighted score.
type CheckSpec struct {
	Kind   CheckKind `json:"kind" yaml:"kind"`
	Weight float64   `json:"weight" yaml:"weight"`
}

// ContentOp is the predicate operator of a ContentRule.
type ContentOp string

const (
	ContentOneOf    ContentOp = "one_of"
	ContentNonEmpty ContentOp = "non_empty"
	ContentMatches  ContentOp = "matches"
)

// ContentRule is one externally configured content-accuracy predicate:
// the named table field must satisfy the operator.
type ContentRule struct {
	Field   string    `json:"field" yaml:"field"`
	Op      ContentOp `json:"op" yaml:"op"`
	Values  []string  `json:"values,omitempty" yaml:"values,omitempty"`
	Pattern string    `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// ValidationRule describes how one test-item class is validated.
// Rules are externally authored configuration; the engine treats them
// as immutable once loaded.
type ValidationRule struct {
	ID                   string        `json:"id" yaml:"id"`
	Name                 string        `json:"name" yaml:"name"`
	RequiredMetadataKeys []string      `json:"required_metadata" yaml:"required_metadata"`
	RequiredTableFields  []string      `json:"required_table_fields" yaml:"required_table_fields"`
	RequiresImage        bool          `json:"requires_image" yaml:"requires_image"`
	StandardReferences   []string      `json:"standard_references" yaml:"standard_references"`
	Checks               []CheckSpec   `json:"checks" yaml:"checks"`
	ContentRules         []ContentRule `json:"content_rules,omitempty" yaml:"content_rules,omitempty"`
}

// HasCheck reports whether the rule's check list declares kind. The
// check list is the single source of truth for which checks run.
func (r *ValidationRule) HasCheck(kind CheckKind) bool {
	for _, c := range r.Checks {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

// RuleSet is the full parsed rule configuration. Consumers share one
// RuleSet read-only; a reload swaps in a fresh instance.
type RuleSet struct {
	Version         string    `json:"version"`
	LastUpdated     time.Time `json:"last_updated"`
	StandardVersion string    `json:"standard_version"`
	Rules           map[string]*ValidationRule
}
