// Package checker implements the four compliance checks. Every check is
// stateless and total: missing required data is a failing result, never
// an error. Combining results is the engine's job.
package checker

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/certlab/mrvalidate/internal/model"
)

// Metadata value formats enforced when the key is present. Keys outside
// this map are only checked for presence and non-emptiness.
var metadataFormats = map[string]*regexp.Regexp{
	"version": regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`),
	"date":    regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
}

// Run dispatches to the check implementation for kind. The caller
// guarantees kind is configurable; anything else fails closed.
func Run(kind model.CheckKind, data *model.TestItemData, rule *model.ValidationRule, weight float64) model.ComplianceResult {
	switch kind {
	case model.CheckMetadataCompleteness:
		return MetadataCompleteness(data, rule, weight)
	case model.CheckTableStructure:
		return TableStructure(data, rule, weight)
	case model.CheckContentAccuracy:
		return ContentAccuracy(data, rule, weight)
	case model.CheckRequiredElements:
		return RequiredElements(data, rule, weight)
	}
	return model.ComplianceResult{
		CheckKind:         kind,
		Passed:            false,
		Message:           fmt.Sprintf("unknown check kind %q", kind),
		StandardReference: reference(rule),
		Weight:            weight,
	}
}

// MetadataCompleteness verifies every required metadata key is present
// with a non-empty value, and that keys with a known format carry a
// well-formed value. The failing message names every offending key.
func MetadataCompleteness(data *model.TestItemData, rule *model.ValidationRule, weight float64) model.ComplianceResult {
	var missing, malformed []string
	for _, key := range rule.RequiredMetadataKeys {
		val, ok := data.Metadata[key]
		if !ok || strings.TrimSpace(val) == "" {
			missing = append(missing, key)
			continue
		}
		if pattern, has := metadataFormats[key]; has && !pattern.MatchString(val) {
			malformed = append(malformed, fmt.Sprintf("%s=%q", key, val))
		}
	}

	res := model.ComplianceResult{
		CheckKind:         model.CheckMetadataCompleteness,
		StandardReference: reference(rule),
		Weight:            weight,
	}
	switch {
	case len(missing) == 0 && len(malformed) == 0:
		res.Passed = true
		res.Message = fmt.Sprintf("all %d required metadata keys present", len(rule.RequiredMetadataKeys))
	default:
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, "missing or empty metadata: "+strings.Join(missing, ", "))
		}
		if len(malformed) > 0 {
			parts = append(parts, "malformed metadata: "+strings.Join(malformed, ", "))
		}
		res.Message = strings.Join(parts, "; ")
		res.Evidence = fmt.Sprintf("metadata keys present: %s", presentKeys(data.Metadata))
	}
	return res
}

// TableStructure verifies every required field appears as a table
// header and that at least one data row exists beyond the header.
func TableStructure(data *model.TestItemData, rule *model.ValidationRule, weight float64) model.ComplianceResult {
	var problems []string
	for _, field := range rule.RequiredTableFields {
		if !data.Table.HasField(field) {
			problems = append(problems, fmt.Sprintf("missing table field %q", field))
		}
	}
	if len(data.Table.Rows) == 0 {
		problems = append(problems, "no data rows")
	}

	res := model.ComplianceResult{
		CheckKind:         model.CheckTableStructure,
		StandardReference: reference(rule),
		Weight:            weight,
	}
	if len(problems) == 0 {
		res.Passed = true
		res.Message = fmt.Sprintf("table has all %d required fields and %d data rows",
			len(rule.RequiredTableFields), len(data.Table.Rows))
	} else {
		res.Message = strings.Join(problems, "; ")
		res.Evidence = fmt.Sprintf("table headers: %s", strings.Join(data.Table.Headers, " | "))
	}
	return res
}

// ContentAccuracy evaluates the rule's configured content predicates
// against table columns. All violated predicates are reported, not just
// the first.
func ContentAccuracy(data *model.TestItemData, rule *model.ValidationRule, weight float64) model.ComplianceResult {
	var violations []string
	for _, cr := range rule.ContentRules {
		if v := evalContentRule(data, cr); v != "" {
			violations = append(violations, v)
		}
	}

	res := model.ComplianceResult{
		CheckKind:         model.CheckContentAccuracy,
		StandardReference: reference(rule),
		Weight:            weight,
	}
	if len(violations) == 0 {
		res.Passed = true
		res.Message = fmt.Sprintf("all %d content constraints satisfied", len(rule.ContentRules))
	} else {
		res.Message = strings.Join(violations, "; ")
	}
	return res
}

func evalContentRule(data *model.TestItemData, cr model.ContentRule) string {
	values := data.Table.Column(cr.Field)
	if values == nil {
		return fmt.Sprintf("field %q not found for content check", cr.Field)
	}

	switch cr.Op {
	case model.ContentNonEmpty:
		for i, v := range values {
			if strings.TrimSpace(v) == "" {
				return fmt.Sprintf("field %q row %d is empty", cr.Field, i+1)
			}
		}
	case model.ContentOneOf:
		allowed := make(map[string]bool, len(cr.Values))
		for _, v := range cr.Values {
			allowed[v] = true
		}
		for i, v := range values {
			if !allowed[strings.TrimSpace(v)] {
				return fmt.Sprintf("field %q row %d value %q not in allowed set [%s]",
					cr.Field, i+1, v, strings.Join(cr.Values, ", "))
			}
		}
	case model.ContentMatches:
		// Patterns were compiled at rule load; a failure here means the
		// rule store was bypassed.
		pattern, err := regexp.Compile(cr.Pattern)
		if err != nil {
			return fmt.Sprintf("field %q has unusable pattern %q", cr.Field, cr.Pattern)
		}
		for i, v := range values {
			if !pattern.MatchString(v) {
				return fmt.Sprintf("field %q row %d value %q does not match %q", cr.Field, i+1, v, cr.Pattern)
			}
		}
	}
	return ""
}

// RequiredElements verifies image presence when the rule demands one.
// Rules without an image requirement pass trivially.
func RequiredElements(data *model.TestItemData, rule *model.ValidationRule, weight float64) model.ComplianceResult {
	res := model.ComplianceResult{
		CheckKind:         model.CheckRequiredElements,
		StandardReference: reference(rule),
		Weight:            weight,
	}
	if !rule.RequiresImage {
		res.Passed = true
		res.Message = "no additional elements required"
		return res
	}
	if !data.HasImage {
		res.Message = "required image is missing"
		return res
	}
	if len(data.ImageData) == 0 {
		res.Message = "required image is present but empty"
		return res
	}
	res.Passed = true
	res.Message = "required image present"
	return res
}

func reference(rule *model.ValidationRule) string {
	return strings.Join(rule.StandardReferences, ", ")
}

func presentKeys(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
