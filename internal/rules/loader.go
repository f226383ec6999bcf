// Package rules loads, validates, and indexes the externally authored
// validation-rule configuration.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/certlab/mrvalidate/internal/model"
)

const weightTolerance = 0.01

var (
	teNumberPattern = regexp.MustCompile(`^TE\d{2}\.\d{2}\.\d{2}$`)
	compiledSchema  = jsonschema.MustCompileString("validation_rules.schema.json", ruleSchema)
)

// ruleDocument mirrors the on-disk configuration shape.
type ruleDocument struct {
	Version         string                           `json:"version"`
	LastUpdated     string                           `json:"last_updated"`
	StandardVersion string                           `json:"standard_version"`
	Rules           map[string]*model.ValidationRule `json:"rules"`
}

// Load reads and validates a rule configuration file. YAML files are
// normalized to JSON-compatible values so both formats share one
// schema. Any violation fails the whole load with the offending rule
// id in the error.
func Load(path string) (*model.RuleSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapError(model.ErrConfig, "", eris.Wrapf(err, "rules: read %s", path))
	}

	ext := strings.ToLower(filepath.Ext(path))
	isYAML := ext == ".yaml" || ext == ".yml"
	return Parse(raw, isYAML)
}

// Parse validates and decodes a rule configuration document.
func Parse(raw []byte, isYAML bool) (*model.RuleSet, error) {
	if isYAML {
		var err error
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, model.WrapError(model.ErrConfig, "", eris.Wrap(err, "rules: convert yaml"))
		}
	}

	// Structural validation against the embedded schema.
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, model.WrapError(model.ErrConfig, "", eris.Wrap(err, "rules: parse document"))
	}
	if err := compiledSchema.Validate(payload); err != nil {
		return nil, model.WrapError(model.ErrConfig, "", eris.Wrap(err, "rules: schema validation"))
	}

	// Strict typed decode.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var doc ruleDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, model.WrapError(model.ErrConfig, "", eris.Wrap(err, "rules: decode document"))
	}

	set := &model.RuleSet{
		Version:         doc.Version,
		StandardVersion: doc.StandardVersion,
		Rules:           make(map[string]*model.ValidationRule, len(doc.Rules)),
	}
	if doc.LastUpdated != "" {
		t, err := parseDate(doc.LastUpdated)
		if err != nil {
			return nil, model.NewError(model.ErrConfig, "", fmt.Sprintf("invalid last_updated %q", doc.LastUpdated))
		}
		set.LastUpdated = t
	}

	// Deterministic iteration so the first violation reported is stable.
	ids := make([]string, 0, len(doc.Rules))
	for id := range doc.Rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rule := doc.Rules[id]
		rule.ID = id
		if err := validateRule(rule); err != nil {
			return nil, err
		}
		set.Rules[id] = rule
	}

	zap.L().Info("rules: loaded",
		zap.Int("count", len(set.Rules)),
		zap.String("version", set.Version),
		zap.String("standard_version", set.StandardVersion),
	)
	return set, nil
}

// validateRule enforces the semantic invariants on one rule.
func validateRule(r *model.ValidationRule) error {
	fail := func(format string, args ...any) error {
		return model.NewError(model.ErrConfig, r.ID, fmt.Sprintf(format, args...))
	}

	if !teNumberPattern.MatchString(r.ID) {
		return fail("rule id %q is not a valid TE number", r.ID)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fail("rule name is empty")
	}
	if len(r.StandardReferences) == 0 {
		return fail("rule has no standard references")
	}
	if len(r.Checks) == 0 {
		return fail("rule has no checks")
	}

	seen := make(map[model.CheckKind]bool, len(r.Checks))
	total := 0.0
	for _, c := range r.Checks {
		if !c.Kind.IsConfigurable() {
			return fail("unknown check kind %q", c.Kind)
		}
		if seen[c.Kind] {
			return fail("check kind %q declared twice", c.Kind)
		}
		seen[c.Kind] = true
		if c.Weight <= 0 || c.Weight > 1 {
			return fail("check %q weight %v outside (0,1]", c.Kind, c.Weight)
		}
		total += c.Weight
	}
	if math.Abs(total-1.0) > weightTolerance {
		return fail("check weights sum to %.3f, want 1.0", total)
	}

	for i, cr := range r.ContentRules {
		switch cr.Op {
		case model.ContentOneOf:
			if len(cr.Values) == 0 {
				return fail("content rule %d (%s): one_of requires values", i, cr.Field)
			}
		case model.ContentMatches:
			if _, err := regexp.Compile(cr.Pattern); err != nil {
				return fail("content rule %d (%s): invalid pattern: %v", i, cr.Field, err)
			}
		case model.ContentNonEmpty:
			// No arguments.
		default:
			return fail("content rule %d (%s): unknown op %q", i, cr.Field, cr.Op)
		}
	}

	return nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("rules: unparseable date %q", s)
}

// yamlToJSON re-encodes a YAML document as JSON so it can be validated
// against the shared schema.
func yamlToJSON(raw []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAML(v))
}

// normalizeYAML converts yaml.v3's map[string]any/map[any]any trees
// into JSON-marshalable values.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}
