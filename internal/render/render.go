// Package render turns validation results into output documents. It
// never mutates or reorders the result it is given.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/certlab/mrvalidate/internal/model"
)

// Format selects the output representation.
type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	}
	return "", eris.Errorf("render: unknown format %q (want json, text, or markdown)", s)
}

// Render produces the document for one result. JSON output is
// byte-identical for identical input; struct field order is fixed and
// the only timestamp is the result's own.
func Render(result *model.ValidationResult, format Format) (string, error) {
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", eris.Wrap(err, "render: marshal result")
		}
		return string(out), nil
	case FormatText:
		return renderText(result), nil
	case FormatMarkdown:
		return renderMarkdown(result), nil
	}
	return "", eris.Errorf("render: unknown format %q", format)
}

// renderText emits the three fixed sections: item name, verdict, and
// one line per reason suffixed with its standard reference.
func renderText(result *model.ValidationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "시험항목: %s (%s)\n", result.TestItemName, result.ID)
	fmt.Fprintf(&b, "판정: %s\n", result.Status.Verdict())
	b.WriteString("판정근거:\n")
	refs := reasonReferences(result)
	for i, reason := range result.Reasons {
		if refs[i] != "" {
			fmt.Fprintf(&b, "  - %s (%s)\n", reason, refs[i])
		} else {
			fmt.Fprintf(&b, "  - %s\n", reason)
		}
	}
	for _, ev := range result.Evidence {
		fmt.Fprintf(&b, "  · %s\n", ev)
	}
	return b.String()
}

func renderMarkdown(result *model.ValidationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s (%s)\n\n", result.TestItemName, result.ID)
	fmt.Fprintf(&b, "**판정:** %s  \n", result.Status.Verdict())
	fmt.Fprintf(&b, "**점수:** %.2f\n\n", result.Score)
	b.WriteString("| 검사 | 결과 | 사유 |\n|---|---|---|\n")
	for _, c := range result.Checks {
		mark := "✅"
		if !c.Passed {
			mark = "❌"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", c.CheckKind, mark, c.Message)
	}
	if len(result.StandardReferences) > 0 {
		fmt.Fprintf(&b, "\n기준: %s\n", strings.Join(result.StandardReferences, "; "))
	}
	return b.String()
}

// reasonReferences pairs each reason with the standard reference of the
// check that produced it. Reasons come from the checks whose Passed
// flag matches the overall status, in declaration order.
func reasonReferences(result *model.ValidationResult) []string {
	refs := make([]string, len(result.Reasons))
	i := 0
	for _, c := range result.Checks {
		if c.Passed != (result.Status == model.StatusPass) {
			continue
		}
		if i < len(refs) {
			refs[i] = c.StandardReference
		}
		i++
	}
	return refs
}

// RenderMany renders a batch of results with a trailing summary line.
// Individual documents keep their single-result layout.
func RenderMany(results []*model.ValidationResult, format Format) (string, error) {
	if format == FormatJSON {
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return "", eris.Wrap(err, "render: marshal results")
		}
		return string(out), nil
	}

	var b strings.Builder
	passed := 0
	for i, r := range results {
		doc, err := Render(r, format)
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(doc)
		if r.Status == model.StatusPass {
			passed++
		}
	}
	fmt.Fprintf(&b, "\n합계: %d개 항목, 통과 %d, 실패 %d\n", len(results), passed, len(results)-passed)
	return b.String(), nil
}
