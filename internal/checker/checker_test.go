package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certlab/mrvalidate/internal/model"
)

func baseRule() *model.ValidationRule {
	return &model.ValidationRule{
		ID:                   "TE02.03.01",
		Name:                 "암호모듈 사양 검증",
		RequiredMetadataKeys: []string{"CM_name", "version", "date", "test_organization"},
		RequiredTableFields:  []string{"시험결과판정근거", "시험방법", "시험결과"},
		StandardReferences:   []string{"ISO/IEC 24759:2017 6.2.03"},
		Checks: []model.CheckSpec{
			{Kind: model.CheckMetadataCompleteness, Weight: 0.4},
			{Kind: model.CheckTableStructure, Weight: 0.3},
			{Kind: model.CheckRequiredElements, Weight: 0.3},
		},
	}
}

func baseData() *model.TestItemData {
	return &model.TestItemData{
		ID: "TE02.03.01",
		Metadata: map[string]string{
			"CM_name":           "X",
			"version":           "1.0",
			"date":              "2025-01-01",
			"test_organization": "Lab",
		},
		Table: model.TableData{
			Headers: []string{"시험결과판정근거", "시험방법", "시험결과"},
			Rows:    [][]string{{"근거 서술", "문서 검토", "통과"}},
		},
	}
}

func TestMetadataCompleteness_AllPresent(t *testing.T) {
	res := MetadataCompleteness(baseData(), baseRule(), 0.4)

	assert.True(t, res.Passed)
	assert.Equal(t, model.CheckMetadataCompleteness, res.CheckKind)
	assert.Equal(t, 0.4, res.Weight)
	assert.Equal(t, "ISO/IEC 24759:2017 6.2.03", res.StandardReference)
}

func TestMetadataCompleteness_NamesEveryMissingKey(t *testing.T) {
	data := baseData()
	delete(data.Metadata, "test_organization")
	data.Metadata["date"] = "   "

	res := MetadataCompleteness(data, baseRule(), 0.4)

	require.False(t, res.Passed)
	assert.Contains(t, res.Message, "test_organization")
	assert.Contains(t, res.Message, "date")
	assert.NotContains(t, res.Message, "CM_name")
}

func TestMetadataCompleteness_RejectsMalformedFormats(t *testing.T) {
	data := baseData()
	data.Metadata["version"] = "v1"
	data.Metadata["date"] = "2025/01/01"

	res := MetadataCompleteness(data, baseRule(), 0.4)

	require.False(t, res.Passed)
	assert.Contains(t, res.Message, "malformed metadata")
	assert.Contains(t, res.Message, `version="v1"`)
	assert.Contains(t, res.Message, `date="2025/01/01"`)
}

func TestTableStructure_Pass(t *testing.T) {
	res := TableStructure(baseData(), baseRule(), 0.3)

	assert.True(t, res.Passed)
}

func TestTableStructure_MissingFieldAndNoRows(t *testing.T) {
	data := baseData()
	data.Table = model.TableData{Headers: []string{"시험방법"}}

	res := TableStructure(data, baseRule(), 0.3)

	require.False(t, res.Passed)
	assert.Contains(t, res.Message, "시험결과판정근거")
	assert.Contains(t, res.Message, "시험결과")
	assert.Contains(t, res.Message, "no data rows")
	assert.NotContains(t, res.Message, `"시험방법"`)
}

func TestTableStructure_PartialHeaderMatch(t *testing.T) {
	data := baseData()
	data.Table.Headers = []string{"1. 시험결과판정근거", "시험방법 및 절차", "시험결과"}

	res := TableStructure(data, baseRule(), 0.3)

	assert.True(t, res.Passed)
}

func TestContentAccuracy_NoRulesPassesTrivially(t *testing.T) {
	res := ContentAccuracy(baseData(), baseRule(), 0.3)

	assert.True(t, res.Passed)
}

func TestContentAccuracy_ReportsAllViolations(t *testing.T) {
	rule := baseRule()
	rule.ContentRules = []model.ContentRule{
		{Field: "시험결과", Op: model.ContentOneOf, Values: []string{"통과", "실패"}},
		{Field: "시험방법", Op: model.ContentNonEmpty},
	}
	data := baseData()
	data.Table.Rows = [][]string{{"근거", "", "보류"}}

	res := ContentAccuracy(data, rule, 0.3)

	require.False(t, res.Passed)
	assert.Contains(t, res.Message, "보류")
	assert.Contains(t, res.Message, "시험방법")
}

func TestContentAccuracy_MatchesOp(t *testing.T) {
	rule := baseRule()
	rule.ContentRules = []model.ContentRule{
		{Field: "시험결과판정근거", Op: model.ContentMatches, Pattern: `근거`},
	}

	res := ContentAccuracy(baseData(), rule, 0.3)

	assert.True(t, res.Passed)
}

func TestRequiredElements_NoImageNeeded(t *testing.T) {
	res := RequiredElements(baseData(), baseRule(), 0.3)

	assert.True(t, res.Passed)
}

func TestRequiredElements_ImageRequired(t *testing.T) {
	rule := baseRule()
	rule.RequiresImage = true

	data := baseData()
	res := RequiredElements(data, rule, 0.3)
	require.False(t, res.Passed)
	assert.Contains(t, res.Message, "missing")

	data.HasImage = true
	res = RequiredElements(data, rule, 0.3)
	require.False(t, res.Passed)
	assert.Contains(t, res.Message, "empty")

	data.ImageData = []byte{0x89, 0x50}
	res = RequiredElements(data, rule, 0.3)
	assert.True(t, res.Passed)
}

func TestRun_DispatchesByKind(t *testing.T) {
	for _, kind := range model.KnownCheckKinds {
		res := Run(kind, baseData(), baseRule(), 0.25)
		assert.Equal(t, kind, res.CheckKind)
		assert.True(t, res.Passed, "kind %s", kind)
	}
}

func TestRun_UnknownKindFailsClosed(t *testing.T) {
	res := Run(model.CheckKind("bogus"), baseData(), baseRule(), 0.25)

	assert.False(t, res.Passed)
	assert.Contains(t, res.Message, "bogus")
}
