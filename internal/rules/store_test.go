package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certlab/mrvalidate/internal/model"
)

const updatedDoc = `{
  "version": "2.0",
  "standard_version": "ISO/IEC 24759:2017",
  "rules": {
    "TE02.03.01": {
      "name": "암호모듈 사양 검증",
      "required_metadata": ["CM_name"],
      "required_table_fields": ["시험결과"],
      "standard_references": ["ISO/IEC 24759:2017 6.2.03"],
      "checks": [{"kind": "table_structure", "weight": 1.0}]
    },
    "TE02.05.01": {
      "name": "형상 항목 식별",
      "required_metadata": [],
      "required_table_fields": ["시험결과"],
      "standard_references": ["ISO/IEC 24759:2017 6.2.05"],
      "checks": [{"kind": "table_structure", "weight": 1.0}]
    }
  }
}`

func writeRules(t *testing.T, path, doc string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
}

func TestNewStore_LoadsAtStartup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	writeRules(t, path, validDoc)

	store, err := NewStore(path)
	require.NoError(t, err)

	info := store.Info()
	assert.Equal(t, "1.2", info.Version)
	assert.Equal(t, 1, info.RuleCount)
	assert.False(t, info.LoadedAt.IsZero())
}

func TestNewStore_FailsFastOnBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	writeRules(t, path, `{"version": "1.0"}`)

	_, err := NewStore(path)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrConfig))
}

func TestReload_SwapsActiveSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	writeRules(t, path, validDoc)

	store, err := NewStore(path)
	require.NoError(t, err)
	before := store.Current()

	writeRules(t, path, updatedDoc)
	require.NoError(t, store.Reload())

	after := store.Current()
	assert.NotSame(t, before, after)
	assert.Equal(t, "2.0", after.Version)
	assert.Len(t, after.Rules, 2)
	// The old set is untouched for anyone still holding it.
	assert.Equal(t, "1.2", before.Version)
}

func TestReload_FailureKeepsPreviousSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	writeRules(t, path, validDoc)

	store, err := NewStore(path)
	require.NoError(t, err)

	writeRules(t, path, `not json`)
	require.Error(t, store.Reload())

	assert.Equal(t, "1.2", store.Current().Version)
	_, err = store.RulesFor("TE02.03.01")
	assert.NoError(t, err)
}

func TestRulesFor_UnknownID(t *testing.T) {
	store := NewStoreFromSet(&model.RuleSet{Rules: map[string]*model.ValidationRule{}})

	_, err := store.RulesFor("TE99.99.99")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrRuleNotFound))
}
