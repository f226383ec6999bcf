package rules

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/certlab/mrvalidate/internal/model"
)

// Store owns the active rule set for the process lifetime. The set is
// immutable; Reload swaps in a freshly loaded set atomically so
// in-flight evaluations see either the old or the new set entirely.
type Store struct {
	path     string
	current  atomic.Pointer[model.RuleSet]
	loadedAt atomic.Pointer[time.Time]
}

// NewStore loads the rule configuration at path and returns a store
// holding it. Load failures are fatal at startup by design.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStoreFromSet wraps an already-parsed rule set. Used by tests and
// by callers that source rules from somewhere other than a file.
func NewStoreFromSet(set *model.RuleSet) *Store {
	s := &Store{}
	now := time.Now()
	s.current.Store(set)
	s.loadedAt.Store(&now)
	return s
}

// Reload performs a fresh load-and-swap. On failure the previous set
// stays active.
func (s *Store) Reload() error {
	set, err := Load(s.path)
	if err != nil {
		return err
	}
	now := time.Now()
	s.current.Store(set)
	s.loadedAt.Store(&now)
	zap.L().Info("rules: active set swapped", zap.Int("count", len(set.Rules)))
	return nil
}

// Current returns the active rule set.
func (s *Store) Current() *model.RuleSet {
	return s.current.Load()
}

// RulesFor returns the rule for the given test-item id. Lookup is
// exact-match; a malformed identifier is the caller's problem.
func (s *Store) RulesFor(id string) (*model.ValidationRule, error) {
	set := s.current.Load()
	rule, ok := set.Rules[id]
	if !ok {
		return nil, model.NewError(model.ErrRuleNotFound, id, "no validation rule configured for this test item")
	}
	return rule, nil
}

// Info summarizes the active rule set.
type Info struct {
	Version         string    `json:"version"`
	StandardVersion string    `json:"standard_version"`
	LastUpdated     time.Time `json:"last_updated"`
	RuleCount       int       `json:"rule_count"`
	LoadedAt        time.Time `json:"loaded_at"`
}

// Info returns metadata about the active rule set.
func (s *Store) Info() Info {
	set := s.current.Load()
	info := Info{
		Version:         set.Version,
		StandardVersion: set.StandardVersion,
		LastUpdated:     set.LastUpdated,
		RuleCount:       len(set.Rules),
	}
	if t := s.loadedAt.Load(); t != nil {
		info.LoadedAt = *t
	}
	return info
}
