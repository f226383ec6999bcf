package main

import (
	"github.com/rotisserie/eris"

	"github.com/certlab/mrvalidate/internal/engine"
	"github.com/certlab/mrvalidate/internal/extract"
	"github.com/certlab/mrvalidate/internal/rules"
	"github.com/certlab/mrvalidate/internal/store"
	"github.com/certlab/mrvalidate/internal/validator"
)

// pipelineEnv bundles the wired pipeline for commands that validate.
type pipelineEnv struct {
	Rules     *rules.Store
	Validator *validator.Validator
}

// initPipeline wires rule store, report source, extractor, engine, and
// validator from config plus optional flag overrides.
func initPipeline(rulesPath, reportPath string) (*pipelineEnv, error) {
	if rulesPath == "" {
		rulesPath = cfg.Rules.Path
	}
	if reportPath == "" {
		reportPath = cfg.Report.Path
	}
	if reportPath == "" {
		return nil, eris.New("no report given: set --report or report.path in config")
	}

	ruleStore, err := rules.NewStore(rulesPath)
	if err != nil {
		return nil, err
	}

	source, err := extract.OpenJSONReport(reportPath)
	if err != nil {
		return nil, err
	}

	ex := extract.New(source, cfg.Extract)
	eng := engine.New(ruleStore)
	return &pipelineEnv{
		Rules:     ruleStore,
		Validator: validator.New(ex, eng, cfg.Batch.MaxConcurrent),
	}, nil
}

// initStore opens the run-history database.
func initStore() (store.Store, error) {
	return store.NewSQLite(cfg.Store.Path)
}
