package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/certlab/mrvalidate/internal/model"
	"github.com/certlab/mrvalidate/internal/render"
	"github.com/certlab/mrvalidate/internal/validator"
)

var (
	validateFormat   string
	validateRules    string
	validateReport   string
	validateIDsFile  string
	validateAll      bool
	validateParallel int
	validateOutput   string
)

var validateCmd = &cobra.Command{
	Use:   "validate [TE-number...]",
	Short: "Validate test items from an extracted MR report",
	Long: `Validates one or more test items against the configured rule set.
Items come from positional arguments, --ids-file, or --all (every item
found in the report). One item's failure never aborts the others.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := render.ParseFormat(validateFormat)
		if err != nil {
			return err
		}

		env, err := initPipeline(validateRules, validateReport)
		if err != nil {
			return err
		}
		if validateParallel > 0 {
			env.Validator = validatorWithParallel(env, validateParallel)
		}

		ids, err := collectIDs(ctx, env, args)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return eris.New("no test items given: pass TE numbers, --ids-file, or --all")
		}

		outcomes := env.Validator.ValidateMany(ctx, ids)

		if cfg.Store.Enabled {
			recordOutcomes(ctx, outcomes)
		}

		doc, err := formatOutcomes(outcomes, format)
		if err != nil {
			return err
		}
		if validateOutput != "" {
			if err := os.WriteFile(validateOutput, []byte(doc), 0o644); err != nil {
				return eris.Wrapf(err, "write output %s", validateOutput)
			}
		} else {
			fmt.Println(doc)
		}

		for _, o := range outcomes {
			if o.Err != nil || o.Result.Status == model.StatusFail {
				return eris.New("one or more test items did not pass")
			}
		}
		return nil
	},
}

func collectIDs(ctx context.Context, env *pipelineEnv, args []string) ([]string, error) {
	if validateAll {
		return env.Validator.Items(ctx)
	}
	ids := append([]string(nil), args...)
	if validateIDsFile != "" {
		fromFile, err := validator.ReadIDFile(validateIDsFile)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromFile...)
	}
	return ids, nil
}

func validatorWithParallel(env *pipelineEnv, n int) *validator.Validator {
	return env.Validator.WithConcurrency(n)
}

// outcomeDoc is the batch output entry: a rendered result or a typed
// error descriptor, never both.
type outcomeDoc struct {
	ID     string                  `json:"id"`
	Result *model.ValidationResult `json:"result,omitempty"`
	Error  *errorDoc               `json:"error,omitempty"`
}

type errorDoc struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func formatOutcomes(outcomes []validator.ItemOutcome, format render.Format) (string, error) {
	if format == render.FormatJSON {
		docs := make([]outcomeDoc, len(outcomes))
		for i, o := range outcomes {
			docs[i] = outcomeDoc{ID: o.ID, Result: o.Result}
			if o.Err != nil {
				kind, _ := model.KindOf(o.Err)
				docs[i].Error = &errorDoc{Kind: string(kind), Message: o.Err.Error()}
			}
		}
		out, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return "", eris.Wrap(err, "marshal outcomes")
		}
		return string(out), nil
	}

	var b strings.Builder
	var results []*model.ValidationResult
	for _, o := range outcomes {
		if o.Err != nil {
			kind, _ := model.KindOf(o.Err)
			fmt.Fprintf(&b, "시험항목: %s\n오류 [%s]: %s\n\n", o.ID, kind, o.Err.Error())
			continue
		}
		results = append(results, o.Result)
	}
	doc, err := render.RenderMany(results, format)
	if err != nil {
		return "", err
	}
	b.WriteString(doc)
	return b.String(), nil
}

func recordOutcomes(ctx context.Context, outcomes []validator.ItemOutcome) {
	st, err := initStore()
	if err != nil {
		zap.L().Warn("run history unavailable", zap.Error(err))
		return
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		zap.L().Warn("run history migrate failed", zap.Error(err))
		return
	}
	for _, o := range outcomes {
		if o.Result == nil {
			continue
		}
		if _, err := st.RecordRun(ctx, o.Result); err != nil {
			zap.L().Warn("run history write failed",
				zap.String("te_number", o.ID),
				zap.Error(err),
			)
		}
	}
}

func init() {
	validateCmd.Flags().StringVar(&validateFormat, "format", "text", "output format (json, text, markdown)")
	validateCmd.Flags().StringVar(&validateRules, "rules", "", "rule configuration file (default from config)")
	validateCmd.Flags().StringVar(&validateReport, "report", "", "extracted MR report file (default from config)")
	validateCmd.Flags().StringVar(&validateIDsFile, "ids-file", "", "file listing TE numbers to validate")
	validateCmd.Flags().BoolVar(&validateAll, "all", false, "validate every test item found in the report")
	validateCmd.Flags().IntVar(&validateParallel, "parallel", 0, "max concurrent validations (default from config)")
	validateCmd.Flags().StringVar(&validateOutput, "output", "", "write output to file instead of stdout")
	rootCmd.AddCommand(validateCmd)
}
