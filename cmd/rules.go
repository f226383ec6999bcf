package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/certlab/mrvalidate/internal/model"
	"github.com/certlab/mrvalidate/internal/rules"
)

var rulesPath string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the validation rule configuration",
}

// -- rules info --

var rulesInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show rule-set version and counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := rules.NewStore(activeRulesPath())
		if err != nil {
			return err
		}

		info := store.Info()
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	},
}

// -- rules list --

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured rules",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := rules.NewStore(activeRulesPath())
		if err != nil {
			return err
		}

		set := store.Current()
		ids := make([]string, 0, len(set.Rules))
		for id := range set.Rules {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		formatRulesList(os.Stdout, set, ids)
		return nil
	},
}

// -- rules check --

var rulesCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a rule configuration file without activating it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := activeRulesPath()
		if len(args) == 1 {
			path = args[0]
		}

		set, err := rules.Load(path)
		if err != nil {
			return err
		}

		fmt.Printf("OK: %d rules, version %s, standard %s\n",
			len(set.Rules), set.Version, set.StandardVersion)
		return nil
	},
}

func activeRulesPath() string {
	if rulesPath != "" {
		return rulesPath
	}
	return cfg.Rules.Path
}

func formatRulesList(out io.Writer, set *model.RuleSet, ids []string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TE_NUMBER\tNAME\tCHECKS\tIMAGE\tREFERENCES")
	_, _ = fmt.Fprintln(w, "---------\t----\t------\t-----\t----------")

	for _, id := range ids {
		r := set.Rules[id]
		kinds := make([]string, len(r.Checks))
		for i, c := range r.Checks {
			kinds[i] = string(c.Kind)
		}
		img := ""
		if r.RequiresImage {
			img = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			id,
			r.Name,
			strings.Join(kinds, ","),
			img,
			strings.Join(r.StandardReferences, "; "),
		)
	}
	_ = w.Flush()
}

func init() {
	rulesCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "rule configuration file (default from config)")
	rulesCmd.AddCommand(rulesInfoCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesCheckCmd)
	rootCmd.AddCommand(rulesCmd)
}
