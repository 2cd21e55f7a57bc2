package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"depusage/internal/analysis"
	"depusage/internal/history"
	"depusage/internal/paths"
	"depusage/internal/report"
)

var (
	analyzeVariants       []string
	analyzeManifest       string
	analyzeOutputDir      string
	analyzeFormat         string
	analyzeFailOnFindings bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze variants and write dependency reports",
	Long: `Analyze one or more variants from the manifest and write, per variant,
<output-dir>/<variant>/dependenciesReport.json and
<output-dir>/<variant>/apiToImplementation.json.

Any failure aborts the run with exit status 1.

Examples:
  depusage analyze                          # All variants in depusage.toml
  depusage analyze --variant debug          # A single variant
  depusage analyze --fail-on-findings       # Exit 2 when a report is not empty
  depusage analyze --format json            # Machine-readable summary`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringSliceVar(&analyzeVariants, "variant", nil, "Variant to analyze (repeatable, default: all)")
	analyzeCmd.Flags().StringVar(&analyzeManifest, "manifest", "", "Manifest file (default: config manifest)")
	analyzeCmd.Flags().StringVar(&analyzeOutputDir, "output-dir", "", "Report directory (default: config outputDir)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "human", "Output format (human, json)")
	analyzeCmd.Flags().BoolVar(&analyzeFailOnFindings, "fail-on-findings", false, "Exit with status 2 when any report lists a dependency")
	rootCmd.AddCommand(analyzeCmd)
}

// AnalyzeResponseCLI is the summary printed by analyze.
type AnalyzeResponseCLI struct {
	Variants []VariantSummaryCLI `json:"variants"`
}

// VariantSummaryCLI summarizes one analyzed variant.
type VariantSummaryCLI struct {
	Variant           string   `json:"variant"`
	Remove            []string `json:"remove"`
	Add               []string `json:"add"`
	Misconfigured     []string `json:"misconfigured"`
	UnusedFile        string   `json:"unusedFile"`
	MisconfiguredFile string   `json:"misconfiguredFile"`
	DurationMs        int64    `json:"durationMs"`
	RunID             string   `json:"runId,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format := OutputFormat(analyzeFormat)
	if format != FormatJSON && format != FormatHuman {
		return fmt.Errorf("unsupported format: %s", analyzeFormat)
	}

	m, err := loadManifest(analyzeManifest)
	if err != nil {
		return err
	}
	inputs, err := m.Inputs(analyzeVariants)
	if err != nil {
		return err
	}
	dir, err := outputDir(analyzeOutputDir)
	if err != nil {
		return err
	}

	var store *history.Store
	if cfgResult.Config.History.Enabled {
		store, err = history.Open(cfgResult.Config.HistoryPath(projectRoot), logger)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	pipeline := newPipeline(dir)
	resp := &AnalyzeResponseCLI{Variants: make([]VariantSummaryCLI, 0, len(inputs))}
	var withFindings []string
	for _, in := range inputs {
		res, err := pipeline.Run(cmd.Context(), in)
		if err != nil {
			return err
		}

		summary := summarize(res)
		if store != nil {
			runID, err := recordRun(store, in, res)
			if err != nil {
				return err
			}
			summary.RunID = runID
		}
		resp.Variants = append(resp.Variants, summary)

		if res.HasFindings() {
			withFindings = append(withFindings, res.Variant)
		}
	}

	out, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)

	if len(withFindings) > 0 && (analyzeFailOnFindings || cfgResult.Config.Analysis.FailOnFindings) {
		return &findingsError{variants: withFindings}
	}
	return nil
}

func summarize(res *analysis.Result) VariantSummaryCLI {
	return VariantSummaryCLI{
		Variant:           res.Variant,
		Remove:            res.Unused.Remove,
		Add:               res.Unused.Add,
		Misconfigured:     res.Misconfigured,
		UnusedFile:        paths.Display(res.UnusedFile, projectRoot),
		MisconfiguredFile: paths.Display(res.MisconfiguredFile, projectRoot),
		DurationMs:        res.Duration.Milliseconds(),
	}
}

// recordRun stores the variant's outcome; the stored report combines both
// report files so a change in either is detected.
func recordRun(store *history.Store, in analysis.Inputs, res *analysis.Result) (string, error) {
	combined, err := report.Encode(map[string]interface{}{
		"unused":        res.Unused,
		"misconfigured": res.Misconfigured,
	})
	if err != nil {
		return "", err
	}
	run := history.NewRun(in.Variant, history.Fingerprint(in.FingerprintItems()), combined,
		len(res.Unused.Remove), len(res.Unused.Add), len(res.Misconfigured))
	if err := store.Record(run); err != nil {
		return "", err
	}
	return run.ID, nil
}
