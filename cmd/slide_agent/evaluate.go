package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/observability"
	"github.com/haruki/slidegen/internal/quality"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <deck.json>",
	Short: "Score an existing deck against the quality metrics",
	Long:  "Evaluates every slide of a deck JSON file across the quality metrics and prints the report. Returns an error when the deck's classification is fail.",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvaluate,
}

var (
	evalThreshold    float64
	evalDensity      string
	evalFocusMetrics string
	evalJSON         bool
)

func init() {
	evaluateCmd.Flags().Float64Var(&evalThreshold, "quality-threshold", quality.DefaultThreshold, "Per-slide score threshold (0-100)")
	evaluateCmd.Flags().StringVar(&evalDensity, "density", "", "Density to judge text volume against (defaults to the deck's own)")
	evaluateCmd.Flags().StringVar(&evalFocusMetrics, "focus-metrics", "", "Comma-separated metrics to evaluate (default: all)")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "Emit the report as JSON instead of the boxed summary")

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read deck file: %w", err)
	}
	var d deck.Deck
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("deck file is not valid JSON: %w", err)
	}
	if len(d.Slides) == 0 {
		return fmt.Errorf("deck has no slides")
	}

	focus, err := parseFocusMetrics(evalFocusMetrics)
	if err != nil {
		return err
	}

	density := d.Density
	if evalDensity != "" {
		density = deck.Density(evalDensity)
	}

	evaluator := quality.NewEvaluator(quality.Config{
		Threshold:    evalThreshold,
		Density:      density,
		FocusMetrics: focus,
	})
	report := evaluator.Evaluate(&d)

	if evalJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		fmt.Println(string(out))
	} else {
		observability.NewPrinter(os.Stdout).PrintQualityReport(report)
	}

	if report.Classification == quality.ClassFail {
		return fmt.Errorf("deck failed quality evaluation (aggregate %.1f, threshold %.1f)", report.Aggregate, evalThreshold)
	}
	return nil
}
