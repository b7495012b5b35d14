package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haruki/slidegen/internal/config"
	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/observability"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/stages"
	"github.com/haruki/slidegen/internal/store"
)

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Build a deck outline from an existing research result",
	Long:  "Reads a research result from a store file (see 'research --store-file') or a research JSON file, and produces a schema-valid deck outline.",
	RunE:  runOutline,
}

var (
	outResearchFile string
	outStoreFile    string
	outTopic        string
	outSlides       int
	outDensity      string
	outOutput       string
	outOffline      bool
	outVerbose      bool
)

func init() {
	outlineCmd.Flags().StringVar(&outResearchFile, "research", "", "Path to a research result JSON file")
	outlineCmd.Flags().StringVar(&outStoreFile, "store-file", "", "Store file holding a research result (updated in place with the outline)")
	outlineCmd.Flags().StringVar(&outTopic, "topic", "", "Deck topic (defaults to the research topic)")
	outlineCmd.Flags().IntVarP(&outSlides, "slides", "s", 5, "Number of slides to outline")
	outlineCmd.Flags().StringVar(&outDensity, "density", string(deck.DensityBalanced), "Slide text density: minimal, balanced, or detailed")
	outlineCmd.Flags().StringVarP(&outOutput, "output", "o", "", "Write the outline deck JSON to this file (default: stdout)")
	outlineCmd.Flags().BoolVar(&outOffline, "offline", false, "Build a skeleton outline without the generator")
	outlineCmd.Flags().BoolVarP(&outVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(outlineCmd)
}

func runOutline(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	if outResearchFile == "" && outStoreFile == "" {
		return fmt.Errorf("either --research or --store-file must be provided")
	}
	if outResearchFile != "" && outStoreFile != "" {
		return fmt.Errorf("--research and --store-file are mutually exclusive; provide only one")
	}

	var st *store.Store
	var result deck.ResearchResult
	if outStoreFile != "" {
		st = store.New()
		if err := st.Load(outStoreFile); err != nil {
			return fmt.Errorf("failed to load store: %w", err)
		}
		if err := st.Get(stages.KeyResearch, &result); err != nil {
			return fmt.Errorf("store has no research result: %w", err)
		}
	} else {
		data, err := os.ReadFile(outResearchFile)
		if err != nil {
			return fmt.Errorf("failed to read research file: %w", err)
		}
		if err := json.Unmarshal(data, &result); err != nil {
			return fmt.Errorf("research file is not valid JSON: %w", err)
		}
	}

	topic := outTopic
	if topic == "" {
		topic = result.Topic
	}
	if topic == "" {
		return fmt.Errorf("--topic is required when the research result has no topic")
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	offline := outOffline || apiKey == ""
	rt := &runtime{}
	if !offline {
		var err error
		rt, err = buildRuntime(ctx, config.Config{APIKey: apiKey, Verbose: outVerbose})
		if err != nil {
			return err
		}
		defer rt.Close()
	}

	raw, err := json.Marshal(&result)
	if err != nil {
		return fmt.Errorf("failed to marshal research result: %w", err)
	}

	stage := stages.NewOutlineStage(rt.client)
	output, err := stage.Run(ctx, pipeline.Inputs{stages.KeyResearch: raw}, pipeline.Options{
		Request: deck.Request{
			Topic:      topic,
			SlideCount: outSlides,
			Density:    deck.Density(outDensity),
		},
		Offline: offline,
		Verbose: outVerbose,
	})
	if err != nil {
		return fmt.Errorf("outline failed: %w", err)
	}
	outline, ok := output.Value.(*deck.Deck)
	if !ok {
		return fmt.Errorf("outline stage produced unexpected output type %T", output.Value)
	}
	if output.Degraded {
		fmt.Fprintf(os.Stderr, "Outline degraded: %s\n", output.Reason)
	}

	printer := observability.NewPrinter(os.Stderr)
	printer.PrintOutline(outline)

	out, err := json.MarshalIndent(outline, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal outline: %w", err)
	}
	if outOutput != "" {
		if err := os.WriteFile(outOutput, out, 0o644); err != nil {
			return fmt.Errorf("failed to write outline: %w", err)
		}
		fmt.Printf("Outline: %s\n", outOutput)
	} else {
		fmt.Println(string(out))
	}

	if st != nil {
		if err := st.Set(stages.KeyOutline, outline, stages.StageOutline); err != nil {
			return err
		}
		if err := st.Persist(outStoreFile); err != nil {
			return fmt.Errorf("failed to persist store: %w", err)
		}
		fmt.Printf("Store: %s\n", outStoreFile)
	}
	return nil
}
