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
	"github.com/haruki/slidegen/internal/research"
	"github.com/haruki/slidegen/internal/stages"
	"github.com/haruki/slidegen/internal/store"
)

var researchCmd = &cobra.Command{
	Use:   "research <topic>",
	Short: "Research a topic and emit the collected sources as JSON",
	Long:  "Plans search queries for the topic, fetches and ranks sources, and condenses them into a research result. Without search credentials (or with --offline) the result is synthesized from the topic alone.",
	Args:  cobra.ExactArgs(1),
	RunE:  runResearch,
}

var (
	resDepth      string
	resOutput     string
	resStoreFile  string
	resOffline    bool
	resUseBrowser bool
	resVerbose    bool
)

func init() {
	researchCmd.Flags().StringVar(&resDepth, "depth", string(deck.DepthMedium), "Research depth: low, medium, or high")
	researchCmd.Flags().StringVarP(&resOutput, "output", "o", "", "Write the research result JSON to this file (default: stdout)")
	researchCmd.Flags().StringVar(&resStoreFile, "store-file", "", "Persist the result into a store file for later pipeline steps")
	researchCmd.Flags().BoolVar(&resOffline, "offline", false, "Synthesize research without external services")
	researchCmd.Flags().BoolVar(&resUseBrowser, "use-browser", false, "Use headless browser for JavaScript-heavy sources (requires Chrome)")
	researchCmd.Flags().BoolVarP(&resVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	topic := args[0]

	depth := deck.Depth(resDepth)
	switch depth {
	case deck.DepthLow, deck.DepthMedium, deck.DepthHigh:
	default:
		return fmt.Errorf("invalid depth %q: must be low, medium, or high", resDepth)
	}

	cfg := config.Config{
		APIKey:       os.Getenv("GEMINI_API_KEY"),
		SearchAPIKey: os.Getenv("SEARCH_API_KEY"),
		SearchCX:     os.Getenv("SEARCH_CX"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		Offline:      resOffline || os.Getenv("GEMINI_API_KEY") == "",
		UseBrowser:   resUseBrowser,
		Verbose:      resVerbose,
	}

	var result *deck.ResearchResult
	if cfg.Offline {
		result = research.Synthesize(topic, depth)
	} else {
		rt, err := buildRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		if rt.engine == nil {
			result = research.Synthesize(topic, depth)
		} else {
			result, err = rt.engine.Research(ctx, topic, depth)
			if err != nil {
				return fmt.Errorf("research failed: %w", err)
			}
		}
	}

	printer := observability.NewPrinter(os.Stderr)
	printer.PrintResearch(result)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal research result: %w", err)
	}

	if resOutput != "" {
		if err := os.WriteFile(resOutput, out, 0o644); err != nil {
			return fmt.Errorf("failed to write research result: %w", err)
		}
		fmt.Printf("Research: %s\n", resOutput)
	} else {
		fmt.Println(string(out))
	}

	if resStoreFile != "" {
		st := store.New()
		if err := st.Set(stages.KeyResearch, result, stages.StageResearch); err != nil {
			return err
		}
		if err := st.Persist(resStoreFile); err != nil {
			return fmt.Errorf("failed to persist store: %w", err)
		}
		fmt.Printf("Store: %s\n", resStoreFile)
	}
	return nil
}
