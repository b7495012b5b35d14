package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haruki/slidegen/internal/config"
	"github.com/haruki/slidegen/internal/control"
	"github.com/haruki/slidegen/internal/db"
	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/observability"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/quality"
	"github.com/haruki/slidegen/internal/refine"
	"github.com/haruki/slidegen/internal/render"
	"github.com/haruki/slidegen/internal/stages"
	"github.com/haruki/slidegen/internal/store"
)

// errDegradedRun signals that the run finished but substituted fallback
// content somewhere. main maps it to exit code 2 after deferred cleanup
// (LLM client, connection pool) has run.
var errDegradedRun = errors.New("deck produced with degraded fallbacks")

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate a complete presentation for a topic",
	Long: `Runs the full generation pipeline: research -> outline -> template selection -> drafting -> image lookup -> assembly, followed by quality evaluation and refinement of flagged slides.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.

Exit codes: 0 on full success, 2 when the deck was produced through degraded fallbacks, 1 on hard failure.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

var (
	genConfigPath   string
	genSlides       int
	genStyle        string
	genDepth        string
	genDensity      string
	genQuality      bool
	genThreshold    float64
	genFocusMetrics string
	genMaxRefine    int
	genOrchestrator bool
	genTimeout      time.Duration
	genOutputDir    string
	genStoreFile    string
	genOffline      bool
	genUseBrowser   bool
	genAPIKey       string
	genDatabaseURL  string
	genVerbose      bool
)

func init() {
	generateCmd.Flags().StringVar(&genConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	generateCmd.Flags().IntVarP(&genSlides, "slides", "s", 0, "Number of slides to generate")
	generateCmd.Flags().StringVar(&genStyle, "style", "", "Preferred template name (modern, classic, dark, minimal, academic)")
	generateCmd.Flags().StringVar(&genDepth, "depth", "", "Research depth: low, medium, or high")
	generateCmd.Flags().StringVar(&genDensity, "density", "", "Slide text density: minimal, balanced, or detailed")
	generateCmd.Flags().BoolVar(&genQuality, "quality-check", true, "Evaluate the deck and refine flagged slides")
	generateCmd.Flags().Float64Var(&genThreshold, "quality-threshold", 0, "Per-slide score threshold (0-100)")
	generateCmd.Flags().StringVar(&genFocusMetrics, "focus-metrics", "", "Comma-separated metrics to evaluate (default: all)")
	generateCmd.Flags().IntVar(&genMaxRefine, "max-refine-iterations", 0, "Maximum refinement attempts per slide")
	generateCmd.Flags().BoolVar(&genOrchestrator, "orchestrator", true, "Analyze the topic first and tune run parameters")
	generateCmd.Flags().DurationVar(&genTimeout, "timeout", 0, "Overall run timeout (0 = no limit)")
	generateCmd.Flags().StringVarP(&genOutputDir, "output", "o", "", "Output directory for deck.json and deck.html")
	generateCmd.Flags().StringVar(&genStoreFile, "store-file", "", "Persist the run's shared store to this file")
	generateCmd.Flags().BoolVar(&genOffline, "offline", false, "Run without any external services (synthesized content)")
	generateCmd.Flags().BoolVar(&genUseBrowser, "use-browser", false, "Use headless browser for JavaScript-heavy sources (requires Chrome)")
	generateCmd.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	generateCmd.Flags().StringVar(&genAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for artifact persistence
	generateCmd.Flags().StringVar(&genDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(generateCmd)
}

// loadGenerateConfig merges config file, CLI overrides, env vars, and
// defaults into one validated Config.
func loadGenerateConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if genConfigPath != "" {
		loaded, err := config.LoadConfig(genConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loaded
		if genVerbose {
			fmt.Printf("Loaded config from: %s\n", genConfigPath)
		}
	}

	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("slides") {
		cfg.SlideCount = genSlides
	}
	if cmd.Flags().Changed("style") {
		cfg.Style = genStyle
	}
	if cmd.Flags().Changed("depth") {
		cfg.Depth = genDepth
	}
	if cmd.Flags().Changed("density") {
		cfg.Density = genDensity
	}
	if cmd.Flags().Changed("quality-threshold") {
		cfg.Threshold = genThreshold
	}
	if cmd.Flags().Changed("max-refine-iterations") {
		cfg.MaxRefine = genMaxRefine
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = genOutputDir
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = genAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = genDatabaseURL
	}
	if cmd.Flags().Changed("offline") {
		cfg.Offline = genOffline
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = genUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = genVerbose
	}

	cfg = cfg.MergeWithDefaults(config.Config{
		SlideCount: 5,
		Depth:      string(deck.DepthMedium),
		Density:    string(deck.DensityBalanced),
		Threshold:  quality.DefaultThreshold,
		MaxRefine:  refine.DefaultMaxIterations,
		OutputDir:  "out",
	})
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.SearchAPIKey == "" {
		cfg.SearchAPIKey = os.Getenv("SEARCH_API_KEY")
	}
	if cfg.SearchCX == "" {
		cfg.SearchCX = os.Getenv("SEARCH_CX")
	}
	if cfg.ImageCX == "" {
		cfg.ImageCX = os.Getenv("IMAGE_SEARCH_CX")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if cfg.APIKey == "" && !cfg.Offline {
		return cfg, fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required (or pass --offline)")
	}
	return cfg, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	topic := args[0]

	cfg, err := loadGenerateConfig(cmd)
	if err != nil {
		return err
	}

	focus, err := parseFocusMetrics(genFocusMetrics)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	params := control.RunParams{
		Request: deck.Request{
			Topic:      topic,
			SlideCount: cfg.SlideCount,
			Style:      cfg.Style,
			Depth:      deck.Depth(cfg.Depth),
			Density:    deck.Density(cfg.Density),
		},
		QualityCheck: genQuality,
		Quality: quality.Config{
			Threshold:    cfg.Threshold,
			Density:      deck.Density(cfg.Density),
			FocusMetrics: focus,
		},
		Refine:  refine.Options{MaxIterations: cfg.MaxRefine},
		Timeout: genTimeout,
		Offline: cfg.Offline,
		Verbose: cfg.Verbose,
	}

	fmt.Printf("Generating %d slides on %q\n", cfg.SlideCount, topic)
	report, st, err := runStrategy(ctx, rt, params, genOrchestrator, printProgress)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintStageResults(report.StageResults)
	printer.PrintOutline(report.Deck)
	if report.Quality != nil {
		printer.PrintQualityReport(report.Quality)
	}
	printer.PrintFallbackState(report.Tier, report.Transitions)

	if err := writeDeckOutputs(cfg.OutputDir, report.Deck); err != nil {
		return err
	}

	if genStoreFile != "" {
		if err := st.Persist(genStoreFile); err != nil {
			return fmt.Errorf("failed to persist store: %w", err)
		}
		fmt.Printf("Store: %s\n", genStoreFile)
	}

	if rt.database != nil {
		persistGeneration(ctx, rt.database, topic, cfg.SlideCount, genOrchestrator, st, report)
	}

	if report.Degraded() {
		fmt.Printf("Deck produced with degraded fallbacks (final tier: %s)\n", report.TierName)
		return errDegradedRun
	}
	return nil
}

// printProgress renders pipeline progress events as step banners.
func printProgress(ev pipeline.ProgressEvent) {
	switch ev.Status {
	case "start":
		fmt.Printf("==> %s\n", ev.Stage)
	case "degraded":
		fmt.Printf("    %s degraded: %s\n", ev.Stage, ev.Message)
	case "failed":
		fmt.Printf("    %s failed: %s\n", ev.Stage, ev.Message)
	}
}

// parseFocusMetrics parses a comma-separated metric list.
func parseFocusMetrics(raw string) ([]quality.Metric, error) {
	if raw == "" {
		return nil, nil
	}
	known := make(map[quality.Metric]bool, len(quality.AllMetrics))
	for _, m := range quality.AllMetrics {
		known[m] = true
	}

	var metrics []quality.Metric
	for _, part := range strings.Split(raw, ",") {
		m := quality.Metric(strings.TrimSpace(part))
		if m == "" {
			continue
		}
		if !known[m] {
			return nil, fmt.Errorf("unknown metric %q (known: %s)", m, metricNames())
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

func metricNames() string {
	names := make([]string, len(quality.AllMetrics))
	for i, m := range quality.AllMetrics {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// writeDeckOutputs writes deck.json and deck.html into the output directory.
func writeDeckOutputs(dir string, d *deck.Deck) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	deckJSON, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal deck: %w", err)
	}
	jsonPath := filepath.Join(dir, "deck.json")
	if err := os.WriteFile(jsonPath, deckJSON, 0o644); err != nil {
		return fmt.Errorf("failed to write deck JSON: %w", err)
	}

	htmlPath := filepath.Join(dir, "deck.html")
	if err := render.ToFile(d, htmlPath); err != nil {
		return fmt.Errorf("failed to render deck HTML: %w", err)
	}

	fmt.Printf("Deck: %s\n", jsonPath)
	fmt.Printf("HTML: %s\n", htmlPath)
	return nil
}

// persistGeneration records the run and its artifacts. Failures are warnings;
// the deck already exists on disk.
func persistGeneration(ctx context.Context, database *db.DB, topic string, slideCount int, orchestrated bool, st *store.Store, report *control.RunReport) {
	strategy := "monitored"
	if orchestrated {
		strategy = "orchestrated"
	}

	runID, err := database.CreateRun(ctx, topic, slideCount, strategy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record run: %v\n", err)
		return
	}

	steps := map[string]string{
		stages.KeyResearch:     db.StepResearch,
		stages.KeyOutline:      db.StepOutline,
		stages.KeyTheme:        db.StepTheme,
		stages.KeyDraft:        db.StepDraft,
		stages.KeyImages:       db.StepImages,
		stages.KeyAssembled:    db.StepAssembled,
		control.RefinedDeckKey: db.StepRefined,
	}
	for key, step := range steps {
		raw, _, err := st.GetRaw(key)
		if err != nil {
			continue // stage never ran or produced nothing
		}
		if err := database.SaveArtifact(ctx, runID, step, raw); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save %s artifact: %v\n", step, err)
		}
	}

	if report.Quality != nil {
		if err := database.SaveArtifact(ctx, runID, db.StepQualityReport, report.Quality); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save quality report: %v\n", err)
		}
	}
	if html, err := render.HTML(report.Deck); err == nil {
		if err := database.SaveTextArtifact(ctx, runID, db.StepDeckHTML, html); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save deck HTML: %v\n", err)
		}
	}

	status := db.RunStatusCompleted
	if report.Degraded() {
		status = db.RunStatusDegraded
	}
	if err := database.CompleteRun(ctx, runID, status, report.TierName); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to complete run record: %v\n", err)
	}
	fmt.Printf("Run recorded: %s\n", runID)
}
