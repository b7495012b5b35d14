package main

import (
	"context"
	"fmt"
	"os"

	"github.com/haruki/slidegen/internal/config"
	"github.com/haruki/slidegen/internal/control"
	"github.com/haruki/slidegen/internal/db"
	"github.com/haruki/slidegen/internal/fetch"
	"github.com/haruki/slidegen/internal/images"
	"github.com/haruki/slidegen/internal/llm"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/refine"
	"github.com/haruki/slidegen/internal/research"
	"github.com/haruki/slidegen/internal/stages"
	"github.com/haruki/slidegen/internal/store"
)

// runtime holds the external collaborators a generation run needs. Every
// field may be nil; the stages degrade to synthesized output without them.
type runtime struct {
	client   llm.Client
	engine   *research.Engine
	resolver *images.Resolver
	database *db.DB
}

// Close releases the runtime's connections.
func (rt *runtime) Close() {
	if rt.client != nil {
		_ = rt.client.Close()
	}
	if rt.database != nil {
		rt.database.Close()
	}
}

// buildRuntime wires the LLM client, search-backed research engine, image
// resolver, and database from the merged configuration. Offline mode skips
// everything but the database.
func buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{}

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: database unavailable, persistence disabled: %v\n", err)
		} else {
			rt.database = database
		}
	}

	if cfg.Offline {
		return rt, nil
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	rt.client = client

	if cfg.SearchAPIKey != "" && cfg.SearchCX != "" {
		searcher, err := research.NewGoogleSearcher(ctx, cfg.SearchAPIKey, cfg.SearchCX)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: search unavailable, research will be synthesized: %v\n", err)
		} else {
			fetcher := fetch.NewCachedFetcher(rt.database, nil)
			rt.engine = research.NewEngine(searcher, fetcher, client, research.Options{
				BrowserFallback: cfg.UseBrowser,
				Verbose:         cfg.Verbose,
			})
		}
	}

	imageCX := cfg.ImageCX
	if imageCX == "" {
		imageCX = cfg.SearchCX
	}
	if cfg.SearchAPIKey != "" && imageCX != "" {
		imgSearcher, err := images.NewGoogleImageSearcher(ctx, cfg.SearchAPIKey, imageCX)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: image search unavailable, placeholders will be used: %v\n", err)
		} else {
			rt.resolver = images.NewResolver(imgSearcher, cfg.Verbose)
		}
	}

	return rt, nil
}

// buildStages assembles the six-stage generation graph. The draft stage
// doubles as the refinement producer.
func buildStages(rt *runtime, verbose bool) ([]pipeline.Stage, refine.Producer) {
	// A nil *research.Engine must stay a nil interface, or the research
	// stage's offline guard never fires.
	var researcher stages.Researcher
	if rt.engine != nil {
		researcher = rt.engine
	}
	draft := stages.NewDraftStage(rt.client, verbose)
	return []pipeline.Stage{
		stages.NewResearchStage(researcher),
		stages.NewOutlineStage(rt.client),
		stages.NewTemplateStage(verbose),
		draft,
		stages.NewImageStage(rt.resolver, verbose),
		stages.NewAssembleStage(),
	}, draft
}

// newCoordinator builds a fresh store and coordinator for one run.
func newCoordinator(rt *runtime, verbose bool, onProgress pipeline.ProgressCallback) (*control.Coordinator, *store.Store) {
	st := store.New()
	stgs, producer := buildStages(rt, verbose)
	return control.NewCoordinator(st, stgs, producer, onProgress), st
}

// runStrategy executes the run at the requested control tier.
func runStrategy(ctx context.Context, rt *runtime, params control.RunParams, orchestrated bool, onProgress pipeline.ProgressCallback) (*control.RunReport, *store.Store, error) {
	coordinator, st := newCoordinator(rt, params.Verbose, onProgress)

	if orchestrated {
		analyzer := control.NewLLMAnalyzer(rt.client)
		report, err := control.NewOrchestrated(analyzer, coordinator, params.Verbose).Run(ctx, params)
		return report, st, err
	}
	report, err := control.NewMonitored(coordinator).Run(ctx, params)
	return report, st, err
}
