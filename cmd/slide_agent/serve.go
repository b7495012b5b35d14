package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haruki/slidegen/internal/config"
	"github.com/haruki/slidegen/internal/control"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Start an HTTP server that exposes generation runs over REST, with SSE progress streaming and bearer-token auth. The API token is printed at startup.",
	RunE:  runServe,
}

var (
	servePort         int
	serveOrchestrator bool
	serveOffline      bool
	serveVerbose      bool
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveOrchestrator, "orchestrator", true, "Analyze each topic first and tune run parameters")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "Serve synthesized decks without external services")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg := config.Config{
		APIKey:       os.Getenv("GEMINI_API_KEY"),
		SearchAPIKey: os.Getenv("SEARCH_API_KEY"),
		SearchCX:     os.Getenv("SEARCH_CX"),
		ImageCX:      os.Getenv("IMAGE_SEARCH_CX"),
		Offline:      serveOffline,
		Verbose:      serveVerbose,
	}
	if cfg.APIKey == "" && !cfg.Offline {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required (or pass --offline)")
	}

	// The server owns its own database handle for run history; the runtime
	// here only backs generation itself.
	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	strategy := "monitored"
	if serveOrchestrator {
		strategy = "orchestrated"
	}

	generator := func(ctx context.Context, params control.RunParams, onProgress pipeline.ProgressCallback) (*control.RunReport, error) {
		if cfg.Offline {
			params.Offline = true
		}
		report, _, err := runStrategy(ctx, rt, params, serveOrchestrator, onProgress)
		return report, err
	}

	srv, err := server.New(server.Config{
		Port:        servePort,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Strategy:    strategy,
		Verbose:     serveVerbose,
	}, generator)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
