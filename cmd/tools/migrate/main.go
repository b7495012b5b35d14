// Command migrate creates the slidegen database schema: generation runs,
// their artifacts, and the research page cache.
//
// Usage:
//
//	go run cmd/tools/migrate/main.go
//
// Requires DATABASE_URL environment variable to be set. Statements are
// idempotent, so re-running against an existing schema is safe.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

var statements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS generation_runs (
		id           UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		topic        TEXT NOT NULL,
		slide_count  INTEGER NOT NULL,
		strategy     TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'running',
		final_tier   TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS artifacts (
		id         UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		run_id     UUID NOT NULL REFERENCES generation_runs(id) ON DELETE CASCADE,
		step       TEXT NOT NULL,
		content    JSONB,
		text_content TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (run_id, step)
	)`,

	`CREATE TABLE IF NOT EXISTS crawled_pages (
		id                   UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		url                  TEXT NOT NULL UNIQUE,
		source_type          TEXT,
		raw_html             TEXT,
		parsed_text          TEXT,
		content_hash         TEXT,
		http_status          INTEGER,
		fetch_status         TEXT NOT NULL DEFAULT 'success',
		error_message        TEXT,
		is_permanent_failure BOOLEAN NOT NULL DEFAULT FALSE,
		retry_count          INTEGER NOT NULL DEFAULT 0,
		retry_after          TIMESTAMPTZ,
		fetched_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at           TIMESTAMPTZ,
		last_accessed_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_generation_runs_created_at ON generation_runs (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_artifacts_run_id ON artifacts (run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_crawled_pages_url ON crawled_pages (url)`,
}

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "ERROR: DATABASE_URL environment variable not set")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	fmt.Println("=== Slidegen Schema Migration ===")
	fmt.Println()

	for i, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Statement %d failed: %v\n", i+1, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Applied %d statements.\n", len(statements))
	fmt.Println("Schema is up to date.")
}
