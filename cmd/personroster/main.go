package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/personroster/internal/config"
	"github.com/ajitpratap0/personroster/internal/dedupe"
	"github.com/ajitpratap0/personroster/internal/rules"
	"github.com/ajitpratap0/personroster/internal/store"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "personroster",
		Short: "personroster — person roster maintenance for a scanned-document corpus",
		Long:  "Personroster maintains the person entities extracted from a document corpus: it finds junk and duplicate entries, proposes a reviewable cleanup plan, and executes it with full cascades.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		dryRunCmd(),
		applyCmd(),
		executePlanCmd(),
		listCmd(),
		statsCmd(),
		importCmd(),
		exportCmd(),
		healthCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return store.OpenSQLite(cfg.Store.Path, logger)
	case "neo4j":
		return store.NewNeo4jStore(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, logger)
	case "memory":
		return store.NewMockStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func newEngine(st store.Store, logger *slog.Logger) (*dedupe.Engine, error) {
	rs, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	return dedupe.New(st, rs, logger), nil
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
