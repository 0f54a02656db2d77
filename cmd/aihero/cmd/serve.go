package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AnefuIII/aihero/internal/config"
	"github.com/AnefuIII/aihero/internal/embed"
	aerrors "github.com/AnefuIII/aihero/internal/errors"
	"github.com/AnefuIII/aihero/internal/ingest"
	"github.com/AnefuIII/aihero/internal/mcp"
	"github.com/AnefuIII/aihero/internal/search"
	"github.com/AnefuIII/aihero/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var watch bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index to AI clients over MCP (stdio)",
		Long: `Serve exposes search and index_status tools over the Model Context
Protocol. If no index exists one is built first. With --watch, changes
under the docs root trigger background rebuilds; queries keep hitting
the previous index until the new one is ready.

Stdout carries JSON-RPC exclusively; diagnostics go to the log file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), watch, offline)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", true, "Rebuild automatically when documents change")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the hash-based static embedder (skip Ollama)")

	return cmd
}

func runServe(ctx context.Context, watch, offline bool) error {
	root := projectRoot()

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if offline {
		cfg.Embeddings.Provider = "static"
	}

	embedder, err := embed.NewEmbedder(ctx, cfg.Embeddings, nil)
	if err != nil {
		return err
	}
	defer embedder.Close()

	engine, err := search.NewEngine(embedder, engineConfig(cfg), nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	builder, err := ingest.NewBuilder(root, cfg, embedder, nil)
	if err != nil {
		return err
	}

	// Serve an existing index when possible; build only when none exists
	// or it no longer matches the active embedder.
	snap, err := ingest.LoadSnapshot(ctx, root, embedder, nil)
	if err != nil {
		if !aerrors.IsCode(err, aerrors.ErrCodeIndexNotBuilt) && !aerrors.IsCode(err, aerrors.ErrCodeDimensions) {
			return err
		}
		slog.Info("index_missing_building", slog.String("reason", err.Error()))
		result, buildErr := builder.Build(ctx)
		if buildErr != nil {
			return buildErr
		}
		snap = result.Snapshot
	}
	engine.Swap(snap)

	if watch {
		stop, err := startRebuildWatcher(ctx, root, cfg, builder, engine)
		if err != nil {
			// Serving a static index still works; log and continue.
			slog.Warn("watcher_unavailable", slog.String("error", err.Error()))
		} else {
			defer stop()
		}
	}

	server, err := mcp.NewServer(engine, embedder, cfg, nil)
	if err != nil {
		return err
	}
	return server.Serve(ctx, cfg.Server.Transport)
}

// startRebuildWatcher rebuilds the index whenever the docs tree settles
// after a change, swapping the fresh snapshot into the live engine.
func startRebuildWatcher(ctx context.Context, root string, cfg *config.Config, builder *ingest.Builder, engine *search.Engine) (func(), error) {
	docsRoot := cfg.Docs.Root
	if docsRoot == "" {
		docsRoot = "docs"
	}
	w, err := watcher.New(joinRoot(root, docsRoot), cfg.Docs.Exclude, 0, nil)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-w.Triggers():
				if !ok {
					return
				}
				result, err := builder.Build(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					slog.Error("rebuild_failed", slog.String("error", err.Error()))
					continue
				}
				old := engine.Swap(result.Snapshot)
				if old != nil {
					_ = old.Close()
				}
				slog.Info("rebuild_complete", slog.Int("chunks", result.Chunks))
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				slog.Warn("watcher_error", slog.String("error", err.Error()))
			}
		}
	}()

	return func() { _ = w.Stop() }, nil
}
