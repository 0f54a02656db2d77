package cmd

import (
	"github.com/spf13/cobra"

	"github.com/AnefuIII/aihero/internal/config"
	"github.com/AnefuIII/aihero/internal/embed"
	"github.com/AnefuIII/aihero/internal/ingest"
	"github.com/AnefuIII/aihero/internal/output"
	"github.com/AnefuIII/aihero/internal/search"
)

func newIndexCmd() *cobra.Command {
	var offline bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the documentation index",
		Long: `Index loads every document under the configured docs root, chunks
it with the sliding window, embeds the chunks, and writes the keyword
and vector indexes. The previous index keeps serving until the new
build is installed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, offline, asJSON)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use the hash-based static embedder (skip Ollama)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the build summary as JSON")
	// --force is accepted for compatibility with the dimension-mismatch
	// suggestion; a build is always a full rebuild.
	cmd.Flags().Bool("force", false, "Rebuild even if an index exists")

	return cmd
}

func runIndex(cmd *cobra.Command, offline, asJSON bool) error {
	ctx := cmd.Context()
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

	builder, err := ingest.NewBuilder(root, cfg, embedder, nil)
	if err != nil {
		return err
	}

	result, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	defer result.Snapshot.Close()

	opts := []output.Option{}
	if asJSON {
		opts = append(opts, output.WithJSON())
	}
	r := output.NewRenderer(cmd.OutOrStdout(), opts...)
	return r.BuildSummary(result.Documents, result.Chunks, result.Snapshot.Model, humanDuration(result.Elapsed))
}

// loadEngine opens the persisted index and returns a ready engine.
func loadEngine(cmd *cobra.Command, cfg *config.Config, embedder embed.Embedder) (*search.Engine, error) {
	snap, err := ingest.LoadSnapshot(cmd.Context(), projectRoot(), embedder, nil)
	if err != nil {
		return nil, err
	}

	engine, err := search.NewEngine(embedder, engineConfig(cfg), nil)
	if err != nil {
		snap.Close()
		return nil, err
	}
	engine.Swap(snap)
	return engine, nil
}
