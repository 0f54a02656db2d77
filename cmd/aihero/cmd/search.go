package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnefuIII/aihero/internal/config"
	"github.com/AnefuIII/aihero/internal/embed"
	"github.com/AnefuIII/aihero/internal/output"
	"github.com/AnefuIII/aihero/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		limit         int
		keywordOnly   bool
		asJSON        bool
		keywordWeight float64
		vectorWeight  float64
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the documentation index",
		Long: `Search runs a hybrid query against the built index. Keyword and
vector scores are normalized per query and fused with the configured
weights; each result reports which index found it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), searchFlags{
				limit:         limit,
				keywordOnly:   keywordOnly,
				asJSON:        asJSON,
				keywordWeight: keywordWeight,
				vectorWeight:  vectorWeight,
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum results (default from config)")
	cmd.Flags().BoolVar(&keywordOnly, "keyword-only", false, "Skip vector search")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit results as JSON")
	cmd.Flags().Float64Var(&keywordWeight, "keyword-weight", 0, "Override the keyword fusion weight")
	cmd.Flags().Float64Var(&vectorWeight, "vector-weight", 0, "Override the vector fusion weight")

	return cmd
}

type searchFlags struct {
	limit         int
	keywordOnly   bool
	asJSON        bool
	keywordWeight float64
	vectorWeight  float64
}

func runSearch(cmd *cobra.Command, query string, flags searchFlags) error {
	ctx := cmd.Context()
	root := projectRoot()

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	embedder, err := embed.NewEmbedder(ctx, cfg.Embeddings, nil)
	if err != nil {
		return err
	}
	defer embedder.Close()

	engine, err := loadEngine(cmd, cfg, embedder)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := search.SearchOptions{
		Limit:       flags.limit,
		KeywordOnly: flags.keywordOnly,
	}
	if flags.keywordWeight > 0 || flags.vectorWeight > 0 {
		opts.Weights = &search.Weights{
			Keyword: flags.keywordWeight,
			Vector:  flags.vectorWeight,
		}
	}

	start := time.Now()
	results, err := engine.Search(ctx, query, opts)
	if err != nil {
		return err
	}

	renderOpts := []output.Option{}
	if flags.asJSON {
		renderOpts = append(renderOpts, output.WithJSON())
	}
	r := output.NewRenderer(cmd.OutOrStdout(), renderOpts...)
	return r.SearchResults(query, results, time.Since(start))
}
