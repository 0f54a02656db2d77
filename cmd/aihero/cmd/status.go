package cmd

import (
	"github.com/spf13/cobra"

	aerrors "github.com/AnefuIII/aihero/internal/errors"
	"github.com/AnefuIII/aihero/internal/ingest"
	"github.com/AnefuIII/aihero/internal/output"
	"github.com/AnefuIII/aihero/internal/search"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index readiness and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit status as JSON")
	return cmd
}

func runStatus(cmd *cobra.Command, asJSON bool) error {
	opts := []output.Option{}
	if asJSON {
		opts = append(opts, output.WithJSON())
	}
	r := output.NewRenderer(cmd.OutOrStdout(), opts...)

	// Loading without an embedder skips the dimension check; status
	// reports whatever is on disk.
	snap, err := ingest.LoadSnapshot(cmd.Context(), projectRoot(), nil, nil)
	if err != nil {
		if aerrors.IsCode(err, aerrors.ErrCodeIndexNotBuilt) {
			return r.Status(&search.EngineStats{})
		}
		return err
	}
	defer snap.Close()

	return r.Status(&search.EngineStats{
		Ready:      true,
		ChunkCount: snap.ChunkCount(),
		Dimensions: snap.Dimensions,
		Model:      snap.Model,
		BuiltAt:    snap.BuiltAt,
	})
}
