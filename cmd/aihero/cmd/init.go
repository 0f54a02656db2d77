package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AnefuIII/aihero/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Init writes .aihero.yaml with the default configuration to the
current directory. Edit it to point at your docs root and tune
chunking or fusion weights.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	path := filepath.Join(cwd, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", config.ConfigFileName)
	}

	cfg := config.NewConfig()
	if err := cfg.Save(cwd); err != nil {
		return err
	}

	cmd.Printf("Wrote %s\n", path)
	cmd.Println("Next: put documents under ./docs and run 'aihero index'.")
	return nil
}
