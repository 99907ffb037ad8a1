package cmd

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var Migrate = &cobra.Command{
	Use:   "migrate",
	Short: "Create the requests table and optionally provision language tables",
	Long: `Creates translation_requests if it does not exist. Language tables are
normally created on first use; --lang creates them ahead of time.`,
	Example: "transcache migrate --lang fr,de,pt-BR",
	Args:    cobra.NoArgs,
	RunE:    runMigrate,
}

func init() {
	Migrate.Flags().StringSlice("lang", nil, "language codes whose tables should be created")
	Migrate.Flags().Int("workers", runtime.NumCPU(), "Number of worker goroutines")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	langs, _ := cmd.Flags().GetStringSlice("lang")
	workers, _ := cmd.Flags().GetInt("workers")

	d, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for _, lang := range langs {
		g.Go(func() error {
			table, err := d.registry.Ensure(ctx, lang)
			if err != nil {
				return fmt.Errorf("provision %q: %w", lang, err)
			}
			slog.Info("language table ready", "lang", table.Lang, "table", table.Name)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%d language tables provisioned)\n", len(langs))
	return nil
}
