package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var Languages = &cobra.Command{
	Use:   "languages",
	Short: "List the language tables and how many translations each holds",
	Args:  cobra.NoArgs,
	RunE:  runLanguages,
}

func runLanguages(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	d, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	tables, err := d.registry.List(ctx)
	if err != nil {
		return err
	}

	requests, err := d.store.CountRequests(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LANG\tTABLE\tTRANSLATIONS")
	for _, table := range tables {
		n, err := d.store.CountTranslations(ctx, table)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", table.Lang, table.Name, n)
	}
	fmt.Fprintf(w, "\t%d requests\t\n", requests)

	return w.Flush()
}
