package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var Translate = &cobra.Command{
	Use:     "translate [text]",
	Short:   "Translate a text through the cache, calling the provider only on a miss",
	Example: `transcache translate --from en --to fr "Hello"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runTranslate,
}

func init() {
	Translate.Flags().StringP("from", "f", "", "source language code")
	Translate.Flags().StringP("to", "t", "", "target language code")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	source, _ := cmd.Flags().GetString("from")
	target, _ := cmd.Flags().GetString("to")

	d, err := openService(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	translated, err := d.service.Translate(ctx, strings.Join(args, " "), source, target)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), translated)
	return nil
}
