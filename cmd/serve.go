package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nguyenvanduocit/transcache/pkg/api"
)

var Serve = &cobra.Command{
	Use:     "serve",
	Short:   "serve the translation API over HTTP",
	Example: "transcache serve --port 8000",
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	Serve.Flags().StringP("port", "p", "", "port to serve the API on (default 8000)")
	Serve.Flags().String("host", "", "host to bind (default 127.0.0.1)")
	viper.BindPFlag("server.port", Serve.Flags().Lookup("port"))
	viper.BindPFlag("server.host", Serve.Flags().Lookup("host"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	d, err := openService(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	app := api.New(d.service, d.registry, slog.Default())

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			slog.Info("interrupt received, initiating graceful shutdown")
		case <-ctx.Done():
		}

		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	addr := d.cfg.Server.Addr()
	slog.Info(fmt.Sprintf("- POST http://%s/translate", addr))
	slog.Info(fmt.Sprintf("- GET  http://%s/health", addr))
	slog.Info(fmt.Sprintf("- GET  http://%s/languages", addr))

	return app.Listen(addr)
}
