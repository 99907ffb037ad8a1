package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nguyenvanduocit/transcache/pkg/config"
)

var cfgFile string

var Root = &cobra.Command{
	Use:   "transcache",
	Short: "Caching translation API in front of an LLM provider",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	SilenceUsage: true,
}

func init() {
	Root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./transcache.yaml if present)")
	Root.PersistentFlags().String("db-driver", "", "database driver: postgres or sqlite3")
	Root.PersistentFlags().String("provider", "", "translation provider: openai, anthropic or gemini")
	Root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")

	viper.BindPFlag("db.driver", Root.PersistentFlags().Lookup("db-driver"))
	viper.BindPFlag("provider.name", Root.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("log.level", Root.PersistentFlags().Lookup("log-level"))

	config.SetDefaults(viper.GetViper())

	Root.AddCommand(Serve)
	Root.AddCommand(Translate)
	Root.AddCommand(Migrate)
	Root.AddCommand(Languages)
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("transcache")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(viper.GetString("log.level"))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if viper.GetString("log.format") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	if used := viper.ConfigFileUsed(); used != "" {
		slog.Debug("using config file", "path", used)
	}
	return nil
}
