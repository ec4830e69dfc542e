package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/humandex/internal/config"
	"github.com/spf13/cobra"
)

// Version is reported by --version and in trace resources.
var Version = "0.1.0"

// rootOptions carries persistent flags and the loaded configuration to
// subcommands.
type rootOptions struct {
	configPath string
	verbose    bool
	config     *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "humandex",
		Short: "Creature encyclopedia for humans, powered by Gemini",
		Long: `Humandex photographs people and catalogs them as creatures.

Each capture is analyzed by Gemini into a species profile (types, base stats,
four moves and a field note), narrated through Gemini speech synthesis, and
saved in a local SQLite catalog.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.config = cfg

			setupLogging(cfg.Logging, opts.verbose)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("HUMANDEX_CONFIG"), "Path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newScanCmd(opts))
	cmd.AddCommand(newCatalogCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))

	return cmd
}

func setupLogging(cfg config.LoggingConfig, verbose bool) {
	level := parseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (o *rootOptions) mustConfig() (*config.Config, error) {
	if o.config == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return o.config, nil
}
