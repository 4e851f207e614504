// Package commands implements the planogram CLI.
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/suncare-ops/pog-engine/cmd/pog-cli/ui"
	"github.com/suncare-ops/pog-engine/internal/config"
	"github.com/suncare-ops/pog-engine/internal/observability"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "pog-cli",
	Short: "Planogram product lookup and shelf layout from the terminal",
	Long: `pog-cli looks products up by UPC or name against a store's planogram,
renders shelf layouts, searches the printed planogram PDFs, and imports
the generated data files into the planogram store.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		ui.Init(noColor)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.Observability.LogLevel
	if !verbose {
		level = "error"
	}
	return observability.New(observability.Config{
		Level:   level,
		Format:  "console",
		Service: "pog-cli",
	})
}
