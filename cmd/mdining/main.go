package main

import (
	"fmt"
	"os"
	"time"

	"mdining/internal/config"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mdining",
	Short: "Dining hall status, menus and crowd levels",
	Long: `mdining tells whether each campus dining hall is open, what it serves
and how busy it is.

Run "mdining serve" to start the JSON API, or query a single venue
from the command line with "mdining status" and "mdining menu".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(output).Level(level).With().Timestamp().Logger()

		path := cfgPath
		if path == "" {
			path = os.Getenv("MDINING_CONFIG_PATH")
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default $MDINING_CONFIG_PATH or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, statusCmd, menuCmd, exportCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
