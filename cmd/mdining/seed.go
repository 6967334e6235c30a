package main

import (
	"fmt"

	"mdining/internal/config"
	"mdining/internal/database"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>...",
	Short: "Import hours and menus from YAML fixtures into sqlite",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStorage(cmd.Context())
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer st.close()

		if st.sqlite == nil {
			return fmt.Errorf("seed requires database.driver %q or database.fallback_path", config.DriverSQLite)
		}
		if err := st.syncVenues(cmd.Context()); err != nil {
			return err
		}

		for _, path := range args {
			f, err := database.LoadFixture(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			stats, err := st.sqlite.ImportFixture(cmd.Context(), f)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			logger.Info().
				Str("path", path).
				Str("venue", f.Venue).
				Int("shifts", stats.Shifts).
				Int("items", stats.Items).
				Int("menu_events", stats.MenuEvents).
				Msg("fixture imported")
		}
		return nil
	},
}
