package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"mdining/internal/export"
	"mdining/internal/filter"
	"mdining/internal/service"
	"mdining/internal/status"

	"github.com/spf13/cobra"
)

var (
	dateFlag string
	atFlag   string
	mealFlag string
	outFlag  string

	searchFlag    string
	dietFlag      []string
	minRatingFlag float64
	minMScaleFlag int
)

var statusCmd = &cobra.Command{
	Use:   "status <slug>",
	Short: "Show whether a venue is open",
	Example: `  mdining status south-quad
  mdining status south-quad --date 2026-02-10 --at 07:45`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, done, err := openService(cmd)
		if err != nil {
			return err
		}
		defer done()

		now, err := clockAt(dateFlag, atFlag, cfg.Location(), time.Now())
		if err != nil {
			return err
		}
		detail, err := svc.Venue(cmd.Context(), args[0], dateFlag, now)
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), detail)
		return nil
	},
}

var menuCmd = &cobra.Command{
	Use:   "menu <slug>",
	Short: "List a venue's menu with filters",
	Example: `  mdining menu south-quad --meal dinner --diet vegan --min-mscale 3
  mdining menu bursley --search pizza`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, done, err := openService(cmd)
		if err != nil {
			return err
		}
		defer done()

		st := filter.DefaultState()
		st.Search = searchFlag
		st.Dietary = dietFlag
		st.MinRating = minRatingFlag
		if cmd.Flags().Changed("min-mscale") {
			st.MinMScale = minMScaleFlag
		}

		res, err := svc.Menu(cmd.Context(), args[0], dateFlag, mealFlag, st, time.Now())
		if err != nil {
			return err
		}
		printMenu(cmd.OutOrStdout(), res)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <slug>",
	Short: "Write a venue's hours and menu to an .xlsx file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, done, err := openService(cmd)
		if err != nil {
			return err
		}
		defer done()

		detail, err := svc.Venue(cmd.Context(), args[0], dateFlag, time.Now())
		if err != nil {
			return err
		}
		out := outFlag
		if out == "" {
			out = detail.Venue.Slug + "-" + detail.Date + ".xlsx"
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		if err := export.WriteVenueMenu(f, detail, mealFlag); err != nil {
			_ = f.Close()
			_ = os.Remove(out)
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info().Str("venue", detail.Venue.Slug).Str("date", detail.Date).Str("path", out).Msg("menu exported")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, menuCmd, exportCmd} {
		c.Flags().StringVar(&dateFlag, "date", "", "date as YYYY-MM-DD (default today)")
	}
	statusCmd.Flags().StringVar(&atFlag, "at", "", "resolve as of this wall-clock time, HH:MM")

	for _, c := range []*cobra.Command{menuCmd, exportCmd} {
		c.Flags().StringVar(&mealFlag, "meal", "", "only this meal (default all meals)")
	}
	menuCmd.Flags().StringVar(&searchFlag, "search", "", "item name contains")
	menuCmd.Flags().StringSliceVar(&dietFlag, "diet", nil, "required dietary tags, e.g. vegan,halal")
	menuCmd.Flags().Float64Var(&minRatingFlag, "min-rating", 0, "minimum average rating")
	menuCmd.Flags().IntVar(&minMScaleFlag, "min-mscale", 1, "minimum M-Scale score")

	exportCmd.Flags().StringVarP(&outFlag, "out", "o", "", "output file (default <slug>-<date>.xlsx)")
}

// openService opens storage, syncs the venue catalog and returns a service
// without a capacity feed.
func openService(cmd *cobra.Command) (*service.DiningService, func(), error) {
	st, err := openStorage(cmd.Context())
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	if err := st.syncVenues(cmd.Context()); err != nil {
		_ = st.close()
		return nil, nil, err
	}
	svc := service.NewDiningService(st.store, status.NewResolver(cfg.Location()), nil, &logger)
	return svc, func() { _ = st.close() }, nil
}

// clockAt returns the instant at wall-clock time at on date (today when
// empty) in loc. An empty at returns now.
func clockAt(date, at string, loc *time.Location, now time.Time) (time.Time, error) {
	if at == "" {
		return now, nil
	}
	if date == "" {
		date = status.Today(now, loc)
	}
	t, err := time.ParseInLocation(status.DateLayout+" 15:04", date+" "+at, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date/--at %q %q: expected YYYY-MM-DD and HH:MM", date, at)
	}
	return t, nil
}

func printStatus(w io.Writer, d *service.VenueDetail) {
	fmt.Fprintf(w, "%s  %s\n", d.Venue.Name, d.Date)
	fmt.Fprintf(w, "%s: %s\n", d.Status.Label, d.Status.Details)
	if len(d.Hours) == 0 {
		fmt.Fprintln(w, "No hours listed")
		return
	}
	for _, h := range d.Hours {
		fmt.Fprintf(w, "  %-12s %s - %s\n", h.EventName, status.FormatTime(h.StartTime), status.FormatTime(h.EndTime))
	}
}

func printMenu(w io.Writer, res *service.MenuResult) {
	meal := res.Meal
	if meal == "" {
		meal = "All meals"
	}
	fmt.Fprintf(w, "%s at %s on %s: %d of %d items", meal, res.Venue, res.Date, len(res.Items), res.Total)
	if res.ActiveFilters > 0 {
		fmt.Fprintf(w, " (%d filters)", res.ActiveFilters)
	}
	fmt.Fprintln(w)

	for _, g := range res.Stations {
		fmt.Fprintf(w, "\n%s\n", g.Station)
		for i := range g.Items {
			item := &g.Items[i]
			line := "  " + item.Name
			if tags := filter.DeriveDynamicTags(item).Sorted(); len(tags) > 0 {
				line += "  [" + strings.Join(tags, ", ") + "]"
			}
			fmt.Fprintln(w, line)
		}
	}
}
