package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mdining/internal/models"
	"mdining/internal/service"
	"mdining/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVenues = `
venues:
  - id: 1
    slug: south-quad
    name: South Quad
    type: DINING HALLS
    latitude: 42.2735
    longitude: -83.7421
`

const testFixture = `
venue: south-quad
hours:
  - date: "2026-02-09"
    start_time: "17:00"
    end_time: "20:00"
    event_name: Dinner
menus:
  - date: "2026-02-09"
    meal: Dinner
    items:
      - name: Tofu Stir Fry
        station: Wok
        dietary_tags: [Vegan]
        macronutrients:
          Calories: 300
          Protein: 30
        nutrition_score: 5
      - name: Garden Salad
        station: Salad Bar
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestCLI_SeedStatusMenu(t *testing.T) {
	dir := t.TempDir()
	venues := writeFile(t, dir, "venues.yaml", testVenues)
	fixture := writeFile(t, dir, "south-quad.yaml", testFixture)
	cfgFile := writeFile(t, dir, "config.yaml", `
database:
  path: `+filepath.Join(dir, "m.db")+`
venues_path: `+venues+`
`)

	run(t, "--config", cfgFile, "seed", fixture)

	out := run(t, "--config", cfgFile, "status", "south-quad", "--date", "2026-02-09", "--at", "18:00")
	assert.Contains(t, out, "South Quad  2026-02-09")
	assert.Contains(t, out, "Open: Dinner until 8:00 PM")
	assert.Contains(t, out, "Dinner       5:00 PM - 8:00 PM")

	out = run(t, "--config", cfgFile, "menu", "south-quad", "--date", "2026-02-09", "--meal", "dinner", "--diet", "vegan")
	assert.Contains(t, out, "dinner at south-quad on 2026-02-09: 1 of 2 items (1 filters)")
	assert.Contains(t, out, "Wok\n  Tofu Stir Fry  [highprotein, vegan]")
	assert.NotContains(t, out, "Garden Salad")

	xlsx := filepath.Join(dir, "out.xlsx")
	run(t, "--config", cfgFile, "export", "south-quad", "--date", "2026-02-09", "--out", xlsx)
	assert.FileExists(t, xlsx)
}

func TestClockAt(t *testing.T) {
	now := time.Date(2026, 2, 9, 22, 15, 0, 0, time.UTC)

	got, err := clockAt("", "", status.Eastern, now)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	got, err = clockAt("", "07:45", status.Eastern, now)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-09 07:45", got.In(status.Eastern).Format("2006-01-02 15:04"))

	got, err = clockAt("2026-02-10", "23:00", status.Eastern, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 11, 4, 0, 0, 0, time.UTC), got.UTC())

	_, err = clockAt("2026-02-10", "7pm", status.Eastern, now)
	assert.ErrorContains(t, err, "expected YYYY-MM-DD and HH:MM")
}

func TestPrintStatus_NoHours(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, &service.VenueDetail{
		Venue:  models.Venue{Name: "Bursley"},
		Date:   "2026-02-09",
		Status: status.Status{Label: "Closed", Details: "Check Schedule"},
	})
	assert.Equal(t, "Bursley  2026-02-09\nClosed: Check Schedule\nNo hours listed\n", buf.String())
}
