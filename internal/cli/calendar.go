package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bullion-bell/internal/calendar"
	"bullion-bell/internal/fetch"
	"bullion-bell/internal/models"
)

func newCalendarCmd(app *App) *cobra.Command {
	var (
		at      string
		all     bool
		offline bool
	)

	cmd := &cobra.Command{
		Use:     "calendar",
		Aliases: []string{"cal"},
		Short:   "Show the economic calendar around a date",
		Long: `Show the calendar window around a date (today by default).

Cached rows are printed first; the window is then fetched from the
provider, merged into the cache and printed again.`,
		Example: `  bullion-bell calendar
  bullion-bell calendar --at 20/09/2024 --all
  bullion-bell calendar --offline`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			now, err := parseAt(at, app.Location)
			if err != nil {
				return err
			}

			view := newTerminalView(cmd.Context(), output, app.Flags, app.Config.UI.PageSize, all)

			if offline {
				window := calendar.Window{DaysBefore: app.Config.Calendar.DaysBefore, DaysAfter: app.Config.Calendar.DaysAfter}
				start, end := window.Bounds(now, app.Location)
				view.Publish(app.Records.QueryRange(start, end), calendar.SourceCache)
				return nil
			}

			s := app.newSession(view)
			defer s.loop.Close()
			defer s.service.WaitNotifications()

			s.service.Activate(cmd.Context(), now)
			if err := s.loop.RunUntil(cmd.Context(), s.service.Idle); err != nil {
				return err
			}

			if kind, err := s.service.LastResult(); kind != fetch.OutcomeRecords || err != nil {
				if view.publishes == 0 {
					return err
				}
				output.Warning("Showing cached data only")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "anchor date (DD/MM/YYYY or YYYY-MM-DD)")
	cmd.Flags().BoolVar(&all, "all", false, "show every row instead of one page")
	cmd.Flags().BoolVar(&offline, "offline", false, "show cached rows without contacting the provider")

	return cmd
}

// parseAt resolves the --at flag, defaulting to now.
func parseAt(at string, loc *time.Location) (time.Time, error) {
	if at == "" {
		return time.Now().In(loc), nil
	}
	if t, err := models.ParseDate(at); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", at, loc); err == nil {
		return t.Add(12 * time.Hour), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want DD/MM/YYYY or YYYY-MM-DD", at)
}
