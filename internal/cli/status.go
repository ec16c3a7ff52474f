package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bullion-bell/internal/provider"
	"bullion-bell/internal/store"
	"bullion-bell/pkg/utils"
)

type statusReport struct {
	Records   int                   `json:"records"`
	Freshness string                `json:"freshness"`
	Stale     bool                  `json:"stale"`
	Provider  string                `json:"provider"`
	Breaker   provider.BreakerStats `json:"breaker"`
	Pending   int                   `json:"pending_alerts"`
	NextAlert *time.Time            `json:"next_alert,omitempty"`
	Channels  []string              `json:"channels"`
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cache freshness, provider and alert status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			report := statusReport{
				Records:   app.Records.Len(),
				Freshness: freshness(app.Sync),
				Provider:  app.Provider.Endpoint(),
				Breaker:   app.Breaker.Stats(),
				Channels:  app.Notifier.Channels(),
			}
			if app.Sync != nil {
				report.Stale = app.Sync.WarnIfStale(store.SyncTypeCalendar)
			}
			if app.DB != nil {
				pending, err := app.DB.GetAlerts(cmd.Context(), store.AlertFilter{})
				if err != nil {
					return err
				}
				report.Pending = len(pending)
				for _, a := range pending {
					if report.NextAlert == nil || a.FireAt.Before(*report.NextAlert) {
						t := a.FireAt
						report.NextAlert = &t
					}
				}
			}

			if output.IsJSON() {
				return output.JSON(report)
			}

			data := report.Freshness
			if report.Stale {
				data = output.Yellow(data)
			}
			lines := []string{
				fmt.Sprintf("Records:   %d cached", report.Records),
				fmt.Sprintf("Data:      %s", data),
				fmt.Sprintf("Provider:  %s", report.Provider),
				fmt.Sprintf("Circuit:   %s", breakerState(output, report.Breaker)),
			}
			if report.Breaker.Requests > 0 {
				lines = append(lines, fmt.Sprintf("Requests:  %d (%d failed, %d rejected)",
					report.Breaker.Requests, report.Breaker.Failures, report.Breaker.Rejected))
			}

			switch {
			case app.DB == nil:
				lines = append(lines, "Alerts:    "+output.Red("store unavailable"))
			case report.NextAlert != nil:
				lines = append(lines, fmt.Sprintf("Alerts:    %d pending, next in %s",
					report.Pending, utils.FormatAge(time.Until(*report.NextAlert))))
			default:
				lines = append(lines, fmt.Sprintf("Alerts:    %d pending", report.Pending))
			}
			lines = append(lines, fmt.Sprintf("Channels:  %v", report.Channels))

			output.Box("Bullion Bell", lines)
			return nil
		},
	}
}

func breakerState(output *Output, s provider.BreakerStats) string {
	switch s.State {
	case provider.CircuitOpen:
		return output.Red(string(s.State))
	case provider.CircuitHalfOpen:
		return output.Yellow(string(s.State))
	default:
		return output.Green(string(s.State))
	}
}
