package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bullion-bell/internal/alerts"
	"bullion-bell/internal/models"
	"bullion-bell/internal/store"
)

func newAlertsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Manage event alerts",
		Long: `Alerts fire once, a lead time before an event starts. Important
events get alerts automatically when the calendar is merged; add
others by event id.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if app.DB == nil {
				return fmt.Errorf("alert store unavailable")
			}
			return nil
		},
	}

	var includeTriggered bool
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			list, err := app.DB.GetAlerts(cmd.Context(), store.AlertFilter{
				IncludeTriggered: includeTriggered,
				Limit:            limit,
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(list)
			}
			if len(list) == 0 {
				output.Dim("No alerts")
				return nil
			}

			table := NewTable(output, "ID", "Fires", "Cur", "Event", "Status")
			for _, a := range list {
				status := output.Yellow("pending")
				if a.Triggered {
					status = output.DimText("fired")
				}
				table.AddRow(shortID(a.ID), a.FireAt.In(app.Location).Format("02/01 15:04"), orDash(a.Currency), a.Title, status)
			}
			table.Render()
			return nil
		},
	}
	listCmd.Flags().BoolVar(&includeTriggered, "all", false, "include alerts that already fired")
	listCmd.Flags().IntVar(&limit, "limit", 0, "maximum number of alerts")
	cmd.AddCommand(listCmd)

	var lead time.Duration
	addCmd := &cobra.Command{
		Use:   "add EVENT_ID",
		Short: "Add an alert for a cached event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			rec, ok := findRecord(app.Records.Records(), models.EventID(args[0]))
			if !ok {
				return fmt.Errorf("event %s is not in the cache; run 'bullion-bell calendar' first", args[0])
			}
			if !cmd.Flags().Changed("lead") {
				lead = app.Config.Alerts.Lead
			}

			alert, err := alerts.NewAlert(rec, lead, app.Location, time.Now())
			if err != nil {
				return err
			}
			if err := app.DB.SaveAlert(cmd.Context(), alert); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(alert)
			}
			output.Success("✓ Alert %s set for %s %s at %s", shortID(alert.ID), alert.Currency, alert.Title,
				alert.FireAt.In(app.Location).Format("02/01/2006 15:04"))
			return nil
		},
	}
	addCmd.Flags().DurationVar(&lead, "lead", 5*time.Minute, "how long before the event to fire")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove ALERT_ID",
		Short: "Remove an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveAlertID(cmd, app, args[0])
			if err != nil {
				return err
			}
			if err := app.DB.DeleteAlert(cmd.Context(), id); err != nil {
				return err
			}
			NewOutput(cmd).Success("✓ Alert removed")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Fire every alert that is due now",
		RunE: func(cmd *cobra.Command, args []string) error {
			fired, err := app.scheduler().CheckOnce(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]int{"fired": fired})
			}
			output.Info("%d alerts fired", fired)
			return nil
		},
	})

	return cmd
}

func findRecord(records []models.EventRecord, id models.EventID) (models.EventRecord, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return models.EventRecord{}, false
}

// resolveAlertID expands a unique id prefix as printed by "alerts list".
func resolveAlertID(cmd *cobra.Command, app *App, prefix string) (string, error) {
	list, err := app.DB.GetAlerts(cmd.Context(), store.AlertFilter{IncludeTriggered: true})
	if err != nil {
		return "", err
	}
	var match string
	for _, a := range list {
		if len(a.ID) >= len(prefix) && a.ID[:len(prefix)] == prefix {
			if match != "" {
				return "", fmt.Errorf("alert id %q is ambiguous", prefix)
			}
			match = a.ID
		}
	}
	if match == "" {
		return prefix, nil
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
