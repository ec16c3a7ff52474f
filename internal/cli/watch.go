package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bullion-bell/internal/calendar"
)

func newWatchCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the calendar in sync and fire alerts until interrupted",
		Long: `Run in the foreground: refresh the calendar on the configured cron
schedule, plan alerts for important events after every merge and ring
the bell when an alert comes due. Stop with Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			output := NewOutput(cmd)
			view := newTerminalView(ctx, output, app.Flags, app.Config.UI.PageSize, all)
			s := app.newSession(view)
			defer s.loop.Close()

			refresher, err := calendar.NewRefresher(ctx, app.Config.Calendar.Refresh, app.Location, s.service, s.loop, app.Logger)
			if err != nil {
				return err
			}
			refresher.Start()
			defer func() {
				// Closing the loop first releases a tick blocked in Post.
				s.loop.Close()
				refresher.Stop()
				s.service.WaitNotifications()
			}()

			if sched := app.scheduler(); sched != nil {
				go func() {
					if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						app.Logger.Error().Err(err).Msg("Alert scheduler stopped")
					}
				}()
			} else {
				output.Warning("Alert store unavailable, alerts disabled")
			}

			if !output.IsJSON() {
				output.Info("Watching calendar (refresh %q, next %s). Press Ctrl+C to stop.",
					app.Config.Calendar.Refresh, refresher.Next().Format("15:04"))
			}
			refresher.Tick(ctx)

			err = s.loop.Run(ctx)
			activations, coalesced := s.service.Stats()
			app.Logger.Info().
				Int("activations", activations).
				Int("coalesced", coalesced).
				Int("scheduled", refresher.Ticks()).
				Msg("Watch stopped")

			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "show every row instead of one page")
	return cmd
}
