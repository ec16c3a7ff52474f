package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bullion-bell/internal/calendar"
	"bullion-bell/internal/flags"
	"bullion-bell/internal/store"
	"bullion-bell/pkg/utils"
)

func newCacheCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the local caches",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show record and flag cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			stats := cacheStats{
				Path:    app.Records.Path(),
				Records: app.Records.Len(),
			}
			if fi, err := os.Stat(app.Records.Path()); err == nil {
				stats.Bytes = fi.Size()
			}
			if app.Flags != nil {
				fs := app.Flags.Stats()
				stats.Flags = &fs
			}

			if output.IsJSON() {
				return output.JSON(stats)
			}

			lines := []string{
				fmt.Sprintf("File:     %s", stats.Path),
				fmt.Sprintf("Size:     %s", utils.FormatBytes(stats.Bytes)),
				fmt.Sprintf("Records:  %d", stats.Records),
			}
			if app.Config.Calendar.MaxRecords > 0 {
				lines = append(lines, fmt.Sprintf("Limit:    %d", app.Config.Calendar.MaxRecords))
			}
			if stats.Flags != nil {
				lines = append(lines, flagStatsLines(*stats.Flags)...)
			}
			output.Box("Cache", lines)
			return nil
		},
	})

	var all bool
	listCmd := &cobra.Command{
		Use:   "list [DATE]",
		Short: "List cached records in the window around a date",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at := ""
			if len(args) == 1 {
				at = args[0]
			}
			now, err := parseAt(at, app.Location)
			if err != nil {
				return err
			}
			window := calendar.Window{DaysBefore: app.Config.Calendar.DaysBefore, DaysAfter: app.Config.Calendar.DaysAfter}
			start, end := window.Bounds(now, app.Location)

			view := newTerminalView(cmd.Context(), NewOutput(cmd), app.Flags, app.Config.UI.PageSize, all)
			view.Publish(app.Records.QueryRange(start, end), calendar.SourceCache)
			return nil
		},
	}
	listCmd.Flags().BoolVar(&all, "all", false, "show every row instead of one page")
	cmd.AddCommand(listCmd)

	var keepFlags bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached record and drop decoded flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			n := app.Records.Len()
			if err := app.Records.Clear(); err != nil {
				output.Error("Failed to clear cache: %v", err)
				return err
			}
			if app.Flags != nil && !keepFlags {
				app.Flags.Purge()
			}
			if output.IsJSON() {
				return output.JSON(map[string]int{"removed": n})
			}
			output.Success("✓ Removed %d cached records", n)
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&keepFlags, "keep-flags", false, "leave decoded flags in memory")
	cmd.AddCommand(clearCmd)

	var format, outPath string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write every cached record as CSV or JSON",
		Example: `  bullion-bell cache export --format csv --out calendar.csv
  bullion-bell cache export --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			records := app.Records.Records()
			switch format {
			case "csv":
				if err := writeCSV(w, records); err != nil {
					return err
				}
			case "json":
				if err := (&Output{writer: w}).JSON(records); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q: want csv or json", format)
			}

			if outPath != "" {
				NewOutput(cmd).Success("✓ Exported %d records to %s", len(records), outPath)
			}
			return nil
		},
	}
	exportCmd.Flags().StringVar(&format, "format", "csv", "output format (csv, json)")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "write to a file instead of stdout")
	cmd.AddCommand(exportCmd)

	return cmd
}

type cacheStats struct {
	Path    string       `json:"path"`
	Bytes   int64        `json:"bytes"`
	Records int          `json:"records"`
	Flags   *flags.Stats `json:"flags,omitempty"`
}

func flagStatsLines(s flags.Stats) []string {
	return []string{
		fmt.Sprintf("Flags:    %d/%d decoded", s.Len, s.Capacity),
		fmt.Sprintf("Lookups:  %d hits, %d misses, %d failures", s.Hits, s.Misses, s.Failures),
		fmt.Sprintf("Evicted:  %d", s.Evictions),
	}
}

// freshness describes when the calendar was last merged.
func freshness(sm *store.SyncManager) string {
	if sm == nil {
		return "unknown"
	}
	return store.FormatFreshness(sm.GetDataFreshness(store.SyncTypeCalendar))
}
