package cli

import (
	"github.com/spf13/cobra"

	"bullion-bell/internal/config"
	"bullion-bell/internal/security"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(redacted(app.Config))
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration directory path",
		Annotations: map[string]string{annotationBare: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir})
			} else {
				output.Println(dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

// redacted returns a copy of cfg with secrets masked.
func redacted(cfg *config.Config) config.Config {
	c := *cfg
	mask := func(s *string) { *s = security.MaskCredential(*s) }
	mask(&c.Provider.APIKey)
	mask(&c.Notifications.Telegram.BotToken)
	mask(&c.Notifications.Email.Password)
	return c
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Calendar")
	output.Printf("  Cache file:      %s\n", cfg.Calendar.CacheFile)
	output.Printf("  Max records:     %d\n", cfg.Calendar.MaxRecords)
	output.Printf("  Window:          -%d / +%d days\n", cfg.Calendar.DaysBefore, cfg.Calendar.DaysAfter)
	output.Printf("  Refresh:         %s\n", cfg.Calendar.Refresh)
	output.Printf("  Timezone:        %s\n", cfg.Calendar.Timezone)
	output.Printf("  Fetch timeout:   %s\n", cfg.Calendar.FetchTimeout)
	output.Println()

	output.Bold("Provider")
	output.Printf("  Base URL:        %s\n", cfg.Provider.BaseURL)
	output.Printf("  Path:            %s\n", cfg.Provider.Path)
	output.Printf("  Timeout:         %s\n", cfg.Provider.Timeout)
	output.Printf("  API key set:     %v\n", cfg.Provider.APIKey != "")
	output.Printf("  Breaker:         %d failures, %s cooldown\n", cfg.Provider.BreakerFailures, cfg.Provider.BreakerCooldown)
	output.Println()

	output.Bold("Flags")
	output.Printf("  Capacity:        %d\n", cfg.Flags.Capacity)
	output.Printf("  Rate limit:      %.1f/s (burst %d)\n", cfg.Flags.RequestsPerSecond, cfg.Flags.Burst)
	output.Printf("  EUR icon:        %s\n", cfg.Flags.EURIcon)
	output.Println()

	output.Bold("Alerts")
	output.Printf("  Enabled:         %v\n", cfg.Alerts.Enabled)
	output.Printf("  Database:        %s\n", cfg.Alerts.Database)
	output.Printf("  Lead:            %s\n", cfg.Alerts.Lead)
	output.Printf("  Auto importance: %s\n", cfg.Alerts.AutoImportance)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:         %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:           %s\n", cfg.Notifications.Level)
	output.Printf("  Bell:            %v\n", cfg.Notifications.Bell)
	output.Printf("  Webhook:         %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram:        %v\n", cfg.Notifications.Telegram.Enabled)
	output.Printf("  Email:           %v\n", cfg.Notifications.Email.Enabled)
}
