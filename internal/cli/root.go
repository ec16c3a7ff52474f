package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"bullion-bell/internal/alerts"
	"bullion-bell/internal/calendar"
	"bullion-bell/internal/config"
	"bullion-bell/internal/fetch"
	"bullion-bell/internal/flags"
	"bullion-bell/internal/logging"
	"bullion-bell/internal/loop"
	"bullion-bell/internal/models"
	"bullion-bell/internal/notify"
	"bullion-bell/internal/provider"
	"bullion-bell/internal/store"
)

// annotationBare marks commands that run without loading components.
const annotationBare = "bare"

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Location *time.Location
	Version  string

	Records  *store.FileStore
	DB       *store.SQLiteStore
	Sync     *store.SyncManager
	Provider *provider.HTTPProvider
	Breaker  *provider.Breaker
	Flags    *flags.Cache
	Notifier *notify.MultiNotifier
	Terminal *notify.TerminalNotifier
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(version string) *cobra.Command {
	app := &App{Version: version, Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "bullion-bell",
		Short: "Bullion Bell - economic calendar with event alerts",
		Long: `Bullion Bell keeps a local cache of the economic calendar in sync with a
remote provider and rings a bell ahead of the releases you care about.

Cached rows are shown immediately; fresh rows replace them once the
provider answers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationBare] == "true" {
				return nil
			}
			dir, _ := cmd.Flags().GetString("config")
			debug, _ := cmd.Flags().GetBool("debug")
			return app.init(dir, debug)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/bullion-bell)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newCalendarCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newCacheCmd(app))
	rootCmd.AddCommand(newFlagCmd(app))
	rootCmd.AddCommand(newAlertsCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))

	return rootCmd
}

// init loads configuration and builds every component. Optional components
// that fail to start are logged and left nil.
func (a *App) init(configDir string, debug bool) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	a.Config = cfg

	logCfg := cfg.LogConfig()
	if debug {
		logCfg.Level = "debug"
	}
	a.Logger = logging.NewLoggerWithConfig(logCfg)
	if debug {
		logging.SetDebugLevel()
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	a.Location = loc

	a.Records = store.OpenFileStore(cfg.Calendar.CacheFile, cfg.Calendar.MaxRecords, a.Logger)

	if err := os.MkdirAll(filepath.Dir(cfg.Alerts.Database), 0755); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to create database directory")
	}
	db, err := store.NewSQLiteStore(cfg.Alerts.Database)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to initialize store, alerts and sync tracking unavailable")
	} else {
		a.DB = db
		a.Sync = store.NewSyncManager(db, nil)
		a.Sync.SetStaleDataCallback(func(dataType store.SyncDataType, age time.Duration) {
			a.Logger.Warn().Str("data_type", string(dataType)).Dur("age", age).Msg("Cached data is stale")
		})
		a.Logger.Debug().Str("path", cfg.Alerts.Database).Msg("SQLite store initialized")
	}

	httpProvider, err := provider.NewHTTPProvider(provider.Config{
		BaseURL:   cfg.Provider.BaseURL,
		Path:      cfg.Provider.Path,
		APIKey:    cfg.Provider.APIKey,
		UserAgent: cfg.Provider.UserAgent,
		Timeout:   cfg.Provider.Timeout,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.Provider = httpProvider
	a.Breaker = provider.NewBreaker(httpProvider, cfg.Provider.BreakerFailures, cfg.Provider.BreakerCooldown, a.Logger)

	fc, err := flags.New(flags.Config{
		Capacity:          cfg.Flags.Capacity,
		TablePath:         cfg.Flags.TablePath,
		EURIconPath:       cfg.Flags.EURIcon,
		RequestsPerSecond: cfg.Flags.RequestsPerSecond,
		Burst:             cfg.Flags.Burst,
	}, flags.NewHTTPFetcher(cfg.Flags.Timeout, cfg.Provider.UserAgent), a.Logger)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Flag cache unavailable")
	} else {
		a.Flags = fc
	}

	a.Notifier = notify.NewMultiNotifier(&cfg.Notifications)
	a.Terminal = notify.NewTerminalNotifier(os.Stdout)
	a.Terminal.SetBellEnabled(cfg.Notifications.Bell)
	a.Terminal.SetColorEnabled(cfg.UI.ColorEnabled)
	a.Terminal.SetEnabled(cfg.Notifications.Enabled)
	a.Notifier.AddChannel(a.Terminal)

	a.Logger.Debug().
		Str("config", cfg.ConfigPath()).
		Str("provider", httpProvider.Endpoint()).
		Strs("channels", a.Notifier.Channels()).
		Msg("Components initialized")
	return nil
}

// Close releases the database.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	err := a.DB.Close()
	a.DB = nil
	return err
}

// session wires one consumer loop to the sync service.
type session struct {
	loop    *loop.Loop
	coord   *fetch.Coordinator
	service *calendar.Service
}

func (a *App) newSession(view calendar.View) *session {
	l := loop.New(loop.DefaultBufferSize, a.Logger)
	coord := fetch.NewCoordinator(a.Breaker, a.Config.Calendar.FetchTimeout, a.Logger)

	svc := calendar.NewService(a.Records, coord, l, view, a.Logger)
	svc.SetWindow(calendar.Window{
		DaysBefore: a.Config.Calendar.DaysBefore,
		DaysAfter:  a.Config.Calendar.DaysAfter,
	})
	svc.SetLocation(a.Location)
	svc.SetNotifier(a.Notifier)
	if a.Sync != nil {
		svc.SetSyncRecorder(a.Sync)
	}
	if planner := a.planner(); planner != nil {
		svc.AddMergeListener(planner)
	}

	return &session{loop: l, coord: coord, service: svc}
}

func (a *App) planner() *alerts.Planner {
	if a.DB == nil || !a.Config.Alerts.Enabled {
		return nil
	}
	return alerts.NewPlanner(a.DB, a.Config.Alerts.Lead, models.Importance(a.Config.Alerts.AutoImportance), a.Location, a.Logger)
}

func (a *App) scheduler() *alerts.Scheduler {
	if a.DB == nil {
		return nil
	}
	return alerts.NewScheduler(a.DB, a.Notifier, a.Config.Alerts.CheckInterval, a.Logger)
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{annotationBare: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": app.Version})
				return
			}
			output.Printf("Bullion Bell %s\n", app.Version)
		},
	}
}
