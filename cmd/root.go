package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voipcheck/voipcheck/internal/adapter"
	"github.com/voipcheck/voipcheck/internal/config"
	"github.com/voipcheck/voipcheck/internal/credentials"
	"github.com/voipcheck/voipcheck/internal/heartbeat"
	"github.com/voipcheck/voipcheck/internal/logging"
	"github.com/voipcheck/voipcheck/internal/monitor"
)

// version is set at build time with -ldflags "-X github.com/voipcheck/voipcheck/cmd.version=..."
var version = "dev"

var (
	configPath string
	stateFile  string
	verbose    bool
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:   "voipcheck",
	Short: "Check a VoIP telephone adapter and report to healthchecks.io",
	Long: `voipcheck logs in to the web interface of an analog telephone adapter,
reads the registration and hook state of both lines and reports them as
heartbeats to healthchecks.io.

Each invocation runs a single check. Schedule it with cron or a systemd
timer, for example every five minutes.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, warnings, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Close()

		logger.Info().Msg(logging.Separator)
		defer logger.Info().Msg(logging.Separator)

		for _, w := range warnings {
			logger.Warn().Msg(w)
		}

		creds, err := credentials.Lookup(credentials.Keyring{}, cfg.Service, cfg.Username)
		if err != nil {
			logger.Error().Err(err).Str("service", cfg.Service).Str("username", cfg.Username).Msg("No password available")
			if errors.Is(err, credentials.ErrNotFound) {
				return fmt.Errorf("no password stored for %s@%s (run 'voipcheck password')", cfg.Username, cfg.Service)
			}
			return err
		}

		statePath, err := resolveStatePath(cfg)
		if err != nil {
			return err
		}

		fetchTimeout, stepTimeout, pingTimeout := cfg.Timeouts()
		fetcher := adapter.NewRodFetcher(cfg.Browser.Bin, cfg.Browser.IsHeadless(), fetchTimeout, stepTimeout, logger.Logger)

		var store monitor.Store = monitor.NewFileStore(statePath)
		var pinger heartbeat.Pinger
		if dryRun {
			pinger = heartbeat.DryRun{Logger: logger.Logger}
			store = monitor.ReadOnlyStore{Store: store, Logger: logger.Logger}
		} else {
			client := heartbeat.NewHTTPClient(pingTimeout, userAgent())
			defer client.Close()
			pinger = client
		}

		// Setup context with cancellation on OS signals
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info().
			Str("adapter", cfg.AdapterURL).
			Str("state", statePath).
			Bool("dry_run", dryRun).
			Msg("Starting check")

		engine := monitor.NewEngine(cfg, creds, fetcher, pinger, store, logger.Logger)
		result := engine.Run(ctx)

		logger.Info().
			Str("run_id", result.RunID).
			Str("outcome", string(result.Outcome)).
			Int("heartbeats", len(result.Deliveries)).
			Int("undelivered", len(result.Failed())).
			Dur("duration", result.Duration).
			Msg("Check complete")

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/voipcheck/voipcheck.toml)")
	rootCmd.PersistentFlags().StringVar(&stateFile, "state-file", "", "state file (overrides state_file in the config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "also log to stderr")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "decide and log heartbeats without sending them or saving state")
}

// resolveConfigPath returns the --config value or the default location
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func loadConfig() (*config.Config, []string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, nil, err
	}

	cfg, warnings, err := config.LoadConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("no config at %s (run 'voipcheck init' to create one)", path)
		}
		return nil, warnings, err
	}
	return cfg, warnings, nil
}

func resolveStatePath(cfg *config.Config) (string, error) {
	if stateFile != "" {
		return stateFile, nil
	}
	return cfg.StatePath()
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       logPath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Console:    verbose || dryRun,
	})
}

func userAgent() string {
	return config.AppName + "/" + version
}
