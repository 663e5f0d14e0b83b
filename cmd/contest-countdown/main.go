package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rewired-gh/contest-countdown/internal/codeforces"
	"github.com/rewired-gh/contest-countdown/internal/config"
	"github.com/rewired-gh/contest-countdown/internal/logger"
	"github.com/rewired-gh/contest-countdown/internal/storage"
	"github.com/rewired-gh/contest-countdown/internal/telegram"
	"github.com/rewired-gh/contest-countdown/internal/tracker"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "contest-countdown",
		Short:         "Count down to the next Codeforces contest you take part in",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional)")

	root.AddCommand(newRunCmd(), newNextCmd(), newListCmd(), newParticipateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles what every command needs
type app struct {
	cfg    *config.Config
	store  tracker.Store
	source *codeforces.Client
	close  func()
}

func setup() (*app, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if configPath != "" {
		logger.Info("Configuration loaded from %s", configPath)
	}

	cachePath, err := cfg.CachePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache path: %w", err)
	}

	a := &app{
		cfg:    cfg,
		source: codeforces.NewClient(cfg.Codeforces.APIBaseURL, cfg.Codeforces.Timeout),
		close:  func() {},
	}

	switch cfg.Storage.Backend {
	case "sqlite":
		s, err := storage.NewSQLiteStore(cachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.store = s
		a.close = func() {
			if err := s.Close(); err != nil {
				logger.Error("Failed to close storage: %v", err)
			}
		}
	default:
		a.store = storage.NewFileStore(cachePath)
	}
	logger.Debug("Using %s cache at %s", cfg.Storage.Backend, cachePath)

	return a, nil
}

func (a *app) newTracker(notifier tracker.Notifier) *tracker.Tracker {
	return tracker.New(a.source, a.store, tracker.Options{
		RefreshInterval:   a.cfg.Poller.RefreshInterval,
		MaxRetries:        a.cfg.Poller.MaxRetries,
		InitialRetryDelay: a.cfg.Poller.InitialRetryDelay,
		Notifier:          notifier,
	})
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Keep the contest list fresh and log the countdown periodically",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			var notifier tracker.Notifier
			var telegramClient *telegram.Client
			if a.cfg.Telegram.Enabled {
				telegramClient, err = telegram.NewClient(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Telegram.MaxRetries, a.cfg.Telegram.RetryDelayBase)
				if err != nil {
					return fmt.Errorf("failed to initialize Telegram client: %w", err)
				}
				notifier = telegramClient
				logger.Info("Telegram client initialized successfully")
			} else {
				logger.Debug("Telegram notifications disabled")
			}

			tr := a.newTracker(notifier)

			// Setup graceful shutdown
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if telegramClient != nil {
				telegramClient.ListenForCommands(ctx, tr)
			}

			logger.Info("Starting contest tracker (refresh interval: %v, max retries: %d)",
				a.cfg.Poller.RefreshInterval, a.cfg.Poller.MaxRetries)
			tr.Start(ctx)

			ticker := time.NewTicker(a.cfg.Poller.CountdownInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					tr.Stop()
					logger.Info("Service stopped")
					return nil
				case <-ticker.C:
					logCountdown(tr)
				}
			}
		},
	}
}

func logCountdown(tr *tracker.Tracker) {
	seconds := tr.SecondsTillNextContest()
	if c, ok := tr.NextContest(); ok {
		logger.Info("Next contest: %s in %s", c.Name, tracker.FormatCountdown(seconds))
		return
	}
	logger.Info("Next contest: %s", tracker.FormatCountdown(seconds))
}

func newNextCmd() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the countdown to the next contest",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			tr := a.newTracker(nil)
			defer tr.Stop()

			if !offline {
				if err := tr.Refresh(cmd.Context()); err != nil {
					logger.Warn("Using cached contests: %v", err)
				}
			}

			seconds := tr.SecondsTillNextContest()
			out := cmd.OutOrStdout()
			if c, ok := tr.NextContest(); ok {
				fmt.Fprintf(out, "%s\n%s (%s)\n", c.Name, tracker.FormatCountdown(seconds), humanize.Time(c.StartTime()))
				return nil
			}
			fmt.Fprintln(out, tracker.FormatCountdown(seconds))
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the cached contest list without refreshing")
	return cmd
}

func newListCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored upcoming contests",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			tr := a.newTracker(nil)
			defer tr.Stop()

			if refresh {
				if err := tr.Refresh(cmd.Context()); err != nil {
					logger.Warn("Using cached contests: %v", err)
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTARTS\tPARTICIPATING")
			for _, c := range tr.Contests() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%v\n", c.ID, c.Name, humanize.Time(c.StartTime()), c.IsParticipating())
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Refresh from the API before listing")
	return cmd
}

func newParticipateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "participate <contest-id> <true|false>",
		Short: "Mark whether you take part in a stored contest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid contest ID %q: %w", args[0], err)
			}
			participating, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid participating value %q: %w", args[1], err)
			}

			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			tr := a.newTracker(nil)
			defer tr.Stop()

			if err := tr.SetParticipating(id, participating); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Contest %d participating: %v\n", id, participating)
			return nil
		},
	}
}
