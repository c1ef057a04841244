package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lettera-hq/notifier/internal/api"
	"github.com/lettera-hq/notifier/internal/build"
	"github.com/lettera-hq/notifier/internal/channel"
	"github.com/lettera-hq/notifier/internal/config"
	"github.com/lettera-hq/notifier/internal/dedupe"
	"github.com/lettera-hq/notifier/internal/digest"
	"github.com/lettera-hq/notifier/internal/dispatch"
	"github.com/lettera-hq/notifier/internal/event"
	"github.com/lettera-hq/notifier/internal/eventbus"
	"github.com/lettera-hq/notifier/internal/logger"
	"github.com/lettera-hq/notifier/internal/metrics"
	"github.com/lettera-hq/notifier/internal/prefs"
	"github.com/lettera-hq/notifier/internal/server"
	"github.com/lettera-hq/notifier/internal/service"
	"github.com/lettera-hq/notifier/internal/storage"
)

// NewServeCmd returns the "serve" subcommand that starts the dispatch engine
// and its HTTP API.
func NewServeCmd(cfg *config.AppConfig) *cobra.Command {
	var port int
	var policyFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the notification engine and HTTP API",
		Long: `Start the Lettera notification engine: the event intake API, the
per-recipient dispatch pipelines, the digest scheduler and the websocket
stream for in-app delivery.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("policy-file") {
				cfg.PolicyFile = policyFile
			}

			logFile := filepath.Join(cfg.LogDir(), logger.FileName)
			printBanner(build.Version, fmt.Sprintf("http://localhost:%d", cfg.Port), logFile)

			if err := runServe(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "An error occurred. Please check the logs at: %s\n", logFile)
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", cfg.Port, "HTTP server port (overrides PORT env var)")
	cmd.Flags().StringVar(&policyFile, "policy-file", cfg.PolicyFile, "Delivery policy YAML (overrides NOTIFIER_POLICY_FILE env var)")

	return cmd
}

func runServe(cfg *config.AppConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Ensure data directories exist.
	for _, dir := range []string{cfg.DataDir, cfg.LogDir()} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	sysLogger, err := logger.New(cfg.LogDir(), cfg.SlogLevel())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	sysLogger.Info("lettera-notify starting",
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
		slog.String("version", build.Version),
		slog.String("commit", build.CommitSHA),
		slog.String("build_date", build.BuildDate),
	)

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("loading delivery policy: %w", err)
	}

	db, fresh, err := storage.NewSQLiteDB(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if fresh {
		sysLogger.Info("database initialized", "path", cfg.DatabasePath())
	}

	notificationStore := storage.NewSQLiteNotificationStore(db)
	preferenceStore := storage.NewSQLitePreferenceStore(db)
	subscriptionStore := storage.NewSQLiteSubscriptionStore(db)
	dedupeStore := storage.NewSQLiteDedupeStore(db)
	dispatchLogStore := storage.NewSQLiteDispatchLogStore(db)
	contactStore := storage.NewSQLiteContactStore(db)

	m := metrics.New()

	profileCache := prefs.NewCache(preferenceStore, cfg.ProfileCacheTTL, sysLogger)
	resolver := prefs.NewResolver(policy.RoutingMatrix())
	guard := dedupe.NewGuard(dedupeStore, policy.DedupeWindow)

	hub := channel.NewHub(sysLogger)
	registry := channel.NewRegistry(buildSenders(ctx, cfg, hub, subscriptionStore, sysLogger)...)
	sysLogger.Info("channels configured", "channels", registry.Configured())

	buffer := digest.NewBuffer()

	dispatcher := dispatch.New(dispatch.Config{
		Notifications: notificationStore,
		Contacts:      contactStore,
		Subscriptions: subscriptionStore,
		DispatchLog:   dispatchLogStore,
		Profiles:      profileCache,
		Resolver:      resolver,
		Guard:         guard,
		Registry:      registry,
		Digests:       buffer,
		Metrics:       m,
		Logger:        sysLogger,
		SendTimeout:   cfg.SendTimeout,
		SendRate:      cfg.SendRatePerSec,
	})

	bus := eventbus.New(cfg.DispatchWorkers, sysLogger,
		eventbus.WithBufferSize(cfg.QueueSize),
		eventbus.WithDropHook(func(t event.Type) {
			m.EventsDropped.WithLabelValues(string(t)).Inc()
		}),
	)

	engine := dispatch.NewEngine(bus, dispatcher, m, sysLogger)
	defer engine.Close()

	scheduler, err := digest.New(digest.Config{
		Buffer:        buffer,
		Flush:         dispatcher.FlushDigest,
		Policy:        &policy,
		Notifications: notificationStore,
		Subscriptions: subscriptionStore,
		Dedupe:        dedupeStore,
		Logger:        sysLogger,
	})
	if err != nil {
		return fmt.Errorf("initializing digest scheduler: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	inboxSvc := service.NewInboxService(notificationStore, sysLogger)
	prefSvc := service.NewPreferenceService(preferenceStore, profileCache, sysLogger)
	subSvc := service.NewSubscriptionService(subscriptionStore, sysLogger)
	contactSvc := service.NewContactService(contactStore, sysLogger)
	opsSvc := service.NewOpsService(dispatchLogStore, dispatcher, sysLogger)

	apiSrv := api.New(engine, inboxSvc, prefSvc, subSvc, contactSvc, opsSvc, hub, sysLogger)
	srv := server.New(apiSrv, m, cfg.Port, sysLogger)

	sysLogger.Info("server ready", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))

	return srv.Run(ctx)
}

// buildSenders assembles the channel senders for which transport credentials
// are present. The in-app sender is always available; a channel with missing
// or broken transport config is logged and skipped, so the engine degrades
// to the remaining channels instead of refusing to start.
func buildSenders(ctx context.Context, cfg *config.AppConfig, hub *channel.Hub, subs storage.SubscriptionStore, sysLogger *slog.Logger) []channel.Sender {
	senders := []channel.Sender{channel.NewInAppSender(hub)}

	if cfg.SMTPHost != "" {
		senders = append(senders, channel.NewEmailSender(channel.EmailConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			FromAddr:   cfg.SMTPFrom,
			Encryption: cfg.SMTPEncryption,
		}))
	}

	if cfg.TelegramToken != "" {
		tg, err := channel.NewTelegramSender(cfg.TelegramToken, cfg.SendTimeout)
		if err != nil {
			sysLogger.Warn("telegram channel disabled", "error", err)
		} else {
			senders = append(senders, tg)
		}
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		sms, err := channel.NewSMSSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom, cfg.SendTimeout)
		if err != nil {
			sysLogger.Warn("sms channel disabled", "error", err)
		} else {
			senders = append(senders, sms)
		}
	}

	if cfg.FCMCredentialsFile != "" {
		push, err := channel.NewPushSender(ctx, cfg.FCMCredentialsFile, subs.Invalidate)
		if err != nil {
			sysLogger.Warn("push channel disabled", "error", err)
		} else {
			senders = append(senders, push)
		}
	}

	return senders
}

// printBanner writes the startup banner to stdout. It is the only output
// visible in the terminal during normal operation; all structured logs go
// to the log file instead.
func printBanner(version, serverURL, logFile string) {
	fmt.Printf("lettera-notify %s running.\n", version)
	fmt.Printf("API at %s\n", serverURL)
	fmt.Printf("Logs: %s\n\n", logFile)
}
