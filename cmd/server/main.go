package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"netguard/internal/config"
	"netguard/internal/handlers"
	"netguard/internal/monitor"
	"netguard/internal/notify"
	"netguard/internal/registry"
	"netguard/internal/snapshot"
	"netguard/internal/version"
)

const CONFIGS_PATH = "./configs/config.yaml"

func main() {
	_ = godotenv.Load(".env")

	configPath := flag.String("config", CONFIGS_PATH, "Path to configuration file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error); overrides config")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("version", version.GetVersion()).
		Str("commit", version.GetCommit()).
		Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("config_path", *configPath).Msg("failed to load configuration")
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logger.Info().Msg("starting NetGuard")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(ctx, cfg, logger)
	defer store.Close()

	seeded, err := registry.SeedIfEmpty(ctx, store, seedDevices(cfg.Devices))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to seed registry")
	}
	if seeded > 0 {
		logger.Info().Int("devices", seeded).Msg("registry seeded")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitor.NewMetrics(reg)

	var notifier monitor.Notifier
	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID, notify.NewHTTPClient(version.UserAgent()))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create telegram notifier")
		}
		dispatcher := notify.NewDispatcher(tg, cfg.Notify.QueueSize, logger)
		go dispatcher.Run(ctx)
		notifier = dispatcher
		logger.Info().Msg("telegram notifications enabled")
	}

	snapshots := snapshot.NewStore()
	sched := monitor.NewScheduler(
		monitor.Config{
			Interval: cfg.Monitoring.IntervalDur,
			Pacing:   cfg.Monitoring.PacingDur,
			Workers:  cfg.Monitoring.Workers,
		},
		store,
		newProber(cfg.Probe, logger),
		notifier,
		metrics,
		snapshots,
		logger,
	)
	sched.Start(ctx)
	defer sched.Stop()

	h := handlers.New(store, snapshots, logger)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h.Routes(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}

// openStore uses Postgres when a database URL is configured and falls back to
// an in-memory registry otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) registry.Store {
	if cfg.Database.URL == "" {
		logger.Warn().Msg("no database configured; using in-memory registry (state is lost on restart)")
		return registry.NewMemoryStore()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	store, err := registry.NewPostgresStore(connectCtx, cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	return store
}

func newProber(cfg config.ProbeConfig, logger zerolog.Logger) monitor.Prober {
	switch cfg.Method {
	case config.ProbeICMP:
		logger.Info().Bool("privileged", cfg.Privileged).Msg("using icmp prober")
		return monitor.NewICMPProber(cfg.Privileged, logger)
	case config.ProbeSim:
		logger.Warn().Msg("using simulated prober; results are synthetic")
		return monitor.NewSimulatedProber(nil, logger)
	default:
		logger.Info().Msg("using ping prober")
		return monitor.NewExecProber(logger)
	}
}

func seedDevices(in []config.Device) []registry.Device {
	now := time.Now().UnixMilli()
	out := make([]registry.Device, 0, len(in))
	for _, d := range in {
		monitored := true
		if d.IsMonitored != nil {
			monitored = *d.IsMonitored
		}

		out = append(out, registry.Device{
			ID:          d.ID,
			Name:        d.Name,
			IP:          d.IP,
			Type:        d.Type,
			Status:      registry.StatusOffline,
			LastChecked: now,
			IsMonitored: monitored,
		})
	}

	return out
}
