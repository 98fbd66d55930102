package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/juju/clock"

	"github.com/semmidev/dbwarden/internal/adapter/compressor"
	"github.com/semmidev/dbwarden/internal/adapter/database"
	"github.com/semmidev/dbwarden/internal/adapter/docker"
	"github.com/semmidev/dbwarden/internal/adapter/encryptor"
	"github.com/semmidev/dbwarden/internal/adapter/executor"
	"github.com/semmidev/dbwarden/internal/adapter/metrics"
	"github.com/semmidev/dbwarden/internal/adapter/reporter"
	"github.com/semmidev/dbwarden/internal/adapter/storage"
	"github.com/semmidev/dbwarden/internal/config"
	"github.com/semmidev/dbwarden/internal/domain"
	"github.com/semmidev/dbwarden/internal/infrastructure/logger"
	"github.com/semmidev/dbwarden/internal/infrastructure/scheduler"
	"github.com/semmidev/dbwarden/internal/usecase"
)

// Options are the command line switches that are not part of Config.
type Options struct {
	Once    bool
	Version string
}

type App struct {
	config  *config.Config
	logger  *logger.Logger
	runtime *docker.Runtime
	runner  *usecase.Runner
	metrics *metrics.Recorder
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log, err := logger.New(logger.Options{Debug: cfg.Debug, LogFile: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting dbwarden %s", opts.Version)
	for _, w := range cfg.Warnings {
		log.Warnf("%s", w)
	}

	runtime, err := docker.New()
	if err != nil {
		return nil, err
	}
	if err := runtime.Ping(ctx); err != nil {
		log.Warnf("Docker daemon not reachable yet: %v", err)
	}

	local, err := storage.NewLocal(cfg.DumpDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dump directory: %w", err)
	}

	ownID := cfg.OwnContainerID
	if ownID == "" {
		if ownID, err = os.Hostname(); err != nil {
			return nil, fmt.Errorf("cannot determine own container id, set OWN_CONTAINER_ID: %w", err)
		}
	}
	log.Debugf("Own container id: %s", ownID)

	clk := clock.WallClock
	uploadTargets, telegram := initializeUploadTargets(ctx, cfg, log)

	var reporters []domain.Reporter
	if cfg.SuccessURL != "" {
		reporters = append(reporters, reporter.NewWebhook(cfg.SuccessURL))
	}
	if cfg.HCUUID != "" {
		reporters = append(reporters, reporter.NewHealthchecks(cfg.HCPingURL, cfg.HCUUID))
	}
	if telegram != nil {
		reporters = append(reporters, reporter.NewTelegram(telegram))
	}

	var rec *metrics.Recorder
	if cfg.MetricsAddr != "" {
		rec = metrics.New()
		reporters = append(reporters, rec)
	}

	orchestrator := usecase.NewOrchestrator(
		runtime,
		usecase.NewDumper(database.ForEngines(executor.NewLocal(), log), cfg.DumpDir, clk, log),
		usecase.NewPipeline(compressor.NewGzip(), encryptor.NewAES(), clk, log, cfg.DumpUID, cfg.DumpGID),
		usecase.NewUploader(uploadTargets, log),
		usecase.NewRetention(clk, time.Local, log),
		local,
		reporters,
		clk,
		log,
		usecase.CycleOptions{
			NetworkName:     cfg.HelperNetworkName,
			OwnContainerID:  ownID,
			ContainerFilter: cfg.ContainerFilter,
			GlobalLabels:    cfg.GlobalLabels,
			DeleteDays:      cfg.DeleteDays,
			KeepMin:         cfg.KeepMin,
		},
	)

	runnerOpts := usecase.RunnerOptions{
		Startup: cfg.Startup,
		Once:    opts.Once,
		OnTransition: func(from, to usecase.State) {
			log.Debugf("State %s -> %s", from, to)
		},
	}
	if cfg.Schedule != "" {
		sched, err := scheduler.Parse(cfg.Schedule)
		if err != nil {
			return nil, &domain.ConfigError{Key: "SCHEDULE", Value: cfg.Schedule, Reason: err.Error()}
		}
		runnerOpts.Schedule = sched
	}

	runner := usecase.NewRunner(orchestrator, scheduler.NewWaiter(clk, scheduler.DefaultPollInterval), clk, log, runnerOpts)

	return &App{
		config:  cfg,
		logger:  log,
		runtime: runtime,
		runner:  runner,
		metrics: rec,
	}, nil
}

func initializeUploadTargets(ctx context.Context, cfg *config.Config, log *logger.Logger) ([]usecase.UploadTarget, *storage.TelegramStorage) {
	var (
		targets  []usecase.UploadTarget
		telegram *storage.TelegramStorage
	)

	for _, targetCfg := range cfg.GetEnabledUploadTargets() {
		var stor domain.Storage

		switch targetCfg.Type {
		case "gdrive":
			gd, err := storage.NewGDrive(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Google Drive: %v", err)
				continue
			}
			stor = gd
			log.Infof("✓ Google Drive upload enabled")

		case "s3":
			s3, err := storage.NewS3(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize S3: %v", err)
				continue
			}
			stor = s3
			log.Infof("✓ AWS S3 upload enabled (bucket: %s)", targetCfg.Bucket)

		case "telegram":
			tg, err := storage.NewTelegram(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Telegram: %v", err)
				continue
			}
			telegram = tg
			stor = tg
			log.Infof("✓ Telegram notifications enabled (send file: %t)", targetCfg.SendFile)

		default:
			log.Warnf("Unknown upload target type: %s", targetCfg.Type)
			continue
		}

		targets = append(targets, usecase.UploadTarget{
			Name:    targetCfg.Type,
			Storage: stor,
		})
	}

	return targets, telegram
}

// Run blocks until the runner terminates, serving metrics alongside when
// they are enabled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metricsErr := make(chan error, 1)
	if a.metrics != nil {
		go func() {
			a.logger.Infof("Serving metrics on %s/metrics", a.config.MetricsAddr)
			metricsErr <- a.metrics.Serve(ctx, a.config.MetricsAddr)
		}()
	}

	err := a.runner.Run(ctx)
	cancel()

	if a.metrics != nil {
		if mErr := <-metricsErr; mErr != nil && !errors.Is(mErr, context.Canceled) {
			a.logger.Errorf("%v", mErr)
		}
	}
	return err
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	if err := a.runtime.Close(); err != nil {
		a.logger.Warnf("Closing docker client: %v", err)
	}
	a.logger.Close()
}
