package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage/memory"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage/postgres"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/config"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/platform/database"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/platform/migrations"
)

// scheduledAction is one routine job the scheduler enqueues on its own cron
// expression. The scheduler never executes an action itself (SPEC_FULL.md
// §12: cron-triggered runs go through the same ActionRun ledger/claim
// protocol as UI-triggered ones) — it only calls EnqueueActionRun, exactly
// as a PM clicking a sheet button would, so cmd/worker's claim/execute path
// is the only place action handlers ever run.
type scheduledAction struct {
	cronExpr string
	action   string
	options  map[string]any
}

func main() {
	dsn := flag.String("dsn", "", "PostgreSQL DSN (overrides config/env; in-memory storage when empty)")
	configPath := flag.String("config", "", "path to configuration file (YAML or JSON)")
	runMigrations := flag.Bool("migrate", true, "run embedded database migrations on startup (ignored for in-memory)")
	flag.Parse()

	cfg := resolveConfig(*configPath)
	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	rootCtx := context.Background()
	dsnVal := resolveDSN(*dsn, cfg)

	var store storage.ActionRunStore
	if dsnVal != "" {
		db, err := database.Open(rootCtx, dsnVal)
		if err != nil {
			log.Fatalf("connect to postgres: %v", err)
		}
		defer db.Close()
		if *runMigrations {
			if err := migrations.Apply(rootCtx, db); err != nil {
				log.Fatalf("apply migrations: %v", err)
			}
		}
		store = postgres.New(db)
	} else {
		log.Warn("no DSN configured, running against an in-memory store")
		store = memory.New()
	}

	sched := cron.New()
	for _, sa := range scheduledActions(cfg) {
		sa := sa
		if strings.TrimSpace(sa.cronExpr) == "" {
			continue
		}
		_, err := sched.AddFunc(sa.cronExpr, func() { enqueue(rootCtx, store, log, sa) })
		if err != nil {
			log.Fatalf("register cron %q for %s: %v", sa.cronExpr, sa.action, err)
		}
	}
	sched.Start()
	log.Info("scheduler running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx := sched.Stop()
	select {
	case <-shutdownCtx.Done():
	case <-time.After(10 * time.Second):
	}
}

// scheduledActions maps RuntimeConfig.Scheduler's four cron expressions
// onto the dotted action names they enqueue (spec.md §4.16-4.18).
func scheduledActions(cfg *config.Config) []scheduledAction {
	sc := cfg.Runtime.Scheduler
	return []scheduledAction{
		{cronExpr: sc.IntakeSyncCron, action: "flow1.intake_sync"},
		{cronExpr: sc.BacklogUpdateCron, action: "flow1.backlog_update"},
		{cronExpr: sc.BacklogSyncCron, action: "pm.backlog_sync"},
		// The stuck-run sweep runs inside cmd/worker's action.Sweeper, not
		// as an enqueued ActionRun — a sweep has nothing to claim or report
		// on, it directly requeues rows stuck in "running". This cron slot
		// is reserved for a future out-of-process sweep trigger if the
		// in-process Sweeper is ever disabled.
	}
}

func enqueue(ctx context.Context, store storage.ActionRunStore, log *logger.Logger, sa scheduledAction) {
	run := domain.ActionRun{
		RunID:       uuid.NewString(),
		Action:      sa.action,
		Status:      domain.ActionStatusQueued,
		PayloadJSON: map[string]any{"options": sa.options, "scope": map[string]any{"type": "selection", "initiative_keys": []string{}}},
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := store.EnqueueActionRun(ctx, run); err != nil {
		log.WithField("action", sa.action).WithError(err).Warn("scheduler: enqueue failed")
		return
	}
	log.WithField("action", sa.action).WithField("run_id", run.RunID).Info("scheduler: enqueued")
}

func loadConfigFile(path string) (*config.Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return config.LoadFile(path)
	case ".json":
		return config.LoadConfig(path)
	default:
		if cfg, err := config.LoadFile(path); err == nil {
			return cfg, nil
		}
		return config.LoadConfig(path)
	}
}

func resolveConfig(path string) *config.Config {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg, err := loadConfigFile(trimmed)
		if err != nil {
			logger.NewDefault("scheduler").Fatalf("load config %s: %v", trimmed, err)
		} else {
			return cfg
		}
	}
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("scheduler").Fatalf("load config: %v", err)
	}
	return cfg
}

func resolveDSN(flagDSN string, cfg *config.Config) string {
	if trimmed := strings.TrimSpace(flagDSN); trimmed != "" {
		return trimmed
	}
	if envDSN := strings.TrimSpace(os.Getenv("DATABASE_URL")); envDSN != "" {
		return envDSN
	}
	if cfg == nil {
		return ""
	}
	if cfg.Database.DSN != "" {
		return strings.TrimSpace(cfg.Database.DSN)
	}
	if cfg.Database.Host != "" && cfg.Database.Name != "" {
		return cfg.Database.ConnectionString()
	}
	return ""
}
