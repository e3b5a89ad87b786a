package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/action"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/jobs"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/optimize"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/scoring"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage/memory"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage/postgres"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/suggest"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sync"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/config"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/platform/database"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/platform/migrations"
)

// allStores is every storage interface the job handlers touch, satisfied
// jointly by *memory.Memory and *postgres.Store.
type allStores interface {
	storage.InitiativeStore
	storage.MathModelStore
	storage.ParamStore
	storage.ScoreHistoryStore
	storage.MetricConfigStore
	storage.OptimizationStore
	storage.ActionRunStore
}

// sheetClient and llmClient are the out-of-scope external collaborators
// (spec.md §1/§2: the Google Sheets transport and the LLM provider are
// abstracted behind sheetio.Client/suggest.Client with no concrete
// implementation shipped in this module, mirrored from how the teacher
// treats its own chain-RPC transports as externally-supplied). A deployment
// wires a concrete client in by swapping this build's import graph. While a
// client is nil, a handler's first call on it panics; action.Runner recovers
// the panic and records the run as failed with the panic message.
var (
	sheetClient sheetio.Client
	llmClient   suggest.Client
)

func main() {
	dsn := flag.String("dsn", "", "PostgreSQL DSN (overrides config/env; in-memory storage when empty)")
	configPath := flag.String("config", "", "path to configuration file (YAML or JSON)")
	runMigrations := flag.Bool("migrate", true, "run embedded database migrations on startup (ignored for in-memory)")
	maxRuns := flag.Int("max-runs", 0, "stop after this many claimed runs (0 = unbounded)")
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

	var (
		db    *sql.DB
		store allStores
		err   error
	)
	if dsnVal != "" {
		db, err = database.Open(rootCtx, dsnVal)
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

	registry := buildRegistry(cfg, store, log)

	runner := &action.Runner{Store: store, Registry: registry, Log: log}
	worker := &action.Worker{
		Runner:    runner,
		Log:       log,
		IdleSleep: parseDurationOr(cfg.Runtime.Worker.PollInterval, time.Second),
		MaxRuns:   *maxRuns,
	}
	sweeper := &action.Sweeper{
		Store:    store,
		Log:      log,
		MaxAge:   parseDurationOr(cfg.Runtime.Worker.StuckRunAfter, 10*time.Minute),
		Interval: 30 * time.Second,
	}

	if err := worker.Start(rootCtx); err != nil {
		log.Fatalf("start worker: %v", err)
	}
	if err := sweeper.Start(rootCtx); err != nil {
		log.Fatalf("start sweeper: %v", err)
	}
	log.Info("action worker running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = worker.Stop(shutdownCtx)
	_ = sweeper.Stop(shutdownCtx)
}

// buildRegistry registers every dotted action name spec.md §6.3's Action
// Registry Table names, wiring each job's dependencies directly from store
// and config as struct fields set at registration time, rather than through
// action.Context.Deps.
func buildRegistry(cfg *config.Config, store allStores, log *logger.Logger) *action.Registry {
	sheets := cfg.Runtime.Sheets
	commitEvery := sheets.DefaultCommitEvery
	if commitEvery <= 0 {
		commitEvery = 25
	}

	intakeServices := make([]*sync.IntakeService, 0, len(sheets.IntakeTabs))
	for _, tab := range sheets.IntakeTabs {
		intakeServices = append(intakeServices, &sync.IntakeService{Client: sheetClient, Store: store, TabName: tab})
	}
	intakeJob := &jobs.IntakeConsolidationJob{
		Services:      intakeServices,
		SpreadsheetID: sheets.SpreadsheetID,
		CommitEvery:   commitEvery,
		Log:           log,
	}

	backlogService := &sync.CentralBacklogService{Client: sheetClient, Store: store, TabName: sheets.CentralBacklogTab}
	updateJob := &jobs.BacklogUpdateJob{
		Service:       backlogService,
		SpreadsheetID: sheets.SpreadsheetID,
		CommitEvery:   commitEvery,
		Log:           log,
	}
	syncJob := &jobs.BacklogSyncJob{
		Store:         store,
		Client:        sheetClient,
		SpreadsheetID: sheets.SpreadsheetID,
		TabName:       sheets.CentralBacklogTab,
		Log:           log,
	}
	fullCycleJob := &jobs.FullCycleJob{Intake: intakeJob, Update: updateJob, Sync: syncJob}

	scoringService := &scoring.Service{
		Initiatives:   store,
		Params:        store,
		MathModels:    store,
		History:       store,
		Metrics:       store,
		Adapter:       &scoring.KPIAdapter{Initiatives: store, MathModels: store, Metrics: store},
		EnableHistory: true,
	}
	scoreSelectedJob := &jobs.ScoreSelectedJob{Scoring: scoringService, Initiatives: store, Log: log}
	switchFrameworkJob := &jobs.SwitchFrameworkJob{Scoring: scoringService, Initiatives: store, Log: log}

	// Product Ops tabs PM-driven saves may target. SheetsConfig only names
	// the optimize-center and intake/backlog tabs explicitly; these ones
	// have no dedicated config field, so the tab's own display name keys
	// the dispatch map (the same name the sheet UI shows in sheet_context.tab).
	const (
		paramsTabName        = "Params"
		metricsConfigTabName = "MetricsConfig"
	)
	tabSyncers := map[string]jobs.TabSyncer{
		sheets.CentralBacklogTab: backlogService,
		paramsTabName:            &sync.ParamsService{Client: sheetClient, Store: store, TabName: paramsTabName},
		metricsConfigTabName:     &sync.MetricsConfigService{Client: sheetClient, Store: store, TabName: metricsConfigTabName},
	}
	saveSelectedJob := &jobs.SaveSelectedJob{
		Services:      tabSyncers,
		SpreadsheetID: sheets.SpreadsheetID,
		CommitEvery:   commitEvery,
		Log:           log,
	}

	populateCandidatesJob := &jobs.PopulateCandidatesJob{
		Store:         store,
		Client:        sheetClient,
		SpreadsheetID: sheets.SpreadsheetID,
		TabName:       sheets.CandidatesTab,
		Log:           log,
	}

	optimizationJob := &jobs.OptimizationJob{
		InitiativeStore: store,
		MetricStore:     store,
		Store:           store,
		Solver:          optimize.ReferenceSolver{},
		Client:          sheetClient,
		SpreadsheetID:   sheets.SpreadsheetID,
		RunsTab:         sheets.RunsTab,
		PortfoliosTab:   sheets.PortfoliosTab,
		Log:             log,
	}

	suggestJob := &jobs.SuggestMathModelLLMJob{
		Initiatives: store,
		MathModels:  store,
		Client:      llmClient,
		Log:         log,
	}
	seedParamsJob := &jobs.SeedMathParamsJob{Initiatives: store, MathModels: store, Params: store, Log: log}

	registry := action.NewRegistry()
	registry.Register("flow1.intake_sync", intakeJob.Handle)
	registry.Register("flow1.backlog_update", updateJob.Handle)
	registry.Register("flow1.backlog_sheet_write", syncJob.Handle)
	registry.Register("pm.backlog_sync", fullCycleJob.Handle)
	registry.Register("pm.score_selected", scoreSelectedJob.Handle)
	registry.Register("pm.switch_framework", switchFrameworkJob.Handle)
	registry.Register("pm.save_selected", saveSelectedJob.Handle)
	registry.Register("pm.populate_candidates", populateCandidatesJob.Handle)
	registry.Register("pm.optimize_run_selected_candidates", optimizationJob.Handle)
	registry.Register("pm.optimize_run_all_candidates", optimizationJob.Handle)
	registry.Register("pm.suggest_math_model_llm", suggestJob.Handle)
	registry.Register("pm.seed_math_params", seedParamsJob.Handle)
	return registry
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
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
			log := logger.NewDefault("worker")
			log.Fatalf("load config %s: %v", trimmed, err)
		} else {
			return cfg
		}
	}
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault("worker")
		log.Fatalf("load config: %v", err)
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
