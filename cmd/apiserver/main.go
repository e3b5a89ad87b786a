package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/action"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/httpapi"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage/memory"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage/postgres"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/config"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/platform/database"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/platform/migrations"
)

// allStores is every storage interface the Action API's handlers may touch,
// satisfied jointly by *memory.Memory and *postgres.Store.
type allStores interface {
	storage.InitiativeStore
	storage.MathModelStore
	storage.ParamStore
	storage.ScoreHistoryStore
	storage.MetricConfigStore
	storage.OptimizationStore
	storage.ActionRunStore
}

func main() {
	addr := flag.String("addr", "", "HTTP listen address (defaults to config or :8080)")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (overrides config/env; in-memory storage when empty)")
	configPath := flag.String("config", "", "path to configuration file (YAML or JSON)")
	runMigrations := flag.Bool("migrate", true, "run embedded database migrations on startup (ignored for in-memory)")
	secretFlag := flag.String("secret", "", "shared secret expected on X-ROADMAP-AI-SECRET (overrides config/env)")
	bearerSecretFlag := flag.String("bearer-secret", "", "HS256 secret accepting roadmapctl bearer tokens (optional)")
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
		configurePool(db, cfg)
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

	registry := action.NewRegistry()
	// The HTTP server only accepts and reports on runs; cmd/worker registers
	// the real job handlers. POST /actions/run rejects names missing from the
	// registry, so the worker's action names are registered here with a
	// placeholder handler that this process never calls.
	for _, name := range []string{
		"flow1.intake_sync", "flow1.backlog_update", "flow1.backlog_sheet_write",
		"pm.backlog_sync", "pm.score_selected", "pm.switch_framework",
		"pm.save_selected", "pm.populate_candidates",
		"pm.optimize_run_selected_candidates", "pm.optimize_run_all_candidates",
		"pm.suggest_math_model_llm", "pm.seed_math_params",
	} {
		registry.Register(name, func(context.Context, action.Context) (map[string]any, error) {
			return nil, fmt.Errorf("action handlers run in cmd/worker, not in the API server")
		})
	}

	secret := resolveSecret(*secretFlag)
	var bearer httpapi.BearerValidator
	if b := resolveBearerSecret(*bearerSecretFlag, cfg); b != "" {
		bearer = httpapi.NewHS256BearerValidator(b)
	}

	listenAddr := determineAddr(*addr, cfg)
	svc := httpapi.NewService(listenAddr, store, registry, secret, bearer, log)

	if err := svc.Start(rootCtx); err != nil {
		log.Fatalf("start http service: %v", err)
	}
	log.Infof("action API listening on %s", listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

func resolveConfig(path string) *config.Config {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg, err := loadConfigFile(trimmed)
		if err != nil {
			log.Fatalf("load config %s: %v", trimmed, err)
		}
		return cfg
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return cfg
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

func determineAddr(flagAddr string, cfg *config.Config) string {
	if addr := strings.TrimSpace(flagAddr); addr != "" {
		return addr
	}
	if cfg != nil {
		host := strings.TrimSpace(cfg.Server.Host)
		port := cfg.Server.Port
		if port != 0 {
			if host == "" {
				host = "0.0.0.0"
			}
			return fmt.Sprintf("%s:%d", host, port)
		}
	}
	return ":8080"
}

func configurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
	}
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

// resolveSecret determines the shared-secret value the Action API expects
// on X-ROADMAP-AI-SECRET (spec.md §4.15, §6.1). config.AuthConfig carries
// no single field named Secret — only Tokens/JWTSecret, which this
// platform's auth model doesn't otherwise use — so resolution follows the
// teacher's own --api-tokens/API_TOKENS flag-then-env pattern instead of a
// config field.
func resolveSecret(flagSecret string) string {
	if trimmed := strings.TrimSpace(flagSecret); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(os.Getenv("ROADMAP_AI_SECRET"))
}

// resolveBearerSecret determines the HS256 secret validating roadmapctl's
// optional bearer-token mode (SPEC_FULL.md §11: "optional bearer-token mode
// for roadmapctl"), falling back to config.Auth.JWTSecret when no flag/env
// override is given.
func resolveBearerSecret(flagSecret string, cfg *config.Config) string {
	if trimmed := strings.TrimSpace(flagSecret); trimmed != "" {
		return trimmed
	}
	if envSecret := strings.TrimSpace(os.Getenv("ROADMAP_BEARER_SECRET")); envSecret != "" {
		return envSecret
	}
	if cfg != nil {
		return strings.TrimSpace(cfg.Auth.JWTSecret)
	}
	return ""
}
