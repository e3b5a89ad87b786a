package config

// RuntimeConfig configures the sheet-sync/worker/scheduler integrations
// that sit above the HTTP server and database (spec.md §4.3-4.18).
type RuntimeConfig struct {
	Sheets    SheetsConfig    `json:"sheets"`
	Worker    WorkerConfig    `json:"worker"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Action    ActionAPIConfig `json:"action"`
	// AutoDepsFromAPIs is kept from the teacher's runtime wiring. No command
	// in this module reads it: cmd/worker wires each handler's stores and
	// capabilities explicitly whatever its value.
	AutoDepsFromAPIs bool `json:"auto_deps_from_apis" mapstructure:"auto_deps_from_apis" env:"AUTO_DEPS_FROM_APIS"`
}

// SheetsConfig names the spreadsheet and tabs the sync services and readers
// read from / write to (spec.md §4.3 tab inventory). CredentialsPath points
// at a service-account JSON key; the transport that consumes it lives
// outside this module's scope (spec.md §1, sheetio.Client).
type SheetsConfig struct {
	CredentialsPath    string   `json:"credentials_path" env:"SHEETS_CREDENTIALS_PATH"`
	SpreadsheetID      string   `json:"spreadsheet_id" env:"SHEETS_SPREADSHEET_ID"`
	IntakeTabs         []string `json:"intake_tabs" mapstructure:"intake_tabs"`
	CentralBacklogTab  string   `json:"central_backlog_tab" env:"SHEETS_CENTRAL_BACKLOG_TAB"`
	CandidatesTab      string   `json:"candidates_tab" env:"SHEETS_CANDIDATES_TAB"`
	ConstraintsTab     string   `json:"constraints_tab" env:"SHEETS_CONSTRAINTS_TAB"`
	TargetsTab         string   `json:"targets_tab" env:"SHEETS_TARGETS_TAB"`
	ScenarioConfigTab  string   `json:"scenario_config_tab" env:"SHEETS_SCENARIO_CONFIG_TAB"`
	RunsTab            string   `json:"runs_tab" env:"SHEETS_RUNS_TAB"`
	PortfoliosTab      string   `json:"portfolios_tab" env:"SHEETS_PORTFOLIOS_TAB"`
	DefaultCommitEvery int      `json:"default_commit_every" env:"SHEETS_DEFAULT_COMMIT_EVERY"`
}

// WorkerConfig tunes the Action Run worker pool (spec.md §5 Concurrency &
// Resource Model).
type WorkerConfig struct {
	PoolSize           int    `json:"pool_size" env:"WORKER_POOL_SIZE"`
	PollInterval       string `json:"poll_interval" env:"WORKER_POLL_INTERVAL"` // duration string, e.g. "2s"
	ClaimBatchSize     int    `json:"claim_batch_size" env:"WORKER_CLAIM_BATCH_SIZE"`
	StuckRunAfter      string `json:"stuck_run_after" env:"WORKER_STUCK_RUN_AFTER"` // duration string, e.g. "15m"
	MaxRequeueAttempts int    `json:"max_requeue_attempts" env:"WORKER_MAX_REQUEUE_ATTEMPTS"`
}

// SchedulerConfig configures the cron schedules the scheduler process
// registers (spec.md §4.16-4.18, SPEC_FULL.md cmd/scheduler).
type SchedulerConfig struct {
	IntakeSyncCron    string `json:"intake_sync_cron" env:"SCHEDULER_INTAKE_SYNC_CRON"`
	BacklogUpdateCron string `json:"backlog_update_cron" env:"SCHEDULER_BACKLOG_UPDATE_CRON"`
	BacklogSyncCron   string `json:"backlog_sync_cron" env:"SCHEDULER_BACKLOG_SYNC_CRON"`
	StuckRunSweepCron string `json:"stuck_run_sweep_cron" env:"SCHEDULER_STUCK_RUN_SWEEP_CRON"`
}

// ActionAPIConfig tunes the HTTP Action API (spec.md §4.13-4.15).
type ActionAPIConfig struct {
	RequestTimeout string `json:"request_timeout" env:"ACTION_REQUEST_TIMEOUT"` // duration string
	MaxPayloadKB   int    `json:"max_payload_kb" env:"ACTION_MAX_PAYLOAD_KB"`
}
