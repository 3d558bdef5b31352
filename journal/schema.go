// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'student',
	current_stage TEXT NOT NULL,
	behavior_score INTEGER NOT NULL DEFAULT 100,
	risk_compliance_score INTEGER NOT NULL DEFAULT 100,
	onboarding TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS stage_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL REFERENCES users(id),
	stage TEXT NOT NULL,
	entered_at DATETIME NOT NULL,
	exited_at DATETIME,
	exit_reason TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_stage_history_user ON stage_history(user_id, id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_stage_history_open ON stage_history(user_id) WHERE exited_at IS NULL;

CREATE TABLE IF NOT EXISTS risk_profiles (
	user_id TEXT PRIMARY KEY REFERENCES users(id),
	max_risk_per_trade REAL NOT NULL,
	max_daily_drawdown REAL NOT NULL,
	max_weekly_drawdown REAL NOT NULL,
	max_open_positions INTEGER NOT NULL,
	max_daily_trades INTEGER NOT NULL,
	account_balance REAL NOT NULL,
	daily_pnl REAL NOT NULL DEFAULT 0,
	weekly_pnl REAL NOT NULL DEFAULT 0,
	daily_trade_count INTEGER NOT NULL DEFAULT 0,
	open_position_count INTEGER NOT NULL DEFAULT 0 CHECK (open_position_count >= 0),
	consecutive_losses INTEGER NOT NULL DEFAULT 0,
	in_cooldown INTEGER NOT NULL DEFAULT 0,
	cooldown_ends_at DATETIME,
	last_trade_at DATETIME,
	block_reason TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL,
	version INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trade_plans (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	trade_id TEXT NOT NULL DEFAULT '',
	pair TEXT NOT NULL,
	direction TEXT NOT NULL,
	market_bias TEXT NOT NULL,
	bias_reasoning TEXT NOT NULL,
	setup_type TEXT NOT NULL,
	entry_trigger TEXT NOT NULL,
	invalidation_point TEXT NOT NULL,
	invalidation_reasoning TEXT NOT NULL,
	risk_amount REAL NOT NULL,
	risk_percent REAL NOT NULL,
	risk_reward_ratio REAL NOT NULL,
	mentoring TEXT,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trade_plans_user ON trade_plans(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_trade_plans_status ON trade_plans(status, created_at);

CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	plan_id TEXT NOT NULL DEFAULT '',
	session_id TEXT NOT NULL DEFAULT '',
	trade_type TEXT NOT NULL,
	pair TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME,
	lot_size REAL NOT NULL,
	stop_loss_price REAL NOT NULL,
	take_profit_price REAL,
	risk_amount REAL NOT NULL,
	risk_percent REAL NOT NULL,
	stop_distance_pips REAL NOT NULL,
	planned_rr REAL,
	actual_rr REAL,
	pnl_pips REAL,
	pnl_amount REAL,
	pnl_percent REAL,
	duration_minutes INTEGER,
	exit_reason TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	pre_trade_check TEXT NOT NULL DEFAULT '{}',
	behavior_flags TEXT NOT NULL DEFAULT '[]',
	debrief TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_trades_user_entry ON trades(user_id, entry_time);
CREATE INDEX IF NOT EXISTS idx_trades_user_status ON trades(user_id, status);

CREATE TABLE IF NOT EXISTS behavior_flags (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	trade_id TEXT NOT NULL DEFAULT '',
	flag_type TEXT NOT NULL,
	severity TEXT NOT NULL,
	details TEXT NOT NULL,
	detected_at DATETIME NOT NULL,
	resolved INTEGER NOT NULL DEFAULT 0,
	resolved_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_behavior_flags_user ON behavior_flags(user_id, detected_at);

CREATE TABLE IF NOT EXISTS simulation_sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	session_type TEXT NOT NULL,
	scenario_id TEXT NOT NULL DEFAULT '',
	config TEXT NOT NULL DEFAULT '{}',
	started_at DATETIME NOT NULL,
	ended_at DATETIME,
	performance TEXT NOT NULL DEFAULT '{}',
	passed INTEGER NOT NULL DEFAULT 0,
	failure_reasons TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_simulation_sessions_user ON simulation_sessions(user_id, session_type);

CREATE TABLE IF NOT EXISTS lesson_progress (
	user_id TEXT NOT NULL REFERENCES users(id),
	course_id TEXT NOT NULL,
	lesson_id TEXT NOT NULL,
	status TEXT NOT NULL,
	completed_at DATETIME,
	PRIMARY KEY (user_id, course_id, lesson_id)
);

CREATE TABLE IF NOT EXISTS pattern_progress (
	user_id TEXT NOT NULL REFERENCES users(id),
	pattern_id TEXT NOT NULL,
	status TEXT NOT NULL,
	mastered_at DATETIME,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, pattern_id)
);

CREATE TABLE IF NOT EXISTS risk_events (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	trade_id TEXT NOT NULL DEFAULT '',
	event_type TEXT NOT NULL,
	severity TEXT NOT NULL,
	details TEXT NOT NULL,
	snapshot TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_risk_events_user ON risk_events(user_id, created_at);

CREATE TABLE IF NOT EXISTS journal_entries (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	trade_id TEXT NOT NULL DEFAULT '',
	entry_type TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	emotional_state TEXT NOT NULL DEFAULT '',
	process_rating INTEGER NOT NULL DEFAULT 0,
	tags TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journal_entries_user ON journal_entries(user_id, created_at);
`

// columns added after a table was first released. NewSQLite adds any that an
// older database is missing.
var addedColumns = []struct{ table, column, ddl string }{
	{"risk_profiles", "version", "ALTER TABLE risk_profiles ADD COLUMN version INTEGER NOT NULL DEFAULT 0"},
}
