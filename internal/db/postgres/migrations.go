package postgres

// Migration: одна версия схемы.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations: схема кошелька, журнала заявок и админ-консоли.
// Суммы хранятся в NUMERIC(20,2).
var Migrations = []Migration{
	{Version: 1, Name: "accounts", SQL: migrationAccounts},
	{Version: 2, Name: "journal", SQL: migrationJournal},
	{Version: 3, Name: "admin_console", SQL: migrationAdminConsole},
}

const migrationAccounts = `
CREATE TABLE IF NOT EXISTS accounts (
	id UUID PRIMARY KEY,
	handle VARCHAR(32) NOT NULL UNIQUE,
	name VARCHAR(128) NOT NULL,
	password_hash TEXT NOT NULL,
	balance NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
	total_invested NUMERIC(20,2) NOT NULL DEFAULT 0,
	total_withdrawn NUMERIC(20,2) NOT NULL DEFAULT 0,
	total_earnings NUMERIC(20,2) NOT NULL DEFAULT 0,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	referrer_id UUID REFERENCES accounts(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id UUID PRIMARY KEY,
	account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	direction VARCHAR(6) NOT NULL CHECK (direction IN ('credit', 'debit')),
	amount NUMERIC(20,2) NOT NULL CHECK (amount >= 0),
	kind VARCHAR(32) NOT NULL,
	reference_id UUID NOT NULL,
	balance_after NUMERIC(20,2) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries (account_id, created_at DESC);
`

const migrationJournal = `
CREATE TABLE IF NOT EXISTS purchases (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	plan_id INTEGER NOT NULL,
	plan_name VARCHAR(64) NOT NULL,
	price NUMERIC(20,2) NOT NULL,
	daily_income NUMERIC(20,2) NOT NULL,
	total_return NUMERIC(20,2) NOT NULL,
	duration_days INTEGER NOT NULL,
	income_received NUMERIC(20,2) NOT NULL DEFAULT 0,
	status VARCHAR(16) NOT NULL DEFAULT 'active',
	purchased_at TIMESTAMPTZ NOT NULL,
	last_accrued_on DATE,
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_purchases_user ON purchases (user_id, purchased_at DESC);
CREATE INDEX IF NOT EXISTS idx_purchases_active ON purchases (purchased_at) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS recharges (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	amount NUMERIC(20,2) NOT NULL CHECK (amount > 0),
	utr VARCHAR(64) NOT NULL,
	status VARCHAR(16) NOT NULL DEFAULT 'pending',
	requested_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_recharges_user ON recharges (user_id, requested_at DESC);
CREATE INDEX IF NOT EXISTS idx_recharges_status ON recharges (status, requested_at DESC);
CREATE INDEX IF NOT EXISTS idx_recharges_utr ON recharges (utr);

CREATE TABLE IF NOT EXISTS withdrawals (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	amount NUMERIC(20,2) NOT NULL CHECK (amount > 0),
	tax NUMERIC(20,2) NOT NULL,
	net_amount NUMERIC(20,2) NOT NULL,
	method VARCHAR(8) NOT NULL CHECK (method IN ('upi', 'bank')),
	details TEXT NOT NULL,
	status VARCHAR(16) NOT NULL DEFAULT 'pending',
	requested_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_withdrawals_user ON withdrawals (user_id, requested_at DESC);
CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals (status, requested_at DESC);

CREATE TABLE IF NOT EXISTS game_plays (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	variant VARCHAR(16) NOT NULL,
	stake NUMERIC(20,2) NOT NULL,
	win BOOLEAN NOT NULL,
	payout NUMERIC(20,2) NOT NULL,
	result TEXT NOT NULL,
	played_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_plays_user ON game_plays (user_id, played_at DESC);
`

const migrationAdminConsole = `
CREATE TABLE IF NOT EXISTS admin_sessions (
	telegram_id BIGINT PRIMARY KEY,
	authenticated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS admin_login_attempts (
	id BIGSERIAL PRIMARY KEY,
	telegram_id BIGINT NOT NULL,
	success BOOLEAN NOT NULL,
	attempted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_user ON admin_login_attempts (telegram_id, attempted_at DESC);
`
