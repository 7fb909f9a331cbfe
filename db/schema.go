package db

// Schema is the Postgres DDL for the dashboard tables. Applied by
// cmd/migrate; every statement is idempotent so reruns are safe.
const Schema = `
CREATE TABLE IF NOT EXISTS calls (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	phone_number TEXT NOT NULL,
	direction TEXT NOT NULL CHECK (direction IN ('inbound', 'outbound')),
	status TEXT NOT NULL CHECK (status IN ('answered', 'missed', 'voicemail', 'busy', 'failed')),
	duration_seconds INTEGER NOT NULL DEFAULT 0,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	contact_name TEXT,
	notes TEXT
);

CREATE INDEX IF NOT EXISTS idx_calls_timestamp ON calls (timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_calls_status ON calls (status);
CREATE INDEX IF NOT EXISTS idx_calls_direction ON calls (direction);

CREATE TABLE IF NOT EXISTS timeseries (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	metric TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
	value DOUBLE PRECISION NOT NULL,
	UNIQUE (metric, timestamp)
);

CREATE INDEX IF NOT EXISTS idx_timeseries_metric_ts ON timeseries (metric, timestamp);

CREATE TABLE IF NOT EXISTS engagement_metrics (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	metric_date DATE NOT NULL UNIQUE,
	appointments_via_agent INTEGER NOT NULL DEFAULT 0,
	whatsapp_conversations INTEGER NOT NULL DEFAULT 0,
	whatsapp_appointments INTEGER NOT NULL DEFAULT 0,
	notes_count_today INTEGER NOT NULL DEFAULT 0,
	last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS calendar_events (
	-- TEXT rather than UUID: events mirrored from the webhook tier carry
	-- externally minted ids.
	id TEXT PRIMARY KEY DEFAULT (gen_random_uuid()::text),
	title TEXT NOT NULL,
	description TEXT,
	location TEXT,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	all_day BOOLEAN NOT NULL DEFAULT FALSE,
	color TEXT,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_calendar_events_range ON calendar_events (start_time, end_time);
`
