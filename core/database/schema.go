package database

// Schema contains the DDL for all tables and indexes.
const Schema = `
-- Integrations: one OAuth connection per (user, provider)
CREATE TABLE IF NOT EXISTS integrations (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL,
    provider VARCHAR(32) NOT NULL,

    -- OAuth credentials
    access_token TEXT NOT NULL,
    refresh_token TEXT,
    token_expires_at TIMESTAMPTZ NOT NULL,
    scope TEXT,

    -- Sync state
    status VARCHAR(16) NOT NULL DEFAULT 'ACTIVE',
    last_synced_at TIMESTAMPTZ,
    last_sync_error TEXT,

    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- At most one non-revoked integration per (user, provider)
CREATE UNIQUE INDEX IF NOT EXISTS idx_integrations_user_provider_live
    ON integrations(user_id, provider) WHERE status != 'REVOKED';
CREATE INDEX IF NOT EXISTS idx_integrations_user_id ON integrations(user_id);
CREATE INDEX IF NOT EXISTS idx_integrations_status ON integrations(status);
CREATE INDEX IF NOT EXISTS idx_integrations_last_synced ON integrations(last_synced_at);

-- Health entries: one row per (user, day), normalized across providers
CREATE TABLE IF NOT EXISTS health_entries (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL,
    entry_date DATE NOT NULL,

    steps INTEGER,
    weight_kg NUMERIC(6,2),
    calories_burned NUMERIC(8,2),
    exercise_minutes INTEGER,
    sleep_minutes INTEGER,
    heart_rate_avg INTEGER,
    resting_heart_rate INTEGER,
    distance_km NUMERIC(7,3),
    active_minutes INTEGER,

    source VARCHAR(32) NOT NULL,

    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_health_entries_user_date UNIQUE (user_id, entry_date)
);

CREATE INDEX IF NOT EXISTS idx_health_entries_user_date ON health_entries(user_id, entry_date DESC);

-- Goals: user targets recalculated from health entries after each sync
CREATE TABLE IF NOT EXISTS goals (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL,
    goal_type VARCHAR(16) NOT NULL,
    target_value NUMERIC(10,2) NOT NULL,
    start_value NUMERIC(10,2),
    progress NUMERIC(5,2) NOT NULL DEFAULT 0,
    status VARCHAR(16) NOT NULL DEFAULT 'active',
    start_date DATE NOT NULL,
    end_date DATE NOT NULL,

    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_goals_user_status ON goals(user_id, status);

-- Notifications
CREATE TABLE IF NOT EXISTS notifications (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL,
    title VARCHAR(255) NOT NULL,
    message TEXT NOT NULL,
    type VARCHAR(64) NOT NULL,
    data JSONB,
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(user_id) WHERE is_read = FALSE;
`
