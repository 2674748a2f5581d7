package repository

// Schema definitions for the Agrosight database.
// Compatible with both SQLite and PostgreSQL.

const schemaProducers = `
CREATE TABLE IF NOT EXISTS producers (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    region TEXT,
    phone TEXT
);

CREATE INDEX IF NOT EXISTS idx_producers_region ON producers(region);
`

const schemaPlots = `
CREATE TABLE IF NOT EXISTS plots (
    id TEXT PRIMARY KEY,
    producer_id TEXT NOT NULL,
    name TEXT NOT NULL,
    crop_name TEXT,
    area_ha REAL
);

CREATE INDEX IF NOT EXISTS idx_plots_producer ON plots(producer_id);
`

const schemaObservations = `
CREATE TABLE IF NOT EXISTS observations (
    id TEXT PRIMARY KEY,
    producer_id TEXT NOT NULL,
    plot_id TEXT,
    plot_name TEXT,
    crop_name TEXT,
    metric TEXT NOT NULL,
    value REAL NOT NULL,
    observed_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_observations_producer ON observations(producer_id);
CREATE INDEX IF NOT EXISTS idx_observations_metric ON observations(metric);
CREATE INDEX IF NOT EXISTS idx_observations_observed ON observations(observed_at);
`

const schemaRules = `
CREATE TABLE IF NOT EXISTS rules (
    code TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    condition TEXT NOT NULL,
    message_template TEXT NOT NULL,
    severity TEXT NOT NULL,
    action_type TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_active ON rules(is_active);
`

// The UNIQUE constraint over (rule_code, producer_id, status) is the
// authoritative idempotency guard: re-running the engine cannot create a
// second pending record for the same pair, even from concurrent runs.
const schemaRecommendations = `
CREATE TABLE IF NOT EXISTS recommendations (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    producer_id TEXT NOT NULL,
    category TEXT NOT NULL,
    priority TEXT NOT NULL,
    display_type TEXT NOT NULL,
    rule_code TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    created_by TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE (rule_code, producer_id, status)
);

CREATE INDEX IF NOT EXISTS idx_recommendations_producer ON recommendations(producer_id);
CREATE INDEX IF NOT EXISTS idx_recommendations_status ON recommendations(status);
CREATE INDEX IF NOT EXISTS idx_recommendations_rule ON recommendations(rule_code);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaProducers,
		schemaPlots,
		schemaObservations,
		schemaRules,
		schemaRecommendations,
	}
}
