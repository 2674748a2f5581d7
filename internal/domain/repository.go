package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence. The engine treats
// the store as a queryable dataset with a condition-evaluation capability;
// query execution and transactions stay behind this interface.
type Repository interface {
	// Rule catalog operations. Rules are edited by administrators;
	// the engine itself only lists active ones.
	ListActiveRules(ctx context.Context) ([]*Rule, error)
	GetRule(ctx context.Context, code string) (*Rule, error)
	SaveRule(ctx context.Context, rule *Rule) error

	// EvaluateCondition runs a rule's stored condition against the dataset
	// and returns the matching context rows. Conditions must be read-only.
	EvaluateCondition(ctx context.Context, condition string) ([]Hit, error)

	// Recommendation operations. InsertRecommendation returns
	// ErrDuplicateRecommendation when a pending record already exists for
	// the same (rule_code, producer_id) pair; the uniqueness constraint in
	// the store is the authoritative guard.
	InsertRecommendation(ctx context.Context, rec *Recommendation) error
	GetRecommendation(ctx context.Context, id string) (*Recommendation, error)
	ListRecommendations(ctx context.Context, status Status) ([]*Recommendation, error)
	UpdateRecommendationStatus(ctx context.Context, id string, status Status) error

	// Farm data read model. Only what condition evaluation needs.
	SaveProducer(ctx context.Context, p *Producer) error
	ListProducers(ctx context.Context) ([]*Producer, error)
	SavePlot(ctx context.Context, p *Plot) error
	ListPlots(ctx context.Context) ([]*Plot, error)
	SaveObservation(ctx context.Context, o *Observation) error
	ListObservations(ctx context.Context, since time.Time) ([]*Observation, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
