// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agrosight/agrosight/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// ListActiveRules returns every active rule in the catalog.
func (r *SQLRepository) ListActiveRules(ctx context.Context) ([]*domain.Rule, error) {
	query := `
		SELECT code, name, description, condition, message_template,
		       severity, action_type, is_active, created_at, updated_at
		FROM rules
		WHERE is_active = 1
		ORDER BY code
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// GetRule retrieves a rule by code.
func (r *SQLRepository) GetRule(ctx context.Context, code string) (*domain.Rule, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}

	query := `
		SELECT code, name, description, condition, message_template,
		       severity, action_type, is_active, created_at, updated_at
		FROM rules
		WHERE code = ?
	`

	rule, err := scanRule(r.db.QueryRowContext(ctx, r.rebind(query), code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// SaveRule inserts or updates a rule. The code is the immutable identity;
// everything else may change.
func (r *SQLRepository) SaveRule(ctx context.Context, rule *domain.Rule) error {
	if rule.Code == "" {
		return fmt.Errorf("%w: rule code is required", ErrInvalidInput)
	}

	active := 0
	if rule.IsActive {
		active = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO rules (
			code, name, description, condition, message_template,
			severity, action_type, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			condition = excluded.condition,
			message_template = excluded.message_template,
			severity = excluded.severity,
			action_type = excluded.action_type,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.Code, rule.Name, rule.Description,
		rule.Condition, rule.MessageTemplate,
		string(rule.Severity), string(rule.ActionType), active,
		now, now,
	)
	return err
}

// EvaluateCondition executes a rule's stored condition as a query and maps
// the result rows to hits. Conditions must be read-only; anything that is
// not a plain SELECT is rejected before reaching the database.
func (r *SQLRepository) EvaluateCondition(ctx context.Context, condition string) ([]domain.Hit, error) {
	trimmed := strings.TrimSpace(condition)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: condition is required", ErrInvalidInput)
	}
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return nil, fmt.Errorf("%w: condition must be a read-only query", ErrInvalidInput)
	}

	rows, err := r.db.QueryContext(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var hits []domain.Hit
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		hit := domain.Hit{Fields: make(map[string]string)}
		for i, col := range columns {
			val := columnString(values[i])
			switch col {
			case "producer_id":
				hit.ProducerID = val
			case "producer_name":
				hit.ProducerName = val
			case "crop_name":
				hit.CropName = val
			case "plot_name":
				hit.PlotName = val
			default:
				hit.Fields[col] = val
			}
		}
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}

// InsertRecommendation persists a new pending recommendation. The
// uniqueness constraint over (rule_code, producer_id, status) makes the
// insert a no-op when a pending record for the pair already exists, in
// which case ErrDuplicateRecommendation is returned.
func (r *SQLRepository) InsertRecommendation(ctx context.Context, rec *domain.Recommendation) error {
	if rec.RuleCode == "" || rec.ProducerID == "" {
		return fmt.Errorf("%w: rule_code and producer_id are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO recommendations (
			id, title, message, producer_id, category, priority,
			display_type, rule_code, status, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(rule_code, producer_id, status) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, rec.Title, rec.Message, rec.ProducerID,
		string(rec.Category), string(rec.Priority),
		rec.DisplayType, rec.RuleCode, string(rec.Status),
		rec.CreatedBy, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrDuplicateRecommendation
	}
	return nil
}

// GetRecommendation retrieves a recommendation by ID.
func (r *SQLRepository) GetRecommendation(ctx context.Context, id string) (*domain.Recommendation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, title, message, producer_id, category, priority,
		       display_type, rule_code, status, created_by, created_at, updated_at
		FROM recommendations
		WHERE id = ?
	`

	rec, err := scanRecommendation(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecommendations retrieves recommendations, optionally filtered by
// status. Empty status means all.
func (r *SQLRepository) ListRecommendations(ctx context.Context, status domain.Status) ([]*domain.Recommendation, error) {
	query := `
		SELECT id, title, message, producer_id, category, priority,
		       display_type, rule_code, status, created_by, created_at, updated_at
		FROM recommendations
	`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*domain.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// UpdateRecommendationStatus transitions a recommendation's lifecycle
// state. This is the downstream UI's surface; the engine never calls it.
func (r *SQLRepository) UpdateRecommendationStatus(ctx context.Context, id string, status domain.Status) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	query := `
		UPDATE recommendations
		SET status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), string(status), time.Now().UTC(), id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveProducer stores a producer.
func (r *SQLRepository) SaveProducer(ctx context.Context, p *domain.Producer) error {
	if p.ID == "" {
		return fmt.Errorf("%w: producer id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO producers (id, name, region, phone)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			region = excluded.region,
			phone = excluded.phone
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query), p.ID, p.Name, p.Region, p.Phone)
	return err
}

// ListProducers returns all producers.
func (r *SQLRepository) ListProducers(ctx context.Context) ([]*domain.Producer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, region, phone FROM producers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var producers []*domain.Producer
	for rows.Next() {
		var p domain.Producer
		var region, phone sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &region, &phone); err != nil {
			return nil, err
		}
		p.Region = region.String
		p.Phone = phone.String
		producers = append(producers, &p)
	}

	return producers, rows.Err()
}

// SavePlot stores a plot.
func (r *SQLRepository) SavePlot(ctx context.Context, p *domain.Plot) error {
	if p.ID == "" || p.ProducerID == "" {
		return fmt.Errorf("%w: plot id and producer_id are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO plots (id, producer_id, name, crop_name, area_ha)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			crop_name = excluded.crop_name,
			area_ha = excluded.area_ha
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query), p.ID, p.ProducerID, p.Name, p.CropName, p.AreaHa)
	return err
}

// ListPlots returns all plots.
func (r *SQLRepository) ListPlots(ctx context.Context) ([]*domain.Plot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, producer_id, name, crop_name, area_ha FROM plots ORDER BY producer_id, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plots []*domain.Plot
	for rows.Next() {
		var p domain.Plot
		var crop sql.NullString
		var area sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.ProducerID, &p.Name, &crop, &area); err != nil {
			return nil, err
		}
		p.CropName = crop.String
		p.AreaHa = area.Float64
		plots = append(plots, &p)
	}

	return plots, rows.Err()
}

// SaveObservation stores an observation.
func (r *SQLRepository) SaveObservation(ctx context.Context, o *domain.Observation) error {
	if o.ID == "" || o.ProducerID == "" {
		return fmt.Errorf("%w: observation id and producer_id are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO observations (
			id, producer_id, plot_id, plot_name, crop_name, metric, value, observed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		o.ID, o.ProducerID, o.PlotID, o.PlotName, o.CropName,
		o.Metric, o.Value, o.ObservedAt,
	)
	return err
}

// ListObservations returns observations recorded at or after since.
func (r *SQLRepository) ListObservations(ctx context.Context, since time.Time) ([]*domain.Observation, error) {
	query := `
		SELECT id, producer_id, plot_id, plot_name, crop_name, metric, value, observed_at
		FROM observations
		WHERE observed_at >= ?
		ORDER BY observed_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []*domain.Observation
	for rows.Next() {
		var o domain.Observation
		var plotID, plotName, cropName sql.NullString
		if err := rows.Scan(&o.ID, &o.ProducerID, &plotID, &plotName, &cropName, &o.Metric, &o.Value, &o.ObservedAt); err != nil {
			return nil, err
		}
		o.PlotID = plotID.String
		o.PlotName = plotName.String
		o.CropName = cropName.String
		observations = append(observations, &o)
	}

	return observations, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRule(s scanner) (*domain.Rule, error) {
	var rule domain.Rule
	var description sql.NullString
	var severity, actionType string
	var active int

	err := s.Scan(
		&rule.Code, &rule.Name, &description,
		&rule.Condition, &rule.MessageTemplate,
		&severity, &actionType, &active,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Description = description.String
	rule.Severity = domain.Severity(severity)
	rule.ActionType = domain.ActionType(actionType)
	rule.IsActive = active == 1
	return &rule, nil
}

func scanRecommendation(s scanner) (*domain.Recommendation, error) {
	var rec domain.Recommendation
	var category, priority, status string
	var createdBy sql.NullString

	err := s.Scan(
		&rec.ID, &rec.Title, &rec.Message, &rec.ProducerID,
		&category, &priority, &rec.DisplayType, &rec.RuleCode,
		&status, &createdBy, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Category = domain.Category(category)
	rec.Priority = domain.Priority(priority)
	rec.Status = domain.Status(status)
	rec.CreatedBy = createdBy.String
	return &rec, nil
}

func columnString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
