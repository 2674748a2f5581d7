package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agrosight/agrosight/internal/domain"
)

// WriteStats reports the outcome of one writer batch.
type WriteStats struct {
	Written    int
	Duplicates int
	Failed     int
}

// Writer persists classified, rendered items as recommendation records.
//
// Idempotency: the storage layer's uniqueness constraint over
// (rule_code, producer_id, status) is the authoritative guard against
// duplicate pending entries; the cache lookup in front of it only saves a
// round trip on re-runs and is never relied on for correctness.
type Writer struct {
	repo  domain.Repository
	cache domain.Cache
	sys   domain.SystemContext

	// PendingTTL bounds the pending-marker cache entries. Zero disables
	// the fast path even when a cache is configured.
	PendingTTL time.Duration
}

// NewWriter creates a recommendation writer. cache may be nil.
func NewWriter(repo domain.Repository, cache domain.Cache, sys domain.SystemContext) *Writer {
	return &Writer{
		repo:       repo,
		cache:      cache,
		sys:        sys,
		PendingTTL: 10 * time.Minute,
	}
}

// WriteAll persists a batch of generated items. A failing item is dropped
// from the written count and logged; it never aborts the remaining writes.
// The returned error, if any, joins the individual item failures and is
// non-fatal for the run.
func (w *Writer) WriteAll(ctx context.Context, items []domain.GeneratedItem) ([]*domain.Recommendation, WriteStats, error) {
	var (
		written []*domain.Recommendation
		stats   WriteStats
		errs    []error
	)

	for _, item := range items {
		if w.seenPending(ctx, item) {
			stats.Duplicates++
			continue
		}

		now := time.Now().UTC()
		rec := &domain.Recommendation{
			ID:          uuid.New().String(),
			Title:       item.Title,
			Message:     item.Message,
			ProducerID:  item.ProducerID,
			Category:    item.Category,
			Priority:    item.Priority,
			DisplayType: item.DisplayType,
			RuleCode:    item.RuleCode,
			Status:      domain.StatusPending,
			CreatedBy:   w.sys.Service,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		err := w.repo.InsertRecommendation(ctx, rec)
		switch {
		case err == nil:
			stats.Written++
			written = append(written, rec)
			w.markPending(ctx, item)
		case errors.Is(err, domain.ErrDuplicateRecommendation):
			stats.Duplicates++
			w.markPending(ctx, item)
		default:
			stats.Failed++
			werr := &domain.WriteError{RuleCode: item.RuleCode, ProducerID: item.ProducerID, Cause: err}
			errs = append(errs, werr)
			slog.Error("recommendation write failed",
				"rule_code", item.RuleCode,
				"producer_id", item.ProducerID,
				"error", err,
			)
		}
	}

	return written, stats, errors.Join(errs...)
}

// seenPending is the cache fast path: skip the insert when a pending marker
// for the same (rule_code, producer_id) pair is already cached.
func (w *Writer) seenPending(ctx context.Context, item domain.GeneratedItem) bool {
	if w.cache == nil || w.PendingTTL <= 0 {
		return false
	}
	val, err := w.cache.Get(ctx, domain.PendingKey(item.RuleCode, item.ProducerID))
	return err == nil && val != nil
}

func (w *Writer) markPending(ctx context.Context, item domain.GeneratedItem) {
	if w.cache == nil || w.PendingTTL <= 0 {
		return
	}
	_ = w.cache.Set(ctx, domain.PendingKey(item.RuleCode, item.ProducerID), []byte("1"), w.PendingTTL)
}
