// Package dataset loads an in-memory snapshot of the farm data the CEL
// condition evaluator runs over.
package dataset

import (
	"context"
	"time"

	"github.com/agrosight/agrosight/internal/domain"
)

// Row is one evaluation context: an observation joined with its producer
// and plot. A rule condition is evaluated once per row.
type Row struct {
	ProducerID   string
	ProducerName string
	CropName     string
	PlotName     string
	Metric       string
	Value        float64
	ObservedAt   time.Time
	AgeDays      int
}

// Service builds dataset snapshots from the repository.
type Service struct {
	repo domain.Repository

	// MaxAge bounds how far back observations are loaded. Zero means the
	// default of 30 days.
	MaxAge time.Duration
}

// NewService creates a new snapshot service.
func NewService(repo domain.Repository) *Service {
	return &Service{repo: repo}
}

// Rows loads the current snapshot: every recent observation joined with
// its producer and plot context.
func (s *Service) Rows(ctx context.Context) ([]Row, error) {
	maxAge := s.MaxAge
	if maxAge == 0 {
		maxAge = 30 * 24 * time.Hour
	}
	now := time.Now().UTC()

	producers, err := s.repo.ListProducers(ctx)
	if err != nil {
		return nil, err
	}
	producersByID := make(map[string]*domain.Producer, len(producers))
	for _, p := range producers {
		producersByID[p.ID] = p
	}

	plots, err := s.repo.ListPlots(ctx)
	if err != nil {
		return nil, err
	}
	plotsByID := make(map[string]*domain.Plot, len(plots))
	for _, p := range plots {
		plotsByID[p.ID] = p
	}

	observations, err := s.repo.ListObservations(ctx, now.Add(-maxAge))
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(observations))
	for _, o := range observations {
		row := Row{
			ProducerID: o.ProducerID,
			CropName:   o.CropName,
			PlotName:   o.PlotName,
			Metric:     o.Metric,
			Value:      o.Value,
			ObservedAt: o.ObservedAt,
			AgeDays:    int(now.Sub(o.ObservedAt).Hours() / 24),
		}
		if p, ok := producersByID[o.ProducerID]; ok {
			row.ProducerName = p.Name
		}
		if plot, ok := plotsByID[o.PlotID]; ok {
			if row.PlotName == "" {
				row.PlotName = plot.Name
			}
			if row.CropName == "" {
				row.CropName = plot.CropName
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
