// Package worker provides async run processing driven by the event bus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/agrosight/agrosight/internal/domain"
	"github.com/agrosight/agrosight/internal/engine"
)

// Worker listens for run requests on the EventBus and executes generation
// runs. One run at a time: a request arriving while a run is in flight is
// dropped, since the pending run will already cover the current data.
type Worker struct {
	bus          domain.EventBus
	orchestrator *engine.Orchestrator

	subscriptions []domain.Subscription
	running       sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// RunRequest is the message payload for requesting a generation run.
type RunRequest struct {
	RequestedBy string `json:"requestedBy,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, orchestrator *engine.Orchestrator) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:          bus,
		orchestrator: orchestrator,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start subscribes to the run request topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicRunRequested, w.handleRunRequest)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("worker started", "topic", domain.TopicRunRequested)
	return nil
}

// handleRunRequest executes a generation run for one bus request.
func (w *Worker) handleRunRequest(ctx context.Context, msg *domain.Message) error {
	var req RunRequest
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			slog.Error("failed to parse run request",
				"message_id", msg.ID,
				"error", err,
			)
			return err
		}
	}

	if !w.running.TryLock() {
		slog.Info("run already in flight, dropping request",
			"message_id", msg.ID,
			"requested_by", req.RequestedBy,
		)
		return nil
	}
	defer w.running.Unlock()

	start := time.Now()
	slog.Info("run requested",
		"message_id", msg.ID,
		"requested_by", req.RequestedBy,
		"reason", req.Reason,
	)

	summary, err := w.orchestrator.Run(ctx)
	if err != nil {
		slog.Error("requested run failed",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	slog.Info("requested run finished",
		"message_id", msg.ID,
		"run_id", summary.RunID,
		"written", summary.Written,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	// Wait for an in-flight run to release the lock.
	w.running.Lock()
	w.running.Unlock()

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
