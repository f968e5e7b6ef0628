package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/juicebox/backoffice/internal/infrastructure/deadletter"
	"github.com/juicebox/backoffice/usecase/reconciler"
)

// ConnectionHealth abstracts the connection monitor.
type ConnectionHealth interface {
	IsOnline() bool
}

// RedeliveryConfig controls how frequently the dead-letter journal is drained.
type RedeliveryConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// RedeliveryProcessor replays journaled webhook events through the reconciler
// once the stores are reachable again. Events that keep failing past the retry
// ceiling stay in the journal for manual handling.
type RedeliveryProcessor struct {
	store      *deadletter.Store
	monitor    ConnectionHealth
	reconciler *reconciler.Service
	logger     *zap.Logger
	cron       *cron.Cron
	cfg        RedeliveryConfig
}

func NewRedeliveryProcessor(
	store *deadletter.Store,
	monitor ConnectionHealth,
	reconcilerSvc *reconciler.Service,
	logger *zap.Logger,
	cfg RedeliveryConfig,
) *RedeliveryProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rp := &RedeliveryProcessor{
		store:      store,
		monitor:    monitor,
		reconciler: reconcilerSvc,
		logger:     logger,
		cfg:        cfg,
		cron:       cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = rp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := rp.Drain(ctx); err != nil {
			rp.logger.Error("dead-letter drain failed", zap.Error(err))
		}
	})

	return rp
}

// Start launches the cron scheduler.
func (rp *RedeliveryProcessor) Start() {
	if rp == nil || rp.cron == nil {
		return
	}
	rp.cron.Start()
	rp.logger.Info("redelivery processor started")
}

// Stop gracefully stops the scheduler.
func (rp *RedeliveryProcessor) Stop(ctx context.Context) {
	if rp == nil || rp.cron == nil {
		return
	}
	stopCtx := rp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	rp.logger.Info("redelivery processor stopped")
}

// Drain replays journaled events synchronously. Items that exhaust their
// retries are left in place rather than dropped: money events need an
// operator decision, not silent discard.
func (rp *RedeliveryProcessor) Drain(ctx context.Context) error {
	if rp == nil || rp.store == nil {
		return nil
	}
	if rp.monitor != nil && !rp.monitor.IsOnline() {
		rp.logger.Debug("skipping dead-letter drain (offline)")
		return nil
	}

	items, err := rp.store.List(rp.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if item.Retries >= rp.cfg.MaxRetries {
			continue
		}
		if err := rp.Replay(ctx, item); err != nil {
			rp.logger.Error("dead-letter replay failed",
				zap.String("item_id", item.ID),
				zap.String("event_type", item.EventType),
				zap.Int("retries", item.Retries+1),
				zap.Error(err))
			continue
		}
	}
	return nil
}

// Replay runs one journal entry through the reconciler. On success the entry
// is removed; on failure it is requeued with a bumped retry count.
func (rp *RedeliveryProcessor) Replay(ctx context.Context, item deadletter.Item) error {
	var ev reconciler.Event
	if err := json.Unmarshal(item.Payload, &ev); err != nil {
		// Malformed payloads can never succeed; drop them.
		rp.logger.Warn("dropping undecodable dead-letter item", zap.String("item_id", item.ID))
		return rp.store.Remove(item)
	}

	if err := rp.reconciler.HandleEvent(ctx, ev); err != nil {
		item.Retries++
		item.Error = err.Error()
		if removeErr := rp.store.Remove(item); removeErr != nil {
			rp.logger.Warn("failed to remove dead-letter item", zap.Error(removeErr))
		}
		if requeueErr := rp.store.Requeue(item); requeueErr != nil {
			rp.logger.Error("failed to requeue dead-letter item", zap.Error(requeueErr))
		}
		return err
	}
	return rp.store.Remove(item)
}

// Size returns the number of journaled events.
func (rp *RedeliveryProcessor) Size() int {
	if rp == nil || rp.store == nil {
		return 0
	}
	size, err := rp.store.Size()
	if err != nil {
		return 0
	}
	return size
}
