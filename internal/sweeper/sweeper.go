package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jobdam/service-billing/internal/config"
	"github.com/jobdam/service-billing/internal/domain/subscription"
	"github.com/jobdam/service-billing/internal/events"
	"github.com/jobdam/service-billing/internal/metrics"
)

// Sweeper reconciles subscription state on a schedule: it expires active
// subscriptions whose period ended and cancels pending subscriptions that
// never received gateway approval.
type Sweeper struct {
	subs       subscription.Repository
	sink       events.Sink
	interval   time.Duration
	pendingTTL time.Duration
	logger     *zap.Logger
}

// New creates a Sweeper from config.
func New(subs subscription.Repository, sink events.Sink, cfg config.SweepConfig, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		subs:       subs,
		sink:       sink,
		interval:   cfg.Interval,
		pendingTTL: cfg.PendingTTL,
		logger:     logger,
	}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	w.logger.Info("sweeper started",
		zap.Duration("interval", w.interval),
		zap.Duration("pending_ttl", w.pendingTTL),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs a single reconciliation pass.
func (w *Sweeper) Sweep(ctx context.Context) {
	metrics.SweepRuns.Inc()
	now := time.Now().UTC()
	w.expireEnded(ctx, now)
	w.cancelStalePending(ctx, now.Add(-w.pendingTTL))
}

func (w *Sweeper) expireEnded(ctx context.Context, now time.Time) {
	expired, err := w.subs.FindExpired(ctx, now)
	if err != nil {
		w.logger.Error("failed to list expired subscriptions", zap.Error(err))
		return
	}

	for _, sub := range expired {
		if err := sub.Expire(); err != nil {
			w.logger.Warn("skipping subscription not eligible for expiry",
				zap.String("subscription_id", sub.ID().String()),
				zap.Error(err),
			)
			continue
		}
		if err := w.subs.Update(ctx, sub); err != nil {
			w.logger.Error("failed to persist expiry",
				zap.String("subscription_id", sub.ID().String()),
				zap.Error(err),
			)
			continue
		}
		metrics.SubscriptionsExpired.Inc()
		w.publish(ctx, events.SubscriptionExpired, sub)
		w.logger.Info("subscription expired",
			zap.String("subscription_id", sub.ID().String()),
			zap.Time("end_date", sub.EndDate()),
		)
	}
}

func (w *Sweeper) cancelStalePending(ctx context.Context, cutoff time.Time) {
	stale, err := w.subs.FindStalePending(ctx, cutoff)
	if err != nil {
		w.logger.Error("failed to list stale pending subscriptions", zap.Error(err))
		return
	}

	for _, sub := range stale {
		sub.Cancel()
		if err := w.subs.Update(ctx, sub); err != nil {
			w.logger.Error("failed to cancel stale pending subscription",
				zap.String("subscription_id", sub.ID().String()),
				zap.Error(err),
			)
			continue
		}
		metrics.SubscriptionsCancelled.Inc()
		w.publish(ctx, events.SubscriptionCancelled, sub)
		w.logger.Info("stale pending subscription cancelled",
			zap.String("subscription_id", sub.ID().String()),
			zap.Time("created_at", sub.CreatedAt()),
		)
	}
}

func (w *Sweeper) publish(ctx context.Context, eventType string, sub *subscription.Subscription) {
	env, err := events.NewEnvelope(events.Source, eventType, events.SubscriptionEvent{
		SubscriptionID: sub.ID(),
		UserID:         sub.UserID(),
		PlanType:       string(sub.PlanType()),
		Status:         string(sub.Status()),
		Amount:         sub.Amount(),
		StartDate:      sub.StartDate(),
		EndDate:        sub.EndDate(),
		OccurredAt:     time.Now().UTC(),
	})
	if err != nil {
		w.logger.Error("failed to build sweep event", zap.Error(err))
		return
	}
	if err := w.sink.Publish(ctx, events.TopicSubscriptionEvents, sub.ID().String(), env); err != nil {
		w.logger.Error("failed to publish sweep event",
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}
