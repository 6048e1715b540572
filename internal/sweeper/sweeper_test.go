package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobdam/service-billing/internal/config"
	"github.com/jobdam/service-billing/internal/domain"
	"github.com/jobdam/service-billing/internal/domain/subscription"
	"github.com/jobdam/service-billing/internal/events"
)

type sweepRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*subscription.Subscription
}

func newSweepRepo(subs ...*subscription.Subscription) *sweepRepo {
	r := &sweepRepo{subs: make(map[uuid.UUID]*subscription.Subscription)}
	for _, s := range subs {
		r.subs[s.ID()] = s
	}
	return r
}

func (r *sweepRepo) Save(_ context.Context, s *subscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s.ID()] = s
	return nil
}

func (r *sweepRepo) Update(_ context.Context, s *subscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s.ID()] = s
	return nil
}

func (r *sweepRepo) FindByID(_ context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, domain.NewSubscriptionNotFound(id.String())
	}
	return s, nil
}

func (r *sweepRepo) FindByOrderID(_ context.Context, orderID string) (*subscription.Subscription, error) {
	return nil, domain.NewSubscriptionNotFound(orderID)
}

func (r *sweepRepo) FindByKakaoTID(_ context.Context, tid string) (*subscription.Subscription, error) {
	return nil, domain.NewSubscriptionNotFound(tid)
}

func (r *sweepRepo) FindLatestActiveByUser(_ context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	return nil, domain.NewSubscriptionNotFound(userID.String())
}

func (r *sweepRepo) ExistsOpenByUser(_ context.Context, userID uuid.UUID) (bool, error) {
	return false, nil
}

func (r *sweepRepo) FindExpired(_ context.Context, now time.Time) ([]*subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*subscription.Subscription
	for _, s := range r.subs {
		if s.Status() == subscription.StatusActive && s.EndDate().Before(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *sweepRepo) FindStalePending(_ context.Context, cutoff time.Time) ([]*subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*subscription.Subscription
	for _, s := range r.subs {
		if s.Status() == subscription.StatusPending && s.CreatedAt().Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *sweepRepo) ListAll(_ context.Context, page, limit int) ([]*subscription.Subscription, int64, error) {
	return nil, 0, nil
}

func (r *sweepRepo) RevenueStats(_ context.Context) (int64, map[string]int64, error) {
	return 0, nil, nil
}

type sweepSink struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (s *sweepSink) Publish(_ context.Context, topic, key string, env events.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = append(s.envelopes, env)
	return nil
}

func (s *sweepSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.envelopes))
	for i, env := range s.envelopes {
		out[i] = env.Type
	}
	return out
}

func activePastEnd(userID uuid.UUID) *subscription.Subscription {
	now := time.Now().UTC()
	return subscription.Reconstruct(uuid.New(), userID, subscription.PlanPaidMonthly,
		subscription.StatusActive, now.AddDate(0, -2, 0), now.AddDate(0, -1, 0), 9900,
		subscription.PaymentMethodKakaoPay, "T_old", "ORDER-OLD-"+userID.String()[:8],
		"", "", false, now.AddDate(0, -2, 0), now.AddDate(0, -1, 0))
}

func stalePending(userID uuid.UUID, age time.Duration) *subscription.Subscription {
	now := time.Now().UTC()
	created := now.Add(-age)
	return subscription.Reconstruct(uuid.New(), userID, subscription.PlanPaidMonthly,
		subscription.StatusPending, created, created.AddDate(0, 1, 0), 9900,
		subscription.PaymentMethodKakaoPay, "", "ORDER-STALE-"+userID.String()[:8],
		"", "", false, created, created)
}

func sweepConfig() config.SweepConfig {
	return config.SweepConfig{Interval: time.Hour, PendingTTL: 24 * time.Hour}
}

func TestSweep_ExpiresActivePastEndDate(t *testing.T) {
	expired := activePastEnd(uuid.New())
	current, err := subscription.NewPaidSubscription(uuid.New(), subscription.PlanPaidMonthly, "ORDER-CUR", 9900)
	require.NoError(t, err)
	require.NoError(t, current.Activate())

	repo := newSweepRepo(expired, current)
	sink := &sweepSink{}

	New(repo, sink, sweepConfig(), zap.NewNop()).Sweep(context.Background())

	got, err := repo.FindByID(context.Background(), expired.ID())
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusExpired, got.Status())

	got, err = repo.FindByID(context.Background(), current.ID())
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, got.Status())

	assert.Equal(t, []string{events.SubscriptionExpired}, sink.types())
}

func TestSweep_CancelsStalePending(t *testing.T) {
	stale := stalePending(uuid.New(), 48*time.Hour)
	fresh := stalePending(uuid.New(), time.Hour)

	repo := newSweepRepo(stale, fresh)
	sink := &sweepSink{}

	New(repo, sink, sweepConfig(), zap.NewNop()).Sweep(context.Background())

	got, err := repo.FindByID(context.Background(), stale.ID())
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCancelled, got.Status())

	got, err = repo.FindByID(context.Background(), fresh.ID())
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPending, got.Status())

	assert.Equal(t, []string{events.SubscriptionCancelled}, sink.types())
}

func TestSweep_EmptyRepoPublishesNothing(t *testing.T) {
	repo := newSweepRepo()
	sink := &sweepSink{}

	New(repo, sink, sweepConfig(), zap.NewNop()).Sweep(context.Background())

	assert.Empty(t, sink.types())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	repo := newSweepRepo()
	sink := &sweepSink{}
	w := New(repo, sink, config.SweepConfig{Interval: 10 * time.Millisecond, PendingTTL: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancel")
	}
}
