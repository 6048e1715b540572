package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence operations for subscriptions.
type Repository interface {
	Save(ctx context.Context, s *Subscription) error
	Update(ctx context.Context, s *Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	FindByOrderID(ctx context.Context, orderID string) (*Subscription, error)
	FindByKakaoTID(ctx context.Context, tid string) (*Subscription, error)
	// FindLatestActiveByUser returns the most recently created active
	// subscription for the user.
	FindLatestActiveByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	// ExistsOpenByUser reports whether the user has a pending or active
	// subscription occupying the per-user slot.
	ExistsOpenByUser(ctx context.Context, userID uuid.UUID) (bool, error)
	// FindExpired returns active subscriptions whose end date is before now.
	FindExpired(ctx context.Context, now time.Time) ([]*Subscription, error)
	// FindStalePending returns pending subscriptions created before the cutoff
	// that never received gateway approval.
	FindStalePending(ctx context.Context, cutoff time.Time) ([]*Subscription, error)
	ListAll(ctx context.Context, page, limit int) ([]*Subscription, int64, error)
	// RevenueStats returns total confirmed revenue and counts by status.
	RevenueStats(ctx context.Context) (int64, map[string]int64, error)
}
