package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobdam/service-billing/internal/adapter"
	"github.com/jobdam/service-billing/internal/domain"
	"github.com/jobdam/service-billing/internal/domain/coupon"
	"github.com/jobdam/service-billing/internal/domain/subscription"
	"github.com/jobdam/service-billing/internal/domain/user"
	"github.com/jobdam/service-billing/internal/events"
	"github.com/jobdam/service-billing/internal/metrics"
)

// BeginPaymentRequest is the DTO for starting a paid subscription checkout.
type BeginPaymentRequest struct {
	PlanType          string `json:"planType" binding:"required"`
	OrderID           string `json:"orderId" binding:"required"`
	ItemName          string `json:"itemName"`
	Amount            int64  `json:"amount"`
	AcademyCouponCode string `json:"academyCouponCode"`
}

// ApprovePaymentRequest is the DTO for confirming a checkout after the user
// authorized the payment out-of-band.
type ApprovePaymentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	PgToken string `json:"pgToken" binding:"required"`
	TID     string `json:"tid"`
}

// ReadyDTO is the API response for a started checkout.
type ReadyDTO struct {
	SubscriptionID        uuid.UUID `json:"subscription_id"`
	TID                   string    `json:"tid"`
	NextRedirectPCURL     string    `json:"next_redirect_pc_url"`
	NextRedirectMobileURL string    `json:"next_redirect_mobile_url"`
	AndroidAppScheme      string    `json:"android_app_scheme,omitempty"`
	IOSAppScheme          string    `json:"ios_app_scheme,omitempty"`
	CreatedAt             string    `json:"created_at"`
}

// ConfirmationDTO summarizes a confirmed subscription.
type ConfirmationDTO struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	ItemName       string    `json:"item_name"`
	Amount         int64     `json:"amount"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
}

// SubscriptionDTO is the API response for a subscription.
type SubscriptionDTO struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	PlanType        string    `json:"plan_type"`
	Status          string    `json:"status"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	Amount          int64     `json:"amount"`
	PaymentMethod   string    `json:"payment_method"`
	AcademyName     string    `json:"academy_name,omitempty"`
	AcademyVerified bool      `json:"academy_verified"`
	CreatedAt       time.Time `json:"created_at"`
}

// BillingService orchestrates the subscription lifecycle and the KakaoPay
// two-step payment flow.
type BillingService struct {
	subs    subscription.Repository
	users   user.Directory
	gateway adapter.KakaoPayAdapter
	coupons *coupon.Book
	sink    events.Sink
	locks   *userLocks
	logger  *zap.Logger
}

// NewBillingService creates a new BillingService.
func NewBillingService(
	subs subscription.Repository,
	users user.Directory,
	gateway adapter.KakaoPayAdapter,
	coupons *coupon.Book,
	sink events.Sink,
	logger *zap.Logger,
) *BillingService {
	return &BillingService{
		subs:    subs,
		users:   users,
		gateway: gateway,
		coupons: coupons,
		sink:    sink,
		locks:   newUserLocks(),
		logger:  logger,
	}
}

// CheckEligibility validates an academy coupon code. Pure lookup; an unknown
// code is a negative result, not an error.
func (s *BillingService) CheckEligibility(couponCode string) coupon.Eligibility {
	return s.coupons.Check(couponCode)
}

// BeginPaidSubscription creates a pending subscription and starts the
// gateway's ready step. The record is persisted before the gateway call so
// a failed call leaves a correlatable pending record for the sweep.
func (s *BillingService) BeginPaidSubscription(ctx context.Context, userID uuid.UUID, req BeginPaymentRequest) (*ReadyDTO, error) {
	s.logger.Info("starting paid subscription",
		zap.String("user_id", userID.String()),
		zap.String("plan", req.PlanType),
		zap.String("order_id", req.OrderID),
	)

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(u.ID)
	defer unlock()

	open, err := s.subs.ExistsOpenByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, domain.NewDuplicateActiveSubscription()
	}

	sub, err := subscription.NewPaidSubscription(u.ID, subscription.PlanType(req.PlanType), req.OrderID, req.Amount)
	if err != nil {
		return nil, err
	}

	if sub.PlanType() == subscription.PlanFreeAcademy && req.AcademyCouponCode != "" {
		eligibility := s.coupons.Check(req.AcademyCouponCode)
		if !eligibility.Eligible {
			return nil, domain.NewInvalidCoupon()
		}
		sub.SetAcademyInfo(eligibility.AcademyName, req.AcademyCouponCode)
	}

	if err := s.subs.Save(ctx, sub); err != nil {
		return nil, err
	}

	itemName := req.ItemName
	if itemName == "" {
		itemName = sub.PlanType().Description()
	}

	ready, err := s.gateway.Ready(ctx, adapter.ReadyRequest{
		OrderID:  sub.OrderID(),
		UserID:   u.ID.String(),
		ItemName: itemName,
		Amount:   sub.Amount(),
	})
	if err != nil {
		// The pending record stays for correlation; the reconciliation
		// sweep cancels it if it is never confirmed.
		s.publishPaymentFailed(ctx, sub, err.Error())
		return nil, err
	}

	if err := sub.AttachGatewayTID(ready.TID); err != nil {
		return nil, err
	}
	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("paid subscription ready",
		zap.String("subscription_id", sub.ID().String()),
		zap.String("tid", ready.TID),
	)

	return &ReadyDTO{
		SubscriptionID:        sub.ID(),
		TID:                   ready.TID,
		NextRedirectPCURL:     ready.NextRedirectPCURL,
		NextRedirectMobileURL: ready.NextRedirectMobileURL,
		AndroidAppScheme:      ready.AndroidAppScheme,
		IOSAppScheme:          ready.IOSAppScheme,
		CreatedAt:             ready.CreatedAt,
	}, nil
}

// ConfirmSubscription runs the gateway approve step for the pending
// subscription matching the order id and activates it. On gateway failure
// the subscription keeps its pre-approval state.
func (s *BillingService) ConfirmSubscription(ctx context.Context, req ApprovePaymentRequest) (*ConfirmationDTO, error) {
	sub, err := s.subs.FindByOrderID(ctx, req.OrderID)
	if err != nil {
		// The order id can be lost across the redirect; fall back to the
		// gateway transaction id when the caller kept it.
		if domain.CodeOf(err) == domain.CodeSubscriptionNotFound && req.TID != "" {
			sub, err = s.subs.FindByKakaoTID(ctx, req.TID)
		}
		if err != nil {
			return nil, err
		}
	}

	tid := req.TID
	if tid == "" {
		tid = sub.KakaoTID()
	}

	if _, err := s.gateway.Approve(ctx, tid, sub.OrderID(), sub.UserID().String(), req.PgToken); err != nil {
		s.publishPaymentFailed(ctx, sub, err.Error())
		return nil, err
	}

	if err := sub.Activate(); err != nil {
		return nil, err
	}
	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, err
	}

	metrics.SubscriptionsActivated.WithLabelValues(string(sub.PlanType())).Inc()
	s.publishLifecycle(ctx, events.SubscriptionActivated, sub)

	s.logger.Info("subscription confirmed",
		zap.String("subscription_id", sub.ID().String()),
		zap.String("order_id", sub.OrderID()),
	)

	return &ConfirmationDTO{
		SubscriptionID: sub.ID(),
		ItemName:       sub.PlanType().Description(),
		Amount:         sub.Amount(),
		StartDate:      sub.StartDate(),
		EndDate:        sub.EndDate(),
	}, nil
}

// CreateFreeSubscription creates an immediately active academy subscription,
// bypassing the gateway entirely.
func (s *BillingService) CreateFreeSubscription(ctx context.Context, userID uuid.UUID, couponCode string) (*SubscriptionDTO, error) {
	eligibility := s.coupons.Check(couponCode)
	if !eligibility.Eligible {
		return nil, domain.NewInvalidCoupon()
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(u.ID)
	defer unlock()

	open, err := s.subs.ExistsOpenByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, domain.NewDuplicateActiveSubscription()
	}

	sub := subscription.NewFreeAcademySubscription(u.ID, eligibility.AcademyName, couponCode)
	if err := s.subs.Save(ctx, sub); err != nil {
		return nil, err
	}

	metrics.SubscriptionsActivated.WithLabelValues(string(sub.PlanType())).Inc()
	s.publishLifecycle(ctx, events.SubscriptionActivated, sub)

	s.logger.Info("free academy subscription created",
		zap.String("subscription_id", sub.ID().String()),
		zap.String("user_id", u.ID.String()),
		zap.String("academy", eligibility.AcademyName),
	)

	return toSubscriptionDTO(sub), nil
}

// CancelSubscription cancels a subscription owned by the requesting user.
// Cancelling an already cancelled subscription succeeds.
func (s *BillingService) CancelSubscription(ctx context.Context, subscriptionID, requestingUserID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	if sub.UserID() != requestingUserID {
		return nil, domain.NewForbidden("not allowed to cancel this subscription")
	}

	wasCancelled := sub.Status() == subscription.StatusCancelled
	sub.Cancel()
	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, err
	}

	if !wasCancelled {
		metrics.SubscriptionsCancelled.Inc()
		s.publishLifecycle(ctx, events.SubscriptionCancelled, sub)
		s.logger.Info("subscription cancelled",
			zap.String("subscription_id", sub.ID().String()),
			zap.String("user_id", requestingUserID.String()),
		)
	}

	return toSubscriptionDTO(sub), nil
}

// GetCurrentSubscription returns the user's most recent active subscription,
// or nil when there is none. Absence is not an error.
func (s *BillingService) GetCurrentSubscription(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.subs.FindLatestActiveByUser(ctx, userID)
	if err != nil {
		if domain.CodeOf(err) == domain.CodeSubscriptionNotFound {
			return nil, nil
		}
		return nil, err
	}
	return toSubscriptionDTO(sub), nil
}

// ListSubscriptions returns a paginated subscription list (admin).
func (s *BillingService) ListSubscriptions(ctx context.Context, page, limit int) ([]*SubscriptionDTO, int64, error) {
	subs, total, err := s.subs.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]*SubscriptionDTO, len(subs))
	for i, sub := range subs {
		dtos[i] = toSubscriptionDTO(sub)
	}
	return dtos, total, nil
}

// StatsDTO holds subscription statistics for the admin dashboard.
type StatsDTO struct {
	TotalRevenue int64            `json:"total_revenue"`
	Total        int64            `json:"total_subscriptions"`
	ByStatus     map[string]int64 `json:"by_status"`
}

// GetStats returns aggregate subscription statistics (admin).
func (s *BillingService) GetStats(ctx context.Context) (*StatsDTO, error) {
	revenue, counts, err := s.subs.RevenueStats(ctx)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, c := range counts {
		total += c
	}
	return &StatsDTO{TotalRevenue: revenue, Total: total, ByStatus: counts}, nil
}

// publishLifecycle emits a subscription lifecycle event. Publish failures
// are logged, never surfaced to the caller.
func (s *BillingService) publishLifecycle(ctx context.Context, eventType string, sub *subscription.Subscription) {
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
		s.logger.Error("failed to build lifecycle event", zap.Error(err))
		return
	}
	if err := s.sink.Publish(ctx, events.TopicSubscriptionEvents, sub.ID().String(), env); err != nil {
		s.logger.Error("failed to publish lifecycle event",
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}

// publishPaymentFailed emits a payment failure event.
func (s *BillingService) publishPaymentFailed(ctx context.Context, sub *subscription.Subscription, reason string) {
	env, err := events.NewEnvelope(events.Source, events.PaymentFailed, events.PaymentFailedEvent{
		SubscriptionID: sub.ID(),
		UserID:         sub.UserID(),
		OrderID:        sub.OrderID(),
		Reason:         reason,
		OccurredAt:     time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to build payment failed event", zap.Error(err))
		return
	}
	if err := s.sink.Publish(ctx, events.TopicSubscriptionEvents, sub.ID().String(), env); err != nil {
		s.logger.Error("failed to publish payment failed event", zap.Error(err))
	}
}

func toSubscriptionDTO(sub *subscription.Subscription) *SubscriptionDTO {
	return &SubscriptionDTO{
		ID:              sub.ID(),
		UserID:          sub.UserID(),
		PlanType:        string(sub.PlanType()),
		Status:          string(sub.Status()),
		StartDate:       sub.StartDate(),
		EndDate:         sub.EndDate(),
		Amount:          sub.Amount(),
		PaymentMethod:   sub.PaymentMethod(),
		AcademyName:     sub.AcademyName(),
		AcademyVerified: sub.AcademyVerified(),
		CreatedAt:       sub.CreatedAt(),
	}
}
