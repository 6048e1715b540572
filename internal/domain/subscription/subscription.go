package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/jobdam/service-billing/internal/domain"
)

// PlanType represents the subscription plan.
type PlanType string

const (
	PlanFreeAcademy PlanType = "free_academy"
	PlanPaidMonthly PlanType = "paid_monthly"
)

// Months returns the length of the validity window for the plan.
func (p PlanType) Months() int {
	if p == PlanFreeAcademy {
		return 3
	}
	return 1
}

// Description returns the user-facing plan description.
func (p PlanType) Description() string {
	switch p {
	case PlanFreeAcademy:
		return "솔데스크 학원 3개월 무료"
	case PlanPaidMonthly:
		return "월 정액제"
	default:
		return string(p)
	}
}

// Valid reports whether the plan type is known.
func (p PlanType) Valid() bool {
	return p == PlanFreeAcademy || p == PlanPaidMonthly
}

// Status represents the subscription status.
type Status string

const (
	// StatusPending marks a paid subscription created before gateway approval.
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// PaymentMethodKakaoPay is the only payment channel this service supports.
const PaymentMethodKakaoPay = "KAKAOPAY"

// Subscription is the aggregate root for user subscriptions.
type Subscription struct {
	id              uuid.UUID
	userID          uuid.UUID
	planType        PlanType
	status          Status
	startDate       time.Time
	endDate         time.Time
	amount          int64 // KRW, integer units
	paymentMethod   string
	kakaoTID        string
	orderID         string
	academyName     string
	academyEmail    string
	academyVerified bool
	createdAt       time.Time
	updatedAt       time.Time
}

// NewPaidSubscription creates a pending subscription awaiting gateway approval.
// The record is persisted before the gateway is contacted so a partial flow
// can still be correlated by order id.
func NewPaidSubscription(userID uuid.UUID, plan PlanType, orderID string, amount int64) (*Subscription, error) {
	if !plan.Valid() {
		return nil, domain.NewInvalidInput("unknown plan type: " + string(plan))
	}
	if orderID == "" {
		return nil, domain.NewInvalidInput("order id is required")
	}
	if plan == PlanFreeAcademy && amount != 0 {
		return nil, domain.NewInvalidInput("free academy plan must have zero amount")
	}
	if plan == PlanPaidMonthly && amount <= 0 {
		return nil, domain.NewInvalidInput("amount must be positive")
	}

	now := time.Now().UTC()
	return &Subscription{
		id:            uuid.New(),
		userID:        userID,
		planType:      plan,
		status:        StatusPending,
		startDate:     now,
		endDate:       now.AddDate(0, plan.Months(), 0),
		amount:        amount,
		paymentMethod: PaymentMethodKakaoPay,
		orderID:       orderID,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// NewFreeAcademySubscription creates an immediately active academy
// subscription. No gateway involvement, amount is always zero.
func NewFreeAcademySubscription(userID uuid.UUID, academyName, couponCode string) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		id:              uuid.New(),
		userID:          userID,
		planType:        PlanFreeAcademy,
		status:          StatusActive,
		startDate:       now,
		endDate:         now.AddDate(0, PlanFreeAcademy.Months(), 0),
		amount:          0,
		paymentMethod:   PaymentMethodKakaoPay,
		academyName:     academyName,
		academyEmail:    couponCode,
		academyVerified: true,
		createdAt:       now,
		updatedAt:       now,
	}
}

// Reconstruct rebuilds a Subscription from persistence.
func Reconstruct(id, userID uuid.UUID, plan PlanType, status Status, startDate, endDate time.Time, amount int64, paymentMethod, kakaoTID, orderID, academyName, academyEmail string, academyVerified bool, createdAt, updatedAt time.Time) *Subscription {
	return &Subscription{
		id: id, userID: userID, planType: plan, status: status,
		startDate: startDate, endDate: endDate, amount: amount,
		paymentMethod: paymentMethod, kakaoTID: kakaoTID, orderID: orderID,
		academyName: academyName, academyEmail: academyEmail, academyVerified: academyVerified,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// AttachGatewayTID records the transaction id returned by the gateway's
// ready call. Repeating the same tid is a no-op; replacing an existing
// different tid is rejected.
func (s *Subscription) AttachGatewayTID(tid string) error {
	if tid == "" {
		return domain.NewInvalidInput("gateway transaction id is required")
	}
	if s.kakaoTID == tid {
		return nil
	}
	if s.kakaoTID != "" {
		return domain.NewInvalidState("tid "+s.kakaoTID, "tid "+tid)
	}
	s.kakaoTID = tid
	s.updatedAt = time.Now().UTC()
	return nil
}

// Activate transitions a pending subscription to active after gateway
// approval. Activating an already active subscription is a no-op.
func (s *Subscription) Activate() error {
	switch s.status {
	case StatusActive:
		return nil
	case StatusPending:
		s.status = StatusActive
		s.updatedAt = time.Now().UTC()
		return nil
	default:
		return domain.NewInvalidState(string(s.status), string(StatusActive))
	}
}

// Cancel marks the subscription cancelled. Cancelling an already cancelled
// or expired subscription succeeds without effect.
func (s *Subscription) Cancel() {
	if s.status == StatusCancelled {
		return
	}
	s.status = StatusCancelled
	s.updatedAt = time.Now().UTC()
}

// Expire transitions an active subscription past its end date to expired.
func (s *Subscription) Expire() error {
	if s.status != StatusActive {
		return domain.NewInvalidState(string(s.status), string(StatusExpired))
	}
	s.status = StatusExpired
	s.updatedAt = time.Now().UTC()
	return nil
}

// IsActive reports whether the subscription is active and inside its window.
func (s *Subscription) IsActive() bool {
	return s.status == StatusActive && time.Now().UTC().Before(s.endDate)
}

// IsExpired reports whether the validity window has passed.
func (s *Subscription) IsExpired() bool {
	return s.status == StatusExpired || time.Now().UTC().After(s.endDate)
}

// SetAcademyInfo records the academy affiliation. The coupon code doubles
// as contact info, and the amount drops to zero.
func (s *Subscription) SetAcademyInfo(academyName, couponCode string) {
	s.academyName = academyName
	s.academyEmail = couponCode
	s.academyVerified = true
	s.amount = 0
	s.updatedAt = time.Now().UTC()
}

// Getters.
func (s *Subscription) ID() uuid.UUID         { return s.id }
func (s *Subscription) UserID() uuid.UUID     { return s.userID }
func (s *Subscription) PlanType() PlanType    { return s.planType }
func (s *Subscription) Status() Status        { return s.status }
func (s *Subscription) StartDate() time.Time  { return s.startDate }
func (s *Subscription) EndDate() time.Time    { return s.endDate }
func (s *Subscription) Amount() int64         { return s.amount }
func (s *Subscription) PaymentMethod() string { return s.paymentMethod }
func (s *Subscription) KakaoTID() string      { return s.kakaoTID }
func (s *Subscription) OrderID() string       { return s.orderID }
func (s *Subscription) AcademyName() string   { return s.academyName }
func (s *Subscription) AcademyEmail() string  { return s.academyEmail }
func (s *Subscription) AcademyVerified() bool { return s.academyVerified }
func (s *Subscription) CreatedAt() time.Time  { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time  { return s.updatedAt }
