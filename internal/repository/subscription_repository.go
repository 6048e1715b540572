package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jobdam/service-billing/internal/domain"
	subDomain "github.com/jobdam/service-billing/internal/domain/subscription"
)

// SubscriptionModel is the GORM model for the subscriptions table. The
// partial unique index keeps one pending-or-active subscription per user;
// requires gorm.Config{TranslateError: true} for duplicate mapping.
type SubscriptionModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index;index:ux_subscriptions_user_open,unique,where:status IN ('pending'\\,'active')"`
	PlanType        string    `gorm:"type:varchar(20);not null"`
	Status          string    `gorm:"type:varchar(20);not null;default:'pending'"`
	StartDate       time.Time `gorm:"type:timestamptz;not null"`
	EndDate         time.Time `gorm:"type:timestamptz;not null"`
	Amount          int64     `gorm:"not null;default:0"`
	PaymentMethod   string    `gorm:"type:varchar(50);not null;default:'KAKAOPAY'"`
	KakaoTID        string    `gorm:"column:kakao_tid;type:varchar(255);index"`
	OrderID         *string   `gorm:"type:varchar(255);uniqueIndex"`
	AcademyName     string    `gorm:"type:varchar(255)"`
	AcademyEmail    string    `gorm:"type:varchar(255)"`
	AcademyVerified bool      `gorm:"not null;default:false"`
	CreatedAt       time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt       time.Time `gorm:"type:timestamptz;not null"`
}

// TableName sets the table name.
func (SubscriptionModel) TableName() string { return "subscriptions" }

// GormSubscriptionRepository implements subscription.Repository using GORM.
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository.
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// Save persists a new subscription. A partial-unique-index violation maps to
// the duplicate-active failure.
func (r *GormSubscriptionRepository) Save(ctx context.Context, s *subDomain.Subscription) error {
	model := toSubModel(s)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewDuplicateActiveSubscription()
		}
		return err
	}
	return nil
}

// Update persists changes to an existing subscription.
func (r *GormSubscriptionRepository) Update(ctx context.Context, s *subDomain.Subscription) error {
	model := toSubModel(s)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByID returns a subscription by id.
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*subDomain.Subscription, error) {
	var model SubscriptionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewSubscriptionNotFound(id.String())
		}
		return nil, err
	}
	return toSubDomain(&model), nil
}

// FindByOrderID returns the subscription correlated with a checkout order.
func (r *GormSubscriptionRepository) FindByOrderID(ctx context.Context, orderID string) (*subDomain.Subscription, error) {
	var model SubscriptionModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewSubscriptionNotFound(orderID)
		}
		return nil, err
	}
	return toSubDomain(&model), nil
}

// FindByKakaoTID returns the subscription holding a gateway transaction id.
func (r *GormSubscriptionRepository) FindByKakaoTID(ctx context.Context, tid string) (*subDomain.Subscription, error) {
	var model SubscriptionModel
	if err := r.db.WithContext(ctx).Where("kakao_tid = ?", tid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewSubscriptionNotFound(tid)
		}
		return nil, err
	}
	return toSubDomain(&model), nil
}

// FindLatestActiveByUser returns the most recently created active
// subscription for the user.
func (r *GormSubscriptionRepository) FindLatestActiveByUser(ctx context.Context, userID uuid.UUID) (*subDomain.Subscription, error) {
	var model SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, string(subDomain.StatusActive)).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewSubscriptionNotFound(userID.String())
		}
		return nil, err
	}
	return toSubDomain(&model), nil
}

// ExistsOpenByUser reports whether the user has a pending or active
// subscription.
func (r *GormSubscriptionRepository) ExistsOpenByUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&SubscriptionModel{}).
		Where("user_id = ? AND status IN ?", userID, []string{
			string(subDomain.StatusPending),
			string(subDomain.StatusActive),
		}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindExpired returns active subscriptions whose validity window has passed.
func (r *GormSubscriptionRepository) FindExpired(ctx context.Context, now time.Time) ([]*subDomain.Subscription, error) {
	var models []SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND end_date < ?", string(subDomain.StatusActive), now).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return toSubDomainSlice(models), nil
}

// FindStalePending returns pending subscriptions created before the cutoff.
func (r *GormSubscriptionRepository) FindStalePending(ctx context.Context, cutoff time.Time) ([]*subDomain.Subscription, error) {
	var models []SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(subDomain.StatusPending), cutoff).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return toSubDomainSlice(models), nil
}

// ListAll retrieves all subscriptions with pagination (admin).
func (r *GormSubscriptionRepository) ListAll(ctx context.Context, page, limit int) ([]*subDomain.Subscription, int64, error) {
	var total int64
	r.db.WithContext(ctx).Model(&SubscriptionModel{}).Count(&total)

	var models []SubscriptionModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return toSubDomainSlice(models), total, nil
}

// RevenueStats returns total confirmed revenue and counts by status (admin).
// Pending records have not been charged and do not count as revenue.
func (r *GormSubscriptionRepository) RevenueStats(ctx context.Context) (int64, map[string]int64, error) {
	var totalRevenue int64
	r.db.WithContext(ctx).Model(&SubscriptionModel{}).
		Where("status <> ?", string(subDomain.StatusPending)).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totalRevenue)

	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&SubscriptionModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return 0, nil, err
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return totalRevenue, counts, nil
}

func toSubModel(s *subDomain.Subscription) SubscriptionModel {
	var orderID *string
	if s.OrderID() != "" {
		v := s.OrderID()
		orderID = &v
	}
	return SubscriptionModel{
		ID:              s.ID(),
		UserID:          s.UserID(),
		PlanType:        string(s.PlanType()),
		Status:          string(s.Status()),
		StartDate:       s.StartDate(),
		EndDate:         s.EndDate(),
		Amount:          s.Amount(),
		PaymentMethod:   s.PaymentMethod(),
		KakaoTID:        s.KakaoTID(),
		OrderID:         orderID,
		AcademyName:     s.AcademyName(),
		AcademyEmail:    s.AcademyEmail(),
		AcademyVerified: s.AcademyVerified(),
		CreatedAt:       s.CreatedAt(),
		UpdatedAt:       s.UpdatedAt(),
	}
}

func toSubDomain(m *SubscriptionModel) *subDomain.Subscription {
	orderID := ""
	if m.OrderID != nil {
		orderID = *m.OrderID
	}
	return subDomain.Reconstruct(
		m.ID, m.UserID,
		subDomain.PlanType(m.PlanType), subDomain.Status(m.Status),
		m.StartDate, m.EndDate, m.Amount,
		m.PaymentMethod, m.KakaoTID, orderID,
		m.AcademyName, m.AcademyEmail, m.AcademyVerified,
		m.CreatedAt, m.UpdatedAt,
	)
}

func toSubDomainSlice(models []SubscriptionModel) []*subDomain.Subscription {
	subs := make([]*subDomain.Subscription, len(models))
	for i := range models {
		subs[i] = toSubDomain(&models[i])
	}
	return subs
}
