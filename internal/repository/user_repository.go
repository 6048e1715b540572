package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jobdam/service-billing/internal/domain"
	userDomain "github.com/jobdam/service-billing/internal/domain/user"
)

// UserModel is the GORM model for the users table. The table is owned by
// the platform's user service; this service only reads it.
type UserModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Name      string    `gorm:"type:varchar(255)"`
	Role      string    `gorm:"type:varchar(20);not null;default:'user'"`
	IsDeleted bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

// TableName sets the table name.
func (UserModel) TableName() string { return "users" }

// GormUserDirectory implements user.Directory using GORM.
type GormUserDirectory struct {
	db *gorm.DB
}

// NewGormUserDirectory creates a new GormUserDirectory.
func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

// FindByID returns a non-deleted user by id.
func (r *GormUserDirectory) FindByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewUserNotFound(id.String())
		}
		return nil, err
	}
	return toUser(&model), nil
}

// FindByEmail returns a non-deleted user by email.
func (r *GormUserDirectory) FindByEmail(ctx context.Context, email string) (*userDomain.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).
		Where("email = ? AND is_deleted = ?", email, false).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewUserNotFound(email)
		}
		return nil, err
	}
	return toUser(&model), nil
}

func toUser(m *UserModel) *userDomain.User {
	return &userDomain.User{
		ID:    m.ID,
		Email: m.Email,
		Name:  m.Name,
		Role:  m.Role,
	}
}
