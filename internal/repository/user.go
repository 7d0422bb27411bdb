package repository

import (
	"context"
	"errors"
	"time"

	"onebatch/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByName(ctx context.Context, name string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetPosted(ctx context.Context, id uint, posted *time.Time) error
	SetRepublish(ctx context.Context, id uint, republish bool) error
	Rename(ctx context.Context, id uint, name string) error
	ListPublishedBefore(ctx context.Context, cutoff time.Time, exclude []string, limit int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", name)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns nil without error when no account uses the address.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("user with that name already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) SetPosted(ctx context.Context, id uint, posted *time.Time) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"posted":    posted,
		"republish": false,
	})
}

func (r *userRepository) SetRepublish(ctx context.Context, id uint, republish bool) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"republish": republish})
}

func (r *userRepository) Rename(ctx context.Context, id uint, name string) error {
	if err := r.updateColumns(ctx, id, map[string]interface{}{"name": name}); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Err != nil && isUniqueViolation(appErr.Err) {
			return models.NewConflictError("user with that name already exists")
		}
		return err
	}
	return nil
}

func (r *userRepository) updateColumns(ctx context.Context, id uint, cols map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

// ListPublishedBefore returns users whose current batch was published before
// cutoff, newest first, skipping the handles in exclude.
func (r *userRepository) ListPublishedBefore(ctx context.Context, cutoff time.Time, exclude []string, limit int) ([]models.User, error) {
	var users []models.User
	q := r.db.WithContext(ctx).
		Where("posted IS NOT NULL AND posted < ?", cutoff).
		Where("name NOT LIKE ?", "%@%")
	if len(exclude) > 0 {
		q = q.Where("name NOT IN ?", exclude)
	}
	if err := q.
		Order("posted DESC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
