package repository

import (
	"context"

	"onebatch/internal/models"

	"gorm.io/gorm"
)

// FollowRepository defines the interface for follow and block edges.
type FollowRepository interface {
	Exists(ctx context.Context, start, end string, blocked bool) (bool, error)
	Create(ctx context.Context, edge *models.Follow) error
	Delete(ctx context.Context, start, end string, blocked bool) (int64, error)
	ListFollowing(ctx context.Context, start string) ([]string, error)
	ListBlockPartners(ctx context.Context, handle string) ([]string, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Exists(ctx context.Context, start, end string, blocked bool) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("start_user_id = ? AND end_user_id = ? AND blocked = ?", start, end, blocked).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *followRepository) Create(ctx context.Context, edge *models.Follow) error {
	if err := r.db.WithContext(ctx).Create(edge).Error; err != nil {
		if isUniqueViolation(err) {
			if edge.Blocked {
				return models.NewConflictError("already blocked")
			}
			return models.NewConflictError("you already follow")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *followRepository) Delete(ctx context.Context, start, end string, blocked bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("start_user_id = ? AND end_user_id = ? AND blocked = ?", start, end, blocked).
		Delete(&models.Follow{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

// ListFollowing returns the handles start follows, oldest edge first.
func (r *followRepository) ListFollowing(ctx context.Context, start string) ([]string, error) {
	var handles []string
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("start_user_id = ? AND blocked = ?", start, false).
		Order("id ASC").
		Pluck("end_user_id", &handles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return handles, nil
}

// ListBlockPartners returns every handle on the other side of a block edge
// touching handle, whichever of the two did the blocking.
func (r *followRepository) ListBlockPartners(ctx context.Context, handle string) ([]string, error) {
	var edges []models.Follow
	if err := r.db.WithContext(ctx).
		Where("blocked = ? AND (start_user_id = ? OR end_user_id = ?)", true, handle, handle).
		Order("id ASC").
		Find(&edges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	handles := make([]string, 0, len(edges))
	for _, e := range edges {
		if e.StartUserID == handle {
			handles = append(handles, e.EndUserID)
		} else {
			handles = append(handles, e.StartUserID)
		}
	}
	return handles, nil
}
