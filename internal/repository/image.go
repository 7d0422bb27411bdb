package repository

import (
	"context"
	"errors"

	"onebatch/internal/models"

	"gorm.io/gorm"
)

// ImageRepository defines the interface for image data operations
type ImageRepository interface {
	Create(ctx context.Context, img *models.Image) error
	GetByID(ctx context.Context, id uint) (*models.Image, error)
	GetWithComments(ctx context.Context, id uint) (*models.Image, error)
	ListByOwner(ctx context.Context, owner string) ([]models.Image, error)
	ListGallery(ctx context.Context, owner string) ([]models.Image, error)
	CountPickable(ctx context.Context, owner string) (int64, error)
	SetPicked(ctx context.Context, id uint, picked bool) error
	SetHidden(ctx context.Context, id uint, hidden bool) error
	Delete(ctx context.Context, id uint) error
	PublishPicked(ctx context.Context, owner string) (int64, error)
	UnpublishAll(ctx context.Context, owner string) (int64, error)
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new image repository
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, img *models.Image) error {
	if err := r.db.WithContext(ctx).Create(img).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *imageRepository) GetByID(ctx context.Context, id uint) (*models.Image, error) {
	return r.get(ctx, r.db.WithContext(ctx), id)
}

func (r *imageRepository) GetWithComments(ctx context.Context, id uint) (*models.Image, error) {
	q := r.db.WithContext(ctx).Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("comments.id ASC")
	})
	return r.get(ctx, q, id)
}

func (r *imageRepository) get(_ context.Context, q *gorm.DB, id uint) (*models.Image, error) {
	var img models.Image
	if err := q.First(&img, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Image", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &img, nil
}

func (r *imageRepository) ListByOwner(ctx context.Context, owner string) ([]models.Image, error) {
	var images []models.Image
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", owner).
		Order("id DESC").
		Find(&images).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return images, nil
}

// ListGallery returns the owner's published, non-hidden images.
func (r *imageRepository) ListGallery(ctx context.Context, owner string) ([]models.Image, error) {
	var images []models.Image
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND published = ? AND hidden = ?", owner, true, false).
		Order("id DESC").
		Find(&images).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return images, nil
}

// CountPickable counts images that would be published: picked and not hidden.
func (r *imageRepository) CountPickable(ctx context.Context, owner string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("user_id = ? AND picked = ? AND hidden = ?", owner, true, false).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *imageRepository) SetPicked(ctx context.Context, id uint, picked bool) error {
	return r.setFlag(ctx, id, "picked", picked)
}

func (r *imageRepository) SetHidden(ctx context.Context, id uint, hidden bool) error {
	return r.setFlag(ctx, id, "hidden", hidden)
}

func (r *imageRepository) setFlag(ctx context.Context, id uint, column string, value bool) error {
	res := r.db.WithContext(ctx).Model(&models.Image{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Image", id)
	}
	return nil
}

// Delete removes the image and its comments.
func (r *imageRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Image{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Image", id)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// PublishPicked marks every picked, non-hidden image of owner as published.
func (r *imageRepository) PublishPicked(ctx context.Context, owner string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("user_id = ? AND picked = ? AND hidden = ?", owner, true, false).
		Update("published", true)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

// UnpublishAll clears the published flag on all of owner's images. Pick flags are kept.
func (r *imageRepository) UnpublishAll(ctx context.Context, owner string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("user_id = ?", owner).
		Update("published", false)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
