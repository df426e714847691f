package repository

import (
	"context"

	"gorm.io/gorm"

	"picboard/internal/model"
)

// ImageRepository defines gallery persistence operations.
type ImageRepository interface {
	Create(ctx context.Context, image *model.Image) error
	ListByOwner(ctx context.Context, userID string) ([]model.Image, error)
	ListCommunity(ctx context.Context, excludeUserID string, page, pageSize int) ([]model.Image, int64, error)
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new image repository.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

// Create creates a new image record.
func (r *imageRepository) Create(ctx context.Context, image *model.Image) error {
	return r.db.WithContext(ctx).Create(image).Error
}

// ListByOwner lists all images owned by the given user.
func (r *imageRepository) ListByOwner(ctx context.Context, userID string) ([]model.Image, error) {
	var images []model.Image
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&images).Error
	if err != nil {
		return nil, err
	}
	return images, nil
}

// ListCommunity lists unowned images plus images owned by anyone but
// excludeUserID, one page at a time, with the total community count.
func (r *imageRepository) ListCommunity(ctx context.Context, excludeUserID string, page, pageSize int) ([]model.Image, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Image{})
	if excludeUserID != "" {
		query = query.Where("user_id IS NULL OR user_id <> ?", excludeUserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var images []model.Image
	err := query.
		Order("id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&images).Error
	if err != nil {
		return nil, 0, err
	}
	return images, total, nil
}
