package repository

import (
	"context"

	"github.com/bitfantasy/lineplan/internal/production/entity"
	"gorm.io/gorm"
)

type StyleRepository struct {
	db *gorm.DB
}

func NewStyleRepository(db *gorm.DB) *StyleRepository {
	return &StyleRepository{db: db}
}

// FindByID 查找款式及其工序表
func (r *StyleRepository) FindByID(ctx context.Context, id string) (*entity.Style, error) {
	var style entity.Style
	err := r.db.WithContext(ctx).
		Preload("Operations", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		First(&style, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &style, nil
}

func (r *StyleRepository) Create(ctx context.Context, style *entity.Style) error {
	return r.db.WithContext(ctx).Create(style).Error
}
