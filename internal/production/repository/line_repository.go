package repository

import (
	"context"

	"github.com/bitfantasy/lineplan/internal/production/entity"
	"gorm.io/gorm"
)

type LineRepository struct {
	db *gorm.DB
}

func NewLineRepository(db *gorm.DB) *LineRepository {
	return &LineRepository{db: db}
}

// ListActive 获取启用中的产线
func (r *LineRepository) ListActive(ctx context.Context) ([]entity.Line, error) {
	var lines []entity.Line
	err := r.db.WithContext(ctx).
		Where("status = ?", entity.LineStatusActive).
		Order("sort_order ASC, code ASC").
		Find(&lines).Error
	return lines, err
}

// FindByIDs 批量查找产线，结果按传入顺序排列，不存在的ID被忽略
func (r *LineRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.Line, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []entity.Line
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]entity.Line, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	lines := make([]entity.Line, 0, len(found))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (r *LineRepository) Create(ctx context.Context, line *entity.Line) error {
	return r.db.WithContext(ctx).Create(line).Error
}
