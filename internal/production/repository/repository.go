package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	Order   *OrderRepository
	Style   *StyleRepository
	Line    *LineRepository
	Plan    *PlanRepository
	Setting *SettingRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:   NewOrderRepository(db),
		Style:   NewStyleRepository(db),
		Line:    NewLineRepository(db),
		Plan:    NewPlanRepository(db),
		Setting: NewSettingRepository(db),
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
