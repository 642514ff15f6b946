package repository

import (
	"context"
	"errors"

	"bloomo-gateway/internal/model"

	"gorm.io/gorm"
)

// LeadRepository 接口定义了潜在客户数据的持久化操作。
type LeadRepository interface {
	Create(ctx context.Context, lead *model.Lead) error
	// FindLatestByEmail 返回该邮箱最近一次留下的记录，不存在时返回 (nil, nil)。
	FindLatestByEmail(ctx context.Context, email string) (*model.Lead, error)
}

// leadRepository 是 LeadRepository 接口的 GORM 实现。
type leadRepository struct {
	db *gorm.DB
}

// NewLeadRepository 创建一个新的 LeadRepository 实例。
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

// Create 在数据库中创建一条潜在客户记录。
func (r *leadRepository) Create(ctx context.Context, lead *model.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

func (r *leadRepository) FindLatestByEmail(ctx context.Context, email string) (*model.Lead, error) {
	var lead model.Lead
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		Order("id DESC").
		First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}
