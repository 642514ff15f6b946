package repository

import (
	"context"

	"bloomo-gateway/internal/model"

	"gorm.io/gorm"
)

// AnalyticsRepository 只追加写入分析事件。
type AnalyticsRepository interface {
	Create(ctx context.Context, event *model.AnalyticsEvent) error
}

type analyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Create(ctx context.Context, event *model.AnalyticsEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
