package repository

import (
	"bloomo-gateway/internal/model"

	"gorm.io/gorm"
)

// Migrate 创建或更新所有表结构。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Conversation{},
		&model.Message{},
		&model.AnalyticsEvent{},
		&model.Lead{},
	)
}
