// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"errors"
	"time"

	"bloomo-gateway/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository 定义了对话记录的操作接口。
type ConversationRepository interface {
	// Create 插入一条对话。带 SessionKey 的对话在冲突时不会重复插入，
	// 而是把已存在的记录回填到 conv 中并返回 created=false。
	Create(ctx context.Context, conv *model.Conversation) (created bool, err error)
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	// TouchLastActive 只在新时间更晚时更新 last_active。
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (bool, error) {
	if conv.SessionKey == nil {
		if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
			return false, err
		}
		return true, nil
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_key"}}, DoNothing: true}).
		Create(conv)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// 并发请求已用同一会话键创建了对话，读取胜出者
	var existing model.Conversation
	if err := r.db.WithContext(ctx).Where("session_key = ?", *conv.SessionKey).First(&existing).Error; err != nil {
		return false, err
	}
	*conv = existing
	return false, nil
}

// FindByID 根据 ID 查找对话，不存在时返回 gorm.ErrRecordNotFound。
func (r *conversationRepository) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ? AND last_active < ?", id, at).
		Update("last_active", at).Error
}

// IsNotFound 报告错误是否表示记录不存在。
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
