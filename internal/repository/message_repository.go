package repository

import (
	"context"

	"bloomo-gateway/internal/model"

	"gorm.io/gorm"
)

// MessageRepository 定义了对话消息的持久化操作。
type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	// FindRecent 返回某对话最近的 limit 条消息，按时间升序排列。
	// excludeID 非零时跳过该消息。
	FindRecent(ctx context.Context, conversationID string, limit int, excludeID uint) ([]model.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建一个新的 MessageRepository 实例。
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepository) FindRecent(ctx context.Context, conversationID string, limit int, excludeID uint) ([]model.Message, error) {
	if limit <= 0 {
		return []model.Message{}, nil
	}

	// 倒序取最近 limit 条以限制查询开销，再反转为时间正序
	q := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var msgs []model.Message
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
