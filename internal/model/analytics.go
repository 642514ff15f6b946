package model

import (
	"time"

	"gorm.io/datatypes"
)

// EventKind 是分析事件的类型。
type EventKind string

const (
	EventConversationCreated EventKind = "conversation_created"
	EventMessageUser         EventKind = "message_user"
	EventMessageAssistant    EventKind = "message_assistant"
)

// AnalyticsEvent 对应 analytics_events 表，只追加写入，丢失可以容忍。
type AnalyticsEvent struct {
	ID             uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	Email          string            `gorm:"type:varchar(255);index" json:"email"`
	Kind           EventKind         `gorm:"type:varchar(32);index;not null" json:"kind"`
	Sector         string            `gorm:"type:varchar(100)" json:"sector"`
	ConversationID string            `gorm:"type:varchar(36);index" json:"conversationId"`
	Meta           datatypes.JSONMap `json:"meta"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"createdAt"`
}

func (AnalyticsEvent) TableName() string {
	return "analytics_events"
}
