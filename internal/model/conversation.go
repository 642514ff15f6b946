// Package model 包含了应用的数据模型定义。
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 消息角色。
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 是发送给模型的一条角色消息，也是调用方传入的短期历史的元素。
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation 代表某个调用方拥有的一段持久化对话。
type Conversation struct {
	ID    string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email string `gorm:"type:varchar(255);index;not null" json:"email"`
	Title string `gorm:"type:varchar(255);not null" json:"title"`
	// Sector 是创建对话时已知的行业标签。
	Sector string `gorm:"type:varchar(100)" json:"sector"`
	// SessionKey 是调用方提供的幂等键，唯一索引保证同一会话只创建一条对话。
	SessionKey *string   `gorm:"type:varchar(128);uniqueIndex" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	LastActive time.Time `gorm:"not null" json:"lastActive"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Conversation) TableName() string {
	return "conversations"
}

// BeforeCreate 生成服务端标识并初始化最后活跃时间。
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.LastActive.IsZero() {
		c.LastActive = c.CreatedAt
	}
	return nil
}

// Message 是对话中的一条不可变消息。
type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string    `gorm:"type:varchar(36);index:idx_messages_conversation_created,priority:1;not null" json:"conversationId"`
	Role           string    `gorm:"type:varchar(16);not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_messages_conversation_created,priority:2" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}

// ChatMessage 将持久化消息转换为上下文消息。
func (m Message) ChatMessage() ChatMessage {
	return ChatMessage{Role: m.Role, Content: m.Content}
}
