package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bloomo-gateway/internal/model"
	"bloomo-gateway/internal/repository"
	"bloomo-gateway/pkg/log"

	"gorm.io/datatypes"
)

// ResolveInput 描述一次对话解析所需的调用方信息。
type ResolveInput struct {
	ConversationID string
	SessionKey     string
	Email          string
	Name           string
	Sector         string
	Lang           string
	Model          string
}

// ConversationResolver 保证调用方拥有一条持久化对话。
type ConversationResolver struct {
	convRepo        repository.ConversationRepository
	sessions        repository.SessionRepository
	analytics       AnalyticsEmitter
	verifyOwnership bool
}

// NewConversationResolver 创建 ConversationResolver。sessions 可以为 nil（未配置 Redis）。
func NewConversationResolver(convRepo repository.ConversationRepository, sessions repository.SessionRepository, analytics AnalyticsEmitter, verifyOwnership bool) *ConversationResolver {
	return &ConversationResolver{
		convRepo:        convRepo,
		sessions:        sessions,
		analytics:       analytics,
		verifyOwnership: verifyOwnership,
	}
}

// Resolve 返回可用的对话 ID，必要时创建新对话。
func (r *ConversationResolver) Resolve(ctx context.Context, in ResolveInput) (string, error) {
	if strings.TrimSpace(in.Email) == "" {
		return "", ErrMissingEmail
	}

	if in.ConversationID != "" {
		if !r.verifyOwnership {
			return in.ConversationID, nil
		}
		return r.verify(ctx, in.ConversationID, in.Email)
	}

	if in.SessionKey != "" && r.sessions != nil {
		convID, err := r.sessions.GetConversationID(ctx, in.SessionKey)
		if err != nil {
			log.Warnf("读取会话缓存失败, session=%s: %v", in.SessionKey, err)
		} else if convID != "" {
			if !r.verifyOwnership {
				return convID, nil
			}
			id, err := r.verify(ctx, convID, in.Email)
			// 缓存指向已不存在的对话时回落到数据库
			if !errors.Is(err, ErrConversationNotFound) {
				return id, err
			}
		}
	}

	conv := &model.Conversation{
		Email:  in.Email,
		Title:  conversationTitle(in.Name, in.Email),
		Sector: in.Sector,
	}
	if in.SessionKey != "" {
		key := in.SessionKey
		conv.SessionKey = &key
	}
	created, err := r.convRepo.Create(ctx, conv)
	if err != nil {
		return "", &StoreError{Op: "create conversation", Err: err}
	}
	// 会话键已被其他邮箱占用
	if !created && r.verifyOwnership && !strings.EqualFold(conv.Email, strings.TrimSpace(in.Email)) {
		return "", ErrConversationForbidden
	}

	if in.SessionKey != "" && r.sessions != nil {
		if err := r.sessions.SetConversationID(ctx, in.SessionKey, conv.ID); err != nil {
			log.Warnf("写入会话缓存失败, session=%s: %v", in.SessionKey, err)
		}
	}

	if created {
		log.Infof("创建新对话, conversation=%s, email=%s", conv.ID, in.Email)
		event := &model.AnalyticsEvent{
			Email:          in.Email,
			Kind:           model.EventConversationCreated,
			Sector:         in.Sector,
			ConversationID: conv.ID,
			Meta:           datatypes.JSONMap{"lang": in.Lang, "model": in.Model},
		}
		if err := r.analytics.Emit(ctx, event); err != nil {
			log.Warnf("发送 conversation_created 事件失败: %v", err)
		}
	}
	return conv.ID, nil
}

func (r *ConversationResolver) verify(ctx context.Context, id, email string) (string, error) {
	conv, err := r.convRepo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return "", ErrConversationNotFound
	}
	if err != nil {
		return "", &StoreError{Op: "load conversation", Err: err}
	}
	if !strings.EqualFold(conv.Email, strings.TrimSpace(email)) {
		return "", ErrConversationForbidden
	}
	return conv.ID, nil
}

func conversationTitle(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return fmt.Sprintf("Chat with %s", n)
	}
	return fmt.Sprintf("Chat with %s", email)
}
