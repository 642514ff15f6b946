package service

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"bloomo-gateway/internal/metrics"
	"bloomo-gateway/internal/model"
	"bloomo-gateway/internal/repository"
	"bloomo-gateway/pkg/log"

	"gorm.io/datatypes"
)

// ExchangeInfo 描述一轮对话中与持久化相关的上下文。
type ExchangeInfo struct {
	ConversationID string
	Email          string
	Sector         string
	Lang           string
	Model          string
}

// PersistenceSink 负责尽力而为地记录消息、更新活跃时间并发送分析事件。
// 任何失败都只记录日志和计数，不会影响调用方看到的响应。
type PersistenceSink struct {
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	analytics AnalyticsEmitter
	timeout   time.Duration

	wg sync.WaitGroup
}

// NewPersistenceSink 创建 PersistenceSink。timeout 是每个后台任务的超时时间。
func NewPersistenceSink(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, analytics AnalyticsEmitter, timeout time.Duration) *PersistenceSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PersistenceSink{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		analytics: analytics,
		timeout:   timeout,
	}
}

// RecordUserMessage 同步写入用户消息，在后台发送 message_user 事件，返回消息 ID（失败时为 0）。
func (s *PersistenceSink) RecordUserMessage(ctx context.Context, info ExchangeInfo, content string) uint {
	msg := &model.Message{
		ConversationID: info.ConversationID,
		Role:           model.RoleUser,
		Content:        content,
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		s.fail("insert_user_message", info.ConversationID, err)
		msg.ID = 0
	}

	meta := datatypes.JSONMap{
		"lang": info.Lang,
		"len":  utf8.RuneCountInString(content),
	}
	s.Dispatch(func(ctx context.Context) {
		s.emit(ctx, info, model.EventMessageUser, meta)
	})
	return msg.ID
}

// RecordAssistantReply 在后台写入助手回复、更新 last_active 并发送 message_assistant 事件。
func (s *PersistenceSink) RecordAssistantReply(info ExchangeInfo, text string) {
	s.Dispatch(func(ctx context.Context) {
		if text != "" {
			msg := &model.Message{
				ConversationID: info.ConversationID,
				Role:           model.RoleAssistant,
				Content:        text,
			}
			if err := s.msgRepo.Create(ctx, msg); err != nil {
				s.fail("insert_assistant_message", info.ConversationID, err)
			}
		}

		if err := s.convRepo.TouchLastActive(ctx, info.ConversationID, time.Now()); err != nil {
			s.fail("touch_last_active", info.ConversationID, err)
		}

		s.emit(ctx, info, model.EventMessageAssistant, datatypes.JSONMap{
			"lang":  info.Lang,
			"len":   utf8.RuneCountInString(text),
			"model": info.Model,
		})
	})
}

// Dispatch 在独立的 context 中运行 fn，请求结束或取消都不会影响它。
func (s *PersistenceSink) Dispatch(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.fail("panic", "", fmt.Errorf("%v", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait 等待所有后台任务结束，ctx 到期时返回 ctx.Err()。
func (s *PersistenceSink) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Emitter 返回一个在后台投递事件的 AnalyticsEmitter，Emit 立即返回 nil。
func (s *PersistenceSink) Emitter() AnalyticsEmitter {
	return backgroundEmitter{sink: s}
}

type backgroundEmitter struct {
	sink *PersistenceSink
}

func (e backgroundEmitter) Emit(_ context.Context, event *model.AnalyticsEvent) error {
	e.sink.Dispatch(func(ctx context.Context) {
		if err := e.sink.analytics.Emit(ctx, event); err != nil {
			e.sink.fail("emit_"+string(event.Kind), event.ConversationID, err)
		}
	})
	return nil
}

func (s *PersistenceSink) emit(ctx context.Context, info ExchangeInfo, kind model.EventKind, meta datatypes.JSONMap) {
	event := &model.AnalyticsEvent{
		Email:          info.Email,
		Kind:           kind,
		Sector:         info.Sector,
		ConversationID: info.ConversationID,
		Meta:           meta,
	}
	if err := s.analytics.Emit(ctx, event); err != nil {
		s.fail("emit_"+string(kind), info.ConversationID, err)
	}
}

func (s *PersistenceSink) fail(op, conversationID string, err error) {
	metrics.PersistenceFailures.WithLabelValues(op).Inc()
	log.Errorw("持久化失败", "op", op, "conversation", conversationID, "error", err)
}
