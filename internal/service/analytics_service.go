package service

import (
	"context"
	"time"

	"bloomo-gateway/internal/metrics"
	"bloomo-gateway/internal/model"
	"bloomo-gateway/internal/repository"
	"bloomo-gateway/pkg/tasks"
)

// AnalyticsPublisher 将事件投递到消息队列，由 pkg/kafka.Producer 实现。
type AnalyticsPublisher interface {
	PublishAnalyticsTask(ctx context.Context, task tasks.AnalyticsTask) error
}

// AnalyticsEmitter 发送一条分析事件。调用方自行决定失败是否可以忽略。
type AnalyticsEmitter interface {
	Emit(ctx context.Context, event *model.AnalyticsEvent) error
}

// AnalyticsService 发送分析事件，并消费队列中的事件落库。
type AnalyticsService interface {
	AnalyticsEmitter
	HandleAnalyticsTask(ctx context.Context, task tasks.AnalyticsTask) error
}

type analyticsService struct {
	repo      repository.AnalyticsRepository
	publisher AnalyticsPublisher
}

// NewAnalyticsService 创建 AnalyticsService。publisher 为 nil 时直接写库。
func NewAnalyticsService(repo repository.AnalyticsRepository, publisher AnalyticsPublisher) AnalyticsService {
	return &analyticsService{repo: repo, publisher: publisher}
}

func (s *analyticsService) Emit(ctx context.Context, event *model.AnalyticsEvent) error {
	if s.publisher != nil {
		metrics.AnalyticsEvents.WithLabelValues(string(event.Kind), "kafka").Inc()
		return s.publisher.PublishAnalyticsTask(ctx, toTask(event))
	}
	metrics.AnalyticsEvents.WithLabelValues(string(event.Kind), "db").Inc()
	return s.repo.Create(ctx, event)
}

// HandleAnalyticsTask 将队列中的事件写入 analytics_events 表。
func (s *analyticsService) HandleAnalyticsTask(ctx context.Context, task tasks.AnalyticsTask) error {
	return s.repo.Create(ctx, fromTask(task))
}

func toTask(event *model.AnalyticsEvent) tasks.AnalyticsTask {
	emitted := event.CreatedAt
	if emitted.IsZero() {
		emitted = time.Now()
	}
	return tasks.AnalyticsTask{
		Email:          event.Email,
		Kind:           string(event.Kind),
		Sector:         event.Sector,
		ConversationID: event.ConversationID,
		Meta:           event.Meta,
		EmittedAt:      emitted,
	}
}

func fromTask(task tasks.AnalyticsTask) *model.AnalyticsEvent {
	return &model.AnalyticsEvent{
		Email:          task.Email,
		Kind:           model.EventKind(task.Kind),
		Sector:         task.Sector,
		ConversationID: task.ConversationID,
		Meta:           task.Meta,
		CreatedAt:      task.EmittedAt,
	}
}
