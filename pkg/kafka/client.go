// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bloomo-gateway/internal/config"
	"bloomo-gateway/pkg/log"
	"bloomo-gateway/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// TaskHandler 处理从 Kafka 读取到的分析任务。
// 它将消费者与具体的持久化实现解耦。
type TaskHandler interface {
	HandleAnalyticsTask(ctx context.Context, task tasks.AnalyticsTask) error
}

// Producer 将分析任务写入 Kafka。
type Producer struct {
	writer       *kafka.Writer
	writeTimeout time.Duration
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	p := &Producer{
		writer:       newWriter(cfg),
		writeTimeout: cfg.WriteTimeout,
	}
	log.Info("Kafka 生产者初始化成功")
	return p
}

// newWriter 按配置构造同步 Writer。事件逐条发送，攒批等待必须很短。
func newWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.BrokerList()...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
	}
}

// PublishAnalyticsTask 发送一个分析任务到 Kafka，以对话 ID 作为分区键。
func (p *Producer) PublishAnalyticsTask(ctx context.Context, task tasks.AnalyticsTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if p.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.writeTimeout)
		defer cancel()
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.ConversationID),
		Value: taskBytes,
	})
}

// Close 刷新并关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// messageReader 是 kafka.Reader 中消费者循环用到的部分。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StartConsumer 启动一个 Kafka 消费者来持久化分析事件，直到 ctx 被取消。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, handler TaskHandler) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.BrokerList(),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	consume(ctx, r, handler)
}

// consume 逐条处理消息。分析事件允许丢失，因此无论处理成功与否都提交 offset，不做重试。
func consume(ctx context.Context, r messageReader, handler TaskHandler) {
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info("Kafka 消费者已停止")
			} else {
				log.Error("从 Kafka 读取消息失败", err)
			}
			return
		}

		var task tasks.AnalyticsTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		} else if err := handler.HandleAnalyticsTask(ctx, task); err != nil {
			log.Warnw("分析事件写入失败，已丢弃", "kind", task.Kind, "conversationId", task.ConversationID, "error", err)
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}
