// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bloomo-gateway/internal/config"
	"bloomo-gateway/internal/handler"
	"bloomo-gateway/internal/middleware"
	"bloomo-gateway/internal/repository"
	"bloomo-gateway/internal/service"
	"bloomo-gateway/pkg/database"
	"bloomo-gateway/pkg/kafka"
	"bloomo-gateway/pkg/llm"
	"bloomo-gateway/pkg/log"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitDB(cfg.Database.Driver, cfg.Database.DSN)
	defer database.Close()
	if err := repository.Migrate(database.DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	// 4. 初始化 Repository
	conversationRepo := repository.NewConversationRepository(database.DB)
	messageRepo := repository.NewMessageRepository(database.DB)
	analyticsRepo := repository.NewAnalyticsRepository(database.DB)
	leadRepo := repository.NewLeadRepository(database.DB)
	var sessionRepo repository.SessionRepository
	if database.RDB != nil {
		sessionRepo = repository.NewSessionRepository(database.RDB, cfg.Chat.SessionTTL)
	}

	// 5. 分析事件：配置了 Kafka 时经由队列异步落库，否则直接写库
	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()
	var publisher service.AnalyticsPublisher
	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		producer = kafka.NewProducer(cfg.Kafka)
		publisher = producer
	}
	analyticsService := service.NewAnalyticsService(analyticsRepo, publisher)
	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled() {
		go func() {
			defer close(consumerDone)
			kafka.StartConsumer(bgCtx, cfg.Kafka, analyticsService)
		}()
	} else {
		close(consumerDone)
	}

	// 6. 初始化 Service (依赖注入)
	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		// 未配置凭据时服务照常启动，聊天接口返回 missing_openai_key
		log.Warnf("LLM 客户端未初始化: %v", err)
	}
	assembler, err := service.NewContextAssembler(messageRepo, cfg.LLM.Prompt.System, cfg.Chat.HistoryWindow)
	if err != nil {
		log.Fatalf("system 提示模板无效: %v", err)
	}
	sink := service.NewPersistenceSink(conversationRepo, messageRepo, analyticsService, cfg.Chat.PersistTimeout)
	chatService := service.NewChatService(
		llmClient,
		service.NewModelRouter(cfg.LLM.Tiers.Base, cfg.LLM.Tiers.Elevated, cfg.LLM.Model),
		service.NewConversationResolver(conversationRepo, sessionRepo, sink.Emitter(), cfg.Chat.VerifyOwnership),
		assembler,
		sink,
		leadRepo,
		service.ChatOptions{Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens},
	)
	leadService := service.NewLeadService(leadRepo)
	suggestionService := service.NewSuggestionService()

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	// 聊天与线索接口的请求体含邮箱、姓名和提示词，不写入访问日志
	r.Use(middleware.RequestLogger("/api/chat", "/api/lead"), gin.Recovery(), middleware.CORS(cfg.CORS.Origins()))

	// 8. 注册路由
	handler.RegisterRoutes(r, handler.Handlers{
		Chat:       handler.NewChatHandler(chatService, cfg.CORS.Origins()),
		Lead:       handler.NewLeadHandler(leadService),
		Suggestion: handler.NewSuggestionHandler(suggestionService),
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 等待流结束后的持久化任务写完，再关闭 Kafka 与数据库
	if err := sink.Wait(ctx); err != nil {
		log.Warnf("仍有持久化任务未完成: %v", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}
	cancelBg()
	<-consumerDone

	log.Info("服务已优雅关闭")
}
