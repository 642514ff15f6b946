package service

import (
	"context"
	"strings"

	"bloomo-gateway/internal/metrics"
	"bloomo-gateway/internal/model"
	"bloomo-gateway/internal/repository"
	"bloomo-gateway/pkg/llm"
	"bloomo-gateway/pkg/log"
)

// LeadInfo 是聊天请求中携带的调用方身份。
type LeadInfo struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Sector string `json:"sector"`
}

// ChatRequest 是一次聊天请求的请求体。
type ChatRequest struct {
	Lang           string              `json:"lang"`
	Sector         string              `json:"sector"`
	Prompt         string              `json:"prompt"`
	History        []model.ChatMessage `json:"history"`
	Lead           LeadInfo            `json:"lead"`
	ConversationID string              `json:"conversationId"`
	// SessionID 是调用方生成的幂等键，同一会话的首条消息只会创建一条对话。
	SessionID string `json:"sessionId"`
	Model     string `json:"model"`
}

// ChatSession 是已经打开模型流、等待转发的一轮对话。
type ChatSession struct {
	ConversationID string
	Model          string

	stream llm.Stream
	info   ExchangeInfo
}

// ChatService 定义了聊天操作的接口。
type ChatService interface {
	// CheckConfigured 在读取请求体之前检查模型凭据。
	CheckConfigured() error
	// Open 完成流式输出之前的所有步骤。返回错误时调用方应回复同步 JSON 错误。
	Open(ctx context.Context, req ChatRequest) (*ChatSession, error)
	// Stream 把模型输出转发给 w，结束后在后台记录助手回复。
	Stream(ctx context.Context, sess *ChatSession, w FragmentWriter) RelayResult
}

// ChatOptions 是模型调用参数。
type ChatOptions struct {
	Temperature float32
	MaxTokens   int
}

type chatService struct {
	llmClient llm.Client
	router    *ModelRouter
	resolver  *ConversationResolver
	assembler *ContextAssembler
	sink      *PersistenceSink
	leadRepo  repository.LeadRepository
	opts      ChatOptions
}

// NewChatService 创建一个新的 ChatService 实例。llmClient 为 nil 表示未配置凭据。
func NewChatService(
	llmClient llm.Client,
	router *ModelRouter,
	resolver *ConversationResolver,
	assembler *ContextAssembler,
	sink *PersistenceSink,
	leadRepo repository.LeadRepository,
	opts ChatOptions,
) ChatService {
	return &chatService{
		llmClient: llmClient,
		router:    router,
		resolver:  resolver,
		assembler: assembler,
		sink:      sink,
		leadRepo:  leadRepo,
		opts:      opts,
	}
}

func (s *chatService) CheckConfigured() error {
	if s.llmClient == nil {
		return ErrMissingAPIKey
	}
	return nil
}

func (s *chatService) Open(ctx context.Context, req ChatRequest) (*ChatSession, error) {
	if err := s.CheckConfigured(); err != nil {
		metrics.ChatRequests.WithLabelValues("missing_key").Inc()
		return nil, err
	}

	email := strings.TrimSpace(req.Lead.Email)
	if email == "" {
		metrics.ChatRequests.WithLabelValues("invalid").Inc()
		return nil, ErrMissingEmail
	}
	lang := valueOr(req.Lang, "en")
	sector := valueOr(req.Sector, "general")
	knownSector := s.knownSector(ctx, email, req.Lead.Sector)

	chosen := s.router.Route(req.Model, req.ConversationID != "", knownSector != "")
	metrics.ModelSelections.WithLabelValues(chosen).Inc()

	convID, err := s.resolver.Resolve(ctx, ResolveInput{
		ConversationID: req.ConversationID,
		SessionKey:     strings.TrimSpace(req.SessionID),
		Email:          email,
		Name:           req.Lead.Name,
		Sector:         valueOr(knownSector, sector),
		Lang:           lang,
		Model:          chosen,
	})
	if err != nil {
		metrics.ChatRequests.WithLabelValues("rejected").Inc()
		return nil, err
	}

	info := ExchangeInfo{
		ConversationID: convID,
		Email:          email,
		Sector:         sector,
		Lang:           lang,
		Model:          chosen,
	}
	userMsgID := s.sink.RecordUserMessage(ctx, info, req.Prompt)

	msgs, err := s.assembler.Assemble(ctx, ContextInput{
		ConversationID:   convID,
		Lang:             lang,
		Sector:           valueOr(knownSector, sector),
		History:          req.History,
		Prompt:           req.Prompt,
		ExcludeMessageID: userMsgID,
	})
	if err != nil {
		metrics.ChatRequests.WithLabelValues("store_error").Inc()
		return nil, err
	}

	llmMsgs := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		llmMsgs = append(llmMsgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	stream, err := s.llmClient.StreamChat(ctx, llm.ChatRequest{
		Model:       chosen,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		Messages:    llmMsgs,
	})
	if err != nil {
		metrics.ChatRequests.WithLabelValues("upstream_error").Inc()
		return nil, &UpstreamError{Err: err}
	}

	metrics.ChatRequests.WithLabelValues("streaming").Inc()
	return &ChatSession{ConversationID: convID, Model: chosen, stream: stream, info: info}, nil
}

func (s *chatService) Stream(ctx context.Context, sess *ChatSession, w FragmentWriter) RelayResult {
	res := Relay(ctx, sess.stream, w)
	if res.Err != nil {
		log.Warnf("模型流中途失败, conversation=%s: %v", sess.ConversationID, res.Err)
	}
	if res.Cancelled {
		log.Infof("调用方已断开, conversation=%s, 已发送 %d 个片段", sess.ConversationID, res.Fragments)
	}
	s.sink.RecordAssistantReply(sess.info, res.Text)
	return res
}

// knownSector 优先使用请求中的行业，否则尽力读取最近一次留资记录。
func (s *chatService) knownSector(ctx context.Context, email, declared string) string {
	if sector := strings.TrimSpace(declared); sector != "" {
		return sector
	}
	if s.leadRepo == nil {
		return ""
	}
	lead, err := s.leadRepo.FindLatestByEmail(ctx, email)
	if err != nil {
		log.Warnf("读取留资记录失败, email=%s: %v", email, err)
		return ""
	}
	if lead == nil {
		return ""
	}
	return strings.TrimSpace(lead.Sector)
}

func valueOr(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
