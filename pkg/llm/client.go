// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"context"
	"errors"
	"fmt"

	"bloomo-gateway/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

// ErrMissingAPIKey is returned by NewClient when no provider credential is configured.
var ErrMissingAPIKey = errors.New("llm: missing api key")

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes one streaming completion call.
type ChatRequest struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Messages    []Message
}

// Stream is an incremental model response. Recv returns the next text
// fragment (possibly empty) and io.EOF once the provider signals the end.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Client defines the interface for an LLM client.
type Client interface {
	StreamChat(ctx context.Context, req ChatRequest) (Stream, error)
}

type openAIClient struct {
	client *openai.Client
}

// NewClient creates an OpenAI-compatible streaming client. BaseURL may point
// at any provider that speaks the chat completions API.
func NewClient(cfg config.LLMConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &openAIClient{client: openai.NewClientWithConfig(oc)}, nil
}

func (c *openAIClient) StreamChat(ctx context.Context, req ChatRequest) (Stream, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages:    msgs,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open chat stream: %w", err)
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *openAIStream) Close() error {
	s.stream.Close()
	return nil
}
