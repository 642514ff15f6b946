package service

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"bloomo-gateway/internal/model"
	"bloomo-gateway/internal/repository"
)

// DefaultSystemPrompt 是未配置 llm.prompt.system 时使用的系统指令模板。
const DefaultSystemPrompt = `You are BloomoGPT, a senior business intelligence and market expansion copilot
for entrepreneurs, operators and exporters.
Reply in {{.Lang}} unless the user clearly switches language.
Sector: {{.Sector}}.
- Be specific, data-driven and ROI-oriented.
- Start with a 2-sentence executive summary, then give EXACTLY 3 actionable next steps.
- For a named region or country cover market trends, key players, costs and practical channels.
- Surface 1 critical missing input needed to proceed, if any.
- Prefer tables or checklists when useful.`

// PromptData 是系统指令模板的渲染参数。
type PromptData struct {
	Lang   string
	Sector string
}

// ContextInput 描述一次上下文组装的输入。
type ContextInput struct {
	ConversationID string
	Lang           string
	Sector         string
	History        []model.ChatMessage
	Prompt         string
	// ExcludeMessageID 是刚写入的用户消息，避免提示重复出现。
	ExcludeMessageID uint
}

// ContextAssembler 按固定顺序组装发给模型的消息。
type ContextAssembler struct {
	msgRepo repository.MessageRepository
	tmpl    *template.Template
	window  int
}

// NewContextAssembler 解析系统指令模板。systemPrompt 为空时使用 DefaultSystemPrompt。
func NewContextAssembler(msgRepo repository.MessageRepository, systemPrompt string, window int) (*ContextAssembler, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	tmpl, err := template.New("system").Parse(systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse system prompt: %w", err)
	}
	return &ContextAssembler{msgRepo: msgRepo, tmpl: tmpl, window: window}, nil
}

// Assemble 返回 system、持久化历史、临时历史、当前提示四段按序拼接的消息。
func (a *ContextAssembler) Assemble(ctx context.Context, in ContextInput) ([]model.ChatMessage, error) {
	system, err := a.systemMessage(in.Lang, in.Sector)
	if err != nil {
		return nil, err
	}

	persisted, err := a.msgRepo.FindRecent(ctx, in.ConversationID, a.window, in.ExcludeMessageID)
	if err != nil {
		return nil, &StoreError{Op: "load history", Err: err}
	}

	msgs := make([]model.ChatMessage, 0, len(persisted)+len(in.History)+2)
	msgs = append(msgs, model.ChatMessage{Role: model.RoleSystem, Content: system})
	for _, m := range persisted {
		msgs = append(msgs, m.ChatMessage())
	}
	msgs = append(msgs, in.History...)
	msgs = append(msgs, model.ChatMessage{Role: model.RoleUser, Content: in.Prompt})
	return msgs, nil
}

func (a *ContextAssembler) systemMessage(lang, sector string) (string, error) {
	var b strings.Builder
	data := PromptData{Lang: strings.ToUpper(lang), Sector: sector}
	if err := a.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render system prompt: %w", err)
	}
	return b.String(), nil
}
