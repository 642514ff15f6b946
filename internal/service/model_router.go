package service

import "strings"

// Tier 是模型档位。
type Tier int

const (
	TierBase Tier = iota
	TierElevated
)

func (t Tier) String() string {
	if t == TierElevated {
		return "elevated"
	}
	return "base"
}

// ParseSelector 解析调用方的模型提示。auto 为 true 表示需要根据对话信号计算档位；
// 未知的提示按 auto 处理。
func ParseSelector(selector string) (tier Tier, auto bool) {
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case "mini", "base":
		return TierBase, false
	case "turbo", "elevated":
		return TierElevated, false
	default:
		return TierBase, true
	}
}

// ModelRouter 根据提示与对话信号选择具体模型，无副作用。
type ModelRouter struct {
	Base     string
	Elevated string
	// Override 非空时替换计算结果。
	Override string
}

// NewModelRouter 创建一个 ModelRouter。
func NewModelRouter(base, elevated, override string) *ModelRouter {
	return &ModelRouter{Base: base, Elevated: elevated, Override: override}
}

// Tier 计算档位：显式档位优先；auto 时已有对话或已知行业则升档。
func (r *ModelRouter) Tier(selector string, hasConversationID, hasSector bool) Tier {
	tier, auto := ParseSelector(selector)
	if !auto {
		return tier
	}
	if hasConversationID || hasSector {
		return TierElevated
	}
	return TierBase
}

// Route 返回具体模型标识。
func (r *ModelRouter) Route(selector string, hasConversationID, hasSector bool) string {
	if r.Override != "" {
		return r.Override
	}
	if r.Tier(selector, hasConversationID, hasSector) == TierElevated {
		return r.Elevated
	}
	return r.Base
}
