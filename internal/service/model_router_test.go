package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelRouter_Route(t *testing.T) {
	router := NewModelRouter("gpt-4.1-mini", "gpt-4.1-turbo", "")

	tests := []struct {
		name     string
		selector string
		hasConv  bool
		hasSec   bool
		want     string
	}{
		{"auto new caller", "auto", false, false, "gpt-4.1-mini"},
		{"auto existing conversation", "auto", true, false, "gpt-4.1-turbo"},
		{"auto known sector", "auto", false, true, "gpt-4.1-turbo"},
		{"empty selector is auto", "", true, true, "gpt-4.1-turbo"},
		{"mini pins base", "mini", true, true, "gpt-4.1-mini"},
		{"base pins base", "base", true, false, "gpt-4.1-mini"},
		{"turbo pins elevated", "turbo", false, false, "gpt-4.1-turbo"},
		{"elevated pins elevated", "ELEVATED", false, false, "gpt-4.1-turbo"},
		{"unknown selector falls back to auto", "gpt-5", false, false, "gpt-4.1-mini"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, router.Route(tt.selector, tt.hasConv, tt.hasSec))
			// 相同输入结果相同
			assert.Equal(t, tt.want, router.Route(tt.selector, tt.hasConv, tt.hasSec))
		})
	}
}

func TestModelRouter_OverrideWins(t *testing.T) {
	router := NewModelRouter("gpt-4.1-mini", "gpt-4.1-turbo", "gpt-custom")

	assert.Equal(t, "gpt-custom", router.Route("mini", false, false))
	assert.Equal(t, "gpt-custom", router.Route("auto", true, true))
	// 档位计算不受覆盖影响
	assert.Equal(t, TierElevated, router.Tier("auto", true, false))
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "base", TierBase.String())
	assert.Equal(t, "elevated", TierElevated.String())
}
