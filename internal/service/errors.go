// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"fmt"
)

// 错误字符串即对外返回的错误码。
var (
	// ErrMissingAPIKey 表示未配置模型服务凭据（配置错误）。
	ErrMissingAPIKey = errors.New("missing_openai_key")
	// ErrMissingEmail 表示调用方身份缺失（校验错误）。
	ErrMissingEmail          = errors.New("missing_email")
	ErrConversationNotFound  = errors.New("conversation_not_found")
	ErrConversationForbidden = errors.New("conversation_forbidden")
)

// StoreError 表示在流式输出开始前发生的存储失败。
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// UpstreamError 表示模型服务拒绝打开流。
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }
