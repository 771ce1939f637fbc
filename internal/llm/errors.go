package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// LLMError 大模型调用错误类型
type LLMError struct {
	Code    int    // 错误码
	Message string // 错误消息
}

// Error 实现error接口
func (e LLMError) Error() string {
	return fmt.Sprintf("llm error (code=%d): %s", e.Code, e.Message)
}

// 错误码常量
const (
	ErrCodeInvalidAPIKey  = 1001 // 无效的API密钥
	ErrCodeInvalidRequest = 1002 // 无效的请求
	ErrCodeNetworkError   = 1003 // 网络连接错误
	ErrCodeRateLimited    = 1004 // 请求频率超限
	ErrCodeServerError    = 1005 // 服务器错误
	ErrCodeTimeout        = 1006 // 请求超时
	ErrCodeEmptyPrompt    = 1007 // 提示词为空
	ErrCodeModelNotSet    = 1008 // 未配置模型
	ErrCodeModelNotFound  = 1009 // 模型不存在
	ErrCodeEmptyResponse  = 1010 // 模型没有返回内容
)

// 错误消息常量
const (
	ErrMsgInvalidAPIKey  = "invalid API key"
	ErrMsgInvalidRequest = "invalid request parameters"
	ErrMsgRateLimited    = "too many requests, rate limit exceeded"
	ErrMsgServerError    = "server error occurred"
	ErrMsgTimeout        = "request timed out"
	ErrMsgEmptyPrompt    = "prompt cannot be empty"
	ErrMsgNetworkError   = "network connection error"
	ErrMsgModelNotSet    = "model is not configured, set LLM_MODEL"
	ErrMsgEmptyResponse  = "empty response from model"
)

// NewLLMError 创建新的大模型错误
func NewLLMError(code int, message string) LLMError {
	return LLMError{
		Code:    code,
		Message: message,
	}
}

// WrapError 包装普通错误为LLM错误
func WrapError(err error, code int) LLMError {
	if err == nil {
		return LLMError{Code: code, Message: "unknown error"}
	}

	// 如果已经是LLMError类型，则直接返回
	var llmErr LLMError
	if errors.As(err, &llmErr) {
		return llmErr
	}

	// 超时与取消统一归为超时错误
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		code = ErrCodeTimeout
	}

	return LLMError{
		Code:    code,
		Message: err.Error(),
	}
}

// codeFromStatus 根据HTTP状态码确定错误码
func codeFromStatus(status int) int {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrCodeInvalidAPIKey
	case status == http.StatusNotFound:
		return ErrCodeModelNotFound
	case status == http.StatusTooManyRequests:
		return ErrCodeRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrCodeTimeout
	case status >= 400 && status < 500:
		return ErrCodeInvalidRequest
	default:
		return ErrCodeServerError
	}
}
