package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-summarizer/api/model"
)

// 定义应用中的错误类型常量
const (
	ErrorTypeValidation      = "VALIDATION_ERROR"        // 输入验证错误
	ErrorTypePayloadTooLarge = "PAYLOAD_TOO_LARGE_ERROR" // 上传内容过大
	ErrorTypeRateLimited     = "RATE_LIMITED_ERROR"      // 请求过于频繁
	ErrorTypeNotFound        = "NOT_FOUND_ERROR"         // 资源不存在错误
	ErrorTypeInternal        = "INTERNAL_ERROR"          // 内部服务器错误
	ErrorTypeUpstream        = "UPSTREAM_ERROR"          // 模型服务错误
)

// AppError 应用错误结构体
type AppError struct {
	Type    string      // 错误类型
	Message string      // 错误消息
	Details string      // 详细错误信息
	Code    int         // HTTP状态码
	Data    interface{} // 随错误一起返回的数据，可为空
}

// Error 实现error接口的方法
func (e AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// WithData 返回携带响应数据的错误副本
func (e AppError) WithData(data interface{}) AppError {
	e.Data = data
	return e
}

// NewValidationError 创建输入验证错误
func NewValidationError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusBadRequest,
	}
}

// NewPayloadTooLargeError 创建上传过大错误
func NewPayloadTooLargeError(message string) AppError {
	return AppError{
		Type:    ErrorTypePayloadTooLarge,
		Message: message,
		Code:    http.StatusRequestEntityTooLarge,
	}
}

// NewRateLimitedError 创建限流错误
func NewRateLimitedError(message string) AppError {
	return AppError{
		Type:    ErrorTypeRateLimited,
		Message: message,
		Code:    http.StatusTooManyRequests,
	}
}

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(message string) AppError {
	return AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

// NewInternalError 创建内部服务器错误
func NewInternalError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusInternalServerError,
	}
}

// NewUpstreamError 创建模型服务错误
func NewUpstreamError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeUpstream,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusBadGateway,
	}
}

// ErrorMiddleware 统一错误处理中间件
// 恢复panic，并把处理器通过HandleError记录的错误转换为统一的响应结构
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(logrus.Fields{
					FieldError:   err,
					"stack":      string(debug.Stack()),
					FieldPath:    c.Request.URL.Path,
					FieldTraceID: c.GetString(TraceIDKey),
				}).Error("Panic recovered in API request")

				resp := model.NewErrorResponse(http.StatusInternalServerError, "An unexpected error occurred")
				if gin.Mode() == gin.DebugMode {
					resp.Message = fmt.Sprintf("Panic: %v", err)
				}
				resp.TraceID = c.GetString(TraceIDKey)

				c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		traceID := c.GetString(TraceIDKey)

		var appErr AppError
		var appErrPtr *AppError
		switch {
		case errors.As(err, &appErr):
		case errors.As(err, &appErrPtr):
			appErr = *appErrPtr
		default:
			appErr = NewInternalError("Internal server error")
			if gin.Mode() == gin.DebugMode {
				appErr.Message = err.Error()
			}
		}

		log.WithFields(logrus.Fields{
			"error_type": appErr.Type,
			FieldTraceID: traceID,
			FieldPath:    c.Request.URL.Path,
			FieldError:   err.Error(),
		}).Error(appErr.Message)

		resp := model.NewErrorResponse(appErr.Code, appErr.Message)
		resp.Data = appErr.Data
		resp.TraceID = traceID
		c.AbortWithStatusJSON(appErr.Code, resp)
	}
}

// HandleError 在处理器中使用的错误处理辅助函数
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
