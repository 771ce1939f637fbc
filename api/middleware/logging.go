package middleware

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log = logrus.New()

// 初始化日志配置
func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	if os.Getenv("DEBUG") == "true" {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// LogOptions 日志输出配置
type LogOptions struct {
	Level      string // 日志级别
	Format     string // json 或 text
	File       string // 日志文件路径，为空时只输出到标准输出
	MaxSizeMB  int    // 单个文件大小上限
	MaxBackups int    // 保留的旧文件数
	MaxAgeDays int    // 旧文件保留天数
}

// SetupLogger 按配置调整全局日志记录器
// 设置了日志文件时同时写入标准输出和按大小轮转的文件
func SetupLogger(opts LogOptions) (*logrus.Logger, error) {
	if opts.Level != "" {
		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		log.SetLevel(level)
	}

	if strings.EqualFold(opts.Format, "text") {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}

	if opts.File != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}))
	} else {
		log.SetOutput(os.Stdout)
	}

	return log, nil
}

// Logger 日志中间件
// 记录请求信息和响应时间
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := log.WithFields(logrus.Fields{
			FieldStatus:   c.Writer.Status(),
			FieldLatency:  time.Since(start).String(),
			FieldClientIP: c.ClientIP(),
			FieldMethod:   c.Request.Method,
			FieldPath:     path,
			"user_agent":  c.Request.UserAgent(),
		})
		if traceID := c.GetString(TraceIDKey); traceID != "" {
			entry = entry.WithField(FieldTraceID, traceID)
		}
		entry.Info("HTTP request")
	}
}

// RequestBodyLog 请求体日志中间件
// 在DEBUG模式下记录请求体内容，文件上传只记录大小
func RequestBodyLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		if log.Level >= logrus.DebugLevel && c.Request.Body != nil {
			if strings.HasPrefix(c.ContentType(), "multipart/") {
				log.WithFields(logrus.Fields{
					FieldMethod: c.Request.Method,
					FieldPath:   c.Request.URL.Path,
					"size":      c.Request.ContentLength,
				}).Debug("Multipart request")
			} else {
				var buf bytes.Buffer
				tee := io.TeeReader(c.Request.Body, &buf)
				body, _ := io.ReadAll(tee)
				c.Request.Body = io.NopCloser(&buf)

				if len(body) > 0 {
					log.WithFields(logrus.Fields{
						FieldMethod: c.Request.Method,
						FieldPath:   c.Request.URL.Path,
						"body":      string(body),
					}).Debug("Request body")
				}
			}
		}

		c.Next()
	}
}

// TraceIDKey 追踪ID在gin上下文中的键
const TraceIDKey = "TraceID"

// SetTraceID 将追踪ID设置到上下文和响应头中
func SetTraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header("X-Trace-ID", traceID)

		c.Next()
	}
}

// 常用日志字段
const (
	FieldTraceID  = "trace_id"    // 追踪ID
	FieldPath     = "path"        // 请求路径
	FieldMethod   = "method"      // 请求方法
	FieldStatus   = "status_code" // 状态码
	FieldLatency  = "latency"     // 延迟时间
	FieldClientIP = "client_ip"   // 客户端IP
	FieldError    = "error"       // 错误信息
)

// GetLogger 返回全局日志记录器
func GetLogger() *logrus.Logger {
	return log
}
