package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-summarizer/internal/document"
)

const (
	// DefaultMaxLength 规范化后文本的最大长度
	DefaultMaxLength = 50000
	// DefaultPreviewLength 提取结果预览的长度
	DefaultPreviewLength = 5000
)

// DocumentService 文档服务
// 负责协调多文件的文本提取和规范化
type DocumentService struct {
	extractor     *document.Extractor // 文本提取器
	maxLength     int                 // 规范化后文本的最大长度
	previewLength int                 // 预览长度
	timeout       time.Duration       // 提取超时时间
	logger        *logrus.Logger      // 日志记录器
}

// DocumentOption 文档服务配置选项
type DocumentOption func(*DocumentService)

// ExtractResult 提取并规范化后的结果
type ExtractResult struct {
	Extraction *document.Extraction // 每个文件的提取结果
	Text       string               // 规范化后的合并文本
	Characters int                  // Text的字符数
}

// Empty 是否没有可用的文本
func (r *ExtractResult) Empty() bool {
	return r.Characters == 0
}

// NewDocumentService 创建一个新的文档服务
func NewDocumentService(extractor *document.Extractor, opts ...DocumentOption) *DocumentService {
	srv := &DocumentService{
		extractor:     extractor,
		maxLength:     DefaultMaxLength,
		previewLength: DefaultPreviewLength,
		timeout:       5 * time.Minute,
		logger:        logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	if srv.extractor == nil {
		srv.extractor = document.NewExtractor(srv.logger, 1)
	}

	return srv
}

// WithMaxLength 设置规范化后文本的最大长度
func WithMaxLength(n int) DocumentOption {
	return func(s *DocumentService) {
		if n > 0 {
			s.maxLength = n
		}
	}
}

// WithPreviewLength 设置预览长度
func WithPreviewLength(n int) DocumentOption {
	return func(s *DocumentService) {
		if n > 0 {
			s.previewLength = n
		}
	}
}

// WithTimeout 设置提取超时时间
func WithTimeout(timeout time.Duration) DocumentOption {
	return func(s *DocumentService) {
		s.timeout = timeout
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) DocumentOption {
	return func(s *DocumentService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Extract 提取所有上传文件的文本并规范化
// 单个文件失败只记录在Extraction中
func (s *DocumentService) Extract(ctx context.Context, uploads []document.Upload) *ExtractResult {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	extraction := s.extractor.Extract(ctx, uploads)
	text := document.Normalize(extraction.Text(), s.maxLength)

	result := &ExtractResult{
		Extraction: extraction,
		Text:       text,
		Characters: len([]rune(text)),
	}

	s.logger.WithFields(logrus.Fields{
		"files":      len(uploads),
		"failed":     len(extraction.Failed()),
		"characters": result.Characters,
		"elapsed":    time.Since(start).String(),
	}).Info("Documents extracted")

	return result
}

// Preview 返回文本的预览，超出预览长度时以省略号结尾
func (s *DocumentService) Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= s.previewLength {
		return text
	}
	return string(runes[:s.previewLength]) + "..."
}
