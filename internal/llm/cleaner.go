package llm

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// ScriptConverter 文字转换器，用于把简体中文转换为繁体中文
type ScriptConverter interface {
	Convert(text string) (string, error)
}

var (
	thinkBlock    = regexp.MustCompile(`(?is)<think>.*?</think>`)
	thinkingBlock = regexp.MustCompile(`(?is)<thinking>.*?</thinking>`)
	strayThinkTag = regexp.MustCompile(`(?i)<\s*/?\s*think(ing)?\s*>`)
	extraBlank    = regexp.MustCompile(`\n\s*\n`)
)

// Cleaner 模型输出后处理
// 去掉思考过程标签，压缩多余空行，最后转换为繁体中文
type Cleaner struct {
	converter ScriptConverter
	logger    *logrus.Logger
}

// CleanerOption 后处理器选项
type CleanerOption func(*Cleaner)

// WithCleanerLogger 设置转换失败时使用的日志记录器
func WithCleanerLogger(logger *logrus.Logger) CleanerOption {
	return func(c *Cleaner) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCleaner 创建后处理器，converter为nil时不做字形转换
func NewCleaner(converter ScriptConverter, opts ...CleanerOption) *Cleaner {
	c := &Cleaner{
		converter: converter,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean 处理模型输出
func (c *Cleaner) Clean(text string) string {
	text = StripThinkTags(text)
	if c.converter == nil {
		return text
	}

	converted, err := c.converter.Convert(text)
	if err != nil {
		// 转换失败时保留未转换的文本
		c.logger.WithFields(logrus.Fields{
			"characters": len([]rune(text)),
			"error":      err.Error(),
		}).Warn("Script conversion failed, returning unconverted text")
		return text
	}
	return converted
}

// StripThinkTags 移除成对的思考标签及其内容，再移除残留的单独标签
func StripThinkTags(text string) string {
	text = thinkBlock.ReplaceAllString(text, "")
	text = thinkingBlock.ReplaceAllString(text, "")
	text = strayThinkTag.ReplaceAllString(text, "")
	text = extraBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
