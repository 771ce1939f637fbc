package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Upload 上传的文档
type Upload struct {
	Name string // 原始文件名，用于判断格式
	Data []byte // 文件内容
}

// FileResult 单个文件的提取结果
// 成功时Text为文件文本，失败时Err记录原因，互不影响
type FileResult struct {
	Name   string
	Format ContentType
	Text   string
	Err    error
}

// OK 文件是否提取成功
func (r FileResult) OK() bool {
	return r.Err == nil
}

// Reason 失败原因，成功时为空
func (r FileResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Extraction 一次请求中所有文件的提取结果，顺序与上传顺序一致
type Extraction struct {
	Files []FileResult
}

// Text 按文件顺序拼接所有成功提取的文本
func (e *Extraction) Text() string {
	var b strings.Builder
	for _, f := range e.Files {
		if !f.OK() {
			continue
		}
		b.WriteString(f.Text)
		if !strings.HasSuffix(f.Text, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Failed 返回提取失败的文件
func (e *Extraction) Failed() []FileResult {
	var failed []FileResult
	for _, f := range e.Files {
		if !f.OK() {
			failed = append(failed, f)
		}
	}
	return failed
}

// Extractor 文档文本提取器
type Extractor struct {
	options     []ParserOption
	concurrency int
	logger      *logrus.Logger
}

// NewExtractor 创建提取器，concurrency为同时解析的文件数上限
func NewExtractor(logger *logrus.Logger, concurrency int, opts ...ParserOption) *Extractor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Extractor{
		options:     append([]ParserOption{WithParserLogger(logger)}, opts...),
		concurrency: concurrency,
		logger:      logger,
	}
}

// Extract 提取所有上传文件的文本
// 单个文件失败（格式不支持、解析出错）只记录在对应的FileResult中，不影响其他文件
func (e *Extractor) Extract(ctx context.Context, uploads []Upload) *Extraction {
	results := make([]FileResult, len(uploads))

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, upload := range uploads {
		g.Go(func() error {
			results[i] = e.extractOne(ctx, upload)
			return nil
		})
	}
	_ = g.Wait()

	return &Extraction{Files: results}
}

func (e *Extractor) extractOne(ctx context.Context, upload Upload) (result FileResult) {
	start := time.Now()
	result = FileResult{
		Name:   upload.Name,
		Format: DetectContentType(upload.Name),
	}

	logger := e.logger.WithFields(logrus.Fields{
		"file":   upload.Name,
		"format": result.Format,
		"size":   len(upload.Data),
	})

	// 解析库在遇到损坏文件时可能panic，这里只让当前文件失败
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", fmt.Sprint(r)).Error("Document parser panicked")
			result.Text = ""
			result.Err = fmt.Errorf("failed to parse %s: %v", upload.Name, r)
		}
	}()

	parser, err := ParserFactory(upload.Name, e.options...)
	if err != nil {
		logger.WithField("error", err.Error()).Warn("Unsupported document format")
		result.Err = err
		return result
	}

	text, err := parser.ParseReader(ctx, bytes.NewReader(upload.Data), upload.Name)
	if err != nil {
		logger.WithField("error", err.Error()).Error("Failed to extract document text")
		result.Err = err
		return result
	}

	result.Text = text
	logger.WithFields(logrus.Fields{
		"characters": len([]rune(text)),
		"elapsed":    time.Since(start).String(),
	}).Info("Document text extracted")
	return result
}
