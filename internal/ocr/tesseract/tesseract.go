//go:build tesseract

// Package tesseract 基于gosseract的本地OCR引擎，需要安装libtesseract并以 -tags tesseract 构建
package tesseract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/fyerfyer/doc-summarizer/internal/ocr"
)

// Engine tesseract OCR引擎
// gosseract的客户端不是并发安全的，识别过程串行执行
type Engine struct {
	mu        sync.Mutex
	client    *gosseract.Client
	languages []string
}

// New 创建tesseract引擎
func New(cfg ocr.Config) (ocr.Engine, error) {
	languages := cfg.Languages
	if len(languages) == 0 {
		languages = ocr.DefaultLanguages
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set tesseract languages: %w", err)
	}

	return &Engine{
		client:    client,
		languages: languages,
	}, nil
}

// Name 返回引擎名称
func (e *Engine) Name() string {
	return "tesseract:" + strings.Join(e.languages, "+")
}

// Recognize 识别图片中的文字
func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract recognition failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Close 释放tesseract资源
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}

func init() {
	ocr.RegisterEngine("tesseract", New)
}
