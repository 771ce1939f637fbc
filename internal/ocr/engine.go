// Package ocr 提供图片文字识别引擎
package ocr

import (
	"context"
	"fmt"
	"sort"
)

// Engine 图片文字识别引擎
type Engine interface {
	// Recognize 识别图片中的文字
	Recognize(ctx context.Context, image []byte) (string, error)
	// Name 返回引擎名称
	Name() string
}

// Factory 引擎工厂函数类型
type Factory func(cfg Config) (Engine, error)

// Config OCR引擎配置
type Config struct {
	Languages []string // tesseract语言，如 chi_tra、eng
	BaseURL   string   // 视觉模型服务地址
	Model     string   // 视觉模型名称
	Prompt    string   // 视觉模型提示词
}

// DefaultLanguages 默认识别繁体中文与英文
var DefaultLanguages = []string{"chi_tra", "eng"}

var engineFactories = make(map[string]Factory)

// RegisterEngine 注册OCR引擎工厂函数
func RegisterEngine(name string, factory Factory) {
	engineFactories[name] = factory
}

// NewEngine 根据名称创建OCR引擎
func NewEngine(name string, cfg Config) (Engine, error) {
	factory, ok := engineFactories[name]
	if !ok {
		return nil, fmt.Errorf("ocr engine not registered: %s", name)
	}
	return factory(cfg)
}

// Engines 返回已注册的引擎名称
func Engines() []string {
	names := make([]string, 0, len(engineFactories))
	for name := range engineFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
