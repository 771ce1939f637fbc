// Package textconv 中文字形转换，模型输出统一转换为繁体中文
package textconv

import (
	"fmt"
	"sync"

	"github.com/longbridgeapp/opencc"
)

// DefaultConversion 简体转繁体
const DefaultConversion = "s2t"

// Converter 基于OpenCC的字形转换器
type Converter struct {
	mu sync.Mutex
	cc *opencc.OpenCC
}

// New 创建转换器，conversion为OpenCC配置名称，如 s2t、s2tw、s2twp
func New(conversion string) (*Converter, error) {
	if conversion == "" {
		conversion = DefaultConversion
	}
	cc, err := opencc.New(conversion)
	if err != nil {
		return nil, fmt.Errorf("failed to load opencc conversion %s: %w", conversion, err)
	}
	return &Converter{cc: cc}, nil
}

// Convert 转换文本
func (c *Converter) Convert(text string) (string, error) {
	if text == "" {
		return "", nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cc.Convert(text)
}
