package document

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// TikaParser 通过Apache Tika服务解析文档
// 用于没有原生Go解析器的格式（如旧版xls）
type TikaParser struct {
	client TikaClient
}

// NewTikaParser 创建Tika解析器
func NewTikaParser(client TikaClient) Parser {
	return &TikaParser{client: client}
}

// Parse 解析本地文件
func (p *TikaParser) Parse(ctx context.Context, filePath string) (string, error) {
	return parseFile(ctx, p, filePath)
}

// ParseReader 将内容发送给Tika，返回的XHTML转换为纯文本
func (p *TikaParser) ParseReader(ctx context.Context, r io.Reader, filename string) (string, error) {
	content, err := p.client.Parse(ctx, r)
	if err != nil {
		return "", fmt.Errorf("tika parse failed: %w", err)
	}

	text := htmlToText(content)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}
