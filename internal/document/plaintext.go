package document

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// PlainTextParser 纯文本解析器
type PlainTextParser struct{}

// NewPlainTextParser 创建一个新的纯文本解析器
func NewPlainTextParser() Parser {
	return &PlainTextParser{}
}

// Parse 解析纯文本文件
func (p *PlainTextParser) Parse(ctx context.Context, filePath string) (string, error) {
	return parseFile(ctx, p, filePath)
}

// ParseReader 从Reader读取纯文本
// 按UTF-8解码，无效字节直接丢弃
func (p *PlainTextParser) ParseReader(ctx context.Context, r io.Reader, filename string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}

	text := strings.ToValidUTF8(string(content), "")
	return strings.TrimPrefix(text, "\ufeff"), nil
}
