package document

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxLineBreak    = regexp.MustCompile(`<w:(br|cr)\s*/>`)
	docxTab          = regexp.MustCompile(`<w:tab\s*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

// DocxParser Word文档解析器
type DocxParser struct{}

// NewDocxParser 创建Word文档解析器
func NewDocxParser() Parser {
	return &DocxParser{}
}

// Parse 解析docx文件
func (p *DocxParser) Parse(ctx context.Context, filePath string) (string, error) {
	return parseFile(ctx, p, filePath)
}

// ParseReader 从Reader解析docx，每个段落占一行
func (p *DocxParser) ParseReader(ctx context.Context, r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read docx content: %w", err)
	}

	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer doc.Close()

	text := docxXMLToText(doc.Editable().GetContent())
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}

// docxXMLToText 将document.xml内容转换为纯文本
func docxXMLToText(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxLineBreak.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}
