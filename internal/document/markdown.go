package document

import (
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownParser Markdown文档解析器
type MarkdownParser struct{}

// NewMarkdownParser 创建新的Markdown解析器
func NewMarkdownParser() Parser {
	return &MarkdownParser{}
}

// Parse 解析Markdown文件并提取文本内容
func (p *MarkdownParser) Parse(ctx context.Context, filePath string) (string, error) {
	return parseFile(ctx, p, filePath)
}

// ParseReader 从Reader解析Markdown内容
func (p *MarkdownParser) ParseReader(ctx context.Context, r io.Reader, filename string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read markdown content: %w", err)
	}

	// 先渲染为HTML，再去掉标签，避免自己处理Markdown语法
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)
	doc := mdParser.Parse(content)

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	htmlContent := markdown.Render(doc, renderer)

	return htmlToText(string(htmlContent)), nil
}

var (
	headSection   = regexp.MustCompile(`(?is)<head(\s[^>]*)?>.*?</head>`)
	blockBreakTag = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|ul|ol|tr|table|h[1-6]|pre|blockquote)>`)
	listItemTag   = regexp.MustCompile(`(?i)<li[^>]*>`)
	cellEndTag    = regexp.MustCompile(`(?i)</t[dh]>`)
	anyTag        = regexp.MustCompile(`<[^>]*>`)
	blankLines    = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+`)
)

// htmlToText 从HTML中提取纯文本，块级元素结束处换行
func htmlToText(content string) string {
	content = headSection.ReplaceAllString(content, "")
	content = listItemTag.ReplaceAllString(content, "- ")
	content = cellEndTag.ReplaceAllString(content, " ")
	content = blockBreakTag.ReplaceAllString(content, "\n")
	content = anyTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = blankLines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
