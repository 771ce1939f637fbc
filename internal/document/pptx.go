package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	goppt "github.com/VantageDataChat/GoPPT"
)

// PptxParser PowerPoint文档解析器
type PptxParser struct{}

// NewPptxParser 创建PowerPoint解析器
func NewPptxParser() Parser {
	return &PptxParser{}
}

// Parse 解析pptx文件
func (p *PptxParser) Parse(ctx context.Context, filePath string) (string, error) {
	return parseFile(ctx, p, filePath)
}

// ParseReader 从Reader解析pptx，按演示文稿中的幻灯片顺序输出，每张前加 "=== Slide N ===" 标记
func (p *PptxParser) ParseReader(ctx context.Context, r io.Reader, filename string) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("failed to parse pptx: %v", rec)
		}
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read pptx content: %w", err)
	}

	pres, err := goppt.ReadFrom(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pptx: %w", err)
	}
	defer pres.Close()

	slides := pres.Slides()
	if len(slides) == 0 {
		return "", ErrEmptyContent
	}

	var allText strings.Builder
	for i, slide := range slides {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		allText.WriteString(fmt.Sprintf("\n=== Slide %d ===\n", i+1))
		if content := strings.TrimSpace(slide.ExtractText()); content != "" {
			allText.WriteString(content)
			allText.WriteString("\n")
		}
	}

	return allText.String(), nil
}
