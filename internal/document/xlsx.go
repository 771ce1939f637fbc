package document

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XlsxParser Excel文档解析器
type XlsxParser struct{}

// NewXlsxParser 创建Excel解析器
func NewXlsxParser() Parser {
	return &XlsxParser{}
}

// Parse 解析xlsx文件
func (p *XlsxParser) Parse(ctx context.Context, filePath string) (string, error) {
	return parseFile(ctx, p, filePath)
}

// ParseReader 从Reader解析xlsx
// 每个工作表前加 "=== Sheet: 名称 ===" 标记，每行的单元格以空格连接
func (p *XlsxParser) ParseReader(ctx context.Context, r io.Reader, filename string) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	var allText strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}

		allText.WriteString(fmt.Sprintf("\n=== Sheet: %s ===\n", sheet))
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, strings.Join(row, " "))
		}
		allText.WriteString(strings.Join(lines, "\n"))
		allText.WriteString("\n")
	}

	return allText.String(), nil
}
