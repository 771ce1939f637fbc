package document

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVParser CSV文件解析器
type CSVParser struct{}

// NewCSVParser 创建CSV解析器
func NewCSVParser() Parser {
	return &CSVParser{}
}

// Parse 解析csv文件
func (p *CSVParser) Parse(ctx context.Context, filePath string) (string, error) {
	return parseFile(ctx, p, filePath)
}

// ParseReader 从Reader解析csv，每条记录的字段以空格连接，一条记录一行
func (p *CSVParser) ParseReader(ctx context.Context, r io.Reader, filename string) (string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // 允许各行字段数不一致
	reader.LazyQuotes = true

	var lines []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read csv: %w", err)
		}
		lines = append(lines, strings.Join(record, " "))
	}

	if len(lines) == 0 {
		return "", ErrEmptyContent
	}
	return strings.Join(lines, "\n") + "\n", nil
}
