package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// ErrUnsupportedFormat 不支持的文件格式
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmptyContent 文档中没有可提取的文本
	ErrEmptyContent = errors.New("no text content found")
)

// Parser 文档解析器接口
// 负责将不同格式的文档解析为纯文本，页/工作表/幻灯片的边界以标记行保留在文本中
type Parser interface {
	// Parse 解析本地文件，返回文本内容
	Parse(ctx context.Context, filePath string) (string, error)

	// ParseReader 从Reader解析文档，返回文本内容
	// filename用于确定文档类型
	ParseReader(ctx context.Context, r io.Reader, filename string) (string, error)
}

// OCREngine 图片文字识别引擎
// 由 internal/ocr 提供实现，解析器只依赖这个接口
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Name() string
}

// TikaClient 远程文档解析服务（Apache Tika）
type TikaClient interface {
	Parse(ctx context.Context, input io.Reader) (string, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// DOCX Word文档
	DOCX ContentType = "docx"
	// PPTX PowerPoint文档
	PPTX ContentType = "pptx"
	// XLSX Excel文档
	XLSX ContentType = "xlsx"
	// XLS 旧版Excel文档，需要Tika
	XLS ContentType = "xls"
	// CSV 逗号分隔文件
	CSV ContentType = "csv"
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// ParserOption 解析器工厂选项
type ParserOption func(*parserOptions)

type parserOptions struct {
	ocr    OCREngine
	tika   TikaClient
	logger *logrus.Logger
}

// WithOCR 为PDF解析器设置OCR引擎，未设置时跳过图片
func WithOCR(engine OCREngine) ParserOption {
	return func(o *parserOptions) {
		o.ocr = engine
	}
}

// WithTika 设置Tika客户端，用于没有原生解析器的格式
func WithTika(client TikaClient) ParserOption {
	return func(o *parserOptions) {
		o.tika = client
	}
}

// WithParserLogger 设置解析过程中使用的日志记录器
func WithParserLogger(logger *logrus.Logger) ParserOption {
	return func(o *parserOptions) {
		o.logger = logger
	}
}

// ParserFactory 解析器工厂函数，根据文件类型创建对应的解析器
func ParserFactory(filePath string, opts ...ParserOption) (Parser, error) {
	options := &parserOptions{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(options)
	}

	contentType := DetectContentType(filePath)

	switch contentType {
	case PDF:
		return NewPDFParser(options.ocr, options.logger), nil
	case DOCX:
		return NewDocxParser(), nil
	case PPTX:
		return NewPptxParser(), nil
	case XLSX:
		return NewXlsxParser(), nil
	case CSV:
		return NewCSVParser(), nil
	case Markdown:
		return NewMarkdownParser(), nil
	case PlainText:
		return NewPlainTextParser(), nil
	case XLS:
		if options.tika != nil {
			return NewTikaParser(options.tika), nil
		}
		return nil, fmt.Errorf("%w: %s (tika endpoint not configured)", ErrUnsupportedFormat, contentType)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filePath))
	}
}

// DetectContentType 根据文件扩展名检测内容类型
func DetectContentType(filePath string) ContentType {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".pdf":
		return PDF
	case ".docx":
		return DOCX
	case ".pptx":
		return PPTX
	case ".xlsx":
		return XLSX
	case ".xls":
		return XLS
	case ".csv":
		return CSV
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return PlainText
	default:
		return Unknown
	}
}

// parseFile 打开本地文件后交给ParseReader处理，供各解析器的Parse复用
func parseFile(ctx context.Context, p Parser, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.ParseReader(ctx, file, filePath)
}

// Chunk 表示文本中的一个分块
// Start/End 为源文本中的字符（rune）偏移，区间为[Start, End)
type Chunk struct {
	Index int    // 分块序号
	Start int    // 起始偏移
	End   int    // 结束偏移（不含）
	Text  string // 分块文本
}

// Splitter 文本分块器接口
type Splitter interface {
	// Split 将文本切分为有序的分块
	Split(text string) []Chunk
}
