package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"
)

// PDFParser PDF文档解析器
// 文本按页提取，页面内嵌图片交给OCR引擎识别后追加到对应页的文本之后
type PDFParser struct {
	ocr    OCREngine
	logger *logrus.Logger
}

// NewPDFParser 创建一个新的PDF解析器，ocr为nil时不处理图片
func NewPDFParser(ocr OCREngine, logger *logrus.Logger) Parser {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PDFParser{
		ocr:    ocr,
		logger: logger,
	}
}

// Parse 解析PDF文件并提取其文本内容
func (p *PDFParser) Parse(ctx context.Context, filePath string) (string, error) {
	return parseFile(ctx, p, filePath)
}

// ParseReader 从Reader解析PDF内容
func (p *PDFParser) ParseReader(ctx context.Context, r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf content: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	// 图片提取失败不影响文字部分
	var images map[int][][]byte
	if p.ocr != nil {
		images, err = extractPageImages(data)
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"file":  filename,
				"error": err.Error(),
			}).Warn("Failed to extract images from PDF, OCR skipped")
		}
	}

	var allText strings.Builder
	totalPage := reader.NumPage()
	for pageNum := 1; pageNum <= totalPage; pageNum++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(pageNum)
		if !page.V.IsNull() {
			text, err := page.GetPlainText(nil)
			if err != nil {
				return "", fmt.Errorf("failed to extract text from page %d: %w", pageNum, err)
			}
			allText.WriteString(text)
			allText.WriteString("\n")
		}

		for imgIndex, img := range images[pageNum] {
			ocrText, err := p.ocr.Recognize(ctx, img)
			if err != nil {
				p.logger.WithFields(logrus.Fields{
					"file":  filename,
					"page":  pageNum,
					"image": imgIndex + 1,
					"error": err.Error(),
				}).Warn("OCR failed for image")
				continue
			}
			allText.WriteString(FormatOCRSegment(pageNum, imgIndex+1, ocrText))
		}
	}

	if strings.TrimSpace(allText.String()) == "" {
		return "", ErrEmptyContent
	}
	return allText.String(), nil
}

// FormatOCRSegment 生成图片OCR结果的标记段落，识别结果为空时返回空字符串
func FormatOCRSegment(pageNum, imageNum int, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return fmt.Sprintf("\n[圖片內容 OCR 辨識結果 (第 %d 頁, 圖片 %d)]:\n%s\n", pageNum, imageNum, text)
}

// extractPageImages 使用pdfcpu提取各页内嵌图片，按页码分组
func extractPageImages(data []byte) (map[int][][]byte, error) {
	images := make(map[int][][]byte)
	conf := model.NewDefaultConfiguration()

	err := api.ExtractImages(bytes.NewReader(data), nil, func(img model.Image, _ bool, _ int) error {
		raw, err := io.ReadAll(img)
		if err != nil {
			return err
		}
		images[img.PageNr] = append(images[img.PageNr], raw)
		return nil
	}, conf)
	if err != nil {
		return nil, err
	}
	return images, nil
}
