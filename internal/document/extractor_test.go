package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestExtractorKeepsOrder(t *testing.T) {
	extractor := NewExtractor(quietLogger(), 4)
	uploads := []Upload{
		{Name: "a.txt", Data: []byte("第一份")},
		{Name: "b.csv", Data: []byte("x,y\n1,2\n")},
		{Name: "c.md", Data: []byte("# 標題")},
	}

	result := extractor.Extract(context.Background(), uploads)
	require.Len(t, result.Files, 3)

	assert.Equal(t, "a.txt", result.Files[0].Name)
	assert.Equal(t, PlainText, result.Files[0].Format)
	assert.Equal(t, "b.csv", result.Files[1].Name)
	assert.Equal(t, CSV, result.Files[1].Format)
	assert.Equal(t, "c.md", result.Files[2].Name)

	assert.Empty(t, result.Failed())
	assert.Equal(t, "第一份\nx y\n1 2\n標題\n", result.Text())
}

func TestExtractorIsolatesFailures(t *testing.T) {
	extractor := NewExtractor(quietLogger(), 2)
	uploads := []Upload{
		{Name: "broken.docx", Data: []byte("not a zip")},
		{Name: "ok.txt", Data: []byte("正常內容")},
		{Name: "archive.zip", Data: []byte("PK")},
		{Name: "legacy.xls", Data: []byte("xls")},
	}

	result := extractor.Extract(context.Background(), uploads)
	require.Len(t, result.Files, 4)

	assert.False(t, result.Files[0].OK())
	assert.NotEmpty(t, result.Files[0].Reason())
	assert.True(t, result.Files[1].OK())
	assert.Empty(t, result.Files[1].Reason())
	assert.ErrorIs(t, result.Files[2].Err, ErrUnsupportedFormat)
	assert.ErrorIs(t, result.Files[3].Err, ErrUnsupportedFormat)

	failed := result.Failed()
	require.Len(t, failed, 3)
	assert.Equal(t, "broken.docx", failed[0].Name)
	assert.Equal(t, "正常內容\n", result.Text())
}

func TestExtractorWithTika(t *testing.T) {
	tika := &fakeTikaClient{content: "<body><p>舊格式</p></body>"}
	extractor := NewExtractor(quietLogger(), 1, WithTika(tika))

	result := extractor.Extract(context.Background(), []Upload{{Name: "legacy.xls", Data: []byte("xls")}})
	require.Len(t, result.Files, 1)
	require.True(t, result.Files[0].OK())
	assert.Equal(t, "舊格式", result.Files[0].Text)
}

func TestExtractorEmpty(t *testing.T) {
	extractor := NewExtractor(nil, 0)
	result := extractor.Extract(context.Background(), nil)
	assert.Empty(t, result.Files)
	assert.Equal(t, "", result.Text())
}

// shiftedXrefPDF 生成一个交叉引用表偏移整体错位的PDF
func shiftedXrefPDF(shift int) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Contents 4 0 R >>",
		"<< /Length 0 >>\nstream\n\nendstream",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off+shift)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

type panicTikaClient struct{}

func (panicTikaClient) Parse(ctx context.Context, input io.Reader) (string, error) {
	panic("tika client exploded")
}

func TestExtractorRecoversParserPanic(t *testing.T) {
	t.Run("corrupt pdf", func(t *testing.T) {
		extractor := NewExtractor(quietLogger(), 2)
		uploads := []Upload{
			{Name: "notes.txt", Data: []byte("備註")},
			{Name: "broken.pdf", Data: shiftedXrefPDF(3)},
		}

		result := extractor.Extract(context.Background(), uploads)
		require.Len(t, result.Files, 2)

		assert.True(t, result.Files[0].OK())
		assert.False(t, result.Files[1].OK())
		assert.Empty(t, result.Files[1].Text)
		assert.Equal(t, "備註\n", result.Text())
	})

	t.Run("panicking parser", func(t *testing.T) {
		extractor := NewExtractor(quietLogger(), 1, WithTika(panicTikaClient{}))
		uploads := []Upload{
			{Name: "legacy.xls", Data: []byte("xls")},
			{Name: "ok.txt", Data: []byte("正常")},
		}

		result := extractor.Extract(context.Background(), uploads)
		require.Len(t, result.Files, 2)

		require.Error(t, result.Files[0].Err)
		assert.Contains(t, result.Files[0].Reason(), "legacy.xls")
		assert.Contains(t, result.Files[0].Reason(), "tika client exploded")
		assert.True(t, result.Files[1].OK())
	})
}
