package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appconfig "github.com/fyerfyer/doc-summarizer/config"
	"github.com/fyerfyer/doc-summarizer/internal/document"
	"github.com/fyerfyer/doc-summarizer/internal/llm"
	"github.com/fyerfyer/doc-summarizer/internal/services"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestApp(t *testing.T) (*app, *llm.MockClient) {
	client := llm.NewMockClient(t)
	client.EXPECT().Name().Return("qwen3:8b").Maybe()

	logger := quietLogger()
	return &app{
		client: client,
		documents: services.NewDocumentService(document.NewExtractor(logger, 1),
			services.WithLogger(logger)),
		summaries: services.NewSummaryService(client, llm.NewCleaner(nil),
			services.WithSummaryLogger(logger)),
	}, client
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a.pdf", "b.docx"}, splitList("a.pdf, b.docx"))
	assert.Equal(t, []string{"a.pdf"}, splitList(",a.pdf,,"))
	assert.Nil(t, splitList(""))
}

func TestRunCLI(t *testing.T) {
	dir := t.TempDir()
	manual := writeFile(t, dir, "manual.txt", "採購單建立流程。")

	a, client := newTestApp(t)
	client.EXPECT().Chat(mock.Anything, mock.Anything).
		Return(&llm.Response{Text: "<think>嗯</think>- 建立採購單"}, nil).Once()

	var stdout, stderr bytes.Buffer
	code := runCLI(context.Background(), a, cliOptions{
		Files: []string{manual, filepath.Join(dir, "missing.pdf")},
	}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Equal(t, "- 建立採購單\n", stdout.String())
	assert.Contains(t, stderr.String(), "✓ manual.txt")
	assert.Contains(t, stderr.String(), "missing.pdf")
}

func TestRunCLIStream(t *testing.T) {
	dir := t.TempDir()
	manual := writeFile(t, dir, "manual.md", "# 標題\n\n內容")

	a, client := newTestApp(t)
	chunks := make(chan llm.StreamChunk, 3)
	chunks <- llm.StreamChunk{Content: "重點一"}
	chunks <- llm.StreamChunk{Content: "，重點二"}
	chunks <- llm.StreamChunk{Done: true}
	close(chunks)
	client.EXPECT().ChatStream(mock.Anything, mock.Anything).
		Return((<-chan llm.StreamChunk)(chunks), nil).Once()

	var stdout, stderr bytes.Buffer
	code := runCLI(context.Background(), a, cliOptions{
		Files:  []string{manual},
		Stream: true,
	}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	// 先输出原始片段，再输出最终摘要
	assert.Equal(t, "重點一，重點二\n重點一，重點二\n", stdout.String())
}

func TestRunCLIEmptyAndFailure(t *testing.T) {
	dir := t.TempDir()

	t.Run("no extractable text", func(t *testing.T) {
		a, client := newTestApp(t)
		var stdout, stderr bytes.Buffer
		code := runCLI(context.Background(), a, cliOptions{
			Files: []string{writeFile(t, dir, "image.bmp", "BM")},
		}, &stdout, &stderr)

		assert.Equal(t, 0, code)
		assert.Contains(t, stderr.String(), services.DefaultEmptyMessage)
		assert.Empty(t, stdout.String())
		client.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
	})

	t.Run("model error", func(t *testing.T) {
		a, client := newTestApp(t)
		client.EXPECT().Chat(mock.Anything, mock.Anything).
			Return(nil, llm.NewLLMError(llm.ErrCodeModelNotSet, llm.ErrMsgModelNotSet)).Once()

		var stdout, stderr bytes.Buffer
		code := runCLI(context.Background(), a, cliOptions{
			Files: []string{writeFile(t, dir, "a.txt", "內容")},
		}, &stdout, &stderr)

		assert.Equal(t, 1, code)
		assert.Contains(t, stderr.String(), services.DefaultErrorPrefix)
		assert.Contains(t, stderr.String(), "LLM_MODEL")
	})

	t.Run("no files", func(t *testing.T) {
		a, _ := newTestApp(t)
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 2, runCLI(context.Background(), a, cliOptions{}, &stdout, &stderr))
	})

	t.Run("no readable files", func(t *testing.T) {
		a, _ := newTestApp(t)
		var stdout, stderr bytes.Buffer
		missing := []string{
			filepath.Join(t.TempDir(), "missing.pdf"),
			filepath.Join(t.TempDir(), "gone.txt"),
		}
		code := runCLI(context.Background(), a, cliOptions{Files: missing}, &stdout, &stderr)
		assert.Equal(t, 2, code)
		assert.Contains(t, stderr.String(), "No readable files")
		assert.Empty(t, stdout.String())
	})
}

func TestSetupHelpers(t *testing.T) {
	t.Run("cache disabled", func(t *testing.T) {
		c, err := setupCache(appconfig.CacheConfig{Enable: false})
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("memory cache", func(t *testing.T) {
		c, err := setupCache(appconfig.CacheConfig{Enable: true, Type: "memory", TTL: 60, MaxEntries: 8})
		require.NoError(t, err)
		require.NotNil(t, c)
		defer c.Close()
	})

	t.Run("converter", func(t *testing.T) {
		conv, err := setupConverter("none")
		require.NoError(t, err)
		assert.Nil(t, conv)

		conv, err = setupConverter("s2t")
		require.NoError(t, err)
		require.NotNil(t, conv)
	})

	t.Run("ocr", func(t *testing.T) {
		engine, err := setupOCR(appconfig.OCRConfig{Enable: false}, appconfig.LLMConfig{})
		require.NoError(t, err)
		assert.Nil(t, engine)

		engine, err = setupOCR(
			appconfig.OCRConfig{Enable: true, Engine: "vision", Model: "llava"},
			appconfig.LLMConfig{Provider: llm.ProviderOllama, BaseURL: "http://localhost:11434"},
		)
		require.NoError(t, err)
		assert.Equal(t, "vision:llava", engine.Name())

		_, err = setupOCR(appconfig.OCRConfig{Enable: true, Engine: "vision"}, appconfig.LLMConfig{})
		assert.Error(t, err)
	})

	t.Run("llm", func(t *testing.T) {
		client, err := setupLLM(appconfig.LLMConfig{Provider: llm.ProviderOllama, Model: "qwen3:8b", BaseURL: "http://localhost:11434"})
		require.NoError(t, err)
		assert.Equal(t, "qwen3:8b", client.Name())

		_, err = setupLLM(appconfig.LLMConfig{Provider: "bogus"})
		assert.Error(t, err)
	})
}
