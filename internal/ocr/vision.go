package ocr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// DefaultVisionPrompt 视觉模型识别文字的提示词
const DefaultVisionPrompt = "請辨識這張圖片中的所有文字，只輸出圖片中的原始文字內容，不要加入任何說明。若圖片中沒有文字，請輸出空白。"

// VisionEngine 使用Ollama视觉模型识别图片文字
type VisionEngine struct {
	client *api.Client
	model  string
	prompt string
}

// NewVisionEngine 创建视觉模型OCR引擎
func NewVisionEngine(cfg Config) (Engine, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("vision ocr requires a model name")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid vision ocr url %q: %w", baseURL, err)
	}
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = DefaultVisionPrompt
	}

	return &VisionEngine{
		client: api.NewClient(u, http.DefaultClient),
		model:  cfg.Model,
		prompt: prompt,
	}, nil
}

// Name 返回引擎名称
func (e *VisionEngine) Name() string {
	return "vision:" + e.model
}

// Recognize 将图片发送给视觉模型并返回识别出的文字
func (e *VisionEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: e.model,
		Messages: []api.Message{{
			Role:    "user",
			Content: e.prompt,
			Images:  []api.ImageData{image},
		}},
		Stream:  &stream,
		Options: map[string]any{"temperature": 0},
	}

	var text strings.Builder
	err := e.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("vision ocr failed: %w", err)
	}
	return strings.TrimSpace(text.String()), nil
}

func init() {
	RegisterEngine("vision", NewVisionEngine)
}
