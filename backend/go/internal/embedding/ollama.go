package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// OllamaEmbedder 调用本地 Ollama 的 embed 接口。
type OllamaEmbedder struct {
	client *ollama.Client
	model  string
}

// NewOllamaEmbedder 创建客户端。baseURL 为空时默认为 "http://localhost:11434"。
func NewOllamaEmbedder(model, baseURL string, timeout time.Duration) (*OllamaEmbedder, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama embedding provider requires a model")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	client := ollama.NewClient(parsed, &http.Client{Timeout: timeout})
	return &OllamaEmbedder{client: client, model: model}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &ollama.EmbedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to get embeddings from ollama: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, ErrEmptyVector
	}
	return resp.Embeddings[0], nil
}
