package embedding

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIEmbedder 使用 OpenAI 兼容的 embeddings 接口。
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder 创建客户端。baseURL 为空时使用官方地址。
func NewOpenAIEmbedder(apiKey, model, baseURL string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embedding provider requires an api key")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyVector
	}
	return resp.Data[0].Embedding, nil
}
