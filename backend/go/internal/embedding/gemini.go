package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiEmbedder 使用 Google GenAI 的 embedding 模型。
type GeminiEmbedder struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

// NewGeminiEmbedder 创建 GenAI 客户端并绑定 embedding 模型。
func NewGeminiEmbedder(ctx context.Context, apiKey, model string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini embedding provider requires an api key")
	}
	if model == "" {
		model = "text-embedding-004"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: client.EmbeddingModel(model)}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrEmptyVector
	}
	return res.Embedding.Values, nil
}

// Close 释放底层 GenAI 客户端。
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
