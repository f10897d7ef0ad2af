package embedding

import (
	"context"
	"errors"
)

// Embedder 把一段文本映射为定长向量，维度由远端模型决定。
// 失败时必须返回错误，由调用方决定是否降级。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Provider 表示 Embedding 服务的提供商。
type Provider string

const (
	ProviderHTTP   Provider = "http"   // 通用 HTTP 服务: {text} -> {vector}
	ProviderOpenAI Provider = "openai" // OpenAI 兼容接口
	ProviderOllama Provider = "ollama" // 本地 Ollama
	ProviderGemini Provider = "gemini" // Google GenAI
)

// ErrEmptyVector 表示服务返回了空向量。
var ErrEmptyVector = errors.New("embedding service returned an empty vector")
