package embedding

import (
	"context"
	"fmt"
	"time"

	"file-organizer/backend/go/internal/config"
)

// New 根据配置创建对应提供商的 Embedder。
//
// 参数:
//
//	ctx: 仅用于需要在构造时建立连接的提供商 (gemini)。
//	cfg: Embedding 配置。
//	cb: 出站调用使用的熔断器配置 (仅 http 提供商使用)。
func New(ctx context.Context, cfg config.EmbeddingConfig, cb config.CircuitBreakerConfig) (Embedder, error) {
	timeout := config.Duration(cfg.Timeout, 30*time.Second)

	switch Provider(cfg.Provider) {
	case ProviderHTTP, "":
		return NewHTTPEmbedder(cfg.Endpoint, timeout, cb)
	case ProviderOpenAI:
		return NewOpenAIEmbedder(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case ProviderOllama:
		return NewOllamaEmbedder(cfg.Model, cfg.BaseURL, timeout)
	case ProviderGemini:
		return NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
