package embedding

import (
	"context"
	"fmt"
	"time"

	"file-organizer/backend/go/internal/config"
	httpclient "file-organizer/backend/go/pkg/http"
)

// HTTPEmbedder 调用通用的 Embedding HTTP 服务。
type HTTPEmbedder struct {
	client   *httpclient.Client
	endpoint string
}

type httpEmbedRequest struct {
	Text string `json:"text"`
}

type httpEmbedResponse struct {
	Vector []float32 `json:"vector"`
}

// NewHTTPEmbedder 创建一个 HTTPEmbedder，endpoint 为完整的 POST 地址。
func NewHTTPEmbedder(endpoint string, timeout time.Duration, cb config.CircuitBreakerConfig) (*HTTPEmbedder, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required for the http provider")
	}
	return &HTTPEmbedder{client: httpclient.NewClient(timeout, cb), endpoint: endpoint}, nil
}

// Embed 发送 {text}，期望得到 {vector}。
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp httpEmbedResponse
	if err := e.client.PostJSON(ctx, e.endpoint, httpEmbedRequest{Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Vector) == 0 {
		return nil, ErrEmptyVector
	}
	return resp.Vector, nil
}
