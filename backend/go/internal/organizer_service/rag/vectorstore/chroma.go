package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"file-organizer/backend/go/internal/config"
	httpclient "file-organizer/backend/go/pkg/http"
)

// ChromaIndex talks to a Chroma-compatible HTTP service.
type ChromaIndex struct {
	client  *httpclient.Client
	baseURL string
}

type chromaAddRequest struct {
	Collection string      `json:"collection"`
	IDs        []string    `json:"ids"`
	Embeddings [][]float32 `json:"embeddings"`
	Metadatas  []Metadata  `json:"metadatas"`
}

type chromaQueryRequest struct {
	Collection      string      `json:"collection"`
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
}

type chromaQueryResponse struct {
	Metadatas [][]Metadata `json:"metadatas"`
}

var _ Index = (*ChromaIndex)(nil)

// chromaAPIPrefix is appended to the configured host unless already present.
const chromaAPIPrefix = "/api/v1"

// NewChromaIndex creates a client for the Chroma host, e.g. http://localhost:8000.
// A URL already ending in /api/v1 is used as is.
func NewChromaIndex(baseURL string, timeout time.Duration, cb config.CircuitBreakerConfig) *ChromaIndex {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(base, chromaAPIPrefix) {
		base += chromaAPIPrefix
	}
	return &ChromaIndex{
		client:  httpclient.NewClient(timeout, cb),
		baseURL: base,
	}
}

func (c *ChromaIndex) endpoint(collection, op string) string {
	return fmt.Sprintf("%s/collections/%s/%s", c.baseURL, url.PathEscape(collection), op)
}

func (c *ChromaIndex) Upsert(ctx context.Context, collection, id string, vector []float32, meta Metadata) error {
	req := chromaAddRequest{
		Collection: collection,
		IDs:        []string{id},
		Embeddings: [][]float32{vector},
		Metadatas:  []Metadata{nonNilMetadata(meta)},
	}
	err := c.client.PostJSON(ctx, c.endpoint(collection, "add"), req, nil)
	if err == nil {
		return nil
	}
	var se *httpclient.StatusError
	if errors.As(err, &se) && strings.Contains(strings.ToLower(se.Body), "already exists") {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, id)
	}
	return fmt.Errorf("chroma add: %w", err)
}

func (c *ChromaIndex) Query(ctx context.Context, collection string, vector []float32, k int) ([]Metadata, error) {
	req := chromaQueryRequest{
		Collection:      collection,
		QueryEmbeddings: [][]float32{vector},
		NResults:        k,
	}
	var resp chromaQueryResponse
	if err := c.client.PostJSON(ctx, c.endpoint(collection, "query"), req, &resp); err != nil {
		return nil, fmt.Errorf("chroma query: %w", err)
	}
	if len(resp.Metadatas) == 0 {
		return []Metadata{}, nil
	}
	out := make([]Metadata, 0, len(resp.Metadatas[0]))
	for _, m := range resp.Metadatas[0] {
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func nonNilMetadata(m Metadata) Metadata {
	if m == nil {
		return Metadata{}
	}
	return m
}
