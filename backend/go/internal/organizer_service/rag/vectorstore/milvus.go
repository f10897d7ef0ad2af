package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"file-organizer/backend/go/internal/config"
	"file-organizer/backend/go/internal/database/milvus"
	"file-organizer/backend/go/pkg/logger"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// milvusAPI is the part of client.Client the index needs.
type milvusAPI interface {
	Upsert(ctx context.Context, collName string, partitionName string, columns ...entity.Column) (entity.Column, error)
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string,
		vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int,
		sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
}

// MilvusIndex stores metadata as a JSON VarChar column next to the vector.
type MilvusIndex struct {
	log    *logger.Logger
	client milvusAPI
	cfg    config.MilvusConfig
}

var _ Index = (*MilvusIndex)(nil)

// NewMilvusIndex wraps an already connected client. The collection must exist
// (see milvus.EnsureCollection).
func NewMilvusIndex(c milvusAPI, cfg config.MilvusConfig, log *logger.Logger) *MilvusIndex {
	return &MilvusIndex{log: log, client: c, cfg: cfg}
}

func (s *MilvusIndex) Upsert(ctx context.Context, collection, id string, vector []float32, meta Metadata) error {
	if len(vector) != s.cfg.Dim {
		return fmt.Errorf("milvus upsert: vector has %d dimensions, collection expects %d", len(vector), s.cfg.Dim)
	}
	raw, err := json.Marshal(nonNilMetadata(meta))
	if err != nil {
		return fmt.Errorf("milvus upsert: encode metadata: %w", err)
	}
	if len(raw) > s.cfg.MetadataMaxLength {
		return fmt.Errorf("milvus upsert: metadata is %d bytes, limit %d", len(raw), s.cfg.MetadataMaxLength)
	}

	idCol := entity.NewColumnVarChar(milvus.FieldID, []string{id})
	embCol := entity.NewColumnFloatVector(milvus.FieldEmbedding, s.cfg.Dim, [][]float32{vector})
	metaCol := entity.NewColumnVarChar(milvus.FieldMetadata, []string{string(raw)})

	if _, err := s.client.Upsert(ctx, collection, "", idCol, embCol, metaCol); err != nil {
		return fmt.Errorf("milvus upsert: %w", err)
	}
	return nil
}

func (s *MilvusIndex) Query(ctx context.Context, collection string, vector []float32, k int) ([]Metadata, error) {
	if k <= 0 {
		return []Metadata{}, nil
	}
	if len(vector) != s.cfg.Dim {
		return nil, fmt.Errorf("milvus search: vector has %d dimensions, collection expects %d", len(vector), s.cfg.Dim)
	}
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, fmt.Errorf("milvus search params: %w", err)
	}

	results, err := s.client.Search(
		ctx, collection, []string{}, "", []string{milvus.FieldMetadata},
		[]entity.Vector{entity.FloatVector(vector)},
		milvus.FieldEmbedding, entity.MetricType(s.cfg.MetricType), k, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}

	out := []Metadata{}
	for _, res := range results {
		col, ok := findColumn(res.Fields, milvus.FieldMetadata).(*entity.ColumnVarChar)
		if !ok {
			s.log.Warn("milvus search result is missing the metadata field, skipping")
			continue
		}
		for i, raw := range col.Data() {
			if i >= res.ResultCount {
				break
			}
			var m Metadata
			if err := json.Unmarshal([]byte(raw), &m); err != nil {
				s.log.Warn(fmt.Sprintf("skipping undecodable milvus metadata: %v", err))
				continue
			}
			out = append(out, m)
		}
	}
	return out, nil
}

func findColumn(fields []entity.Column, name string) entity.Column {
	for _, f := range fields {
		if f.Name() == name {
			return f
		}
	}
	return nil
}
