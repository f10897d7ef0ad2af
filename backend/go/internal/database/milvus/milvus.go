package milvus

import (
	"context"
	"fmt"

	"file-organizer/backend/go/internal/config"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// 集合字段名。metadata 以 JSON 字符串保存，避免为每个元数据键建列。
const (
	FieldID        = "id"
	FieldEmbedding = "embedding"
	FieldMetadata  = "metadata"

	idMaxLength = 64
)

// Connect 创建一个 Milvus 客户端。调用方负责 Close。
func Connect(ctx context.Context, cfg config.MilvusConfig) (client.Client, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("无法连接到 Milvus: %w", err)
	}
	return c, nil
}

// HealthCheck 检查 Milvus 连接的健康状况。
func HealthCheck(ctx context.Context, c client.Client) error {
	if _, err := c.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}

// CollectionSchema 构建文件向量集合的 Schema: id (主键), embedding, metadata。
func CollectionSchema(name string, cfg config.MilvusConfig) *entity.Schema {
	return entity.NewSchema().
		WithName(name).
		WithDescription("file embeddings for organization suggestions").
		WithField(entity.NewField().WithName(FieldID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(idMaxLength).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName(FieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(cfg.Dim))).
		WithField(entity.NewField().WithName(FieldMetadata).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(int64(cfg.MetadataMaxLength)))
}

// EnsureCollection 确保集合存在、已建索引并已加载。
func EnsureCollection(ctx context.Context, c client.Client, name string, cfg config.MilvusConfig) error {
	exists, err := c.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}
	if !exists {
		if err := c.CreateCollection(ctx, CollectionSchema(name, cfg), entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		idx, err := entity.NewIndexAUTOINDEX(entity.MetricType(cfg.MetricType))
		if err != nil {
			return fmt.Errorf("构建索引失败: %w", err)
		}
		if err := c.CreateIndex(ctx, name, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("为字段 '%s' 创建索引失败: %w", FieldEmbedding, err)
		}
	}

	if err := c.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", name, err)
	}
	return nil
}
