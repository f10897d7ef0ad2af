package kafka

import (
	"fmt"
	"time"

	"file-organizer/backend/go/internal/config"

	"github.com/segmentio/kafka-go"
)

// EnsureTopic 连接到第一个 broker，在主题不存在时创建它。
func EnsureTopic(cfg config.KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("未配置 Kafka brokers")
	}
	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka 初始化连接失败: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}
	for _, p := range partitions {
		if p.Topic == cfg.Topic {
			return nil
		}
	}

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.Topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("自动创建 Kafka 主题 '%s' 失败: %w", cfg.Topic, err)
	}
	return nil
}

// NewWriter 为事件主题创建 writer。
func NewWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
}
