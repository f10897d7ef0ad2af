package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
	DefaultUser string `yaml:"defaultUser"` // 无认证模式下所有记录的所有者
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP 服务的配置。
type ServerConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeout     string `yaml:"readTimeout"`     // 例如: "30s"
	WriteTimeout    string `yaml:"writeTimeout"`    // 例如: "120s"
	ShutdownTimeout string `yaml:"shutdownTimeout"` // 例如: "10s"
	MaxUploadBytes  int64  `yaml:"maxUploadBytes"`  // 单个上传文件的最大字节数
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// DatabaseConfig 定义了关系型存储的配置。
type DatabaseConfig struct {
	Driver string      `yaml:"driver"` // "sqlite" 或 "mysql"
	DSN    string      `yaml:"dsn"`    // 非空时直接使用，覆盖 mysql 分项
	MySQL  MySQLConfig `yaml:"mysql"`
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 默认存储桶名称
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// StorageConfig 定义了上传文件内容的存储位置。
type StorageConfig struct {
	Backend   string      `yaml:"backend"`   // "local" 或 "minio"
	UploadDir string      `yaml:"uploadDir"` // 本地目录，minio 模式下作为提取内容时的临时目录
	MinIO     MinIOConfig `yaml:"minio"`
}

// EmbeddingConfig 包含了 Embedding 服务的配置。
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "http", "openai", "ollama", "gemini"
	Endpoint string `yaml:"endpoint"` // http 提供商的 POST 地址
	BaseURL  string `yaml:"baseURL"`  // openai / ollama 的服务地址
	APIKey   string `yaml:"apiKey"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
}

// MilvusConfig 定义了 Milvus 的连接配置。
type MilvusConfig struct {
	Address           string `yaml:"address"`           // Milvus 服务地址
	Dim               int    `yaml:"dim"`               // 向量维度
	MetadataMaxLength int    `yaml:"metadataMaxLength"` // 元数据 JSON 字段的最大长度
	MetricType        string `yaml:"metricType"`        // 例如: "COSINE", "L2"
}

// ChromaConfig 定义了 HTTP 向量索引服务的配置。
type ChromaConfig struct {
	URL string `yaml:"url"` // Chroma 主机地址，请求发往 {url}/api/v1/collections/{collection}/add 与 /query
}

// VectorIndexConfig 定义了向量索引的配置。
type VectorIndexConfig struct {
	Backend    string       `yaml:"backend"` // "memory", "chroma", "milvus"
	Collection string       `yaml:"collection"`
	TopK       int          `yaml:"topK"`
	Timeout    string       `yaml:"timeout"`
	Chroma     ChromaConfig `yaml:"chroma"`
	Milvus     MilvusConfig `yaml:"milvus"`
}

// ModelServicesConfig 定义了两阶段模型服务的地址。
type ModelServicesConfig struct {
	AnalyzeURL        string `yaml:"analyzeURL"`
	OrganizeURL       string `yaml:"organizeURL"`
	OrganizeBatchURL  string `yaml:"organizeBatchURL"`
	OrganizeFolderURL string `yaml:"organizeFolderURL"`
	Timeout           string `yaml:"timeout"`
}

// PipelineConfig 定义了建议流水线的行为。
type PipelineConfig struct {
	Concurrency          int    `yaml:"concurrency"`          // 批量/文件夹模式下并行处理的文件数
	MaxContextTokens     int    `yaml:"maxContextTokens"`     // fileContent 的 token 上限，0 表示不截断
	AnalyzeBatchPayloads bool   `yaml:"analyzeBatchPayloads"` // 批量/文件夹模式下是否先逐个调用 analyze
	OCRBinary            string `yaml:"ocrBinary"`            // tesseract 可执行文件，"off" 表示不做图片识别
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// SuggestionsConfig 定义了已生成建议的短期存储。
type SuggestionsConfig struct {
	Backend  string      `yaml:"backend"`  // "memory" 或 "redis"
	TTL      string      `yaml:"ttl"`      // 例如: "24h"
	Capacity int         `yaml:"capacity"` // memory 模式下的最大条目数
	Redis    RedisConfig `yaml:"redis"`
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
	Topic   string   `yaml:"topic"`   // 领域事件主题
}

// EventsConfig 定义了领域事件的发布。
type EventsConfig struct {
	Enabled bool        `yaml:"enabled"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了入站请求限流器的配置，每个客户端 IP 独立计数。
type RateLimiterConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Algorithm string  `yaml:"algorithm"` // tokenBucket, leakyBucket, fixedWindow, slidingWindow, slidingLog
	Rate      float64 `yaml:"rate"` // 每秒速率
	Capacity  int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了出站调用熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App         AppInfo             `yaml:"app"`
	Logger      LoggerConfig        `yaml:"logger"`
	Server      ServerConfig        `yaml:"server"`
	Database    DatabaseConfig      `yaml:"database"`
	Storage     StorageConfig       `yaml:"storage"`
	Embedding   EmbeddingConfig     `yaml:"embedding"`
	VectorIndex VectorIndexConfig   `yaml:"vectorIndex"`
	Models      ModelServicesConfig `yaml:"models"`
	Pipeline    PipelineConfig      `yaml:"pipeline"`
	Suggestions SuggestionsConfig   `yaml:"suggestions"`
	Events      EventsConfig        `yaml:"events"`
	Middleware  MiddlewareConfig    `yaml:"middleware"`
}

// LoadConfig 从指定路径加载 YAML 配置文件，然后依次应用 .env、环境变量和默认值。
//
// path 为空时跳过 YAML，只使用环境变量与默认值。
func LoadConfig(path string) (*AppConfig, error) {
	// .env 不存在是正常情况
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg AppConfig
	if path != "" {
		yamlFile, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
			return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv 使用环境变量覆盖配置项。getenv 通常为 os.Getenv。
func (c *AppConfig) ApplyEnv(getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := getenv("UPLOAD_DIR"); v != "" {
		c.Storage.UploadDir = v
	}
	if v := getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := getenv("MCP1_API_URL"); v != "" {
		c.Models.AnalyzeURL = v
	}
	if v := getenv("MCP2_API_URL"); v != "" {
		c.Models.OrganizeURL = v
	}
	if v := getenv("MCP_BATCH_API_URL"); v != "" {
		c.Models.OrganizeBatchURL = v
	}
	if v := getenv("MCP_FOLDER_API_URL"); v != "" {
		c.Models.OrganizeFolderURL = v
	}
	if v := getenv("EMBEDDING_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	} else if v := getenv("OPENAI_API_KEY"); v != "" && c.Embedding.APIKey == "" {
		c.Embedding.APIKey = v
	}
	if v := getenv("CHROMA_URL"); v != "" {
		c.VectorIndex.Chroma.URL = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
}

// ApplyDefaults 为未设置的配置项填充默认值。
func (c *AppConfig) ApplyDefaults() {
	setString(&c.App.Name, "file-organizer")
	setString(&c.App.DefaultUser, "demo-user")
	setString(&c.Logger.Level, "info")

	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	setString(&c.Server.ReadTimeout, "30s")
	setString(&c.Server.WriteTimeout, "120s")
	setString(&c.Server.ShutdownTimeout, "10s")
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 50 << 20
	}

	setString(&c.Database.Driver, "sqlite")
	if c.Database.Driver == "sqlite" {
		setString(&c.Database.DSN, "file-organizer.db")
	}

	setString(&c.Storage.Backend, "local")
	setString(&c.Storage.UploadDir, "uploads")

	setString(&c.Embedding.Provider, "http")
	setString(&c.Embedding.Endpoint, "http://localhost:8002/api/embed")
	setString(&c.Embedding.Timeout, "30s")

	setString(&c.VectorIndex.Backend, "memory")
	setString(&c.VectorIndex.Collection, "files")
	if c.VectorIndex.TopK == 0 {
		c.VectorIndex.TopK = 5
	}
	setString(&c.VectorIndex.Timeout, "10s")
	setString(&c.VectorIndex.Chroma.URL, "http://localhost:8000")
	setString(&c.VectorIndex.Milvus.Address, "localhost:19530")
	setString(&c.VectorIndex.Milvus.MetricType, "COSINE")
	if c.VectorIndex.Milvus.Dim == 0 {
		c.VectorIndex.Milvus.Dim = 1536
	}
	if c.VectorIndex.Milvus.MetadataMaxLength == 0 {
		c.VectorIndex.Milvus.MetadataMaxLength = 8192
	}

	setString(&c.Models.AnalyzeURL, "http://localhost:8001/api/analyze")
	setString(&c.Models.OrganizeURL, "http://localhost:8001/api/organize")
	setString(&c.Models.OrganizeBatchURL, "http://localhost:8001/api/organize/batch")
	setString(&c.Models.OrganizeFolderURL, "http://localhost:8001/api/organize/folder")
	setString(&c.Models.Timeout, "60s")

	if c.Pipeline.Concurrency <= 0 {
		c.Pipeline.Concurrency = 4
	}
	setString(&c.Pipeline.OCRBinary, "tesseract")

	setString(&c.Suggestions.Backend, "memory")
	setString(&c.Suggestions.TTL, "24h")
	if c.Suggestions.Capacity == 0 {
		c.Suggestions.Capacity = 1024
	}

	setString(&c.Events.Kafka.Topic, "file-organizer.events")

	setString(&c.Middleware.RateLimiter.Algorithm, "tokenBucket")
	if c.Middleware.RateLimiter.Rate == 0 {
		c.Middleware.RateLimiter.Rate = 20
	}
	if c.Middleware.RateLimiter.Capacity == 0 {
		c.Middleware.RateLimiter.Capacity = 40
	}
	if c.Middleware.CircuitBreaker.FailureThreshold == 0 {
		c.Middleware.CircuitBreaker.FailureThreshold = 5
	}
	if c.Middleware.CircuitBreaker.SuccessThreshold == 0 {
		c.Middleware.CircuitBreaker.SuccessThreshold = 1
	}
	setString(&c.Middleware.CircuitBreaker.Timeout, "30s")
}

// Validate 检查枚举类配置项和时间间隔是否合法。
func (c *AppConfig) Validate() error {
	checks := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"database.driver", c.Database.Driver, []string{"sqlite", "mysql"}},
		{"storage.backend", c.Storage.Backend, []string{"local", "minio"}},
		{"embedding.provider", c.Embedding.Provider, []string{"http", "openai", "ollama", "gemini"}},
		{"vectorIndex.backend", c.VectorIndex.Backend, []string{"memory", "chroma", "milvus"}},
		{"suggestions.backend", c.Suggestions.Backend, []string{"memory", "redis"}},
		{"middleware.rateLimiter.algorithm", c.Middleware.RateLimiter.Algorithm, []string{"tokenBucket", "leakyBucket", "fixedWindow", "slidingWindow", "slidingLog"}},
	}
	for _, ch := range checks {
		if !contains(ch.allowed, ch.value) {
			return fmt.Errorf("invalid %s %q: expected one of %s", ch.field, ch.value, strings.Join(ch.allowed, ", "))
		}
	}

	durations := map[string]string{
		"server.readTimeout":                c.Server.ReadTimeout,
		"server.writeTimeout":               c.Server.WriteTimeout,
		"server.shutdownTimeout":            c.Server.ShutdownTimeout,
		"embedding.timeout":                 c.Embedding.Timeout,
		"vectorIndex.timeout":               c.VectorIndex.Timeout,
		"models.timeout":                    c.Models.Timeout,
		"suggestions.ttl":                   c.Suggestions.TTL,
		"middleware.circuitBreaker.timeout": c.Middleware.CircuitBreaker.Timeout,
	}
	for field, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", field, value, err)
		}
	}

	if c.Storage.Backend == "minio" && c.Storage.MinIO.Bucket == "" {
		return fmt.Errorf("storage.minio.bucket is required when storage.backend is minio")
	}
	if c.Events.Enabled && len(c.Events.Kafka.Brokers) == 0 {
		return fmt.Errorf("events.kafka.brokers is required when events are enabled")
	}
	if c.Pipeline.MaxContextTokens < 0 {
		return fmt.Errorf("pipeline.maxContextTokens must not be negative")
	}
	return nil
}

// MySQLDSN 根据 mysql 分项拼接 DSN。
func (c DatabaseConfig) MySQLDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	m := c.MySQL
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		m.Username, m.Password, m.Address, m.Database)
}

// Duration 解析已校验过的时间间隔字符串，解析失败时返回 def。
func Duration(value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
