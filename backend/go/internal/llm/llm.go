// Package llm 是两阶段模型服务 (analyze / organize) 的客户端。
// 请求和响应都是 JSON；organize 系列接口的结果原样透传给调用方。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"file-organizer/backend/go/internal/config"
	httpclient "file-organizer/backend/go/pkg/http"
)

var (
	// ErrMissingPrompt 表示 analyze 的响应里没有 prompt。
	ErrMissingPrompt = errors.New("analyze response has no prompt")
	// ErrEmptyResult 表示 organize 的响应体为空。
	ErrEmptyResult = errors.New("organize response is empty")
	// ErrMissingResults 表示批量接口的响应里没有 results 列表。
	ErrMissingResults = errors.New("batch response has no results")
)

// OrganizeRequest 是单文件 organize 请求，也是批量请求中的一项。
type OrganizeRequest struct {
	Prompt      string                 `json:"prompt"`
	FileType    string                 `json:"file_type"`
	UserContext map[string]interface{} `json:"user_context"`
	AllowedTags []string               `json:"allowed_tags"`
}

// BatchRequest 携带多个文件的 organize 请求。
type BatchRequest struct {
	Files []OrganizeRequest `json:"files"`
}

// FolderRequest 是文件夹级 organize 请求。
type FolderRequest struct {
	FilePrompts     []string               `json:"file_prompts"`
	UserContext     map[string]interface{} `json:"user_context"`
	AllowedTags     []string               `json:"allowed_tags"`
	ExistingFolders []string               `json:"existing_folders"`
	ExistingTags    []string               `json:"existing_tags"`
}

type analyzeRequest struct {
	Content string `json:"content"`
}

type analyzeResponse struct {
	Prompt string `json:"prompt"`
}

type batchResponse struct {
	Results []json.RawMessage `json:"results"`
}

// Client 调用四个模型服务接口，每次调用只尝试一次。
type Client struct {
	http *httpclient.Client
	urls config.ModelServicesConfig
}

// NewClient 根据模型服务配置创建客户端。
func NewClient(cfg config.ModelServicesConfig, cb config.CircuitBreakerConfig) *Client {
	return &Client{
		http: httpclient.NewClient(config.Duration(cfg.Timeout, 60*time.Second), cb),
		urls: cfg,
	}
}

// Analyze 把内容交给第一阶段模型，返回生成的 prompt。
func (c *Client) Analyze(ctx context.Context, content string) (string, error) {
	var resp analyzeResponse
	if err := c.http.PostJSON(ctx, c.urls.AnalyzeURL, analyzeRequest{Content: content}, &resp); err != nil {
		return "", fmt.Errorf("analyze: %w", err)
	}
	if resp.Prompt == "" {
		return "", ErrMissingPrompt
	}
	return resp.Prompt, nil
}

// Organize 请求单个文件的整理建议。
func (c *Client) Organize(ctx context.Context, req OrganizeRequest) (json.RawMessage, error) {
	return c.postOpaque(ctx, c.urls.OrganizeURL, normalizeOrganize(req))
}

// OrganizeBatch 一次请求多个文件的建议，结果顺序与 req.Files 一致。
func (c *Client) OrganizeBatch(ctx context.Context, req BatchRequest) ([]json.RawMessage, error) {
	files := make([]OrganizeRequest, len(req.Files))
	for i, f := range req.Files {
		files[i] = normalizeOrganize(f)
	}

	var resp batchResponse
	if err := c.http.PostJSON(ctx, c.urls.OrganizeBatchURL, BatchRequest{Files: files}, &resp); err != nil {
		if errors.Is(err, httpclient.ErrEmptyBody) {
			return nil, ErrEmptyResult
		}
		return nil, fmt.Errorf("organize batch: %w", err)
	}
	if resp.Results == nil {
		return nil, ErrMissingResults
	}
	if len(resp.Results) != len(files) {
		return nil, fmt.Errorf("organize batch: got %d results for %d files", len(resp.Results), len(files))
	}
	return resp.Results, nil
}

// OrganizeFolder 请求整个文件夹的一个建议。
func (c *Client) OrganizeFolder(ctx context.Context, req FolderRequest) (json.RawMessage, error) {
	req.UserContext = nonNilContext(req.UserContext)
	req.FilePrompts = nonNilStrings(req.FilePrompts)
	req.AllowedTags = nonNilStrings(req.AllowedTags)
	req.ExistingFolders = nonNilStrings(req.ExistingFolders)
	req.ExistingTags = nonNilStrings(req.ExistingTags)
	return c.postOpaque(ctx, c.urls.OrganizeFolderURL, req)
}

func (c *Client) postOpaque(ctx context.Context, url string, body interface{}) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.http.PostJSON(ctx, url, body, &raw); err != nil {
		if errors.Is(err, httpclient.ErrEmptyBody) {
			return nil, ErrEmptyResult
		}
		return nil, fmt.Errorf("organize: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, ErrEmptyResult
	}
	return raw, nil
}

func normalizeOrganize(r OrganizeRequest) OrganizeRequest {
	r.UserContext = nonNilContext(r.UserContext)
	r.AllowedTags = nonNilStrings(r.AllowedTags)
	return r
}

func nonNilContext(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
