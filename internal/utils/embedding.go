package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EmbeddingRequest Ollama embedding API 请求结构
type EmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// EmbeddingResponse Ollama embedding API 响应结构
type EmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbeddingClient 向量生成客户端。显式构造注入，避免进程级单例，
// 方便在测试中替换为假实现。
type EmbeddingClient struct {
	host   string
	model  string
	client *http.Client
}

// NewEmbeddingClient 创建向量生成客户端
func NewEmbeddingClient(host, model string) *EmbeddingClient {
	return &EmbeddingClient{
		host:  host,
		model: model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Generate 调用 Ollama API 生成向量
func (e *EmbeddingClient) Generate(ctx context.Context, text string) ([]float32, error) {
	reqBody := EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/embeddings", e.host), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post request to ollama failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned error status: %d", resp.StatusCode)
	}

	var result EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	return result.Embedding, nil
}
