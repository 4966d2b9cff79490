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

// Embedder 向量生成客户端，进程启动时构造一次，按引用注入
// 维度在初始化时确定，之后写入和查询共用同一模型
type Embedder struct {
	host       string
	model      string
	dim        int
	httpClient *http.Client
}

// NewEmbedder 创建向量生成客户端
func NewEmbedder(host, model string, dim int) *Embedder {
	return &Embedder{
		host:  host,
		model: model,
		dim:   dim,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Dim 返回配置的向量维度
func (e *Embedder) Dim() int {
	return e.dim
}

// Embed 调用本地 Ollama API 生成向量
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/api/embeddings", e.host), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post request to ollama failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned error status: %d", resp.StatusCode)
	}

	var result EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response failed: %v", err)
	}

	if e.dim > 0 && len(result.Embedding) != e.dim {
		return nil, fmt.Errorf("ollama returned %d-dim embedding, expected %d", len(result.Embedding), e.dim)
	}

	return result.Embedding, nil
}
