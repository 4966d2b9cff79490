package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"
)

// HTTPClient 带重试策略的 HTTP 客户端
// 重试是横切关注点，业务层（采集、检索回退）不感知退避细节
type HTTPClient struct {
	httpClient  *http.Client
	maxAttempts int
	baseBackoff time.Duration
}

// NewHTTPClient 创建新的HTTP客户端
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxAttempts: 3,
		baseBackoff: 500 * time.Millisecond,
	}
}

// Get 发送GET请求，对瞬时失败做指数退避重试
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := http.NewRequest("GET", url, nil)
		if err != nil {
			return nil, fmt.Errorf("创建请求失败: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("请求失败，状态码: %d", resp.StatusCode)
			resp.Body.Close()
		}

		if attempt < c.maxAttempts {
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			// 加入少量抖动，避免批量任务同时重试
			backoff += time.Duration(rand.Int63n(int64(c.baseBackoff)))
			log.Printf("[HTTP] 第 %d 次请求失败: %v，%v 后重试", attempt, lastErr, backoff)
			time.Sleep(backoff)
		}
	}

	return nil, fmt.Errorf("重试 %d 次后仍失败: %w", c.maxAttempts, lastErr)
}

// GetJSON 发送GET请求并解析JSON响应
func (c *HTTPClient) GetJSON(url string, target interface{}) error {
	resp, err := c.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("请求失败，状态码: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		log.Printf("解析JSON失败: %v, 响应体: %s", err, body)
		return fmt.Errorf("解析JSON失败: %w", err)
	}
	return nil
}

// retryableStatus 判断状态码是否值得重试（限流与服务端错误）
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
