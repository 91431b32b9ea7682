// Package llm provides a small chat-completions client for OpenAI-compatible
// APIs. Only the request/response fields the recommendation quiz needs are
// modelled.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Message は chat completions の 1 メッセージ
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest は補完リクエストのパラメータ。Model が空の場合はクライアントの既定モデルを使う
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// Client は LLM クライアントのインターフェース
type Client interface {
	// Complete は最初の choice のメッセージ本文を返す
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Options は RealClient の設定
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// RealClient は chat completions API への HTTP クライアント実装
type RealClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *retryablehttp.Client
}

// ErrNotConfigured は API キーが設定されていない場合のエラー
var ErrNotConfigured = errors.New("llm: not configured")

// NewClient は RealClient を生成する
func NewClient(opts Options) *RealClient {
	hc := retryablehttp.NewClient()
	hc.RetryMax = opts.MaxRetries
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 5 * time.Second
	if opts.Timeout > 0 {
		hc.HTTPClient.Timeout = opts.Timeout
	}
	hc.Logger = slog.Default()

	return &RealClient{
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		model:      opts.Model,
		httpClient: hc,
	}
}

// Complete は /chat/completions を呼び出す
func (c *RealClient) Complete(ctx context.Context, in ChatRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	if in.Model == "" {
		in.Model = c.model
	}

	body, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm chat completion: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("llm chat completion: status %d: %w", resp.StatusCode, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("llm chat completion: %s", result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm chat completion: status %d", resp.StatusCode)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("llm chat completion: empty choices in response")
	}
	return result.Choices[0].Message.Content, nil
}
