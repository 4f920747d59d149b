// Package client talks to the persistence, auth and payment collaborators
// over their REST contract. Every failure comes back as a *NetworkError
// carrying a message fit for display.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cvbuilder/internal/cv"
)

// ErrNotFound 表示请求的文档不存在（HTTP 404）。
var ErrNotFound = cv.ErrNotFound

// TokenSource 提供 bearer token。session.Session 满足该接口。
type TokenSource interface {
	Token() string
}

// NetworkError 表示一次协作方调用失败。
type NetworkError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UserMessage 返回服务端给出的提示，没有时返回通用提示。
func (e *NetworkError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return "Something went wrong"
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

// Option 配置 Client。
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger 设置日志。
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New 创建客户端。tokens 可以为 nil（仅调用匿名接口时）。
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do 发送 JSON 请求并把成功响应解码到 out（out 为 nil 时丢弃响应体）。
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &NetworkError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("collaborator request failed", slog.String("op", op), slog.Any("error", err))
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		nerr := &NetworkError{Op: op, Status: resp.StatusCode, Message: errorMessage(raw)}
		if resp.StatusCode == http.StatusNotFound {
			nerr.Err = ErrNotFound
		}
		c.logger.Warn("collaborator returned error",
			slog.String("op", op),
			slog.Int("status", resp.StatusCode),
			slog.String("message", nerr.Message),
		)
		return nerr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage 读取 {"error": ...} 或 {"msg": ...} 形式的错误响应。
func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
		Msg   string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Msg
}

// IsNotFound 判断错误是否为 404。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
