// Package feed loads a user's Documents page by page for the gallery view.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"cvbuilder/internal/cv"
)

const (
	// FirstPage 是第一页的页码。
	FirstPage = 1
	// DefaultPageSize 是每页条数。
	DefaultPageSize = 5
	// ScrollThreshold 是距离内容底部多少像素时触发加载。
	ScrollThreshold = 50
)

// Store 是 feed 使用的持久化接口。
type Store interface {
	ListCVs(ctx context.Context, page, limit int) ([]cv.Document, error)
	DeleteCV(ctx context.Context, id string) error
}

// Controller accumulates pages of Documents in load order. At most one page
// request is outstanding at any time.
type Controller struct {
	store  Store
	logger *slog.Logger
	limit  int

	mu        sync.Mutex
	items     []cv.Document
	page      int
	loading   bool
	exhausted bool
	loaded    bool
	advisory  string
}

// Option 配置 Controller。
type Option func(*Controller)

// WithPageSize 设置每页条数。
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.limit = n
		}
	}
}

// New 创建一个尚未加载的 Controller。
func New(store Store, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		store:  store,
		logger: logger,
		limit:  DefaultPageSize,
		page:   FirstPage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NearBottom 判断滚动位置是否接近内容底部。
func NearBottom(viewportHeight, scrollY, contentHeight float64) bool {
	return viewportHeight+scrollY+ScrollThreshold >= contentHeight
}

// OnScroll 在接近底部时加载下一页。
func (c *Controller) OnScroll(ctx context.Context, viewportHeight, scrollY, contentHeight float64) error {
	if !NearBottom(viewportHeight, scrollY, contentHeight) {
		return nil
	}
	_, err := c.LoadMore(ctx)
	return err
}

// LoadMore requests the next page. It reports false without doing anything
// while a request is in flight or after an empty page has been seen.
func (c *Controller) LoadMore(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.loading || c.exhausted {
		c.mu.Unlock()
		return false, nil
	}
	c.loading = true
	c.advisory = ""
	page := c.page
	c.mu.Unlock()

	docs, err := c.store.ListCVs(ctx, page, c.limit)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.logger.Error("load cv page failed", slog.Int("page", page), slog.Any("error", err))
		c.advisory = userMessage(err, "Failed to load CVs")
		return true, err
	}
	c.loaded = true
	if len(docs) == 0 {
		c.exhausted = true
		return true, nil
	}
	for _, d := range docs {
		c.items = append(c.items, d.Normalize())
	}
	c.page++
	return true, nil
}

// Delete 删除文档，成功后从列表中移除。
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.store.DeleteCV(ctx, id); err != nil {
		c.logger.Error("delete cv failed", slog.String("cv_id", id), slog.Any("error", err))
		c.mu.Lock()
		c.advisory = userMessage(err, "Failed to delete CV")
		c.mu.Unlock()
		return err
	}
	c.Remove(id)
	return nil
}

// Remove 从已加载列表中移除指定文档，不访问网络。
func (c *Controller) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.items {
		if d.ID == id {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Items 返回已加载文档的副本。
func (c *Controller) Items() []cv.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]cv.Document, len(c.items))
	for i, d := range c.items {
		out[i] = d.Clone()
	}
	return out
}

// Empty reports whether a load has completed and the user has no Documents,
// in which case the caller starts the creation wizard instead.
func (c *Controller) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded && !c.loading && len(c.items) == 0
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Controller) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exhausted
}

// Advisory 返回最近一次失败的提示。
func (c *Controller) Advisory() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advisory
}

func userMessage(err error, fallback string) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}
