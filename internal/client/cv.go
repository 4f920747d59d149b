package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"cvbuilder/internal/cv"
	"cvbuilder/internal/layout"
)

// ListCVs 获取第 page 页的文档。
func (c *Client) ListCVs(ctx context.Context, page, limit int) ([]cv.Document, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))

	var docs []cv.Document
	if err := c.do(ctx, "list cvs", http.MethodGet, "/api/cv?"+q.Encode(), nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// GetCV 获取单个文档，不存在时错误满足 errors.Is(err, cv.ErrNotFound)。
func (c *Client) GetCV(ctx context.Context, id string) (cv.Document, error) {
	var doc cv.Document
	if err := c.do(ctx, "get cv", http.MethodGet, "/api/cv/"+url.PathEscape(id), nil, &doc); err != nil {
		return cv.Document{}, err
	}
	return doc, nil
}

// CreateCV 创建文档并返回服务端保存的结果。
func (c *Client) CreateCV(ctx context.Context, doc cv.Document) (cv.Document, error) {
	doc.ID = ""
	var created cv.Document
	if err := c.do(ctx, "create cv", http.MethodPost, "/api/cv", doc, &created); err != nil {
		return cv.Document{}, err
	}
	return created, nil
}

// UpdateCV 整体替换文档。
func (c *Client) UpdateCV(ctx context.Context, id string, doc cv.Document) (cv.Document, error) {
	doc.ID = id
	var updated cv.Document
	if err := c.do(ctx, "update cv", http.MethodPut, "/api/cv/"+url.PathEscape(id), doc, &updated); err != nil {
		return cv.Document{}, err
	}
	return updated, nil
}

// DeleteCV 删除文档。
func (c *Client) DeleteCV(ctx context.Context, id string) error {
	return c.do(ctx, "delete cv", http.MethodDelete, "/api/cv/"+url.PathEscape(id), nil, nil)
}

// Layouts 获取可用版式，失败或为空时回退到内置目录。
func (c *Client) Layouts(ctx context.Context) []layout.Descriptor {
	var descriptors []layout.Descriptor
	if err := c.do(ctx, "list layouts", http.MethodGet, "/api/layouts", nil, &descriptors); err != nil {
		c.logger.Warn("fall back to built-in layouts", slog.Any("error", err))
		return layout.DefaultCatalog()
	}
	if len(descriptors) == 0 {
		return layout.DefaultCatalog()
	}
	return descriptors
}
