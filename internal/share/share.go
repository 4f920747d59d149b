package share

import (
	"context"
	"net/url"
	"strings"

	"cvbuilder/internal/payment"
)

// Targets 是一个文档的公开链接及各分享渠道的预填链接。
type Targets struct {
	URL      string `json:"url"`
	WhatsApp string `json:"whatsapp"`
	LinkedIn string `json:"linkedin"`
}

// PublicURL 返回文档的公开访问地址 <base>/cv/<id>。
func PublicURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/cv/" + url.PathEscape(id)
}

// escapeComponent 与浏览器的 encodeURIComponent 一致地用 %20 表示空格。
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// WhatsAppLink 返回带预填消息的 WhatsApp 分享链接。
func WhatsAppLink(publicURL string) string {
	return "https://wa.me/?text=Check%20out%20my%20CV:%20" + escapeComponent(publicURL)
}

// LinkedInLink 返回 LinkedIn 分享链接。
func LinkedInLink(publicURL string) string {
	return "https://www.linkedin.com/sharing/share-offsite/?url=" + escapeComponent(publicURL)
}

// Links 生成全部分享目标。
func Links(baseURL, id string) Targets {
	u := PublicURL(baseURL, id)
	return Targets{URL: u, WhatsApp: WhatsAppLink(u), LinkedIn: LinkedInLink(u)}
}

// Sharer hands out share targets once the share payment is verified.
type Sharer struct {
	baseURL string
	gate    *payment.Gate
}

func NewSharer(baseURL string, gate *payment.Gate) *Sharer {
	return &Sharer{baseURL: baseURL, gate: gate}
}

// Share 付费校验通过后返回分享链接。
func (s *Sharer) Share(ctx context.Context, id string) (Targets, error) {
	if err := s.gate.Authorize(ctx, payment.OrderRequest{CVID: id, Purpose: payment.PurposeShare}); err != nil {
		return Targets{}, err
	}
	return Links(s.baseURL, id), nil
}
