package database

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvbuilder/internal/cv"
	"cvbuilder/internal/layout"
)

// 导出状态
const (
	ExportStatusNone      = ""
	ExportStatusQueued    = "queued"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// 订单状态
const (
	OrderStatusCreated = "created"
	OrderStatusPaid    = "paid"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Username     string `gorm:"size:64;index"`
	Email        string `gorm:"uniqueIndex;size:255"`
	Contact      string `gorm:"size:32"`
	PasswordHash string `gorm:"size:255"`
	GoogleID     string `gorm:"size:128;index"`
	CVs          []CV   `gorm:"constraint:OnDelete:CASCADE"`
}

// CV 保存用户的一份简历文档（JSONB）。
type CV struct {
	gorm.Model
	UserID       uint           `gorm:"index"`
	User         User           `gorm:"constraint:OnDelete:CASCADE"`
	Name         string         `gorm:"size:255"`
	Document     datatypes.JSON `gorm:"type:jsonb"`
	PdfObjectKey string         `gorm:"size:512"`
	ExportStatus string         `gorm:"size:32"`
	// ExportJobID 标识当前有效的导出任务；文档修改后清空，旧任务的结果随之作废。
	ExportJobID string `gorm:"size:64"`
}

// Layout 是可选版式，Slug 与客户端的版式 ID 对应。
type Layout struct {
	gorm.Model
	Slug            string         `gorm:"uniqueIndex;size:64"`
	Name            string         `gorm:"size:255"`
	PreviewImageURL string         `gorm:"size:1024"`
	Available       bool           `gorm:"default:true"`
	Design          datatypes.JSON `gorm:"type:jsonb"`
}

// PaymentOrder 记录一次付费下载或分享。
type PaymentOrder struct {
	gorm.Model
	OrderID   string `gorm:"uniqueIndex;size:64"`
	UserID    uint   `gorm:"index"`
	CVID      uint   `gorm:"index"`
	Purpose   string `gorm:"size:32"`
	Amount    int64
	Currency  string `gorm:"size:8"`
	Status    string `gorm:"size:16"`
	PaymentID string `gorm:"size:128"`
}

// Models 返回需要迁移的全部模型。
func Models() []any {
	return []any{&User{}, &CV{}, &Layout{}, &PaymentOrder{}}
}

// NewCV 由文档构造一条记录，文档中的 ID 不会被保存。
func NewCV(userID uint, doc cv.Document) (CV, error) {
	record := CV{UserID: userID}
	if err := record.SetDocument(doc); err != nil {
		return CV{}, err
	}
	return record, nil
}

// SetDocument 用 doc 覆盖记录中的文档。
func (c *CV) SetDocument(doc cv.Document) error {
	doc = doc.Normalize()
	doc.ID = ""
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode cv document: %w", err)
	}
	c.Document = datatypes.JSON(data)
	c.Name = doc.DisplayName()
	return nil
}

// ToDocument 解码文档并填入记录 ID。
func (c CV) ToDocument() (cv.Document, error) {
	doc := cv.New()
	if len(c.Document) > 0 {
		if err := json.Unmarshal(c.Document, &doc); err != nil {
			return cv.Document{}, fmt.Errorf("decode cv %d document: %w", c.ID, err)
		}
	}
	doc = doc.Normalize()
	doc.ID = strconv.FormatUint(uint64(c.ID), 10)
	return doc, nil
}

// ToDescriptor 转换为版式描述。
func (l Layout) ToDescriptor() (layout.Descriptor, error) {
	d := layout.Descriptor{
		ID:        l.Slug,
		Name:      l.Name,
		Preview:   l.PreviewImageURL,
		Available: l.Available,
	}
	if len(l.Design) > 0 {
		if err := json.Unmarshal(l.Design, &d.Design); err != nil {
			return layout.Descriptor{}, fmt.Errorf("decode layout %q design: %w", l.Slug, err)
		}
	}
	return d, nil
}

// NewLayout 由内置版式描述构造记录。
func NewLayout(d layout.Descriptor) (Layout, error) {
	design, err := json.Marshal(d.Design)
	if err != nil {
		return Layout{}, fmt.Errorf("encode layout %q design: %w", d.ID, err)
	}
	return Layout{
		Slug:            d.ID,
		Name:            d.Name,
		PreviewImageURL: d.Preview,
		Available:       d.Available,
		Design:          datatypes.JSON(design),
	}, nil
}

// ParseID 解析路径中的数字 ID。
func ParseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
