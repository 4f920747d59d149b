package storage

import "fmt"

// ExportPrefix 是某份简历全部导出文件的前缀。
func ExportPrefix(userID, cvID uint) string {
	return fmt.Sprintf("exports/%d/%d/", userID, cvID)
}

// ExportKey 返回一次导出的 PDF 对象名。
func ExportKey(userID, cvID uint, exportID string) string {
	return ExportPrefix(userID, cvID) + exportID + ".pdf"
}

// LayoutPreviewKey 返回版式缩略图的对象名。
func LayoutPreviewKey(slug string) string {
	return fmt.Sprintf("thumbnails/layout/%s/preview.jpg", slug)
}
