package cv

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DesignTokens controls the visual rendering of a Document.
// Tokens are embedded by value; copying them onto another Document never aliases.
type DesignTokens struct {
	FontFamily   string `json:"fontFamily"`
	FontSize     int    `json:"fontSize"`
	PrimaryColor string `json:"primaryColor"`
	AccentColor  string `json:"accentColor"`
}

// DefaultDesign 是新建文档的默认设计参数。
func DefaultDesign() DesignTokens {
	return DesignTokens{
		FontFamily:   "Arial",
		FontSize:     14,
		PrimaryColor: "#000000",
		AccentColor:  "#4F46E5",
	}
}

// FontFamilies 是编辑器提供的字体选项。
var FontFamilies = []string{
	"Arial",
	"Inter",
	"Poppins",
	"Roboto",
	"'Courier New', monospace",
	"Times New Roman",
}

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// WithDefaults 用 fallback 填补缺失的字段。
func (t DesignTokens) WithDefaults(fallback DesignTokens) DesignTokens {
	if strings.TrimSpace(t.FontFamily) == "" {
		t.FontFamily = fallback.FontFamily
	}
	if t.FontSize <= 0 {
		t.FontSize = fallback.FontSize
	}
	if strings.TrimSpace(t.PrimaryColor) == "" {
		t.PrimaryColor = fallback.PrimaryColor
	}
	if strings.TrimSpace(t.AccentColor) == "" {
		t.AccentColor = fallback.AccentColor
	}
	return t
}

// Validate 检查设计参数的不变量。零值字段视为未设置，由渲染器补默认值。
func (t DesignTokens) Validate() error {
	if t.FontSize < 0 {
		return &ValidationError{Field: "design.fontSize", Message: "Font size must be a positive integer."}
	}
	if t.PrimaryColor != "" && !hexColorPattern.MatchString(t.PrimaryColor) {
		return &ValidationError{Field: "design.primaryColor", Message: "Invalid color."}
	}
	if t.AccentColor != "" && !hexColorPattern.MatchString(t.AccentColor) {
		return &ValidationError{Field: "design.accentColor", Message: "Invalid color."}
	}
	return nil
}

func (t DesignTokens) with(key, value string) (DesignTokens, error) {
	switch key {
	case "fontFamily":
		t.FontFamily = value
	case "fontSize":
		size, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || size <= 0 {
			return t, &ValidationError{Field: "design.fontSize", Message: "Font size must be a positive integer."}
		}
		t.FontSize = size
	case "primaryColor", "accentColor":
		if !hexColorPattern.MatchString(value) {
			return t, &ValidationError{Field: "design." + key, Message: "Invalid color."}
		}
		if key == "primaryColor" {
			t.PrimaryColor = value
		} else {
			t.AccentColor = value
		}
	default:
		return t, fmt.Errorf("design.%s: %w", key, ErrUnknownField)
	}
	return t, nil
}
