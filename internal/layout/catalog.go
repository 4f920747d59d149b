package layout

import (
	"strings"

	"cvbuilder/internal/cv"
)

// Descriptor 描述一个可选的版式。
type Descriptor struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Preview   string          `json:"preview"`
	Available bool            `json:"available"`
	Design    cv.DesignTokens `json:"design"`
}

// DefaultCatalog 返回内置的三个版式，获取远端列表失败时也用它兜底。
func DefaultCatalog() []Descriptor {
	return []Descriptor{
		{
			ID:        "layout1",
			Name:      "Professional Classic",
			Preview:   "/layout1.png",
			Available: true,
			Design: cv.DesignTokens{
				FontFamily:   "Arial, sans-serif",
				FontSize:     20,
				PrimaryColor: "#1f6937",
				AccentColor:  "#2563eb",
			},
		},
		{
			ID:        "layout2",
			Name:      "Modern Creative",
			Preview:   "/layout2.png",
			Available: true,
			Design: cv.DesignTokens{
				FontFamily:   "'Courier New', monospace",
				FontSize:     22,
				PrimaryColor: "#0d9488",
				AccentColor:  "#f43f5e",
			},
		},
		{
			ID:        "layout3",
			Name:      "Minimalistic Elegant",
			Preview:   "/layout3.png",
			Available: true,
			Design: cv.DesignTokens{
				FontFamily:   "'Georgia', serif",
				FontSize:     18,
				PrimaryColor: "#374151",
				AccentColor:  "#7c3aed",
			},
		},
	}
}

// Lookup 在目录中按 ID 查找版式。
func Lookup(catalog []Descriptor, id string) (Descriptor, bool) {
	for _, d := range catalog {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// SampleProfile 返回预览和新建时使用的示例资料，name/email 为空时使用占位值。
func SampleProfile(name, email string) cv.Document {
	if strings.TrimSpace(name) == "" {
		name = "John Doe"
	}
	if strings.TrimSpace(email) == "" {
		email = "john@example.com"
	}
	doc := cv.New()
	doc.Basic = cv.Basic{
		Name:    name,
		Email:   email,
		Contact: "1234567890",
		Intro:   "A passionate developer ready to take on challenges.",
	}
	doc.Education = []cv.Record{
		{"degree": "B.Sc. in Computer Science", "institution": "XYZ University", "percentage": "85%"},
	}
	doc.Experience = []cv.Record{
		{"organization": "ABC Corp", "position": "Software Engineer", "location": "New York"},
	}
	doc.Projects = []cv.Record{
		{"title": "Portfolio Website", "technologies": "React, Tailwind", "description": "A personal portfolio website."},
	}
	doc.Skills = []cv.Record{
		{"name": "JavaScript", "percentage": "90"},
		{"name": "React", "percentage": "85"},
	}
	doc.Social = []cv.Record{
		{"platform": "LinkedIn", "link": "https://linkedin.com/in/example"},
		{"platform": "GitHub", "link": "https://github.com/example"},
	}
	return doc
}

// Seed 以示例资料和版式的设计参数构造一份新文档。
func Seed(d Descriptor, name, email string) cv.Document {
	doc := SampleProfile(name, email)
	doc.Design = d.Design
	return doc
}

// Preview 返回示例资料套用版式后的文档，用于缩略图。
func Preview(d Descriptor) cv.Document {
	return Seed(d, "", "")
}
