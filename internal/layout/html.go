package layout

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"cvbuilder/internal/cv"
)

// ReadyMarkerID 是页面渲染完成后出现的元素 ID，导出时等待它出现。
const ReadyMarkerID = "cv-render-ready"

// pageTemplateString 把可视树输出为独立 HTML 页面。
// 容器宽度固定，导出结果与实际视口无关。
const pageTemplateString = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        html, body {
            margin: 0;
            padding: 0;
            background: white;
        }
        #cv-root {
            width: {{.WidthPx}}px;
            box-sizing: border-box;
            padding: 24px;
            background: white;
        }
        .cv-section { margin-bottom: 24px; }
        .cv-section-title {
            font-weight: 600;
            border-bottom: 1px solid #e5e7eb;
            padding-bottom: 4px;
            margin: 0 0 8px 0;
        }
        .cv-heading { font-weight: 700; margin: 0 0 8px 0; }
        .cv-list { list-style: disc inside; margin: 0; padding: 0; }
        .cv-list li { margin-bottom: 4px; }
        .cv-list p { margin: 0; }
        .cv-chips { display: flex; flex-wrap: wrap; gap: 8px; }
        .cv-chip { padding: 4px 8px; border-radius: 4px; }
        .cv-link { text-decoration: underline; }
    </style>
</head>
<body>
    <div id="cv-root" style="{{style .Root.Style}}">
        {{range .Root.Children}}{{template "node" .}}{{end}}
    </div>
    <div id="` + ReadyMarkerID + `" style="display:none"></div>
</body>
</html>
{{define "node"}}
{{- if eq .Kind "section" -}}
<div class="cv-section">{{range .Children}}{{template "node" .}}{{end}}</div>
{{- else if eq .Kind "heading" -}}
<h1 class="cv-heading" style="{{style .Style}}">{{.Text}}</h1>
{{- else if eq .Kind "section-title" -}}
<h2 class="cv-section-title" style="{{style .Style}}">{{.Text}}</h2>
{{- else if eq .Kind "paragraph" -}}
<p style="{{style .Style}}">{{.Text}}</p>
{{- else if eq .Kind "list" -}}
<ul class="cv-list">{{range .Children}}{{template "node" .}}{{end}}</ul>
{{- else if eq .Kind "list-item" -}}
<li>{{range .Children}}{{template "node" .}}{{end}}</li>
{{- else if eq .Kind "strong" -}}
<span style="font-weight:600">{{.Text}}</span>
{{- else if eq .Kind "text" -}}
<span style="{{style .Style}}">{{.Text}}</span>
{{- else if eq .Kind "chips" -}}
<div class="cv-chips">{{range .Children}}{{template "node" .}}{{end}}</div>
{{- else if eq .Kind "chip" -}}
<div class="cv-chip" style="{{style .Style}}">{{.Text}}</div>
{{- else if eq .Kind "link" -}}
<a class="cv-link" href="{{.Href}}" target="_blank" rel="noopener noreferrer" style="{{style .Style}}">{{.Text}}</a>
{{- end -}}
{{end}}`

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"style": styleAttr,
}).Parse(pageTemplateString))

// DefaultWidthPx 是导出时离屏画布的参考宽度。
const DefaultWidthPx = 800

type pageData struct {
	Title   string
	WidthPx int
	Root    Node
}

// RenderHTML 渲染完整的 HTML 页面，widthPx<=0 时使用 DefaultWidthPx。
func RenderHTML(doc cv.Document, widthPx int) (string, error) {
	if widthPx <= 0 {
		widthPx = DefaultWidthPx
	}
	title := strings.TrimSpace(doc.DisplayName())
	if title == "" {
		title = "CV"
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{
		Title:   title,
		WidthPx: widthPx,
		Root:    Render(doc),
	}); err != nil {
		return "", fmt.Errorf("execute page template: %w", err)
	}
	return buf.String(), nil
}

// styleAttr 把 Style 转成内联 CSS。值已清洗，可以标记为安全。
func styleAttr(s Style) template.CSS {
	var parts []string
	if s.FontFamily != "" {
		parts = append(parts, "font-family:"+cssFontFamily(s.FontFamily))
	}
	if s.FontSizePx > 0 {
		parts = append(parts, "font-size:"+strconv.Itoa(s.FontSizePx)+"px")
	}
	if c := cssColor(s.Color); c != "" {
		parts = append(parts, "color:"+c)
	}
	if c := cssColor(s.Background); c != "" {
		parts = append(parts, "background:"+c)
	}
	if s.Border != "" {
		if b := cssBorder(s.Border); b != "" {
			parts = append(parts, "border:"+b)
		}
	}
	if s.Opacity > 0 && s.Opacity < 1 {
		parts = append(parts, "opacity:"+strconv.FormatFloat(s.Opacity, 'f', -1, 64))
	}
	return template.CSS(strings.Join(parts, ";"))
}

func cssFontFamily(v string) string {
	var b strings.Builder
	for _, r := range v {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == ',', r == '-', r == '\'', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cssColor(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "#") {
		return ""
	}
	switch len(v) {
	case 4, 5, 7, 9:
	default:
		return ""
	}
	for _, r := range v[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return ""
		}
	}
	return v
}

func cssBorder(v string) string {
	fields := strings.Fields(v)
	if len(fields) != 3 || fields[1] != "solid" || !strings.HasSuffix(fields[0], "px") {
		return ""
	}
	if _, err := strconv.Atoi(strings.TrimSuffix(fields[0], "px")); err != nil {
		return ""
	}
	color := cssColor(fields[2])
	if color == "" {
		return ""
	}
	return fields[0] + " solid " + color
}
