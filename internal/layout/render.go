package layout

import (
	"strings"

	"cvbuilder/internal/cv"
)

// Theme 是应用默认值后的设计参数。
type Theme struct {
	FontFamily   string
	FontSizePx   int
	PrimaryColor string
	AccentColor  string
}

const (
	headingSizePx      = 32
	sectionTitleSizePx = 20
	mutedOpacity       = 0.8
	techOpacity        = 0.7
	chipAlpha          = "20"
)

// rendererDefaults 用于文档缺少设计参数时。
var rendererDefaults = cv.DesignTokens{
	FontFamily:   "Arial",
	FontSize:     16,
	PrimaryColor: "#1a1a1a",
	AccentColor:  "#1e40af",
}

var sectionTitles = map[cv.Section]string{
	cv.SectionEducation:  "Education",
	cv.SectionExperience: "Experience",
	cv.SectionProjects:   "Projects",
	cv.SectionSkills:     "Skills",
	cv.SectionSocial:     "Social Profiles",
}

// ThemeOf 计算文档的主题。
func ThemeOf(tokens cv.DesignTokens) Theme {
	t := tokens.WithDefaults(rendererDefaults)
	return Theme{
		FontFamily:   t.FontFamily,
		FontSizePx:   t.FontSize,
		PrimaryColor: t.PrimaryColor,
		AccentColor:  t.AccentColor,
	}
}

// Render 将文档投影为可视树。空分区与空标量字段不会出现在结果中。
func Render(doc cv.Document) Node {
	theme := ThemeOf(doc.Design)
	root := Node{
		Kind: KindDocument,
		Role: RoleBase,
		Style: Style{
			FontFamily: theme.FontFamily,
			FontSizePx: theme.FontSizePx,
			Color:      theme.PrimaryColor,
		},
	}

	if basic := renderBasic(doc.Basic, theme); len(basic.Children) > 0 {
		root.Children = append(root.Children, basic)
	}

	for _, s := range cv.Sections {
		var items []Node
		for _, rec := range doc.Items(s) {
			if blank(rec) {
				continue
			}
			items = append(items, renderRecord(s, rec, theme))
		}
		if len(items) == 0 {
			continue
		}
		root.Children = append(root.Children, section(s, items, theme))
	}
	return root
}

func renderBasic(b cv.Basic, theme Theme) Node {
	n := Node{Kind: KindSection, Section: "basic"}
	if v := strings.TrimSpace(b.Name); v != "" {
		n.Children = append(n.Children, Node{
			Kind:  KindHeading,
			Role:  RoleAccent,
			Text:  v,
			Style: Style{FontSizePx: headingSizePx, Color: theme.AccentColor},
		})
	}
	if v := strings.TrimSpace(b.Email); v != "" {
		n.Children = append(n.Children, Node{Kind: KindParagraph, Text: "Email: " + v})
	}
	if v := strings.TrimSpace(b.Contact); v != "" {
		n.Children = append(n.Children, Node{Kind: KindParagraph, Text: "Contact: " + v})
	}
	if v := strings.TrimSpace(b.Intro); v != "" {
		n.Children = append(n.Children, Node{Kind: KindParagraph, Text: v, Style: Style{Opacity: mutedOpacity}})
	}
	return n
}

func section(s cv.Section, items []Node, theme Theme) Node {
	title := Node{
		Kind:    KindSectionTitle,
		Role:    RoleAccent,
		Section: string(s),
		Text:    sectionTitles[s],
		Style:   Style{FontSizePx: sectionTitleSizePx, Color: theme.AccentColor},
	}
	body := Node{Kind: KindList, Section: string(s), Children: items}
	if s == cv.SectionSkills {
		body.Kind = KindChips
	}
	return Node{Kind: KindSection, Section: string(s), Children: []Node{title, body}}
}

func renderRecord(s cv.Section, rec cv.Record, theme Theme) Node {
	switch s {
	case cv.SectionEducation:
		return listItem(
			strong(rec.Get("degree")),
			text(prefixed(" at ", rec.Get("institution"))),
			text(prefixed(" - ", rec.Get("percentage"))),
		)
	case cv.SectionExperience:
		return listItem(
			strong(rec.Get("position")),
			text(prefixed(" at ", rec.Get("organization"))),
			text(prefixed(" - ", rec.Get("location"))),
		)
	case cv.SectionProjects:
		item := listItem(strong(rec.Get("title")))
		if tech := strings.TrimSpace(rec.Get("technologies")); tech != "" {
			item.Children = append(item.Children, Node{Kind: KindText, Text: " (" + tech + ")", Style: Style{Opacity: techOpacity}})
		}
		if desc := strings.TrimSpace(rec.Get("description")); desc != "" {
			item.Children = append(item.Children, Node{Kind: KindParagraph, Text: desc, Style: Style{Opacity: mutedOpacity}})
		}
		return item
	case cv.SectionSkills:
		label := strings.TrimSpace(rec.Get("name"))
		if p := strings.TrimSpace(rec.Get("percentage")); p != "" {
			label = strings.TrimSpace(label + " (" + p + "%)")
		}
		return Node{
			Kind: KindChip,
			Role: RoleAccent,
			Text: label,
			Style: Style{
				Color:      theme.AccentColor,
				Background: tint(theme.AccentColor, chipAlpha),
				Border:     "1px solid " + theme.AccentColor,
			},
		}
	case cv.SectionSocial:
		item := listItem()
		if platform := strings.TrimSpace(rec.Get("platform")); platform != "" {
			item.Children = append(item.Children, Node{Kind: KindStrong, Text: platform + ": "})
		}
		if link := strings.TrimSpace(rec.Get("link")); link != "" {
			item.Children = append(item.Children, Node{
				Kind:  KindLink,
				Role:  RoleAccent,
				Text:  link,
				Href:  link,
				Style: Style{Color: theme.AccentColor},
			})
		}
		return item
	}
	return listItem()
}

func listItem(children ...Node) Node {
	n := Node{Kind: KindListItem}
	for _, c := range children {
		if c.Text == "" && len(c.Children) == 0 {
			continue
		}
		n.Children = append(n.Children, c)
	}
	return n
}

func strong(v string) Node {
	return Node{Kind: KindStrong, Text: strings.TrimSpace(v)}
}

func text(v string) Node {
	return Node{Kind: KindText, Text: v}
}

// tint 把 #rgb/#rgba/#rrggbb/#rrggbbaa 统一为 #rrggbb 后追加两位 alpha。
// 无法识别的颜色返回空串，背景随之省略。
func tint(color, alpha string) string {
	hex, ok := strings.CutPrefix(strings.TrimSpace(color), "#")
	if !ok {
		return ""
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return ""
		}
	}
	switch len(hex) {
	case 3, 4:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	case 8:
		hex = hex[:6]
	default:
		return ""
	}
	return "#" + hex + alpha
}

func prefixed(prefix, v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	return prefix + v
}

func blank(rec cv.Record) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
