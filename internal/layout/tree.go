// Package layout projects a cv.Document onto a visual tree and its HTML form.
//
// Render is a pure function: no I/O, no counters, no state kept between calls.
// Rendering the same Document twice yields equal trees.
package layout

// Kind 是可视树节点的类型。
type Kind string

const (
	KindDocument     Kind = "document"
	KindHeading      Kind = "heading"
	KindParagraph    Kind = "paragraph"
	KindSection      Kind = "section"
	KindSectionTitle Kind = "section-title"
	KindList         Kind = "list"
	KindListItem     Kind = "list-item"
	KindStrong       Kind = "strong"
	KindText         Kind = "text"
	KindChips        Kind = "chips"
	KindChip         Kind = "chip"
	KindLink         Kind = "link"
)

// Role 区分两种颜色角色：正文（primary）与标题/强调（accent）。
type Role string

const (
	RoleNone   Role = ""
	RoleBase   Role = "base"
	RoleAccent Role = "accent"
)

// Style 是节点的视觉属性，零值表示继承。
type Style struct {
	FontFamily string
	FontSizePx int
	Color      string
	Background string
	Border     string
	Opacity    float64
}

// Node 是可视树中的一个节点。
type Node struct {
	Kind     Kind
	Role     Role
	Section  string
	Text     string
	Href     string
	Style    Style
	Children []Node
}

// Walk 深度优先遍历树，fn 返回 false 时停止进入子节点。
func (n Node) Walk(fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find 返回所有满足条件的节点（先序）。
func (n Node) Find(match func(Node) bool) []Node {
	var out []Node
	n.Walk(func(c Node) bool {
		if match(c) {
			out = append(out, c)
		}
		return true
	})
	return out
}
