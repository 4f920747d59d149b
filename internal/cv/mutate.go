package cv

import (
	"fmt"
	"strings"
)

// SetField 替换一个标量字段并返回新文档，接收者保持不变。
func (d Document) SetField(group Group, key, value string) (Document, error) {
	out := d.Clone()
	switch group {
	case GroupBasic:
		switch key {
		case "name":
			out.Basic.Name = value
		case "email":
			out.Basic.Email = value
		case "contact":
			out.Basic.Contact = value
		case "intro":
			out.Basic.Intro = value
		default:
			return d, fmt.Errorf("basic.%s: %w", key, ErrUnknownField)
		}
	case GroupDesign:
		design, err := out.Design.with(key, value)
		if err != nil {
			return d, err
		}
		out.Design = design
	default:
		return d, fmt.Errorf("group %q: %w", group, ErrUnknownSection)
	}
	return out, nil
}

// SetItem 替换分区中一条记录的一个字段并返回新文档。
// index 超出当前长度时返回 ErrIndexOutOfRange。
func (d Document) SetItem(s Section, index int, key, value string) (Document, error) {
	if !s.Valid() {
		return d, fmt.Errorf("section %q: %w", s, ErrUnknownSection)
	}
	if !s.hasField(key) {
		return d, fmt.Errorf("%s.%s: %w", s, key, ErrUnknownField)
	}
	items := d.Items(s)
	if index < 0 || index >= len(items) {
		return d, fmt.Errorf("%s[%d] (len %d): %w", s, index, len(items), ErrIndexOutOfRange)
	}
	if s == SectionSkills && key == "percentage" && strings.TrimSpace(value) != "" {
		if _, ok := ParsePercentage(value); !ok {
			return d, &ValidationError{
				Field:   fmt.Sprintf("skills[%d].percentage", index),
				Message: "Percentage must be a number between 0 and 100.",
			}
		}
	}

	out := d.Clone()
	updated := out.Items(s)
	updated[index][key] = value
	return out, nil
}

// AppendItem 在分区末尾追加一条空记录，返回新文档和新长度。
func (d Document) AppendItem(s Section) (Document, int, error) {
	if !s.Valid() {
		return d, d.Len(s), fmt.Errorf("section %q: %w", s, ErrUnknownSection)
	}
	out := d.Clone()
	items := append(out.Items(s), Record{})
	out.setItems(s, items)
	return out, len(items), nil
}

// RemoveItem 删除指定位置的记录，剩余记录保持顺序且下标连续。
func (d Document) RemoveItem(s Section, index int) (Document, error) {
	if !s.Valid() {
		return d, fmt.Errorf("section %q: %w", s, ErrUnknownSection)
	}
	items := d.Items(s)
	if index < 0 || index >= len(items) {
		return d, fmt.Errorf("%s[%d] (len %d): %w", s, index, len(items), ErrIndexOutOfRange)
	}
	out := d.Clone()
	cloned := out.Items(s)
	packed := make([]Record, 0, len(cloned)-1)
	packed = append(packed, cloned[:index]...)
	packed = append(packed, cloned[index+1:]...)
	out.setItems(s, packed)
	return out, nil
}
