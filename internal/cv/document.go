package cv

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Section 标识文档中可重复的有序记录列表。
type Section string

const (
	SectionEducation  Section = "education"
	SectionExperience Section = "experience"
	SectionProjects   Section = "projects"
	SectionSkills     Section = "skills"
	SectionSocial     Section = "social"
)

// Group 标识可通过 SetField 修改的标量字段组。
type Group string

const (
	GroupBasic  Group = "basic"
	GroupDesign Group = "design"
)

// Sections 按展示顺序列出全部分区。
var Sections = []Section{
	SectionEducation,
	SectionExperience,
	SectionProjects,
	SectionSkills,
	SectionSocial,
}

// sectionFields 是每个分区唯一允许的字段。
var sectionFields = map[Section][]string{
	SectionEducation:  {"degree", "institution", "percentage"},
	SectionExperience: {"organization", "position", "location"},
	SectionProjects:   {"title", "technologies", "description"},
	SectionSkills:     {"name", "percentage"},
	SectionSocial:     {"platform", "link"},
}

// Fields 返回分区的字段列表（副本）。
func (s Section) Fields() []string {
	fields := sectionFields[s]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// Valid 判断分区名是否已定义。
func (s Section) Valid() bool {
	_, ok := sectionFields[s]
	return ok
}

func (s Section) hasField(key string) bool {
	for _, f := range sectionFields[s] {
		if f == key {
			return true
		}
	}
	return false
}

// Record 是分区中的一条记录。缺失字段读取为空字符串。
type Record map[string]string

// Get 返回字段值，缺失时为空字符串。
func (r Record) Get(key string) string {
	if r == nil {
		return ""
	}
	return r[key]
}

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// UnmarshalJSON 接受字符串、数字与 null，数字统一转为十进制字符串。
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Record, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			return fmt.Errorf("field %q: unsupported value type %T", k, v)
		}
	}
	*r = out
	return nil
}

// Basic 是简历的基础信息。
type Basic struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
	Intro   string `json:"intro"`
}

// Document is one user's CV: scalar profile fields, ordered sections and design tokens.
type Document struct {
	ID         string       `json:"_id,omitempty"`
	Basic      Basic        `json:"basic"`
	Education  []Record     `json:"education"`
	Experience []Record     `json:"experience"`
	Projects   []Record     `json:"projects"`
	Skills     []Record     `json:"skills"`
	Social     []Record     `json:"social"`
	Design     DesignTokens `json:"design"`
}

// New 返回向导使用的空白文档。
func New() Document {
	return Document{
		Education:  []Record{},
		Experience: []Record{},
		Projects:   []Record{},
		Skills:     []Record{},
		Social:     []Record{},
		Design:     DefaultDesign(),
	}
}

// Clone 深拷贝文档，返回值与原值不共享任何切片或 map。
func (d Document) Clone() Document {
	out := d
	out.Education = cloneRecords(d.Education)
	out.Experience = cloneRecords(d.Experience)
	out.Projects = cloneRecords(d.Projects)
	out.Skills = cloneRecords(d.Skills)
	out.Social = cloneRecords(d.Social)
	return out
}

func cloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.clone()
	}
	return out
}

// Items 返回分区记录（只读视图，调用方不得修改）。
func (d Document) Items(s Section) []Record {
	switch s {
	case SectionEducation:
		return d.Education
	case SectionExperience:
		return d.Experience
	case SectionProjects:
		return d.Projects
	case SectionSkills:
		return d.Skills
	case SectionSocial:
		return d.Social
	default:
		return nil
	}
}

// Len 返回分区当前长度。
func (d Document) Len(s Section) int {
	return len(d.Items(s))
}

func (d *Document) setItems(s Section, items []Record) {
	switch s {
	case SectionEducation:
		d.Education = items
	case SectionExperience:
		d.Experience = items
	case SectionProjects:
		d.Projects = items
	case SectionSkills:
		d.Skills = items
	case SectionSocial:
		d.Social = items
	}
}

// Normalize 去除各分区中未定义的字段，并把 nil 分区替换为空切片。
// 从外部（JSON、数据库）载入的文档在进入编辑会话前调用。
func (d Document) Normalize() Document {
	out := d.Clone()
	for _, s := range Sections {
		items := out.Items(s)
		if items == nil {
			items = []Record{}
		}
		for i, r := range items {
			clean := make(Record, len(r))
			for k, v := range r {
				if s.hasField(k) {
					clean[k] = v
				}
			}
			items[i] = clean
		}
		out.setItems(s, items)
	}
	return out
}

// DisplayName 返回用于展示和文件命名的名字。
func (d Document) DisplayName() string {
	return d.Basic.Name
}
