package cv

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	emailPattern       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	absoluteURLPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://\S+$`)
)

// ValidEmail 校验 local@domain.tld 形式的邮箱。
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidAbsoluteURL 校验带 scheme 的绝对 URL（scheme://...）。
func ValidAbsoluteURL(link string) bool {
	return absoluteURLPattern.MatchString(link)
}

// ParsePercentage 解析 [0,100] 内的百分比，允许小数（如 "50.5"）。
func ParsePercentage(value string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}

// Validate 检查与编辑流程无关的文档不变量：技能百分比、社交链接与设计参数。
// 必填项规则属于向导步骤校验，不在此处。
func (d Document) Validate() error {
	for i, skill := range d.Skills {
		if p := skill.Get("percentage"); strings.TrimSpace(p) != "" {
			if _, ok := ParsePercentage(p); !ok {
				return &ValidationError{
					Field:   fmt.Sprintf("skills[%d].percentage", i),
					Message: "Each skill must have a name and valid percentage.",
				}
			}
		}
	}
	for i, soc := range d.Social {
		if link := soc.Get("link"); link != "" && !ValidAbsoluteURL(link) {
			return &ValidationError{
				Field:   fmt.Sprintf("social[%d].link", i),
				Message: "Invalid URL format for social link.",
			}
		}
	}
	return d.Design.Validate()
}
