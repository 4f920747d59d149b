package auth

import (
	"regexp"
	"strings"
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	contactPattern = regexp.MustCompile(`^\d{10}$`)
)

// MinPasswordLength 是密码最短长度。
const MinPasswordLength = 6

// ValidateRegistration 返回第一个不合法字段的提示，全部合法时返回空字符串。
func ValidateRegistration(username, email, contact, password string) string {
	switch {
	case strings.TrimSpace(username) == "", strings.TrimSpace(email) == "", password == "":
		return "This field is required"
	case !emailPattern.MatchString(email):
		return "Invalid email format"
	case len(password) < MinPasswordLength:
		return "Password must be at least 6 characters"
	case contact != "" && !contactPattern.MatchString(contact):
		return "Contact must be 10 digits"
	}
	return ""
}
