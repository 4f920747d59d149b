// Package session holds the signed-in identity. A Session is created once and
// handed to every component that talks to the backend; nothing reads it from a
// package-level variable.
package session

import "sync"

// User 是登录用户的公开信息。
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Session 保存当前登录用户与 bearer token，可并发访问。
type Session struct {
	mu    sync.RWMutex
	user  User
	token string
}

// New 返回一个未登录的 Session。
func New() *Session {
	return &Session{}
}

// Start 记录登录结果。
func (s *Session) Start(user User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.token = token
}

// End 清除登录状态。
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = User{}
	s.token = ""
}

// Token 返回 bearer token，未登录时为空。
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User 返回当前用户。
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.token != ""
}

// Authenticated 报告是否已登录。
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}
