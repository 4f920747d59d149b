package client

import (
	"context"
	"net/http"

	"cvbuilder/internal/session"
)

// AuthResult 是登录类接口的返回。
type AuthResult struct {
	User  session.User `json:"user"`
	Token string       `json:"token"`
	Msg   string       `json:"msg,omitempty"`
}

// Credentials 是邮箱密码登录的请求体。
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration 是注册请求体。
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
	Password string `json:"password"`
}

// GoogleProfile 是 Google 登录后浏览器端解出的身份信息。
type GoogleProfile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	GoogleID string `json:"googleId"`
}

func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", creds, &res)
	return res, err
}

func (c *Client) Register(ctx context.Context, reg Registration) (AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, "register", http.MethodPost, "/api/auth/register", reg, &res)
	return res, err
}

func (c *Client) GoogleLogin(ctx context.Context, profile GoogleProfile) (AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, "google login", http.MethodPost, "/api/auth/google-login", profile, &res)
	return res, err
}

// SignIn 登录并把结果写入 sess。
func (c *Client) SignIn(ctx context.Context, sess *session.Session, creds Credentials) (session.User, error) {
	res, err := c.Login(ctx, creds)
	if err != nil {
		return session.User{}, err
	}
	sess.Start(res.User, res.Token)
	return res.User, nil
}
