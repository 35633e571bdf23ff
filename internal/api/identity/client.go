// Package identity 身份认证服务（GoTrue 兼容 REST API）客户端
package identity

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrRateLimited        = errors.New("too many requests")
	ErrUnauthorized       = errors.New("invalid or expired session")
)

// ProviderError 身份服务返回的其他错误
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity provider: %s (status=%d code=%s)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("identity provider: %s (status=%d)", e.Message, e.StatusCode)
}

// Client 身份服务客户端，无状态，令牌由调用方传入
type Client struct {
	httpClient *http.Client
	baseURL    string
	anonKey    string
}

// NewClient 创建身份服务客户端
func NewClient(baseURL, anonKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
	}
}

// SignInWithPassword 邮箱密码登录
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &s); err != nil {
		return nil, err
	}
	s.CreatedAt = time.Now()
	return &s, nil
}

// SignUpResult 注册结果；需要邮箱验证时 Session 为空
type SignUpResult struct {
	User    *UserPayload
	Session *Session
}

// SignUp 注册新用户，验证邮件中的链接跳转到 redirectTo
// codeChallenge 非空时使用 PKCE 流程
func (c *Client) SignUp(ctx context.Context, email, password, redirectTo, codeChallenge string, metadata map[string]any) (*SignUpResult, error) {
	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}
	if codeChallenge != "" {
		body["code_challenge"] = codeChallenge
		body["code_challenge_method"] = "s256"
	}

	path := "/signup"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, path, "", body, &raw); err != nil {
		return nil, err
	}

	// 开启邮箱验证时返回用户，否则返回会话
	var s Session
	if err := json.Unmarshal(raw, &s); err == nil && s.AccessToken != "" {
		s.CreatedAt = time.Now()
		return &SignUpResult{User: s.User, Session: &s}, nil
	}
	var u UserPayload
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode signup response: %w", err)
	}
	return &SignUpResult{User: &u}, nil
}

// ExchangeCode 用验证链接中的授权码换取会话
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*Session, error) {
	body := map[string]string{"auth_code": code, "code_verifier": codeVerifier}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=pkce", "", body, &s); err != nil {
		return nil, err
	}
	s.CreatedAt = time.Now()
	return &s, nil
}

// Refresh 刷新访问令牌
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}
	body := map[string]string{"refresh_token": refreshToken}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &s); err != nil {
		return nil, err
	}
	s.CreatedAt = time.Now()
	return &s, nil
}

// GetUser 获取访问令牌对应的用户
func (c *Client) GetUser(ctx context.Context, accessToken string) (*UserPayload, error) {
	var u UserPayload
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser 更新用户 metadata
func (c *Client) UpdateUser(ctx context.Context, accessToken string, metadata map[string]any) (*UserPayload, error) {
	var u UserPayload
	if err := c.do(ctx, http.MethodPut, "/user", accessToken, map[string]any{"data": metadata}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SignOut 注销访问令牌对应的会话
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

// NewCodeVerifier 生成 PKCE verifier 和对应的 S256 challenge
func NewCodeVerifier() (verifier, challenge string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate code verifier: %w", err)
	}
	verifier = base64.RawURLEncoding.EncodeToString(buf)
	sum := sha256.Sum256([]byte(verifier))
	return verifier, base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// do 执行请求，accessToken 为空时只带 apikey
func (c *Client) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else if c.anonKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// classify 将身份服务错误映射为哨兵错误
func classify(status int, body []byte) error {
	var e errorResponse
	_ = json.Unmarshal(body, &e)
	msg := e.message()
	lower := strings.ToLower(msg)

	switch {
	case status == http.StatusTooManyRequests || e.ErrorCode == "over_request_rate_limit" || e.ErrorCode == "over_email_send_rate_limit":
		return ErrRateLimited
	case e.ErrorCode == "email_not_confirmed" || strings.Contains(lower, "email not confirmed"):
		return ErrEmailNotConfirmed
	case e.ErrorCode == "invalid_credentials" || strings.Contains(lower, "invalid login credentials"):
		return ErrInvalidCredentials
	case status == http.StatusUnauthorized || status == http.StatusForbidden ||
		e.ErrorCode == "bad_jwt" || e.ErrorCode == "session_not_found" || e.ErrorCode == "refresh_token_not_found" ||
		strings.Contains(lower, "invalid refresh token"):
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	}

	if msg == "" {
		msg = http.StatusText(status)
	}
	code := e.ErrorCode
	if code == "" {
		code = e.Error
	}
	return &ProviderError{StatusCode: status, Code: code, Message: msg}
}
