package identity

import (
	"strings"
	"time"

	"github.com/langchou/evroute/internal/models"
)

// Token 认证令牌
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Expiry 返回令牌过期时间
func (t *Token) Expiry() time.Time {
	if t.ExpiresAt > 0 {
		return time.Unix(t.ExpiresAt, 0)
	}
	return t.CreatedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// IsExpired 检查 token 是否过期（提前 60 秒视为过期）
func (t *Token) IsExpired() bool {
	return time.Now().After(t.Expiry().Add(-60 * time.Second))
}

// Session 令牌和对应用户
type Session struct {
	Token
	User *UserPayload `json:"user"`
}

// UserPayload 身份服务返回的用户
type UserPayload struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ToUser 转换为应用内用户
// 名称依次取 user_metadata 的 name/full_name/display_name，最后取邮箱 @ 前的部分
func (u *UserPayload) ToUser() *models.User {
	if u == nil {
		return nil
	}
	name := metadataString(u.UserMetadata, "name", "full_name", "display_name")
	if name == "" {
		name, _, _ = strings.Cut(u.Email, "@")
	}
	return &models.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      name,
		Avatar:    metadataString(u.UserMetadata, "avatar_url", "picture"),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func metadataString(meta map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := meta[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// errorResponse 身份服务的错误响应，不同版本字段不同
type errorResponse struct {
	Code             int    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

func (e errorResponse) message() string {
	for _, s := range []string{e.Msg, e.ErrorDescription, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}
