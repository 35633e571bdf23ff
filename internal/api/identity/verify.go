package identity

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 访问令牌中的声明
type Claims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
	SessionID    string         `json:"session_id"`
	jwt.RegisteredClaims
}

// Verifier 使用身份服务的 JWT 密钥在本地校验访问令牌
type Verifier struct {
	secret []byte
}

// NewVerifier 创建校验器，secret 为空时返回 nil
func NewVerifier(secret string) *Verifier {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	return &Verifier{secret: []byte(secret)}
}

// Verify 校验签名和有效期
func (v *Verifier) Verify(rawToken string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthorized
	}
	if claims.Subject == "" {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// User 由声明构造用户
func (c *Claims) User() *UserPayload {
	return &UserPayload{
		ID:           c.Subject,
		Email:        c.Email,
		UserMetadata: c.UserMetadata,
	}
}

// Subject 读取令牌中的 sub，不校验签名和有效期，仅用于定位会话
func Subject(rawToken string) string {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return ""
	}
	return claims.Subject
}
