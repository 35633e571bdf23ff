package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/evroute/internal/api/identity"
	"github.com/langchou/evroute/internal/service"
)

const (
	// verifierCookie 注册时写入的 PKCE code verifier
	verifierCookie    = "evroute_pkce_verifier"
	verifierCookieTTL = 3600

	defaultNextPath = "/dashboard"
)

// Login 邮箱密码登录
// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var in service.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	res, err := h.svc.Auth.Login(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

// SignUp 注册
// POST /api/auth/signup
func (h *Handler) SignUp(c *gin.Context) {
	var in service.SignUpInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	res, err := h.svc.Auth.SignUp(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if res.ConfirmationRequired {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(verifierCookie, res.CodeVerifier, verifierCookieTTL, "/auth/callback", "", c.Request.TLS != nil, true)
	}
	respond(c, http.StatusCreated, res)
}

// Refresh 刷新令牌，Authorization 头中可带上已过期的访问令牌
// POST /api/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		badRequest(c)
		return
	}

	var hint string
	if raw, ok := extractBearerToken(c.GetHeader("Authorization")); ok {
		hint = identity.Subject(raw)
	}

	res, err := h.svc.Auth.Refresh(c.Request.Context(), hint, req.RefreshToken)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

// Logout 退出登录
// POST /api/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	user := currentUser(c)
	if err := h.svc.Auth.Logout(c.Request.Context(), user.ID, accessToken(c)); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"redirect": service.LoginPath})
}

// GetSession 当前用户与会话状态
// GET /api/auth/session
func (h *Handler) GetSession(c *gin.Context) {
	user := currentUser(c)
	respond(c, http.StatusOK, gin.H{
		"user":    user,
		"session": h.svc.Auth.CurrentSession(user.ID),
	})
}

// AuthCallback 邮箱验证回调：交换授权码后跳转到 next，令牌放在 URL fragment 中
// GET /auth/callback?code=&next=
func (h *Handler) AuthCallback(c *gin.Context) {
	code := c.Query("code")
	next := safeNext(c.Query("next"))

	verifier, _ := c.Cookie(verifierCookie)
	c.SetCookie(verifierCookie, "", -1, "/auth/callback", "", c.Request.TLS != nil, true)

	res, err := h.svc.Auth.ExchangeCode(c.Request.Context(), code, verifier)
	if err != nil {
		h.logger.Warn("Email verification failed", zap.Error(err))
		c.Redirect(http.StatusFound, h.siteURL+service.LoginPath+"?error=verification_failed")
		return
	}

	fragment := url.Values{}
	fragment.Set("access_token", res.Session.AccessToken)
	fragment.Set("refresh_token", res.Session.RefreshToken)
	fragment.Set("expires_at", strconv.FormatInt(res.Session.Expiry().Unix(), 10))
	fragment.Set("token_type", "bearer")
	c.Redirect(http.StatusFound, h.siteURL+next+"#"+fragment.Encode())
}

// safeNext 只允许站内路径
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return defaultNextPath
	}
	return next
}
