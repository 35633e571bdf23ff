package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/langchou/evroute/internal/api/identity"
	"github.com/langchou/evroute/internal/apperr"
	"github.com/langchou/evroute/internal/metrics"
	"github.com/langchou/evroute/internal/models"
	"github.com/langchou/evroute/internal/session"
	"github.com/langchou/evroute/pkg/ws"
)

// 登出后跳转的页面
const LoginPath = "/login"

// IdentityProvider 身份认证服务
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error)
	SignUp(ctx context.Context, email, password, redirectTo, codeChallenge string, metadata map[string]any) (*identity.SignUpResult, error)
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*identity.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.Session, error)
	GetUser(ctx context.Context, accessToken string) (*identity.UserPayload, error)
	UpdateUser(ctx context.Context, accessToken string, metadata map[string]any) (*identity.UserPayload, error)
	SignOut(ctx context.Context, accessToken string) error
}

// TokenVerifier 本地校验访问令牌
type TokenVerifier interface {
	Verify(rawToken string) (*identity.Claims, error)
}

// LoginInput 登录表单
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUpInput 注册表单
type SignUpInput struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

// ProfileInput 个人资料表单
type ProfileInput struct {
	Name   string `json:"name" validate:"required"`
	Avatar string `json:"avatar"`
}

// AuthResult 登录结果
type AuthResult struct {
	Session *identity.Session `json:"session"`
	User    *models.User      `json:"user"`
	Notice  Notice            `json:"notice"`
}

// SignUpOutcome 注册结果；需要邮箱验证时 Session 为空
type SignUpOutcome struct {
	User                 *models.User      `json:"user"`
	Session              *identity.Session `json:"session,omitempty"`
	ConfirmationRequired bool              `json:"confirmation_required"`
	CodeVerifier         string            `json:"-"` // 由调用方写入 cookie，验证回调时使用
	Notice               Notice            `json:"notice"`
}

// AuthService 认证与会话生命周期
type AuthService struct {
	logger   *zap.Logger
	provider IdentityProvider
	verifier TokenVerifier // 为空时通过身份服务校验令牌
	states   ClientStateStore
	notifier Notifier
	siteURL  string
	validate *validator.Validate

	sessions *session.Manager
}

// NewAuthService 创建认证服务
func NewAuthService(logger *zap.Logger, provider IdentityProvider, verifier TokenVerifier, states ClientStateStore, notifier Notifier, siteURL string) *AuthService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	svc := &AuthService{
		logger:   logger,
		provider: provider,
		verifier: verifier,
		states:   states,
		notifier: notifier,
		siteURL:  strings.TrimRight(siteURL, "/"),
		validate: newValidator(),
	}

	// 创建会话状态管理器
	svc.sessions = session.NewManager(svc.onSessionChange)

	return svc
}

// Sessions 返回会话状态管理器
func (s *AuthService) Sessions() *session.Manager {
	return s.sessions
}

// onSessionChange 会话状态变更：推送事件，登出时清除客户端缓存
func (s *AuthService) onSessionChange(c session.Change) {
	s.logger.Info("Session state changed",
		zap.String("user_id", c.UserID),
		zap.String("event", c.Event),
		zap.String("from", c.From),
		zap.String("to", c.To))

	notify, ok := session.Notification(c.Event)
	if !ok {
		return
	}
	metrics.SessionEvent(notify)

	event := ws.SessionEvent{Event: notify}
	if c.To == session.StateSignedOut {
		event.Redirect = LoginPath
		s.clearState(c.UserID)
		s.notifier.SendToUser(c.UserID, ws.MsgTypeStateCleared, nil)
	}
	s.notifier.SendToUser(c.UserID, ws.MsgTypeSession, event)
}

func (s *AuthService) clearState(userID string) {
	if s.states == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.states.Clear(ctx, userID); err != nil {
		s.logger.Warn("Failed to clear client state", zap.String("user_id", userID), zap.Error(err))
	}
}

// Login 邮箱密码登录
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	sess, err := s.provider.SignInWithPassword(ctx, in.Email, in.Password)
	if err != nil {
		s.logger.Info("Sign in failed", zap.String("email", in.Email), zap.Error(err))
		return nil, identityError(err, "Invalid email or password")
	}

	user, err := sessionUser(sess)
	if err != nil {
		return nil, err
	}
	if err := s.signIn(user.ID, user.Email, sess); err != nil {
		return nil, err
	}
	return &AuthResult{Session: sess, User: user, Notice: Notice{Level: NoticeSuccess, Message: "Welcome back!"}}, nil
}

// SignUp 注册，邮箱验证链接跳转到 /auth/callback
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*SignUpOutcome, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	verifier, challenge, err := identity.NewCodeVerifier()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to create account", err)
	}

	var metadata map[string]any
	if in.Name != "" {
		metadata = map[string]any{"name": in.Name}
	}

	res, err := s.provider.SignUp(ctx, in.Email, in.Password, s.siteURL+"/auth/callback", challenge, metadata)
	if err != nil {
		s.logger.Info("Sign up failed", zap.String("email", in.Email), zap.Error(err))
		return nil, identityError(err, "Failed to create account")
	}

	out := &SignUpOutcome{
		User:                 res.User.ToUser(),
		Session:              res.Session,
		ConfirmationRequired: res.Session == nil,
		CodeVerifier:         verifier,
		Notice:               Notice{Level: NoticeSuccess, Message: "Account created successfully!"},
	}
	if res.Session != nil {
		user, err := sessionUser(res.Session)
		if err != nil {
			return nil, err
		}
		if out.User == nil {
			out.User = user
		}
		if err := s.signIn(user.ID, user.Email, res.Session); err != nil {
			return nil, err
		}
	} else {
		out.Notice.Message = "Account created successfully! Check your email to confirm your account."
	}
	return out, nil
}

// ExchangeCode 处理邮箱验证回调
func (s *AuthService) ExchangeCode(ctx context.Context, code, codeVerifier string) (*AuthResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperr.Unauthorized("verification_failed")
	}
	sess, err := s.provider.ExchangeCode(ctx, code, codeVerifier)
	if err != nil {
		s.logger.Warn("Code exchange failed", zap.Error(err))
		return nil, identityError(err, "verification_failed")
	}
	user, err := sessionUser(sess)
	if err != nil {
		return nil, err
	}
	if err := s.signIn(user.ID, user.Email, sess); err != nil {
		return nil, err
	}
	return &AuthResult{Session: sess, User: user}, nil
}

// Refresh 刷新令牌；userHint 为旧访问令牌中的用户 ID，可为空
// 刷新失败时会话进入 signed_out
func (s *AuthService) Refresh(ctx context.Context, userHint, refreshToken string) (*AuthResult, error) {
	var machine *session.Machine
	if userHint != "" {
		machine = s.sessions.GetOrCreate(userHint)
		if machine.CanTransition(session.EventRefresh) {
			_ = machine.Trigger(session.EventRefresh)
		}
	}

	sess, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		if machine != nil && machine.CurrentState() == session.StateRefreshing {
			_ = machine.Trigger(session.EventRefreshFailed)
		}
		s.logger.Info("Token refresh failed", zap.String("user_id", userHint), zap.Error(err))
		return nil, identityError(err, "Session expired. Please sign in again.")
	}

	user, err := sessionUser(sess)
	if err != nil {
		return nil, err
	}
	if machine == nil || userHint != user.ID {
		machine = s.sessions.GetOrCreate(user.ID)
	}

	switch machine.CurrentState() {
	case session.StateSignedOut:
		err = machine.Trigger(session.EventSignIn)
	case session.StateSignedIn:
		if err = machine.Trigger(session.EventRefresh); err == nil {
			err = machine.Trigger(session.EventTokenRefreshed)
		}
	case session.StateRefreshing:
		err = machine.Trigger(session.EventTokenRefreshed)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to update session", err)
	}
	s.touch(machine, user.Email, sess)
	return &AuthResult{Session: sess, User: user}, nil
}

// Logout 注销会话，清除客户端缓存
func (s *AuthService) Logout(ctx context.Context, userID, accessToken string) error {
	if accessToken != "" {
		if err := s.provider.SignOut(ctx, accessToken); err != nil {
			s.logger.Warn("Identity sign out failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	if userID == "" {
		return nil
	}

	machine := s.sessions.GetOrCreate(userID)
	if machine.CanTransition(session.EventSignOut) {
		if err := machine.Trigger(session.EventSignOut); err != nil {
			return apperr.Wrap(apperr.KindInternal, "Failed to sign out", err)
		}
		return nil
	}

	// 会话已是 signed_out（例如服务重启后），仍然清除缓存并通知
	s.clearState(userID)
	s.notifier.SendToUser(userID, ws.MsgTypeStateCleared, nil)
	s.notifier.SendToUser(userID, ws.MsgTypeSession, ws.SessionEvent{Event: session.NotifySignedOut, Redirect: LoginPath})
	return nil
}

// Authenticate 校验访问令牌并返回用户
// 登出之前签发的令牌视为无效
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*models.User, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperr.Unauthorized("missing token")
	}

	var (
		payload  *identity.UserPayload
		issuedAt time.Time
	)
	if s.verifier != nil {
		claims, err := s.verifier.Verify(rawToken)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUnauthorized, "invalid token", err)
		}
		payload = claims.User()
		if claims.IssuedAt != nil {
			issuedAt = claims.IssuedAt.Time
		}
	} else {
		u, err := s.provider.GetUser(ctx, rawToken)
		if err != nil {
			return nil, identityError(err, "invalid token")
		}
		payload = u
	}

	user := payload.ToUser()
	if user == nil || user.ID == "" {
		return nil, apperr.Unauthorized("invalid token")
	}
	machine, ok := s.sessions.Get(user.ID)
	if ok && machine.CurrentState() == session.StateSignedOut {
		if !issuedAt.IsZero() && !issuedAt.After(machine.GetState().Since) {
			return nil, apperr.Unauthorized("session signed out")
		}
	}
	if !ok || machine.CurrentState() == session.StateSignedOut {
		// 服务重启后恢复会话
		machine = s.sessions.GetOrCreate(user.ID)
		if machine.CanTransition(session.EventSignIn) {
			if err := machine.Trigger(session.EventSignIn); err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, "Failed to restore session", err)
			}
		}
		machine.UpdateState(func(st *session.State) { st.Email = user.Email })
	}
	return user, nil
}

// CurrentSession 返回用户的会话状态
func (s *AuthService) CurrentSession(userID string) *session.State {
	if m, ok := s.sessions.Get(userID); ok {
		return m.GetState()
	}
	return &session.State{UserID: userID, CurrentState: session.StateSignedOut}
}

// Profile 获取个人资料
func (s *AuthService) Profile(ctx context.Context, accessToken string) (*models.User, error) {
	u, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		return nil, identityError(err, "Failed to load profile")
	}
	return u.ToUser(), nil
}

// UpdateProfile 更新个人资料
func (s *AuthService) UpdateProfile(ctx context.Context, accessToken string, in ProfileInput) (*models.User, Notice, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, Notice{}, validationError(err)
	}

	metadata := map[string]any{"name": in.Name, "full_name": in.Name}
	if in.Avatar != "" {
		metadata["avatar_url"] = strings.TrimSpace(in.Avatar)
	}
	u, err := s.provider.UpdateUser(ctx, accessToken, metadata)
	if err != nil {
		return nil, Notice{}, identityError(err, "Failed to update profile")
	}
	return u.ToUser(), Notice{Level: NoticeSuccess, Message: "Profile updated successfully"}, nil
}

func (s *AuthService) signIn(userID, email string, sess *identity.Session) error {
	machine := s.sessions.GetOrCreate(userID)
	if err := machine.Trigger(session.EventSignIn); err != nil {
		return apperr.Wrap(apperr.KindInternal, "Failed to start session", err)
	}
	s.touch(machine, email, sess)
	return nil
}

func (s *AuthService) touch(machine *session.Machine, email string, sess *identity.Session) {
	machine.UpdateState(func(st *session.State) {
		st.Email = email
		st.ExpiresAt = sess.Expiry()
	})
}

// sessionUser 取出会话中的用户
func sessionUser(sess *identity.Session) (*models.User, error) {
	if sess == nil || sess.User == nil || sess.User.ID == "" {
		return nil, apperr.Internal("Identity provider returned no user")
	}
	return sess.User.ToUser(), nil
}

// identityError 映射身份服务错误
func identityError(err error, fallback string) error {
	switch {
	case errors.Is(err, identity.ErrRateLimited):
		return apperr.Wrap(apperr.KindRateLimited, "Too many attempts. Please try again later.", err)
	case errors.Is(err, identity.ErrEmailNotConfirmed):
		return apperr.Wrap(apperr.KindIdentity, "Please confirm your email address before signing in.", err)
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, identity.ErrUnauthorized):
		return apperr.Wrap(apperr.KindUnauthorized, fallback, err)
	}

	var pe *identity.ProviderError
	if errors.As(err, &pe) && pe.StatusCode >= 400 && pe.StatusCode < 500 {
		return apperr.Wrap(apperr.KindValidation, pe.Message, err)
	}
	return apperr.Wrap(apperr.KindIdentity, fallback, err)
}
