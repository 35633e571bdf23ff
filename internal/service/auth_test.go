package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/evroute/internal/api/identity"
	"github.com/langchou/evroute/internal/apperr"
	"github.com/langchou/evroute/internal/models"
	"github.com/langchou/evroute/internal/repository"
	"github.com/langchou/evroute/internal/session"
	"github.com/langchou/evroute/pkg/ws"
)

const testSecret = "test-secret"

type fakeProvider struct {
	session    *identity.Session
	signUp     *identity.SignUpResult
	user       *identity.UserPayload
	err        error
	refreshErr error

	redirectTo string
	challenge  string
	metadata   map[string]any
	signedOut  []string
}

func (f *fakeProvider) SignInWithPassword(context.Context, string, string) (*identity.Session, error) {
	return f.session, f.err
}

func (f *fakeProvider) SignUp(_ context.Context, _, _, redirectTo, challenge string, metadata map[string]any) (*identity.SignUpResult, error) {
	f.redirectTo = redirectTo
	f.challenge = challenge
	f.metadata = metadata
	return f.signUp, f.err
}

func (f *fakeProvider) ExchangeCode(context.Context, string, string) (*identity.Session, error) {
	return f.session, f.err
}

func (f *fakeProvider) Refresh(context.Context, string) (*identity.Session, error) {
	return f.session, f.refreshErr
}

func (f *fakeProvider) GetUser(context.Context, string) (*identity.UserPayload, error) {
	return f.user, f.err
}

func (f *fakeProvider) UpdateUser(_ context.Context, _ string, metadata map[string]any) (*identity.UserPayload, error) {
	f.metadata = metadata
	return f.user, f.err
}

func (f *fakeProvider) SignOut(_ context.Context, accessToken string) error {
	f.signedOut = append(f.signedOut, accessToken)
	return f.err
}

func testSession(userID string) *identity.Session {
	return &identity.Session{
		Token: identity.Token{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600, ExpiresAt: time.Now().Add(time.Hour).Unix()},
		User:  &identity.UserPayload{ID: userID, Email: userID + "@example.com"},
	}
}

func signedToken(t *testing.T, userID string, issuedAt time.Time) string {
	t.Helper()
	claims := identity.Claims{
		Email: userID + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func newAuth(p *fakeProvider) (*AuthService, *recordingNotifier, *repository.MemoryClientStateStore) {
	notifier := &recordingNotifier{}
	states := repository.NewMemoryClientStateStore()
	svc := NewAuthService(zap.NewNop(), p, identity.NewVerifier(testSecret), states, notifier, "http://localhost:3000/")
	return svc, notifier, states
}

func TestAuthService_Login(t *testing.T) {
	svc, notifier, _ := newAuth(&fakeProvider{session: testSession("u1")})

	res, err := svc.Login(context.Background(), LoginInput{Email: " u1@example.com ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, "u1", res.User.Name)
	assert.Equal(t, session.StateSignedIn, svc.CurrentSession("u1").CurrentState)
	assert.Equal(t, "u1@example.com", svc.CurrentSession("u1").Email)
	assert.Equal(t, []string{ws.MsgTypeSession}, notifier.types())
	assert.Equal(t, ws.SessionEvent{Event: session.NotifySignedIn}, notifier.sent[0].Data)
}

func TestAuthService_LoginErrors(t *testing.T) {
	tests := []struct {
		err  error
		kind apperr.Kind
		msg  string
	}{
		{identity.ErrInvalidCredentials, apperr.KindUnauthorized, "Invalid email or password"},
		{identity.ErrEmailNotConfirmed, apperr.KindIdentity, "Please confirm your email address before signing in."},
		{identity.ErrRateLimited, apperr.KindRateLimited, "Too many attempts. Please try again later."},
	}
	for _, tt := range tests {
		svc, _, _ := newAuth(&fakeProvider{err: tt.err})
		_, err := svc.Login(context.Background(), LoginInput{Email: "a@b.co", Password: "x"})
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, tt.kind, e.Kind)
		assert.Equal(t, tt.msg, e.Message)
	}

	svc, _, _ := newAuth(&fakeProvider{})
	_, err := svc.Login(context.Background(), LoginInput{Email: "not-an-email"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAuthService_SignUp(t *testing.T) {
	p := &fakeProvider{signUp: &identity.SignUpResult{User: &identity.UserPayload{ID: "u1", Email: "u1@example.com"}}}
	svc, _, _ := newAuth(p)

	_, err := svc.SignUp(context.Background(), SignUpInput{Email: "u1@example.com", Password: "secret1", ConfirmPassword: "secret2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Passwords do not match")

	_, err = svc.SignUp(context.Background(), SignUpInput{Email: "u1@example.com", Password: "abc", ConfirmPassword: "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password must be at least 6 characters")

	out, err := svc.SignUp(context.Background(), SignUpInput{Name: "Asha", Email: "u1@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)
	assert.True(t, out.ConfirmationRequired)
	assert.NotEmpty(t, out.CodeVerifier)
	assert.NotEmpty(t, p.challenge)
	assert.Equal(t, "http://localhost:3000/auth/callback", p.redirectTo)
	assert.Equal(t, map[string]any{"name": "Asha"}, p.metadata)
	assert.Equal(t, session.StateSignedOut, svc.CurrentSession("u1").CurrentState)
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{session: testSession("u1")}
	svc, notifier, states := newAuth(p)

	_, err := svc.Login(ctx, LoginInput{Email: "u1@example.com", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, "u1", "rt")
	require.NoError(t, err)
	assert.Equal(t, session.StateSignedIn, svc.CurrentSession("u1").CurrentState)

	require.NoError(t, states.Save(ctx, &models.ClientState{UserID: "u1", HasSearched: true}))
	require.NoError(t, svc.Logout(ctx, "u1", "at"))
	assert.Equal(t, []string{"at"}, p.signedOut)
	assert.Equal(t, session.StateSignedOut, svc.CurrentSession("u1").CurrentState)

	saved, err := states.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, saved.HasSearched)

	assert.Equal(t, []string{ws.MsgTypeSession, ws.MsgTypeSession, ws.MsgTypeStateCleared, ws.MsgTypeSession}, notifier.types())
	last := notifier.sent[len(notifier.sent)-1].Data
	assert.Equal(t, ws.SessionEvent{Event: session.NotifySignedOut, Redirect: LoginPath}, last)
}

func TestAuthService_RefreshFailureSignsOut(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{session: testSession("u1"), refreshErr: identity.ErrUnauthorized}
	svc, _, _ := newAuth(p)

	_, err := svc.Login(ctx, LoginInput{Email: "u1@example.com", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, "u1", "expired")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.Equal(t, session.StateSignedOut, svc.CurrentSession("u1").CurrentState)
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuth(&fakeProvider{session: testSession("u1")})

	_, err := svc.Authenticate(ctx, "")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = svc.Authenticate(ctx, "garbage")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	// 服务重启后首次请求恢复会话
	old := signedToken(t, "u1", time.Now().Add(-time.Minute))
	user, err := svc.Authenticate(ctx, old)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, session.StateSignedIn, svc.CurrentSession("u1").CurrentState)

	// 登出后旧令牌失效
	require.NoError(t, svc.Logout(ctx, "u1", ""))
	_, err = svc.Authenticate(ctx, old)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	fresh := signedToken(t, "u1", time.Now().Add(time.Second))
	_, err = svc.Authenticate(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, session.StateSignedIn, svc.CurrentSession("u1").CurrentState)
}

func TestAuthService_Profile(t *testing.T) {
	p := &fakeProvider{user: &identity.UserPayload{ID: "u1", Email: "u1@example.com", UserMetadata: map[string]any{"full_name": "Asha Rao"}}}
	svc, _, _ := newAuth(p)

	user, err := svc.Profile(context.Background(), "at")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", user.Name)

	_, _, err = svc.UpdateProfile(context.Background(), "at", ProfileInput{Name: " "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, notice, err := svc.UpdateProfile(context.Background(), "at", ProfileInput{Name: "Asha", Avatar: "https://img/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "Profile updated successfully", notice.Message)
	assert.Equal(t, map[string]any{"name": "Asha", "full_name": "Asha", "avatar_url": "https://img/a.png"}, p.metadata)
}

// sessionReadingNotifier 在推送时读取会话，模拟新连接拉取初始数据
type sessionReadingNotifier struct {
	svc    *AuthService
	states []string
}

func (n *sessionReadingNotifier) SendToUser(userID, msgType string, data any) {
	if msgType == ws.MsgTypeSession {
		n.states = append(n.states, n.svc.CurrentSession(userID).CurrentState)
	}
}

func TestAuthService_NotifierMayReadSession(t *testing.T) {
	ctx := context.Background()
	notifier := &sessionReadingNotifier{}
	svc := NewAuthService(zap.NewNop(), &fakeProvider{session: testSession("u1")}, identity.NewVerifier(testSecret),
		repository.NewMemoryClientStateStore(), notifier, "http://localhost:3000")
	notifier.svc = svc

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Login(ctx, LoginInput{Email: "u1@example.com", Password: "secret"})
		assert.NoError(t, err)
		assert.NoError(t, svc.Logout(ctx, "u1", ""))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session change notification blocked on the session lock")
	}
	assert.Equal(t, []string{session.StateSignedIn, session.StateSignedOut}, notifier.states)
}
