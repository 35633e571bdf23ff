package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionBody = `{
	"access_token": "at-1",
	"refresh_token": "rt-1",
	"token_type": "bearer",
	"expires_in": 3600,
	"user": {"id": "u-1", "email": "asha@example.com", "user_metadata": {"full_name": "Asha Rao"}}
}`

func TestSignInWithPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "asha@example.com", body["email"])
		w.Write([]byte(sessionBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon")
	s, err := c.SignInWithPassword(context.Background(), "asha@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "at-1", s.AccessToken)
	assert.Equal(t, "rt-1", s.RefreshToken)
	assert.False(t, s.IsExpired())
	assert.Equal(t, "Asha Rao", s.User.ToUser().Name)
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"invalid credentials new format", 400, `{"code": 400, "error_code": "invalid_credentials", "msg": "Invalid login credentials"}`, ErrInvalidCredentials},
		{"invalid credentials old format", 400, `{"error": "invalid_grant", "error_description": "Invalid login credentials"}`, ErrInvalidCredentials},
		{"email not confirmed", 400, `{"error_code": "email_not_confirmed", "msg": "Email not confirmed"}`, ErrEmailNotConfirmed},
		{"rate limited", 429, `{"msg": "slow down"}`, ErrRateLimited},
		{"bad jwt", 401, `{"msg": "invalid JWT"}`, ErrUnauthorized},
		{"bad refresh token", 400, `{"error_description": "Invalid Refresh Token: Refresh Token Not Found"}`, ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.status, []byte(tt.body)), tt.want)
		})
	}

	err := classify(422, []byte(`{"error_code": "weak_password", "msg": "Password should be at least 6 characters"}`))
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 422, pe.StatusCode)
	assert.Equal(t, "weak_password", pe.Code)

	err = classify(500, nil)
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Internal Server Error", pe.Message)
}

func TestSignUp_ConfirmationRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signup", r.URL.Path)
		assert.Equal(t, "http://localhost:3000/auth/callback", r.URL.Query().Get("redirect_to"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "challenge", body["code_challenge"])
		assert.Equal(t, "s256", body["code_challenge_method"])
		w.Write([]byte(`{"id": "u-2", "email": "new@example.com", "user_metadata": {}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	res, err := c.SignUp(context.Background(), "new@example.com", "secret1", "http://localhost:3000/auth/callback", "challenge", nil)
	require.NoError(t, err)
	assert.Nil(t, res.Session)
	assert.Equal(t, "u-2", res.User.ID)
}

func TestSignUp_ImmediateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sessionBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	res, err := c.SignUp(context.Background(), "asha@example.com", "secret1", "", "", map[string]any{"name": "Asha"})
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, "at-1", res.Session.AccessToken)
}

func TestExchangeCodeAndRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Query().Get("grant_type") {
		case "pkce":
			assert.Equal(t, "code-1", body["auth_code"])
			assert.Equal(t, "verifier-1", body["code_verifier"])
		case "refresh_token":
			assert.Equal(t, "rt-1", body["refresh_token"])
		default:
			t.Errorf("unexpected grant type %q", r.URL.Query().Get("grant_type"))
		}
		w.Write([]byte(sessionBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.ExchangeCode(context.Background(), "code-1", "verifier-1")
	require.NoError(t, err)
	_, err = c.Refresh(context.Background(), "rt-1")
	require.NoError(t, err)

	_, err = c.Refresh(context.Background(), "")
	assert.Error(t, err)
}

func TestUserEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/user":
			w.Write([]byte(`{"id": "u-1", "email": "asha@example.com"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/user":
			var body map[string]map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "New Name", body["data"]["name"])
			w.Write([]byte(`{"id": "u-1", "email": "asha@example.com", "user_metadata": {"name": "New Name"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon")
	u, err := c.GetUser(context.Background(), "at-1")
	require.NoError(t, err)
	assert.Equal(t, "asha", u.ToUser().Name)

	u, err = c.UpdateUser(context.Background(), "at-1", map[string]any{"name": "New Name"})
	require.NoError(t, err)
	assert.Equal(t, "New Name", u.ToUser().Name)

	require.NoError(t, c.SignOut(context.Background(), "at-1"))
}

func TestNewCodeVerifier(t *testing.T) {
	v1, c1, err := NewCodeVerifier()
	require.NoError(t, err)
	v2, _, err := NewCodeVerifier()
	require.NoError(t, err)

	assert.NotEqual(t, v1, v2)
	assert.Len(t, v1, 43)
	assert.NotEqual(t, v1, c1)
}

func TestToUser_FallbackChains(t *testing.T) {
	tests := []struct {
		meta       map[string]any
		wantName   string
		wantAvatar string
	}{
		{map[string]any{"name": "A", "full_name": "B", "avatar_url": "x.png", "picture": "y.png"}, "A", "x.png"},
		{map[string]any{"full_name": "B", "display_name": "C", "picture": "y.png"}, "B", "y.png"},
		{map[string]any{"display_name": "C"}, "C", ""},
		{map[string]any{"name": "  "}, "driver", ""},
		{nil, "driver", ""},
	}
	for _, tt := range tests {
		u := (&UserPayload{ID: "u", Email: "driver@example.com", UserMetadata: tt.meta}).ToUser()
		assert.Equal(t, tt.wantName, u.Name)
		assert.Equal(t, tt.wantAvatar, u.Avatar)
	}

	var nilPayload *UserPayload
	assert.Nil(t, nilPayload.ToUser())
}

func TestToken_Expiry(t *testing.T) {
	tok := Token{ExpiresIn: 3600, CreatedAt: time.Now().Add(-2 * time.Hour)}
	assert.True(t, tok.IsExpired())

	tok = Token{ExpiresAt: time.Now().Add(time.Hour).Unix()}
	assert.False(t, tok.IsExpired())
}
