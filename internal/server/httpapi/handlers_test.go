package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/userdir/internal/logging"
	"github.com/dmitrijs2005/userdir/internal/server/config"
	"github.com/dmitrijs2005/userdir/internal/server/refreshtokens"
	"github.com/dmitrijs2005/userdir/internal/server/users"
)

type testServer struct {
	router http.Handler
	repo   *users.MemoryRepository
}

func newTestServer(t *testing.T, mode string) *testServer {
	t.Helper()

	cfg := &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}

	repo := users.NewMemoryRepository()
	service := users.NewService(repo, refreshtokens.NewMemoryRepository(), cfg)

	var authenticator Authenticator
	if mode == config.AuthModeHeader {
		authenticator = NewCredentialAuthenticator(repo)
	} else {
		authenticator = NewTokenAuthenticator(repo, cfg.SecretKey)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	srv := NewHTTPServer(":0", logger, service, authenticator)
	return &testServer{router: srv.Router(), repo: repo}
}

func (ts *testServer) seed(t *testing.T, u *users.User) {
	t.Helper()
	if u.ID == "" {
		u.ID = "id-" + u.Login
	}
	if u.CreatedOn.IsZero() {
		u.CreatedOn = time.Now().Add(-24 * time.Hour)
	}
	if u.CreatedBy == "" {
		u.CreatedBy = "Admin"
	}
	require.NoError(t, ts.repo.Add(context.Background(), u))
}

func (ts *testServer) seedAdmin(t *testing.T) {
	ts.seed(t, &users.User{Login: "Admin", Password: "Admin123", Name: "Administrator", Gender: users.GenderUnspecified, Admin: true})
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// accessToken logs the user in through the API and returns a Bearer header.
func (ts *testServer) authHeader(t *testing.T, login, password string) map[string]string {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"login": login, "password": password,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	return map[string]string{"Authorization": "Bearer " + pair.AccessToken}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestLoginEndpoint(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seedAdmin(t)

	w := ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"login": "Admin", "password": "Admin123",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])
}

func TestLoginEndpoint_WrongPassword(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seedAdmin(t)

	w := ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"login": "Admin", "password": "nope1",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "Invalid login or password")
}

func TestRefreshEndpoint(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seedAdmin(t)

	w := ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"login": "Admin", "password": "Admin123",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	refreshToken := decodeBody(t, w)["refreshToken"].(string)

	w = ts.do(t, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, refreshToken, decodeBody(t, w)["refreshToken"])

	// rotated token cannot be replayed
	w = ts.do(t, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateUserEndpoint(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seedAdmin(t)
	headers := ts.authHeader(t, "Admin", "Admin123")

	w := ts.do(t, http.MethodPost, "/api/users/create", map[string]any{
		"login": "alice", "password": "pass1", "name": "Alice", "gender": 1,
	}, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	created := body["createdUser"].(map[string]any)
	assert.Equal(t, "alice", created["login"])
	assert.Equal(t, "Alice", created["name"])
	assert.Equal(t, float64(1), created["gender"])
	assert.Equal(t, false, created["admin"])
}

func TestCreateUserEndpoint_Statuses(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seedAdmin(t)
	ts.seed(t, &users.User{Login: "bob", Password: "pass1", Name: "Bob"})
	admin := ts.authHeader(t, "Admin", "Admin123")
	bob := ts.authHeader(t, "bob", "pass1")

	tests := []struct {
		name    string
		body    map[string]any
		headers map[string]string
		status  int
	}{
		{name: "duplicate login", body: map[string]any{"login": "bob", "password": "p1", "name": "Bob"}, headers: admin, status: http.StatusConflict},
		{name: "duplicate login unauthenticated", body: map[string]any{"login": "bob", "password": "p1", "name": "Bob"}, headers: nil, status: http.StatusConflict},
		{name: "no token", body: map[string]any{"login": "carol", "password": "p1", "name": "Carol"}, headers: nil, status: http.StatusUnauthorized},
		{name: "non-admin", body: map[string]any{"login": "carol", "password": "p1", "name": "Carol"}, headers: bob, status: http.StatusForbidden},
		{name: "invalid login", body: map[string]any{"login": "a b", "password": "p1", "name": "Al"}, headers: admin, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/users/create", tt.body, tt.headers)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestUpdateInfoEndpoint(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seed(t, &users.User{Login: "bob", Password: "pass1", Name: "Bob"})
	headers := ts.authHeader(t, "bob", "pass1")

	w := ts.do(t, http.MethodPut, "/api/users/update/info", map[string]any{
		"targetLogin": "bob", "name": "Robert", "gender": 1,
	}, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated := decodeBody(t, w)["updated"].(map[string]any)
	assert.Equal(t, "Robert", updated["name"])
}

func TestChangePasswordEndpoint_PlainTextResponse(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seed(t, &users.User{Login: "bob", Password: "pass1", Name: "Bob"})
	headers := ts.authHeader(t, "bob", "pass1")

	w := ts.do(t, http.MethodPut, "/api/users/update/password", map[string]any{
		"targetLogin": "bob", "newPassword": "pass2",
	}, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Password changed successfully.", w.Body.String())
}

func TestChangePasswordEndpoint_OtherUserForbidden(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seed(t, &users.User{Login: "bob", Password: "pass1", Name: "Bob"})
	ts.seed(t, &users.User{Login: "carol", Password: "pass1", Name: "Carol"})
	headers := ts.authHeader(t, "bob", "pass1")

	w := ts.do(t, http.MethodPut, "/api/users/update/password", map[string]any{
		"targetLogin": "carol", "newPassword": "pass2",
	}, headers)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "another user's password")
}

func TestChangeLoginEndpoint(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seed(t, &users.User{Login: "bob", Password: "pass1", Name: "Bob"})
	headers := ts.authHeader(t, "bob", "pass1")

	w := ts.do(t, http.MethodPut, "/api/users/update/login", map[string]any{
		"targetLogin": "bob", "newLogin": "bobby",
	}, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated := decodeBody(t, w)["updatedUser"].(map[string]any)
	assert.Equal(t, "bob", updated["oldLogin"])
	assert.Equal(t, "bobby", updated["newLogin"])
}

func TestActiveUsersEndpoint(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seedAdmin(t)
	headers := ts.authHeader(t, "Admin", "Admin123")

	w := ts.do(t, http.MethodGet, "/api/users/active", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Contains(t, body["message"], "Active users found")
	assert.Len(t, body["users"], 1)
}

func TestByLoginEndpoint(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seedAdmin(t)
	ts.seed(t, &users.User{Login: "bob", Password: "pass1", Name: "Bob"})
	headers := ts.authHeader(t, "Admin", "Admin123")

	w := ts.do(t, http.MethodGet, "/api/users/by-login/bob", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "Bob", body["name"])
	assert.Equal(t, true, body["isActive"])

	w = ts.do(t, http.MethodGet, "/api/users/by-login/ghost", nil, headers)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelfEndpoint(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seed(t, &users.User{Login: "bob", Password: "pass1", Name: "Bob"})
	headers := ts.authHeader(t, "bob", "pass1")

	w := ts.do(t, http.MethodGet, "/api/users/self", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob", decodeBody(t, w)["login"])

	// no token at all
	w = ts.do(t, http.MethodGet, "/api/users/self", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSelfEndpoint_RevokedBareForbidden(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seed(t, &users.User{Login: "bob", Password: "pass1", Name: "Bob"})
	headers := ts.authHeader(t, "bob", "pass1")

	// revoke after the token was issued
	ts.seedAdmin(t)
	admin := ts.authHeader(t, "Admin", "Admin123")
	w := ts.do(t, http.MethodDelete, "/api/users/bob", map[string]any{"softDelete": true}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/users/self", nil, headers)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestOlderThanEndpoint(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seedAdmin(t)
	old := time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)
	ts.seed(t, &users.User{Login: "old", Password: "pass1", Name: "Old", Birthday: &old})
	ts.seed(t, &users.User{Login: "young", Password: "pass1", Name: "Young"})
	headers := ts.authHeader(t, "Admin", "Admin123")

	w := ts.do(t, http.MethodGet, "/api/users/older-than/60", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["users"], 1)

	w = ts.do(t, http.MethodGet, "/api/users/older-than/200", nil, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/users/older-than/abc", nil, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seedAdmin(t)
	ts.seed(t, &users.User{Login: "dave", Password: "pass1", Name: "Dave"})
	headers := ts.authHeader(t, "Admin", "Admin123")

	w := ts.do(t, http.MethodDelete, "/api/users/dave", map[string]any{"softDelete": true}, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "soft-deleted")

	// second soft delete conflicts
	w = ts.do(t, http.MethodDelete, "/api/users/dave", map[string]any{"softDelete": true}, headers)
	assert.Equal(t, http.StatusConflict, w.Code)

	// hard delete removes the record
	w = ts.do(t, http.MethodDelete, "/api/users/dave", map[string]any{"softDelete": false}, headers)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/users/by-login/dave", nil, headers)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEndpoint_SelfBareForbidden(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seedAdmin(t)
	headers := ts.authHeader(t, "Admin", "Admin123")

	w := ts.do(t, http.MethodDelete, "/api/users/Admin", map[string]any{"softDelete": true}, headers)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestRestoreEndpoint(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seedAdmin(t)
	revoked := time.Now().Add(-time.Hour)
	ts.seed(t, &users.User{Login: "frank", Password: "pass1", Name: "Frank", RevokedOn: &revoked, RevokedBy: "Admin"})
	headers := ts.authHeader(t, "Admin", "Admin123")

	w := ts.do(t, http.MethodPut, "/api/users/restore/frank", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "restored")

	// already active now
	w = ts.do(t, http.MethodPut, "/api/users/restore/frank", nil, headers)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHeaderAuthMode(t *testing.T) {
	ts := newTestServer(t, config.AuthModeHeader)
	ts.seedAdmin(t)

	headers := map[string]string{"X-Login": "Admin", "X-Password": "Admin123"}
	w := ts.do(t, http.MethodGet, "/api/users/self", nil, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Admin", decodeBody(t, w)["login"])

	w = ts.do(t, http.MethodGet, "/api/users/self", nil, map[string]string{"X-Login": "Admin", "X-Password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenAuthenticator_InvalidToken(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seedAdmin(t)

	w := ts.do(t, http.MethodGet, "/api/users/self", nil, map[string]string{"Authorization": "Bearer not.a.token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenAuthenticator_TokenForRemovedUser(t *testing.T) {
	ts := newTestServer(t, config.AuthModeToken)
	ts.seedAdmin(t)
	ts.seed(t, &users.User{Login: "bob", Password: "pass1", Name: "Bob"})
	bob := ts.authHeader(t, "bob", "pass1")
	admin := ts.authHeader(t, "Admin", "Admin123")

	w := ts.do(t, http.MethodDelete, "/api/users/bob", map[string]any{"softDelete": false}, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/users/self", nil, bob)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
