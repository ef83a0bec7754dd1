package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/gestao-usuarios/backend/internal/auth"
	"github.com/gestao-usuarios/backend/internal/permissions"
)

const testPassword = "TestPass123!"

// newAuthServer mounts the auth routes on a chi router backed by gdb,
// matching the production setup in main.go.
func newAuthServer(t *testing.T, gdb *gorm.DB) *httptest.Server {
	t.Helper()

	sessions := auth.NewSessionManager(gdb)
	h := auth.NewHandler(gdb, sessions)

	r := chi.NewRouter()
	r.Mount("/auth", h.Routes())

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

// doJSON sends a JSON request and decodes the JSON response into a generic
// map. token, when non-empty, is sent as a bearer credential.
func doJSON(t *testing.T, method, url string, body any, token string) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func login(t *testing.T, ts *httptest.Server, username, password string) (int, map[string]any) {
	t.Helper()
	return doJSON(t, http.MethodPost, ts.URL+"/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
}

func TestLogin_Success(t *testing.T) {
	gdb := newTestDB(t)
	ts := newAuthServer(t, gdb)
	user := createTestUser(t, gdb, permissions.RoleLeitura, true)

	status, body := login(t, ts, user.Username, testPassword)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}

	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("expected a token in the response")
	}

	expiresAt, err := time.Parse(time.RFC3339, body["expires_at"].(string))
	if err != nil {
		t.Fatalf("failed to parse expires_at: %v", err)
	}
	want := time.Now().UTC().Add(auth.SessionTTL)
	if expiresAt.Before(want.Add(-time.Minute)) || expiresAt.After(want.Add(time.Minute)) {
		t.Errorf("expires_at = %v, want about %v", expiresAt, want)
	}

	// Successful login must record last_login.
	var stored auth.User
	if err := gdb.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if stored.LastLogin == nil {
		t.Error("last_login not set after login")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	gdb := newTestDB(t)
	ts := newAuthServer(t, gdb)
	user := createTestUser(t, gdb, permissions.RoleLeitura, true)

	if status, _ := login(t, ts, user.Username, "wrong-password"); status != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", status)
	}
	if status, _ := login(t, ts, "nobody", testPassword); status != http.StatusUnauthorized {
		t.Errorf("unknown username: expected 401, got %d", status)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	gdb := newTestDB(t)
	ts := newAuthServer(t, gdb)
	user := createTestUser(t, gdb, permissions.RoleAdministrador, false)

	status, _ := login(t, ts, user.Username, testPassword)
	if status != http.StatusUnauthorized {
		t.Errorf("inactive user: expected 401, got %d", status)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	gdb := newTestDB(t)
	ts := newAuthServer(t, gdb)

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/login", map[string]string{"username": "alice"}, "")
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestLogout_InvalidatesSession(t *testing.T) {
	gdb := newTestDB(t)
	ts := newAuthServer(t, gdb)
	user := createTestUser(t, gdb, permissions.RoleLeitura, true)

	_, body := login(t, ts, user.Username, testPassword)
	token := body["token"].(string)

	if status, _ := doJSON(t, http.MethodGet, ts.URL+"/auth/me", nil, token); status != http.StatusOK {
		t.Fatalf("me before logout: expected 200, got %d", status)
	}

	if status, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/logout", nil, token); status != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", status)
	}

	if status, _ := doJSON(t, http.MethodGet, ts.URL+"/auth/me", nil, token); status != http.StatusUnauthorized {
		t.Errorf("me after logout: expected 401, got %d", status)
	}
}

func TestMe(t *testing.T) {
	gdb := newTestDB(t)
	ts := newAuthServer(t, gdb)
	user := createTestUser(t, gdb, permissions.RoleEdicao, true)

	_, body := login(t, ts, user.Username, testPassword)
	token := body["token"].(string)

	status, me := doJSON(t, http.MethodGet, ts.URL+"/auth/me", nil, token)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if me["username"] != user.Username {
		t.Errorf("username = %v, want %q", me["username"], user.Username)
	}
	if me["role"] != permissions.RoleEdicao {
		t.Errorf("role = %v, want %q", me["role"], permissions.RoleEdicao)
	}
}

func TestVerifyToken(t *testing.T) {
	gdb := newTestDB(t)
	ts := newAuthServer(t, gdb)
	user := createTestUser(t, gdb, permissions.RoleLeitura, true)

	_, body := login(t, ts, user.Username, testPassword)
	token := body["token"].(string)

	status, verified := doJSON(t, http.MethodPost, ts.URL+"/auth/verify-token", map[string]string{"token": token}, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if verified["valid"] != true {
		t.Errorf("valid = %v, want true", verified["valid"])
	}

	status, verified = doJSON(t, http.MethodPost, ts.URL+"/auth/verify-token", map[string]string{"token": "bogus"}, "")
	if status != http.StatusUnauthorized || verified["valid"] != false {
		t.Errorf("bogus token: got status %d valid %v", status, verified["valid"])
	}

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/auth/verify-token", map[string]string{}, "")
	if status != http.StatusBadRequest {
		t.Errorf("missing token: expected 400, got %d", status)
	}
}

func TestVerifyToken_ExpiredDoesNotMutate(t *testing.T) {
	gdb := newTestDB(t)
	ts := newAuthServer(t, gdb)
	user := createTestUser(t, gdb, permissions.RoleLeitura, true)

	sessions := auth.NewSessionManager(gdb)
	session, err := sessions.Create(user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	past := time.Now().UTC().Add(-time.Minute)
	if err := gdb.Model(session).Update("expires_at", past).Error; err != nil {
		t.Fatalf("failed to age session: %v", err)
	}

	status, verified := doJSON(t, http.MethodPost, ts.URL+"/auth/verify-token", map[string]string{"token": session.Token}, "")
	if status != http.StatusUnauthorized || verified["valid"] != false {
		t.Errorf("expired token: got status %d valid %v", status, verified["valid"])
	}

	var stored auth.Session
	if err := gdb.First(&stored, session.ID).Error; err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	if !stored.IsActive {
		t.Error("verify-token mutated an expired session record")
	}
}

func TestRefreshToken(t *testing.T) {
	gdb := newTestDB(t)
	ts := newAuthServer(t, gdb)
	user := createTestUser(t, gdb, permissions.RoleLeitura, true)

	_, body := login(t, ts, user.Username, testPassword)
	oldToken := body["token"].(string)

	status, refreshed := doJSON(t, http.MethodPost, ts.URL+"/auth/refresh-token", nil, oldToken)
	if status != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", status)
	}
	newToken, _ := refreshed["token"].(string)
	if newToken == "" || newToken == oldToken {
		t.Fatalf("expected a fresh token, got %q", newToken)
	}

	if status, _ := doJSON(t, http.MethodGet, ts.URL+"/auth/me", nil, oldToken); status != http.StatusUnauthorized {
		t.Errorf("old token after refresh: expected 401, got %d", status)
	}
	if status, _ := doJSON(t, http.MethodGet, ts.URL+"/auth/me", nil, newToken); status != http.StatusOK {
		t.Errorf("new token: expected 200, got %d", status)
	}
}

func TestChangePassword(t *testing.T) {
	gdb := newTestDB(t)
	ts := newAuthServer(t, gdb)
	user := createTestUser(t, gdb, permissions.RoleLeitura, true)

	_, body := login(t, ts, user.Username, testPassword)
	token := body["token"].(string)

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/change-password", map[string]string{
		"current_password": "wrong",
		"new_password":     "NewPass456!",
	}, token)
	if status != http.StatusBadRequest {
		t.Fatalf("wrong current password: expected 400, got %d", status)
	}

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/auth/change-password", map[string]string{
		"current_password": testPassword,
		"new_password":     "NewPass456!",
	}, token)
	if status != http.StatusOK {
		t.Fatalf("change password: expected 200, got %d", status)
	}

	// The old plaintext must stop working immediately.
	if status, _ := login(t, ts, user.Username, testPassword); status != http.StatusUnauthorized {
		t.Errorf("old password still accepted: got %d", status)
	}
	if status, _ := login(t, ts, user.Username, "NewPass456!"); status != http.StatusOK {
		t.Errorf("new password rejected: got %d", status)
	}
}
