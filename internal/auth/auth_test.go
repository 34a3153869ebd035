package auth

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	a := New("test-password", 0)

	if a == nil {
		t.Fatal("expected auth to be created")
	}
	if a.password != "test-password" {
		t.Error("expected password to be set")
	}
	if a.TTL() != SessionExpiry {
		t.Errorf("expected default expiry, got %v", a.TTL())
	}
	if New("pw", time.Hour).TTL() != time.Hour {
		t.Error("expected custom expiry")
	}
}

func TestGeneratePassword_Format(t *testing.T) {
	pw := GeneratePassword()

	parts := strings.Split(pw, "-")
	if len(parts) != 3 {
		t.Errorf("expected 3 words separated by dashes, got %d parts: %s", len(parts), pw)
	}

	for _, part := range parts {
		found := false
		for _, word := range galaWords {
			if part == word {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("word %q not in galaWords list", part)
		}
	}
}

func TestLogin_ValidPassword(t *testing.T) {
	a := New("secret", 0)

	token, ok := a.Login("secret")
	if !ok {
		t.Fatal("expected login to succeed")
	}
	if token == "" {
		t.Error("expected non-empty token")
	}
	if !a.ValidateSession(token) {
		t.Error("expected session to be valid")
	}
}

func TestLogin_InvalidPassword(t *testing.T) {
	a := New("secret", 0)

	token, ok := a.Login("wrong")
	if ok || token != "" {
		t.Error("expected login to fail with empty token")
	}
}

func TestLogout_InvalidatesSession(t *testing.T) {
	a := New("secret", 0)
	token, _ := a.Login("secret")

	a.Logout(token)

	if a.ValidateSession(token) {
		t.Error("expected session to be invalid after logout")
	}
}

func TestValidateSession_ExpiredSession(t *testing.T) {
	a := New("secret", time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a.setClock(func() time.Time { return now })

	token, _ := a.Login("secret")
	judgeToken := a.LoginJudge(7)

	now = now.Add(2 * time.Minute)
	if a.ValidateSession(token) {
		t.Error("expected expired admin session to be invalid")
	}
	if _, ok := a.judges.lookup(judgeToken); ok {
		t.Error("expected expired judge session to be invalid")
	}
	if len(a.admins.entries) != 0 {
		t.Error("expected expired session to be removed")
	}
}

// TestJudgeAndAdminSessionsAreSeparate tests that a judge token does not open
// the admin API and the reverse
func TestJudgeAndAdminSessionsAreSeparate(t *testing.T) {
	a := New("secret", 0)
	judgeToken := a.LoginJudge(7)
	adminToken, _ := a.Login("secret")

	if a.ValidateSession(judgeToken) {
		t.Error("judge token accepted as admin session")
	}
	if _, ok := a.judges.lookup(adminToken); ok {
		t.Error("admin token accepted as judge session")
	}
}

func TestRequireAuthAPI_Returns401WithoutSession(t *testing.T) {
	a := New("secret", 0)
	handler := a.RequireAuthAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/galas", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"UNAUTHORIZED"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestRequireAuthAPI_AllowsValidSession(t *testing.T) {
	a := New("secret", 0)
	token, _ := a.Login("secret")
	called := false
	handler := a.RequireAuthAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/galas", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("expected handler to be called")
	}
}

// TestRequireJudgeAPI_PutsJudgeInContext tests that the judge ID reaches the handler
func TestRequireJudgeAPI_PutsJudgeInContext(t *testing.T) {
	a := New("secret", 0)
	token := a.LoginJudge(42)

	var got int
	handler := a.RequireJudgeAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = JudgeID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/judge/galas", nil)
	req.AddCookie(&http.Cookie{Name: JudgeCookieName, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != 42 {
		t.Errorf("expected judge 42 in context, got %d", got)
	}

	a.LogoutJudge(token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestSetJudgeCookie(t *testing.T) {
	a := New("secret", time.Hour)
	rec := httptest.NewRecorder()
	a.SetJudgeCookie(rec, "tok")

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != JudgeCookieName || c.Value != "tok" || !c.HttpOnly || c.MaxAge != 3600 {
		t.Errorf("unexpected cookie %+v", c)
	}
}

func TestClearSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearSessionCookie(rec, CookieName)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Errorf("expected a deleting cookie, got %+v", cookies)
	}
}

func TestGenerateAccessCode(t *testing.T) {
	code, err := GenerateAccessCode(bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7}))
	if err != nil {
		t.Fatalf("GenerateAccessCode failed: %v", err)
	}
	if code != "2345-6789" {
		t.Errorf("unexpected code %q", code)
	}

	if _, err := GenerateAccessCode(bytes.NewReader([]byte{1, 2})); err == nil {
		t.Error("expected error on short random source")
	}
}

func TestLoginQR(t *testing.T) {
	if got := LoginURL("http://gala.local/", "AB CD"); got != "http://gala.local/judge/login?code=AB+CD" {
		t.Errorf("unexpected URL %q", got)
	}
	png, err := LoginQR("http://gala.local", "2345-6789")
	if err != nil {
		t.Fatalf("LoginQR failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG data")
	}
}

func TestConcurrentSessionAccess(t *testing.T) {
	a := New("password", 0)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(id int) {
			token, _ := a.Login("password")
			a.ValidateSession(token)
			a.Logout(token)
			jt := a.LoginJudge(id)
			a.judges.lookup(jt)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
