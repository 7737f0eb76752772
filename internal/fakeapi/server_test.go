package fakeapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/neverbounce-go/internal/fakeapi"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, cfg fakeapi.Config) *fakeapi.Server {
	t.Helper()
	if cfg.Credentials == nil {
		cfg.Credentials = map[string]string{"key": "secret"}
	}
	s, err := fakeapi.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func post(t *testing.T, h http.Handler, path string, form url.Values, auth ...string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if len(auth) == 2 {
		req.SetBasicAuth(auth[0], auth[1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s response %q: %v", path, w.Body.String(), err)
	}
	return body
}

func issueToken(t *testing.T, h http.Handler) string {
	t.Helper()
	body := post(t, h, "/v3/access_token", url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {"basic user"},
	}, "key", "secret")
	tok, _ := body["access_token"].(string)
	if tok == "" {
		t.Fatalf("no access token in %v", body)
	}
	return tok
}

func TestAccessToken(t *testing.T) {
	s := newTestServer(t, fakeapi.Config{})

	tests := []struct {
		name      string
		form      url.Values
		auth      []string
		wantError string
	}{
		{
			name: "valid",
			form: url.Values{"grant_type": {"client_credentials"}, "scope": {"basic user"}},
			auth: []string{"key", "secret"},
		},
		{
			name:      "wrong secret",
			form:      url.Values{"grant_type": {"client_credentials"}},
			auth:      []string{"key", "nope"},
			wantError: "invalid_client",
		},
		{
			name:      "no credentials",
			form:      url.Values{"grant_type": {"client_credentials"}},
			wantError: "invalid_client",
		},
		{
			name:      "wrong grant",
			form:      url.Values{"grant_type": {"password"}},
			auth:      []string{"key", "secret"},
			wantError: "unsupported_grant_type",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := post(t, s.Handler(), "/v3/access_token", tc.form, tc.auth...)
			if tc.wantError == "" {
				if body["access_token"] == nil || body["access_token"] == "" {
					t.Errorf("expected access_token, got %v", body)
				}
				return
			}
			if body["error"] != tc.wantError {
				t.Errorf("error: got %v, want %s", body["error"], tc.wantError)
			}
			if body["error_description"] == nil {
				t.Error("expected error_description")
			}
		})
	}
}

func TestRequireToken(t *testing.T) {
	s := newTestServer(t, fakeapi.Config{Credits: 10})
	h := s.Handler()

	body := post(t, h, "/v3/account", url.Values{"access_token": {"bogus"}})
	if body["success"] != false || body["msg"] != "Authentication failed" {
		t.Errorf("bogus token: got %v", body)
	}

	tok := issueToken(t, h)
	body = post(t, h, "/v3/account", url.Values{"access_token": {tok}})
	if body["success"] != true || body["credits"] != "10" {
		t.Errorf("valid token: got %v", body)
	}

	if err := s.ExpireTokens(); err != nil {
		t.Fatal(err)
	}
	body = post(t, h, "/v3/account", url.Values{"access_token": {tok}})
	if body["msg"] != "Authentication failed" {
		t.Errorf("expired token: got %v", body)
	}
}

func TestSingle(t *testing.T) {
	s := newTestServer(t, fakeapi.Config{Credits: 100})
	h := s.Handler()
	tok := issueToken(t, h)

	tests := []struct {
		email string
		want  float64
	}{
		{"alice@example.com", fakeapi.ResultValid},
		{"not-an-email", fakeapi.ResultInvalid},
		{"bob@localhost", fakeapi.ResultInvalid},
		{"temp@mailinator.com", fakeapi.ResultDisposable},
		{"any@catchall.test", fakeapi.ResultCatchall},
		{"who@unknown.test", fakeapi.ResultUnknown},
	}
	for _, tc := range tests {
		body := post(t, h, "/v3/single", url.Values{"access_token": {tok}, "email": {tc.email}})
		if body["success"] != true {
			t.Errorf("%s: unexpected failure %v", tc.email, body)
			continue
		}
		if body["result"] != tc.want {
			t.Errorf("%s: result %v, want %v", tc.email, body["result"], tc.want)
		}
	}
	if got := s.SingleChecks(); got != int64(len(tests)) {
		t.Errorf("SingleChecks: got %d, want %d", got, len(tests))
	}

	body := post(t, h, "/v3/single", url.Values{"access_token": {tok}})
	if body["success"] != false || !strings.Contains(body["msg"].(string), "email") {
		t.Errorf("missing email: got %v", body)
	}
}

func TestSingle_insufficientCredits(t *testing.T) {
	s := newTestServer(t, fakeapi.Config{Credits: 1})
	h := s.Handler()
	tok := issueToken(t, h)

	form := url.Values{"access_token": {tok}, "email": {"a@example.com"}}
	if body := post(t, h, "/v3/single", form); body["success"] != true {
		t.Fatalf("first check failed: %v", body)
	}
	body := post(t, h, "/v3/single", form)
	if body["success"] != false || body["msg"] != "Insufficient credits" {
		t.Errorf("expected insufficient credits, got %v", body)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, fakeapi.Config{Credits: 10, RateLimitRPS: 1, RateLimitBurst: 1})
	h := s.Handler()
	tok := issueToken(t, h)

	form := url.Values{"access_token": {tok}}
	if body := post(t, h, "/v3/account", form); body["success"] != true {
		t.Fatalf("first request failed: %v", body)
	}
	body := post(t, h, "/v3/account", form)
	if body["success"] != false || body["msg"] != "Rate limit exceeded" {
		t.Errorf("expected rate limit, got %v", body)
	}
}

func TestDebugRoutesDisabledByDefault(t *testing.T) {
	s := newTestServer(t, fakeapi.Config{})
	h := s.Handler()
	tok := issueToken(t, h)

	req := httptest.NewRequest(http.MethodPost, "/v3/debug/malformed", strings.NewReader(url.Values{"access_token": {tok}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	s := newTestServer(t, fakeapi.Config{})

	for _, path := range []string{"/healthz", "/metrics"} {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, w.Code)
		}
	}
}
