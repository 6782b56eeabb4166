package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/model"
)

func ok(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func token(t *testing.T, iss *auth.Issuer, id string) string {
	t.Helper()
	tok, err := iss.Issue(&model.Account{ID: id, Email: "a@clinic.test", Role: model.RolePractitioner})
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

// ----- auth -----

func TestAuthRequired(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	other := auth.NewIssuer("other", time.Hour)

	var seen string
	h := Auth(iss, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + token(t, other, "u1"), http.StatusUnauthorized},
		{"valid", "Bearer " + token(t, iss, "u1"), http.StatusOK},
		{"lower case scheme", "bearer " + token(t, iss, "u1"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodPost, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && seen != "u1" {
				t.Errorf("user id = %q", seen)
			}
			if tt.want == http.StatusUnauthorized {
				var body map[string]string
				json.NewDecoder(rec.Body).Decode(&body)
				if body["message"] != msgAuthFailed {
					t.Errorf("body = %v", body)
				}
			}
		})
	}
}

func TestAuthOptional(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	var seen string
	var has bool
	h := Auth(iss, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, has = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || has {
		t.Fatalf("invalid token should pass through untouched: %d %v", rec.Code, has)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, iss, "u2"))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !has || seen != "u2" {
		t.Errorf("valid token not attached: %q %v", seen, has)
	}
}

// ----- rate limit -----

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()
	limited := 0
	rl.OnLimited = func() { limited++ }
	h := rl.Limit(http.HandlerFunc(ok))

	status := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/doctors/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if got := status("10.0.0.1:1234"); got != http.StatusOK {
			t.Fatalf("request %d: status %d", i, got)
		}
	}
	if got := status("10.0.0.1:5555"); got != http.StatusTooManyRequests {
		t.Fatalf("over burst: status %d, want 429", got)
	}
	if got := status("10.0.0.2:1234"); got != http.StatusOK {
		t.Errorf("other client limited: %d", got)
	}
	if limited != 1 {
		t.Errorf("limited = %d, want 1", limited)
	}
}

func TestRateLimitCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.get("a")
	rl.get("b")
	now = now.Add(time.Minute)
	rl.get("b")

	now = now.Add(rl.ttl)
	rl.cleanup()
	if got := rl.size(); got != 1 {
		t.Errorf("clients after cleanup = %d, want 1", got)
	}
	rl.Stop()
	rl.Stop()
}

// ----- logging / recovery -----

func TestLoggingIncludesAccount(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	iss := auth.NewIssuer("secret", time.Hour)
	h := Logging(log)(Auth(iss, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))

	req := httptest.NewRequest(http.MethodPost, "/patients/create-appointment", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, iss, "acct-1"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not json: %v (%s)", err, buf.String())
	}
	if entry["status"] != float64(201) || entry["account_id"] != "acct-1" || entry["method"] != "POST" {
		t.Errorf("entry = %v", entry)
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	h := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctors", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

// ----- metrics -----

type fakeHTTPRecorder struct {
	mu     sync.Mutex
	routes []string
	status []int
}

func (f *fakeHTTPRecorder) RecordHTTP(method, route string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, method+" "+route)
	f.status = append(f.status, status)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	m := &fakeHTTPRecorder{}
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/doctors/{id}", ok)

	for _, path := range []string{"/doctors/a", "/doctors/b", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	want := []string{"GET /doctors/{id}", "GET /doctors/{id}", "GET unmatched"}
	for i, w := range want {
		if m.routes[i] != w {
			t.Errorf("route[%d] = %q, want %q", i, m.routes[i], w)
		}
	}
	if m.status[2] != http.StatusNotFound {
		t.Errorf("unmatched status = %d", m.status[2])
	}
}

// ----- cors -----

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"https://clinic.test"})(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodOptions, "/patients/create-appointment", nil)
	req.Header.Set("Origin", "https://clinic.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://clinic.test" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/doctors", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}
