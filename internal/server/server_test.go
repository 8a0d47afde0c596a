package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testServer(t *testing.T) http.Handler {
	t.Helper()
	srv := New(Config{
		Build: BuildInfo{Version: "test", Commit: "none"},
		Auth:  testAuth(),
		Blobs: &fakeBlobStore{},
	})
	return srv.Handler()
}

func TestHealthEndpoint(t *testing.T) {
	h := testServer(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header on every response")
	}

	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Version != "test" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestReadyReportsUnavailableWithoutDatabase(t *testing.T) {
	h := testServer(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a database, got %d", rr.Code)
	}
}

func TestGuardedRoutesRedirectAnonymous(t *testing.T) {
	h := testServer(t)

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/"},
		{http.MethodPost, "/upload"},
		{http.MethodGet, "/file/all"},
		{http.MethodPost, "/create-folder"},
		{http.MethodGet, "/shared-folders"},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.target, nil))

		if rr.Code != http.StatusSeeOther {
			t.Errorf("%s %s: expected 303, got %d", tt.method, tt.target, rr.Code)
			continue
		}
		if loc := rr.Header().Get("Location"); loc != "/login" {
			t.Errorf("%s %s: expected redirect to /login, got %q", tt.method, tt.target, loc)
		}
	}
}

func TestMetricsEndpointIsOpen(t *testing.T) {
	h := testServer(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var snap map[string]int64
	if err := json.NewDecoder(rr.Body).Decode(&snap); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if _, ok := snap["requests_total"]; !ok {
		t.Error("expected requests_total counter in metrics snapshot")
	}
}

func TestLoginPageIsReachableAnonymously(t *testing.T) {
	h := testServer(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	h := testServer(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
