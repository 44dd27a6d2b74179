package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socketpoold/internal/authn"
	"socketpoold/internal/dispatcher"
	"socketpoold/internal/pool"
	"socketpoold/internal/stats"
)

type noopDialer struct{}

func (noopDialer) Dial(host string, port int) (pool.Socket, error) { return nil, nil }

func newTestServer(authEnabled bool) (*Server, *authn.Issuer) {
	registry := pool.NewRegistry(5)
	statsTable := stats.NewTable()
	disp := dispatcher.New(registry, noopDialer{}, statsTable, "")
	issuer := authn.NewIssuer("test-secret", time.Hour)
	return NewServer(disp, registry, statsTable, authEnabled, issuer), issuer
}

func TestHealthzReturns200WhenHealthy(t *testing.T) {
	s, _ := newTestServer(false)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminStatsRequiresNoAuthWhenDisabled(t *testing.T) {
	s, _ := newTestServer(false)
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAdminStatsRejectsMissingTokenWhenAuthEnabled(t *testing.T) {
	s, _ := newTestServer(true)
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAdminStatsAcceptsValidToken(t *testing.T) {
	s, issuer := newTestServer(true)
	token, err := issuer.Issue("operator")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}
