package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lumenchain/lumend/core"
)

func testServer(t *testing.T) (*Server, *core.AccountRegistry) {
	t.Helper()
	accounts := core.NewAccountRegistry()
	metrics := core.NewMetrics()
	return NewServer(accounts, metrics, nil), accounts
}

func registerDelegate(accounts *core.AccountRegistry, addrByte byte, username string, votes uint64) {
	var addr core.Address
	var pub core.PublicKey
	addr[0], pub[0] = addrByte, addrByte
	acc := accounts.Add(addr, &pub)
	accounts.AttachDelegate(acc, &core.DelegateInfo{Username: username, Votes: votes})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestGetDelegatesRequiresLimit(t *testing.T) {
	s, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/delegates?offset=0", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Success || len(env.Errors) != 1 {
		t.Fatalf("env = %+v, want a single missing-limit error", env)
	}
}

func TestGetDelegatesDefaultSortIsPublicKeyAscending(t *testing.T) {
	s, accounts := testServer(t)
	registerDelegate(accounts, 1, "delegate1", 2)
	registerDelegate(accounts, 2, "delegate2", 0)

	req := httptest.NewRequest(http.MethodGet, "/api/delegates?limit=10", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	env := decodeEnvelope(t, rec)
	if !env.Success || env.Count != 2 || len(env.Delegates) != 2 {
		t.Fatalf("env = %+v", env)
	}
	if env.Delegates[0].PublicKey > env.Delegates[1].PublicKey {
		t.Fatalf("expected ascending publicKey order, got %+v", env.Delegates)
	}
}

func TestGetDelegatesSortByVotesDescending(t *testing.T) {
	s, accounts := testServer(t)
	registerDelegate(accounts, 1, "alice", 2)
	registerDelegate(accounts, 2, "bob", 9)
	registerDelegate(accounts, 3, "carol", 0)

	req := httptest.NewRequest(http.MethodGet, "/api/delegates?limit=10&sort=votes:desc", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	env := decodeEnvelope(t, rec)
	if env.Delegates[0].Username != "bob" {
		t.Fatalf("expected bob (highest votes) first, got %+v", env.Delegates)
	}
}

func TestGetDelegatesUsernamePrefixFilter(t *testing.T) {
	s, accounts := testServer(t)
	registerDelegate(accounts, 1, "alice", 0)
	registerDelegate(accounts, 2, "alicia", 0)
	registerDelegate(accounts, 3, "bob", 0)

	req := httptest.NewRequest(http.MethodGet, "/api/delegates?limit=10&username=ali", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	env := decodeEnvelope(t, rec)
	if env.Count != 2 {
		t.Fatalf("expected 2 delegates matching prefix 'ali', got %+v", env)
	}
}

func TestGetDelegatesUsernameTooShortRejected(t *testing.T) {
	s, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/delegates?limit=10&username=ab", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for a too-short username filter", rec.Code)
	}
}

func TestGetDelegatesOffsetBeyondCountReturnsEmptyPage(t *testing.T) {
	s, accounts := testServer(t)
	registerDelegate(accounts, 1, "alice", 0)

	req := httptest.NewRequest(http.MethodGet, "/api/delegates?limit=10&offset=5", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	env := decodeEnvelope(t, rec)
	if !env.Success || env.Count != 1 || len(env.Delegates) != 0 {
		t.Fatalf("env = %+v, want empty page with count=1", env)
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	s, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
