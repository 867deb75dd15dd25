package strava

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fixedNow is the clock every CredentialStore test runs against.
var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// writeJSON encodes v as JSON into w.
func writeJSON(w http.ResponseWriter, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic("test helper writeJSON: " + err.Error())
	}
}

// mockTransport is an http.RoundTripper that delegates to a handler function.
type mockTransport struct {
	fn func(*http.Request) (*http.Response, error)
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.fn(req)
}

// memStorage is an in-memory TokenStorage that can be told to fail on Save.
type memStorage struct {
	mu      sync.Mutex
	tokens  TokenSet
	saves   int
	saveErr error
	loadErr error
}

func (m *memStorage) Load(context.Context) (TokenSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens, m.loadErr
}

func (m *memStorage) Save(_ context.Context, t TokenSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.tokens = t
	return nil
}

func (m *memStorage) HealthCheck(context.Context) error { return nil }

func (m *memStorage) Location() string { return "memory" }

func (m *memStorage) snapshot() (TokenSet, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens, m.saves
}

// fakeExchanger counts refresh calls and returns a canned TokenSet or error.
type fakeExchanger struct {
	calls atomic.Int32
	next  *TokenSet
	err   error
	delay time.Duration
	seen  []string
	mu    sync.Mutex
}

func (f *fakeExchanger) Refresh(_ context.Context, refreshToken string) (*TokenSet, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, refreshToken)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	next := *f.next
	return &next, nil
}

func expiredTokens() TokenSet {
	return TokenSet{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    fixedNow.Add(-time.Minute),
	}
}

func freshTokens() TokenSet {
	return TokenSet{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresAt:    fixedNow.Add(6 * time.Hour),
	}
}

// newTestStore builds a CredentialStore over storage with the clock pinned to fixedNow.
func newTestStore(t *testing.T, storage TokenStorage, ex TokenExchanger) *CredentialStore {
	t.Helper()
	cs, err := NewCredentialStore(context.Background(), zap.NewNop(), storage, ex)
	if err != nil {
		t.Fatalf("NewCredentialStore: %v", err)
	}
	cs.now = func() time.Time { return fixedNow }
	return cs
}

// staticTokens is a TokenSource returning a fixed token and error.
type staticTokens struct {
	token string
	err   error
	calls atomic.Int32
}

func (s *staticTokens) GetValidToken(context.Context) (string, error) {
	s.calls.Add(1)
	return s.token, s.err
}

var errDiskFull = errors.New("no space left on device")
