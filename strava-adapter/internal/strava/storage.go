package strava

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Checker-Finance/activity-adapters/internal/store"
)

// TokenStorage persists a TokenSet as a single document. Save must replace the
// whole document; partial writes must never be observable by Load.
type TokenStorage interface {
	Load(ctx context.Context) (TokenSet, error)
	Save(ctx context.Context, tokens TokenSet) error
	HealthCheck(ctx context.Context) error
	Location() string
}

// persistedTokens is the on-disk shape: exactly three keys.
type persistedTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

func toPersisted(t TokenSet) persistedTokens {
	return persistedTokens{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt.Unix(),
	}
}

// parseTokenDocument validates that all three fields are present and well formed.
func parseTokenDocument(data []byte) (TokenSet, error) {
	var doc tokenDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return TokenSet{}, fmt.Errorf("invalid json: %w", err)
	}
	if doc.AccessToken == nil || *doc.AccessToken == "" {
		return TokenSet{}, errors.New(`missing field "access_token"`)
	}
	if doc.RefreshToken == nil || *doc.RefreshToken == "" {
		return TokenSet{}, errors.New(`missing field "refresh_token"`)
	}
	if doc.ExpiresAt == nil {
		return TokenSet{}, errors.New(`missing field "expires_at"`)
	}
	secs, err := doc.ExpiresAt.Int64()
	if err != nil {
		f, ferr := doc.ExpiresAt.Float64()
		if ferr != nil {
			return TokenSet{}, fmt.Errorf(`field "expires_at" is not a unix timestamp: %w`, err)
		}
		secs, err = unixSeconds(f)
		if err != nil {
			return TokenSet{}, err
		}
	}
	return TokenSet{
		AccessToken:  *doc.AccessToken,
		RefreshToken: *doc.RefreshToken,
		ExpiresAt:    time.Unix(secs, 0).UTC(),
	}, nil
}

// unixSeconds truncates a float timestamp, rejecting values int64 cannot hold.
func unixSeconds(f float64) (int64, error) {
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf(`field "expires_at" is out of range: %v`, f)
	}
	return int64(f), nil
}

// FileStorage keeps the TokenSet in a JSON file readable only by its owner.
type FileStorage struct {
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) Location() string { return s.path }

func (s *FileStorage) Load(_ context.Context) (TokenSet, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return TokenSet{}, &ConfigurationError{Source: s.path, Reason: "credential file not found", Err: err}
	} else if err != nil {
		return TokenSet{}, &ConfigurationError{Source: s.path, Reason: "read credential file", Err: err}
	}

	tokens, err := parseTokenDocument(data)
	if err != nil {
		return TokenSet{}, &ConfigurationError{Source: s.path, Reason: "malformed credential file", Err: err}
	}
	return tokens, nil
}

// Save writes to a temp file in the same directory, fsyncs it and renames it
// over the original, so readers see either the old or the new document.
func (s *FileStorage) Save(_ context.Context, tokens TokenSet) error {
	data, err := json.MarshalIndent(toPersisted(tokens), "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return syncDir(dir)
}

// syncDir flushes the directory entry so the rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open credential dir: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync credential dir: %w", err)
	}
	return nil
}

func (s *FileStorage) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("credential file: %w", err)
	}
	return nil
}

// jsonStore is the subset of store.HybridStore used for token documents.
type jsonStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
}

// RedisStorage keeps the TokenSet as one JSON value under key, so several
// adapter replicas share a single credential.
type RedisStorage struct {
	store jsonStore
	key   string
}

func NewRedisStorage(s jsonStore, key string) *RedisStorage {
	return &RedisStorage{store: s, key: key}
}

func (s *RedisStorage) Location() string { return "redis:" + s.key }

func (s *RedisStorage) Load(ctx context.Context) (TokenSet, error) {
	var raw json.RawMessage
	err := s.store.GetJSON(ctx, s.key, &raw)
	if errors.Is(err, store.ErrNotFound) {
		return TokenSet{}, &ConfigurationError{Source: s.Location(), Reason: "token document not found", Err: err}
	} else if err != nil {
		return TokenSet{}, &ConfigurationError{Source: s.Location(), Reason: "read token document", Err: err}
	}

	tokens, err := parseTokenDocument(raw)
	if err != nil {
		return TokenSet{}, &ConfigurationError{Source: s.Location(), Reason: "malformed token document", Err: err}
	}
	return tokens, nil
}

func (s *RedisStorage) Save(ctx context.Context, tokens TokenSet) error {
	return s.store.SetJSON(ctx, s.key, toPersisted(tokens), 0)
}

func (s *RedisStorage) HealthCheck(ctx context.Context) error {
	return s.store.HealthCheck(ctx)
}
