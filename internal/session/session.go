// Package session holds the bearer token and durable client preferences.
//
// The token lives in memory and, when persisted, in a JSON slot on disk with
// a fixed expiry. An absent or expired token is always reported as the empty
// string; callers treat "" as unauthenticated. The request client reads the
// token from here at call time, so replacing or clearing it takes effect on
// the very next request.
package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the fallback token lifetime when the token itself carries no
// usable expiry claim.
const DefaultTTL = time.Hour

var languages = map[string]bool{"en": true, "lt": true, "ru": true}

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Store is a durable-backed token and preference holder. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	dir    string
	token  string
	loaded bool
}

// New returns a Store persisting under dir. The directory is created lazily
// on first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir resolves the per-user config directory for the client.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "boutique")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "boutique")
}

func (s *Store) tokenPath() string { return filepath.Join(s.dir, "token.json") }
func (s *Store) langPath() string  { return filepath.Join(s.dir, "language") }

// Token returns the current bearer token, reading the durable slot on first
// use. Returns "" when absent or expired.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.loaded = true
		s.token = s.readDurable()
	}
	return s.token
}

// Authenticated reports whether a non-expired token is present.
func (s *Store) Authenticated() bool { return s.Token() != "" }

// SetToken replaces the in-memory token. With persist it also writes the
// durable slot; ttl <= 0 falls back to the expiry embedded in the token, or
// DefaultTTL when there is none.
func (s *Store) SetToken(tok string, persist bool, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
	s.loaded = true
	if !persist {
		return nil
	}
	exp := TokenExpiry(tok, ttl)
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(s.tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

// Clear removes the token from memory and from the durable slot.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.loaded = true
	err := os.Remove(s.tokenPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) readDurable() string {
	b, err := os.ReadFile(s.tokenPath())
	if err != nil {
		return ""
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return ""
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return ""
	}
	return tf.AccessToken
}

// Language returns the stored UI locale code, defaulting to "en".
func (s *Store) Language() string {
	b, err := os.ReadFile(s.langPath())
	if err != nil || !languages[string(b)] {
		return "en"
	}
	return string(b)
}

// SetLanguage stores the UI locale code. Only en, lt and ru are accepted.
func (s *Store) SetLanguage(code string) error {
	if !languages[code] {
		return errors.New("unsupported language: " + code)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.langPath(), []byte(code), 0o600)
}

// TokenExpiry derives the expiry for tok: an explicit ttl wins, then the
// token's exp claim (parsed without validation), then DefaultTTL.
func TokenExpiry(tok string, ttl time.Duration) time.Time {
	if ttl > 0 {
		return time.Now().Add(ttl)
	}
	var claims jwt.RegisteredClaims
	_, _ = jwt.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) { return nil, nil },
		jwt.WithoutClaimsValidation(),
	)
	if claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return time.Now().Add(DefaultTTL)
}
