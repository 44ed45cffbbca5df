// Package auth gates the gateway API with pre-shared API keys. Keys are
// configured as SHA-256 hashes (see cmd/keygen).
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/Joseph-Rai/translationapis/internal/config"
)

// ErrInvalidAPIKey is returned for unknown keys.
var ErrInvalidAPIKey = errors.New("invalid API key")

// Client identifies the caller behind an API key.
type Client struct {
	KeyHash     string
	Description string
}

// Authenticator validates API keys against configured hashes.
type Authenticator struct {
	clients map[string]*Client // keyhash -> client
}

// NewAuthenticator builds an authenticator from configured keys.
func NewAuthenticator(keys []config.APIKeyConfig) *Authenticator {
	a := &Authenticator{clients: make(map[string]*Client, len(keys))}
	for _, k := range keys {
		hash := strings.ToLower(strings.TrimSpace(k.KeyHash))
		if hash == "" {
			continue
		}
		a.clients[hash] = &Client{KeyHash: hash, Description: k.Description}
	}
	return a
}

// Enabled reports whether any key is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.clients) > 0
}

// ValidateAPIKey returns the client for apiKey.
func (a *Authenticator) ValidateAPIKey(apiKey string) (*Client, error) {
	keyHash := HashAPIKey(apiKey)

	c, ok := a.clients[keyHash]
	if !ok {
		return nil, ErrInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(keyHash), []byte(c.KeyHash)) != 1 {
		return nil, ErrInvalidAPIKey
	}
	return c, nil
}

// ExtractAPIKey extracts the key from a "Bearer <key>" Authorization header.
func ExtractAPIKey(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errors.New("missing Authorization header")
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 {
		return "", errors.New("invalid Authorization header format")
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("unsupported authorization scheme")
	}
	return strings.TrimSpace(parts[1]), nil
}

// HashAPIKey returns the hex SHA-256 of an API key.
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
