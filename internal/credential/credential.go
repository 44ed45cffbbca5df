// Package credential persists service-account key material and extracts the
// tenant identity embedded in it.
package credential

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Joseph-Rai/translationapis/internal/domain"
)

// DefaultFileName is the file name used under the user's home directory.
const DefaultFileName = "key.json"

// KeyFile is the on-disk location of the most recent credential payload.
// It is not safe for concurrent writers; callers serialize access.
type KeyFile struct {
	Path string
}

// NewKeyFile returns a KeyFile at path, or at ~/key.json when path is empty.
func NewKeyFile(path string) (*KeyFile, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, DefaultFileName)
	}
	return &KeyFile{Path: path}, nil
}

// Write stores payload verbatim, replacing any prior content.
func (k *KeyFile) Write(payload []byte) error {
	if err := os.MkdirAll(filepath.Dir(k.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(k.Path, payload, 0o600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// Read returns the persisted payload.
func (k *KeyFile) Read() ([]byte, error) {
	data, err := os.ReadFile(k.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return data, nil
}

// serviceAccountKey holds the fields of a key file the gateway cares about.
type serviceAccountKey struct {
	ProjectID *string `json:"project_id"`
}

// ProjectID extracts the project_id field from a service-account key.
// A payload that is not a JSON object or lacks a string project_id yields
// domain.ErrMalformedCredential.
func ProjectID(payload []byte) (string, error) {
	var key serviceAccountKey
	if err := json.Unmarshal(payload, &key); err != nil {
		return "", domain.Wrap(domain.ErrorTypeMalformedCredential, "credential is not a JSON object", err)
	}
	if key.ProjectID == nil || *key.ProjectID == "" {
		return "", domain.Wrap(domain.ErrorTypeMalformedCredential, "credential has no project_id", nil)
	}
	return *key.ProjectID, nil
}
