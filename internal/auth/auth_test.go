package auth

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/Joseph-Rai/translationapis/internal/config"
)

func TestHashAPIKey(t *testing.T) {
	// echo -n "secret" | sha256sum
	want := "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b"
	if got := HashAPIKey("secret"); got != want {
		t.Errorf("HashAPIKey() = %s, want %s", got, want)
	}
}

func TestAuthenticator_ValidateAPIKey(t *testing.T) {
	a := NewAuthenticator([]config.APIKeyConfig{
		{KeyHash: HashAPIKey("good-key"), Description: "ci"},
		{KeyHash: "  " + HashAPIKey("padded") + " ", Description: "padded"},
		{KeyHash: ""},
	})

	if !a.Enabled() {
		t.Fatal("expected authenticator to be enabled")
	}

	c, err := a.ValidateAPIKey("good-key")
	if err != nil {
		t.Fatalf("ValidateAPIKey() error = %v", err)
	}
	if c.Description != "ci" {
		t.Errorf("Description = %q, want ci", c.Description)
	}

	if _, err := a.ValidateAPIKey("padded"); err != nil {
		t.Errorf("ValidateAPIKey(padded) error = %v", err)
	}

	if _, err := a.ValidateAPIKey("bad-key"); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("ValidateAPIKey(bad-key) error = %v, want ErrInvalidAPIKey", err)
	}
	if _, err := a.ValidateAPIKey(""); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("ValidateAPIKey(\"\") error = %v, want ErrInvalidAPIKey", err)
	}
}

func TestAuthenticator_Disabled(t *testing.T) {
	if NewAuthenticator(nil).Enabled() {
		t.Error("expected no keys to disable the authenticator")
	}
	var a *Authenticator
	if a.Enabled() {
		t.Error("expected nil authenticator to be disabled")
	}
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "bearer", header: "Bearer abc123", want: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", want: "abc123"},
		{name: "missing", header: "", wantErr: true},
		{name: "no scheme", header: "abc123", wantErr: true},
		{name: "basic", header: "Basic dXNlcjpwYXNz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/v1/translate", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := ExtractAPIKey(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractAPIKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
