package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type nopProvider struct{}

func (nopProvider) Complete(context.Context, Request) (string, error) { return "ok", nil }

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	r.Register(ProviderFactory{
		Type:           "zeta",
		Create:         func(ProviderConfig) (Provider, error) { return nopProvider{}, nil },
		ValidateConfig: ValidateAPIKey,
	})
	r.Register(ProviderFactory{
		Type:   "alpha",
		Create: func(ProviderConfig) (Provider, error) { return nopProvider{}, nil },
	})

	require.Equal(t, []string{"alpha", "zeta"}, r.Types())
	require.True(t, r.IsRegistered("zeta"))
	require.False(t, r.IsRegistered("missing"))

	p, err := r.Create(ProviderConfig{Type: "zeta", APIKey: "sk-test"})
	require.NoError(t, err)
	require.NotNil(t, p)

	_, err = r.Create(ProviderConfig{Type: "zeta"})
	require.ErrorContains(t, err, "api key is required")

	_, err = r.Create(ProviderConfig{Type: "missing"})
	require.ErrorContains(t, err, "unknown provider type: missing")
}

func TestRegistry_RegisterPanics(t *testing.T) {
	create := func(ProviderConfig) (Provider, error) { return nopProvider{}, nil }

	tests := []struct {
		name string
		f    ProviderFactory
	}{
		{name: "empty type", f: ProviderFactory{Create: create}},
		{name: "missing create", f: ProviderFactory{Type: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Panics(t, func() { NewRegistry().Register(tt.f) })
		})
	}

	t.Run("duplicate", func(t *testing.T) {
		r := NewRegistry()
		r.Register(ProviderFactory{Type: "x", Create: create})
		require.Panics(t, func() { r.Register(ProviderFactory{Type: "x", Create: create}) })
	})
}
