package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	mockBackend := new(MockBackend)
	mockBackend.On("Provider").Return(ProviderOllama)

	require.NoError(t, reg.Register(mockBackend))

	got, err := reg.Get(ProviderOllama)
	require.NoError(t, err)
	assert.Equal(t, mockBackend, got)

	// Ensure a missing backend is reported
	_, err = reg.Get(ProviderVLLM)
	assert.ErrorIs(t, err, ErrNotFound)

	mockBackend.AssertExpectations(t)
}

func TestRegistry_RegisterTwice(t *testing.T) {
	reg := NewRegistry()

	b1 := new(MockBackend)
	b2 := new(MockBackend)
	b1.On("Provider").Return(ProviderVLLM)
	b2.On("Provider").Return(ProviderVLLM)

	require.NoError(t, reg.Register(b1))
	assert.ErrorIs(t, reg.Register(b2), ErrAlreadyRegistered)

	got, err := reg.Get(ProviderVLLM)
	require.NoError(t, err)
	assert.Same(t, b1, got)
}

func TestRegistry_Providers(t *testing.T) {
	reg := NewRegistry()

	b1 := new(MockBackend)
	b2 := new(MockBackend)
	b1.On("Provider").Return(ProviderVLLM)
	b2.On("Provider").Return(ProviderOllama)

	require.NoError(t, reg.Register(b1))
	require.NoError(t, reg.Register(b2))

	assert.Equal(t, []Provider{ProviderOllama, ProviderVLLM}, reg.Providers())
}
