package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/credentials/staticcreds"
	"github.com/prn-tf/awscore/internal/logging"
)

type noProviderStub struct{ calls int }

func (p *noProviderStub) Retrieve(context.Context, logging.Logger) (credentials.ExpiringCredential, error) {
	p.calls++
	return credentials.ExpiringCredential{}, credentials.ErrNoProvider
}
func (p *noProviderStub) Shutdown() error { return nil }

type failingStub struct{}

func (failingStub) Retrieve(context.Context, logging.Logger) (credentials.ExpiringCredential, error) {
	return credentials.ExpiringCredential{}, errors.New("boom")
}
func (failingStub) Shutdown() error { return nil }

func TestSelector_AdvancesPastNoProvider(t *testing.T) {
	first := &noProviderStub{}
	second := staticcreds.New(credentials.Credential{AccessKeyID: "AKIDWINNER"})
	s := New(first, second)

	got, err := s.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)
	require.Equal(t, "AKIDWINNER", got.AccessKeyID)
	require.Equal(t, 1, first.calls)
}

func TestSelector_PinsResolvedProvider(t *testing.T) {
	first := &noProviderStub{}
	second := staticcreds.New(credentials.Credential{AccessKeyID: "AKIDWINNER"})
	s := New(first, second)

	_, err := s.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)
	_, err = s.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)

	require.Equal(t, 1, first.calls)
}

func TestSelector_NonNoProviderErrorAborts(t *testing.T) {
	s := New(failingStub{}, staticcreds.New(credentials.Credential{AccessKeyID: "SHOULD_NOT_BE_REACHED"}))

	_, err := s.Retrieve(context.Background(), logging.Nop())
	require.Error(t, err)
	require.False(t, errors.Is(err, credentials.ErrNoProvider))
}

func TestSelector_ExhaustedListFallsBackToAnonymous(t *testing.T) {
	s := New(&noProviderStub{}, &noProviderStub{})

	got, err := s.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)
	require.Empty(t, got.AccessKeyID)
	require.True(t, got.Expiration.After(time.Now()))
}
