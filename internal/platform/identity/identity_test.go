package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestProvider() *Provider {
	return NewProvider(NewMemoryCredentials()).WithCost(bcrypt.MinCost)
}

func TestProvider_ClaimAndVerify(t *testing.T) {
	p := newTestProvider()
	ctx := context.Background()

	require.ErrorIs(t, p.Verify(ctx, "owner@gym.dz", "secret1"), ErrNoCredential)
	require.NoError(t, p.Claim(ctx, " Owner@Gym.dz ", "secret1"))
	require.NoError(t, p.Verify(ctx, "owner@gym.dz", "secret1"))
	require.ErrorIs(t, p.Verify(ctx, "owner@gym.dz", "nope"), ErrWrongPassword)
	require.ErrorIs(t, p.Claim(ctx, "owner@gym.dz", "another"), ErrAlreadyClaimed)
}

func TestWithIsolatedContext_TornDownOnEveryPath(t *testing.T) {
	p := newTestProvider()
	ctx := context.Background()

	var leaked *IsolatedContext
	boom := errors.New("boom")
	err := p.WithIsolatedContext(ctx, func(ic *IsolatedContext) error {
		require.Equal(t, int64(1), p.Active())
		leaked = ic
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Zero(t, p.Active())
	require.ErrorIs(t, leaked.CreateCredential(ctx, "late@gym.dz", "secret1"), ErrContextClosed)

	require.Panics(t, func() {
		_ = p.WithIsolatedContext(ctx, func(*IsolatedContext) error { panic("kaboom") })
	})
	require.Zero(t, p.Active())
}

func TestWithIsolatedContext_RejectsWeakPassword(t *testing.T) {
	p := newTestProvider()
	err := p.WithIsolatedContext(context.Background(), func(ic *IsolatedContext) error {
		return ic.CreateCredential(context.Background(), "new@gym.dz", "12345")
	})
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestTokenMaker(t *testing.T) {
	m := NewTokenMaker("test-secret", time.Hour)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	token, expires, err := m.Issue("owner@gym.dz")
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), expires)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "owner@gym.dz", claims.Email)

	_, err = NewTokenMaker("other-secret", time.Hour).Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	now = now.Add(2 * time.Hour)
	_, err = m.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionContext(t *testing.T) {
	_, ok := SessionFrom(context.Background())
	require.False(t, ok)
	ctx := WithSession(context.Background(), Session{Email: "a@gym.dz"})
	s, ok := SessionFrom(ctx)
	require.True(t, ok)
	require.Equal(t, "a@gym.dz", s.Email)
}

func TestProvider_Revoke(t *testing.T) {
	p := newTestProvider()
	ctx := context.Background()
	require.NoError(t, p.Claim(ctx, "staff@gym.dz", "secret1"))
	require.NoError(t, p.Revoke(ctx, "Staff@gym.dz"))
	require.ErrorIs(t, p.Verify(ctx, "staff@gym.dz", "secret1"), ErrNoCredential)
}
