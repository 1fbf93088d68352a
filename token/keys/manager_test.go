package keys_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/keys"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/keys/repofake"
)

const testTenantID = "tenant-1"

func TestActiveKeyLazyGeneration(t *testing.T) {
	ctx := context.Background()
	m := keys.NewManager(repofake.NewFakeKeyRepo())

	key, err := m.ActiveKey(ctx, testTenantID)
	require.NoError(t, err)
	require.Equal(t, keys.StatusActive, key.Status)
	require.Equal(t, keys.ES256, key.Algorithm)

	again, err := m.ActiveKey(ctx, testTenantID)
	require.NoError(t, err)
	require.Equal(t, key.Kid, again.Kid)
}

func TestKeyRoundTrip(t *testing.T) {
	key, err := keys.Generate(testTenantID, time.Hour, time.Now())
	require.NoError(t, err)

	private, err := key.Private()
	require.NoError(t, err)
	public, err := key.Public()
	require.NoError(t, err)
	require.True(t, private.PublicKey.Equal(public))
}

func TestRotate(t *testing.T) {
	ctx := context.Background()
	repo := repofake.NewFakeKeyRepo()
	m := keys.NewManager(repo)

	first, err := m.ActiveKey(ctx, testTenantID)
	require.NoError(t, err)

	second, err := m.Rotate(ctx, testTenantID)
	require.NoError(t, err)
	require.NotEqual(t, first.Kid, second.Kid)

	active, err := m.ActiveKey(ctx, testTenantID)
	require.NoError(t, err)
	require.Equal(t, second.Kid, active.Kid)

	// The rotated key still verifies.
	_, err = m.VerificationKey(ctx, first.Kid)
	require.NoError(t, err)

	jwks, err := m.JWKS(ctx, testTenantID)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 2)
}

func TestExpireRotatedKeys(t *testing.T) {
	ctx := context.Background()
	repo := repofake.NewFakeKeyRepo()

	now := time.Now()
	current := now
	m := keys.NewManager(repo,
		keys.WithKeyLifetime(time.Hour),
		keys.WithNowFunc(func() time.Time { return current }),
	)

	first, err := m.ActiveKey(ctx, testTenantID)
	require.NoError(t, err)
	_, err = m.Rotate(ctx, testTenantID)
	require.NoError(t, err)

	current = now.Add(2 * time.Hour)
	expired, err := m.ExpireRotatedKeys(ctx, testTenantID)
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	_, err = m.VerificationKey(ctx, first.Kid)
	require.ErrorIs(t, err, keys.ErrKeyNotFound)

	jwks, err := m.JWKS(ctx, testTenantID)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
}
