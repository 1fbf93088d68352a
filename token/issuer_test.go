package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/keys"
	keyfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/token/keys/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/refresh"
)

const (
	testTenantID = "tenant-1"
	testBaseURL  = "https://auth.example.com"
	testJKT      = "thumbprint-1"
)

func newIssuer(t *testing.T, options ...token.IssuerOption) (*token.Issuer, *keys.Manager) {
	t.Helper()
	manager := keys.NewManager(keyfake.NewFakeKeyRepo())
	return token.NewIssuer(manager, testBaseURL, options...), manager
}

func TestIssueAccessToken(t *testing.T) {
	issuer, _ := newIssuer(t)

	raw, err := issuer.IssueAccessToken(context.Background(), token.AccessTokenParams{
		Subject:   "user-1",
		TenantID:  testTenantID,
		ClientID:  "client-1",
		SessionID: "session-1",
		Scope:     "openid profile",
		JKT:       testJKT,
	})
	require.NoError(t, err)

	claims, err := issuer.VerifyAccessToken(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, testTenantID, claims.TenantID)
	require.Equal(t, "session-1", claims.SessionID)
	require.Equal(t, testJKT, claims.JKT)
	require.NotEmpty(t, claims.JTI)
	require.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestPerTenantIssuer(t *testing.T) {
	issuer, _ := newIssuer(t)

	raw, err := issuer.IssueAccessToken(context.Background(), token.AccessTokenParams{
		Subject:  "user-1",
		TenantID: testTenantID,
		JKT:      testJKT,
	})
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	require.NoError(t, err)
	iss, err := parsed.Claims.GetIssuer()
	require.NoError(t, err)
	require.Equal(t, testBaseURL+"/t/"+testTenantID, iss)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer, _ := newIssuer(t)

	_, err := issuer.VerifyAccessToken(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	manager := keys.NewManager(keyfake.NewFakeKeyRepo())
	backdated := token.NewIssuer(manager, testBaseURL, token.WithNowFunc(func() time.Time { return past }))

	raw, err := backdated.IssueAccessToken(context.Background(), token.AccessTokenParams{
		Subject:  "user-1",
		TenantID: testTenantID,
		JKT:      testJKT,
	})
	require.NoError(t, err)

	// Same keys, current clock: the token is an hour past its expiry.
	live := token.NewIssuer(manager, testBaseURL)
	_, err = live.VerifyAccessToken(context.Background(), raw)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifySurvivesKeyRotation(t *testing.T) {
	issuer, manager := newIssuer(t)

	raw, err := issuer.IssueAccessToken(context.Background(), token.AccessTokenParams{
		Subject:  "user-1",
		TenantID: testTenantID,
		JKT:      testJKT,
	})
	require.NoError(t, err)

	_, err = manager.Rotate(context.Background(), testTenantID)
	require.NoError(t, err)

	// The rotated key still verifies until it expires.
	claims, err := issuer.VerifyAccessToken(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
}

func TestSignRefreshToken(t *testing.T) {
	issuer, _ := newIssuer(t)

	signed, err := issuer.SignRefreshToken(context.Background(), refresh.SignParams{
		Subject:   "user-1",
		TenantID:  testTenantID,
		ClientID:  "client-1",
		SessionID: "session-1",
		Scope:     "openid",
		JKT:       testJKT,
		FamilyID:  "family-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, signed.Raw)
	require.NotEmpty(t, signed.JTI)
	require.NotEmpty(t, signed.Kid)
	require.True(t, signed.ExpiresAt.After(signed.IssuedAt))

	parsed, _, err := jwt.NewParser().ParseUnverified(signed.Raw, jwt.MapClaims{})
	require.NoError(t, err)
	mapClaims := parsed.Claims.(jwt.MapClaims)
	require.Equal(t, "family-1", mapClaims["family_id"])
	require.Equal(t, "session-1", mapClaims["session_id"])
	cnf, ok := mapClaims["cnf"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, testJKT, cnf["jkt"])
}
