package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/auth"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/authcode"
	authcodefake "github.com/latamteks-cmyk/SmartEdify-app-sub003/authcode/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/clients"
	clientfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/clients/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/dpop"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/dpop/dpoptest"
	dpopfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/dpop/repofake"
	apperrors "github.com/latamteks-cmyk/SmartEdify-app-sub003/internal/errors"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/oauthmodel"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/pkce"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/revocation"
	revocationfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/revocation/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/sessions"
	sessionfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/sessions/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/keys"
	keyfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/token/keys/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/refresh"
	refreshfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/token/refresh/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/users"
	userfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/users/repofake"
)

const (
	testTenantID    = "tenant-1"
	testClientID    = "client-1"
	testRedirectURI = "https://app.example.com/callback"
	testEmail       = "alice@example.com"
	testPassword    = "correct horse battery staple"
	testDeviceID    = "device-1"
	testScope       = "openid profile"
	testBaseURL     = "https://auth.example.com"
	tokenURL        = testBaseURL + "/oauth2/token"
)

type fixture struct {
	service  *auth.Service
	issuer   *token.Issuer
	registry *revocation.Registry
	signer   *dpoptest.ProofSigner
	verifier string
}

func setup(t *testing.T) *fixture {
	t.Helper()

	clientRepo := clientfake.NewFakeClientRepo()
	clientRepo.Add(&clients.Client{
		ID:           testClientID,
		Type:         clients.TypePublic,
		TenantID:     testTenantID,
		RedirectURIs: []string{testRedirectURI},
		Scopes:       []string{"openid", "profile", "email"},
	})

	hash, err := users.HashPassword(testPassword)
	require.NoError(t, err)
	userRepo := userfake.NewFakeUserRepo()
	userRepo.Add(&users.User{
		ID:           "user-1",
		TenantID:     testTenantID,
		Email:        testEmail,
		PasswordHash: hash,
	})

	registry := revocation.NewRegistry(revocationfake.NewFakeRevocationRepo())
	sessionService := sessions.NewService(sessionfake.NewFakeSessionRepo(), registry)
	keyManager := keys.NewManager(keyfake.NewFakeKeyRepo())
	issuer := token.NewIssuer(keyManager, testBaseURL)
	refreshManager := refresh.NewManager(refreshfake.NewFakeRefreshTokenRepo(), issuer)
	codes := authcode.NewStore(authcodefake.NewFakeCodeRepo())
	validator := dpop.NewValidator(dpopfake.NewFakeReplayGuard())

	proofSigner, err := dpoptest.NewProofSigner()
	require.NoError(t, err)

	return &fixture{
		service: auth.NewService(clientRepo, userRepo, codes, sessionService,
			refreshManager, issuer, validator, registry),
		issuer:   issuer,
		registry: registry,
		signer:   proofSigner,
		verifier: "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk",
	}
}

func (f *fixture) authorizeAndLogin(t *testing.T) string {
	t.Helper()

	code, err := f.service.Authorize(context.Background(), auth.AuthorizationParameters{
		ResponseType:        oauthmodel.ResponseTypeCode,
		ClientID:            testClientID,
		TenantID:            testTenantID,
		RedirectURI:         testRedirectURI,
		Scope:               testScope,
		CodeChallenge:       pkce.Challenge(f.verifier),
		CodeChallengeMethod: pkce.MethodS256,
	})
	require.NoError(t, err)

	require.NoError(t, f.service.Login(context.Background(), auth.LoginParams{
		Code:     code,
		TenantID: testTenantID,
		Email:    testEmail,
		Password: testPassword,
		DeviceID: testDeviceID,
	}))
	return code
}

func (f *fixture) proof(t *testing.T) auth.ProofParams {
	t.Helper()
	raw, err := f.signer.Sign("POST", tokenURL, time.Now())
	require.NoError(t, err)
	return auth.ProofParams{Raw: raw, HTM: "POST", HTU: tokenURL}
}

func (f *fixture) exchange(t *testing.T) *oauthmodel.TokenResponse {
	t.Helper()
	code := f.authorizeAndLogin(t)

	response, err := f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeAuthorizationCode,
		ClientID:     testClientID,
		Code:         code,
		CodeVerifier: f.verifier,
		RedirectURI:  testRedirectURI,
	}, f.proof(t))
	require.NoError(t, err)
	return response
}

func TestCodeFlowEndToEnd(t *testing.T) {
	f := setup(t)
	response := f.exchange(t)

	require.Equal(t, oauthmodel.TokenTypeDPoP, response.TokenType)
	require.NotEmpty(t, response.RefreshToken)
	require.Equal(t, testScope, response.Scope)
	require.Greater(t, response.ExpiresIn, int64(0))

	claims, err := f.issuer.VerifyAccessToken(context.Background(), response.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, testTenantID, claims.TenantID)
	require.NotEmpty(t, claims.SessionID)

	jkt, err := f.signer.JKT()
	require.NoError(t, err)
	require.Equal(t, jkt, claims.JKT)
}

func TestCodeIsSingleUse(t *testing.T) {
	f := setup(t)
	code := f.authorizeAndLogin(t)

	request := oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeAuthorizationCode,
		ClientID:     testClientID,
		Code:         code,
		CodeVerifier: f.verifier,
		RedirectURI:  testRedirectURI,
	}

	_, err := f.service.Token(context.Background(), request, f.proof(t))
	require.NoError(t, err)

	_, err = f.service.Token(context.Background(), request, f.proof(t))
	require.ErrorIs(t, err, apperrors.ErrInvalidGrant)
}

func TestWrongVerifierRejected(t *testing.T) {
	f := setup(t)
	code := f.authorizeAndLogin(t)

	_, err := f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeAuthorizationCode,
		ClientID:     testClientID,
		Code:         code,
		CodeVerifier: "not-the-right-verifier-at-all-but-long-enough",
		RedirectURI:  testRedirectURI,
	}, f.proof(t))
	require.ErrorIs(t, err, apperrors.ErrInvalidCodeVerifier)
}

func TestExchangeWithoutLoginRejected(t *testing.T) {
	f := setup(t)

	code, err := f.service.Authorize(context.Background(), auth.AuthorizationParameters{
		ResponseType:        oauthmodel.ResponseTypeCode,
		ClientID:            testClientID,
		TenantID:            testTenantID,
		RedirectURI:         testRedirectURI,
		Scope:               testScope,
		CodeChallenge:       pkce.Challenge(f.verifier),
		CodeChallengeMethod: pkce.MethodS256,
	})
	require.NoError(t, err)

	_, err = f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeAuthorizationCode,
		ClientID:     testClientID,
		Code:         code,
		CodeVerifier: f.verifier,
		RedirectURI:  testRedirectURI,
	}, f.proof(t))
	require.ErrorIs(t, err, apperrors.ErrInvalidGrant)
}

func TestPlainChallengeMethodRejected(t *testing.T) {
	f := setup(t)

	_, err := f.service.Authorize(context.Background(), auth.AuthorizationParameters{
		ResponseType:        oauthmodel.ResponseTypeCode,
		ClientID:            testClientID,
		TenantID:            testTenantID,
		RedirectURI:         testRedirectURI,
		Scope:               testScope,
		CodeChallenge:       f.verifier,
		CodeChallengeMethod: "plain",
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestUnregisteredRedirectRejected(t *testing.T) {
	f := setup(t)

	_, err := f.service.Authorize(context.Background(), auth.AuthorizationParameters{
		ResponseType:        oauthmodel.ResponseTypeCode,
		ClientID:            testClientID,
		TenantID:            testTenantID,
		RedirectURI:         "https://evil.example.com/callback",
		Scope:               testScope,
		CodeChallenge:       pkce.Challenge(f.verifier),
		CodeChallengeMethod: pkce.MethodS256,
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidRedirectURI)
}

func TestProofReplayAcrossRequests(t *testing.T) {
	f := setup(t)
	code := f.authorizeAndLogin(t)
	proof := f.proof(t)

	_, err := f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeAuthorizationCode,
		ClientID:     testClientID,
		Code:         code,
		CodeVerifier: f.verifier,
		RedirectURI:  testRedirectURI,
	}, proof)
	require.NoError(t, err)

	// Same proof presented with a fresh code: the jti is already spent.
	code2 := f.authorizeAndLogin(t)
	_, err = f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeAuthorizationCode,
		ClientID:     testClientID,
		Code:         code2,
		CodeVerifier: f.verifier,
		RedirectURI:  testRedirectURI,
	}, proof)
	require.ErrorIs(t, err, dpop.ErrReplayDetected)
}

func TestRefreshRotation(t *testing.T) {
	f := setup(t)
	first := f.exchange(t)

	second, err := f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeRefreshToken,
		RefreshToken: first.RefreshToken,
	}, f.proof(t))
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.NotEqual(t, first.AccessToken, second.AccessToken)
}

func TestRefreshReuseBurnsFamilyAndSession(t *testing.T) {
	f := setup(t)
	first := f.exchange(t)

	second, err := f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeRefreshToken,
		RefreshToken: first.RefreshToken,
	}, f.proof(t))
	require.NoError(t, err)

	// Replaying the rotated token is treated as theft.
	_, err = f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeRefreshToken,
		RefreshToken: first.RefreshToken,
	}, f.proof(t))
	require.ErrorIs(t, err, refresh.ErrReuseDetected)

	// The legitimate holder's newest token is dead too.
	_, err = f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeRefreshToken,
		RefreshToken: second.RefreshToken,
	}, f.proof(t))
	require.ErrorIs(t, err, refresh.ErrTokenInvalid)

	// The cascade revoked the session, so the access token is past the
	// watermark as well.
	claims, err := f.issuer.VerifyAccessToken(context.Background(), second.AccessToken)
	require.NoError(t, err)
	revoked, err := f.registry.IsRevoked(context.Background(), revocation.Query{
		TenantID:  testTenantID,
		SessionID: claims.SessionID,
	}, claims.IssuedAt)
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestRefreshBindingMismatch(t *testing.T) {
	f := setup(t)
	response := f.exchange(t)

	// A proof signed by a different key than the token is bound to.
	otherSigner, err := dpoptest.NewProofSigner()
	require.NoError(t, err)
	raw, err := otherSigner.Sign("POST", tokenURL, time.Now())
	require.NoError(t, err)

	_, err = f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeRefreshToken,
		RefreshToken: response.RefreshToken,
	}, auth.ProofParams{Raw: raw, HTM: "POST", HTU: tokenURL})
	require.ErrorIs(t, err, refresh.ErrBindingMismatch)

	// A binding failure does not burn the token.
	_, err = f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeRefreshToken,
		RefreshToken: response.RefreshToken,
	}, f.proof(t))
	require.NoError(t, err)
}

func TestLogoutEndsSession(t *testing.T) {
	f := setup(t)
	response := f.exchange(t)

	require.NoError(t, f.service.Logout(context.Background(), response.AccessToken))

	// The session watermark invalidates the access token.
	claims, err := f.issuer.VerifyAccessToken(context.Background(), response.AccessToken)
	require.NoError(t, err)
	revoked, err := f.registry.IsRevoked(context.Background(), revocation.Query{
		TenantID:  testTenantID,
		SessionID: claims.SessionID,
	}, claims.IssuedAt)
	require.NoError(t, err)
	require.True(t, revoked)

	// And the refresh token minted under the session is unusable.
	_, err = f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeRefreshToken,
		RefreshToken: response.RefreshToken,
	}, f.proof(t))
	require.ErrorIs(t, err, refresh.ErrTokenInvalid)
}

func TestLogoutWithGarbageTokenRejected(t *testing.T) {
	f := setup(t)

	err := f.service.Logout(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRevokeUserSessions(t *testing.T) {
	f := setup(t)
	response := f.exchange(t)

	count, err := f.service.RevokeUserSessions(context.Background(), "user-1", testTenantID, "compliance_deletion")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantTypeRefreshToken,
		RefreshToken: response.RefreshToken,
	}, f.proof(t))
	require.ErrorIs(t, err, refresh.ErrTokenInvalid)
}

func TestUnsupportedGrantType(t *testing.T) {
	f := setup(t)

	_, err := f.service.Token(context.Background(), oauthmodel.TokenRequest{
		GrantType: "client_credentials",
	}, f.proof(t))
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}
