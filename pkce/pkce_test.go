package pkce_test

import (
	"testing"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/pkce"
	"github.com/stretchr/testify/require"
)

// RFC 7636 appendix B reference vector.
const (
	rfcVerifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	rfcChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
)

func TestVerifyS256(t *testing.T) {
	require.True(t, pkce.Verify(rfcChallenge, pkce.MethodS256, rfcVerifier))
}

func TestVerifyComputedChallenge(t *testing.T) {
	verifier := "some-high-entropy-verifier-string-0123456789"
	challenge := pkce.Challenge(verifier)
	require.True(t, pkce.Verify(challenge, pkce.MethodS256, verifier))
}

func TestVerifyWrongVerifier(t *testing.T) {
	require.False(t, pkce.Verify(rfcChallenge, pkce.MethodS256, "not-the-verifier"))
	require.False(t, pkce.Verify(rfcChallenge, pkce.MethodS256, rfcVerifier+"x"))
}

func TestVerifyRejectsPlain(t *testing.T) {
	// "plain" would make challenge == verifier, which we never accept.
	require.False(t, pkce.Verify("same-value", "plain", "same-value"))
}

func TestVerifyRejectsEmpty(t *testing.T) {
	require.False(t, pkce.Verify("", pkce.MethodS256, ""))
	require.False(t, pkce.Verify(rfcChallenge, pkce.MethodS256, ""))
	require.False(t, pkce.Verify("", pkce.MethodS256, rfcVerifier))
}
