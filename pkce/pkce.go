// Package pkce implements the Proof Key for Code Exchange check (RFC 7636)
// used to bind authorization codes to a client-held secret. Only the S256
// method is accepted; "plain" is rejected as a hardening decision.
package pkce

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

const MethodS256 = "S256"

// Verify reports whether codeVerifier matches the stored codeChallenge under
// the given method. Any method other than S256 fails, including "plain".
func Verify(codeChallenge, codeChallengeMethod, codeVerifier string) bool {
	if codeChallengeMethod != MethodS256 {
		return false
	}
	if codeChallenge == "" || codeVerifier == "" {
		return false
	}
	computed := Challenge(codeVerifier)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(codeChallenge)) == 1
}

// Challenge computes the S256 code challenge for a verifier:
// base64url(sha256(verifier)) without padding.
func Challenge(codeVerifier string) string {
	hash := sha256.Sum256([]byte(codeVerifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
