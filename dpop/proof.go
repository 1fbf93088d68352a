// Package dpop validates Demonstration of Proof-of-Possession proofs
// (RFC 9449): a client-signed JWT binding a request to an asymmetric key.
// Validation derives the key thumbprint (jkt) and registers the proof's jti
// with a ReplayGuard so every proof is accepted at most once per tenant.
package dpop

import (
	"context"
	"crypto"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	jose "github.com/go-jose/go-jose/v4"
)

const proofType = "dpop+jwt"

var (
	ErrProofRequired = errors.New("DPoP proof is required")
	ErrProofInvalid  = errors.New("invalid DPoP proof")
	ErrProofExpired  = errors.New("DPoP proof expired")
)

// Proof is the validated result handed to callers. The record itself is
// ephemeral; only the replay entry is persisted.
type Proof struct {
	JKT string
	JTI string
	IAT time.Time
}

type proofClaims struct {
	JTI string `json:"jti"`
	HTM string `json:"htm"`
	HTU string `json:"htu"`
	IAT int64  `json:"iat"`
}

// Validator checks DPoP proofs against the request they claim to cover and
// a bounded freshness window, then registers them with the ReplayGuard.
type Validator struct {
	replay      ReplayGuard
	proofMaxAge time.Duration
	clockSkew   time.Duration
	nowFunc     func() time.Time
}

type ValidatorOption func(*Validator)

// WithFreshnessWindow overrides the proof freshness parameters. maxAge is how
// far in the past iat may lie; skew is the tolerated clock drift into the
// future.
func WithFreshnessWindow(maxAge, skew time.Duration) ValidatorOption {
	return func(v *Validator) {
		v.proofMaxAge = maxAge
		v.clockSkew = skew
	}
}

func WithNowFunc(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.nowFunc = now
	}
}

func NewValidator(replay ReplayGuard, options ...ValidatorOption) *Validator {
	v := &Validator{
		replay:      replay,
		proofMaxAge: 30 * time.Second,
		clockSkew:   5 * time.Second,
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// Validate verifies a proof for the given HTTP method and URL within a
// tenant. Checks run in order: well-formedness and embedded public key,
// signature, htm/htu binding, iat freshness, thumbprint derivation, replay
// registration. Any failure is terminal for the request.
func (v *Validator) Validate(ctx context.Context, rawProof, expectedHTM, expectedHTU, tenantID string) (*Proof, error) {
	if rawProof == "" {
		return nil, ErrProofRequired
	}

	jws, err := jose.ParseSigned(rawProof, []jose.SignatureAlgorithm{jose.ES256, jose.RS256})
	if err != nil {
		return nil, ErrProofInvalid
	}
	if len(jws.Signatures) != 1 {
		return nil, ErrProofInvalid
	}
	header := jws.Signatures[0].Protected

	if typ, _ := header.ExtraHeaders[jose.HeaderType].(string); typ != proofType {
		return nil, ErrProofInvalid
	}

	key := header.JSONWebKey
	if key == nil || !key.Valid() || !key.IsPublic() {
		return nil, ErrProofInvalid
	}

	payload, err := jws.Verify(key)
	if err != nil {
		return nil, ErrProofInvalid
	}

	var claims proofClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrProofInvalid
	}
	if claims.JTI == "" || claims.HTM == "" || claims.HTU == "" || claims.IAT == 0 {
		return nil, ErrProofInvalid
	}

	if claims.HTM != expectedHTM {
		return nil, ErrProofInvalid
	}

	claimHTU, err := normalizeHTU(claims.HTU)
	if err != nil {
		return nil, ErrProofInvalid
	}
	wantHTU, err := normalizeHTU(expectedHTU)
	if err != nil {
		return nil, ErrProofInvalid
	}
	if claimHTU != wantHTU {
		return nil, ErrProofInvalid
	}

	now := v.nowFunc()
	iat := time.Unix(claims.IAT, 0)
	if iat.After(now.Add(v.clockSkew)) || now.Sub(iat) > v.proofMaxAge {
		return nil, ErrProofExpired
	}

	jkt, err := Thumbprint(key)
	if err != nil {
		return nil, ErrProofInvalid
	}

	if err := v.replay.Register(ctx, tenantID, jkt, claims.JTI, iat); err != nil {
		return nil, err
	}

	return &Proof{JKT: jkt, JTI: claims.JTI, IAT: iat}, nil
}

// Thumbprint returns the base64url-encoded RFC 7638 SHA-256 thumbprint of a
// JWK, the value bound into access tokens as cnf.jkt.
func Thumbprint(key *jose.JSONWebKey) (string, error) {
	sum, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sum), nil
}

// normalizeHTU reduces a URL to scheme+host+path; query and fragment are
// excluded from the htu comparison.
func normalizeHTU(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("htu must be absolute")
	}
	return u.Scheme + "://" + u.Host + u.Path, nil
}
