// Package dpoptest builds client-side DPoP proofs for tests.
package dpoptest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/dpop"
)

// ProofSigner holds a client key pair and mints proofs bound to it.
type ProofSigner struct {
	key *ecdsa.PrivateKey
}

func NewProofSigner() (*ProofSigner, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate proof key: %w", err)
	}
	return &ProofSigner{key: key}, nil
}

// JKT returns the thumbprint the server should derive for this signer's key.
func (p *ProofSigner) JKT() (string, error) {
	jwk := &jose.JSONWebKey{Key: &p.key.PublicKey, Algorithm: string(jose.ES256)}
	return dpop.Thumbprint(jwk)
}

// Sign builds a compact dpop+jwt proof for the given method and URL with a
// fresh jti.
func (p *ProofSigner) Sign(htm, htu string, iat time.Time) (string, error) {
	return p.SignWithJTI(htm, htu, iat, uuid.New().String())
}

// SignWithJTI is Sign with a caller-chosen jti, for replay scenarios.
func (p *ProofSigner) SignWithJTI(htm, htu string, iat time.Time, jti string) (string, error) {
	opts := (&jose.SignerOptions{EmbedJWK: true}).WithType("dpop+jwt")
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.ES256, Key: p.key}, opts)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"jti": jti,
		"htm": htm,
		"htu": htu,
		"iat": iat.Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal proof claims: %w", err)
	}

	obj, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("sign proof: %w", err)
	}
	return obj.CompactSerialize()
}
