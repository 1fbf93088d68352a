// Package keys manages the asymmetric signing keys used to sign access and
// refresh tokens. Keys move through active → rotated → expired; rotated keys
// stay available for verification until every token they signed has expired.
package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
)

// ES256 is the only signing algorithm currently issued.
const ES256 = "ES256"

type Status string

const (
	StatusActive  Status = "active"
	StatusRotated Status = "rotated"
	StatusExpired Status = "expired"
)

// SigningKey is a stored key pair. PEM encoding keeps it portable across the
// store and key-rotation jobs.
type SigningKey struct {
	Kid           string
	TenantID      string
	Algorithm     string
	PublicKeyPEM  string
	PrivateKeyPEM string
	Status        Status
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Generate creates a fresh active ES256 (P-256) signing key for a tenant.
func Generate(tenantID string, lifetime time.Duration, now time.Time) (*SigningKey, error) {
	private, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ecdsa key: %w", err)
	}

	privateDER, err := x509.MarshalPKCS8PrivateKey(private)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	publicDER, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}

	return &SigningKey{
		Kid:           uuid.New().String(),
		TenantID:      tenantID,
		Algorithm:     ES256,
		PublicKeyPEM:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})),
		PrivateKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateDER})),
		Status:        StatusActive,
		CreatedAt:     now,
		ExpiresAt:     now.Add(lifetime),
	}, nil
}

// Private decodes the stored private key.
func (k *SigningKey) Private() (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(k.PrivateKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("key %s: failed to decode private key PEM", k.Kid)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("key %s: parse private key: %w", k.Kid, err)
	}
	private, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key %s: private key is not ECDSA", k.Kid)
	}
	return private, nil
}

// Public decodes the stored public key.
func (k *SigningKey) Public() (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(k.PublicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("key %s: failed to decode public key PEM", k.Kid)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("key %s: parse public key: %w", k.Kid, err)
	}
	public, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("key %s: public key is not ECDSA", k.Kid)
	}
	return public, nil
}

// JWK exports the public half for the JWKS endpoint.
func (k *SigningKey) JWK() (jose.JSONWebKey, error) {
	public, err := k.Public()
	if err != nil {
		return jose.JSONWebKey{}, err
	}
	return jose.JSONWebKey{
		Key:       public,
		KeyID:     k.Kid,
		Algorithm: k.Algorithm,
		Use:       "sig",
	}, nil
}
