// Package token mints the DPoP-bound access and refresh tokens returned by
// the token endpoint. Tokens are ES256 JWTs signed with the tenant's active
// key; the key thumbprint the client proved possession of is embedded as the
// cnf.jkt confirmation claim.
package token

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/keys"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/refresh"
)

var ErrInvalidToken = errors.New("invalid token")

var _ refresh.Signer = (*Issuer)(nil)

type Issuer struct {
	keys            *keys.Manager
	issuerBase      string
	audience        string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	nowFunc         func() time.Time
}

type IssuerOption func(*Issuer)

func WithTokenExpiry(accessTokenTTL, refreshTokenTTL time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.accessTokenTTL = accessTokenTTL
		i.refreshTokenTTL = refreshTokenTTL
	}
}

func WithAudience(audience string) IssuerOption {
	return func(i *Issuer) { i.audience = audience }
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.nowFunc = now }
}

// NewIssuer creates an Issuer. issuerBase is the server's base URL; the
// per-tenant issuer is issuerBase + "/t/" + tenantID.
func NewIssuer(keyManager *keys.Manager, issuerBase string, options ...IssuerOption) *Issuer {
	i := &Issuer{
		keys:            keyManager,
		issuerBase:      strings.TrimSuffix(issuerBase, "/"),
		audience:        "api",
		accessTokenTTL:  15 * time.Minute,
		refreshTokenTTL: 30 * 24 * time.Hour,
		nowFunc:         time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

func (i *Issuer) IssuerForTenant(tenantID string) string {
	return i.issuerBase + "/t/" + tenantID
}

func (i *Issuer) AccessTokenTTL() time.Duration {
	return i.accessTokenTTL
}

// AccessTokenParams describes the subject and binding of an access token.
type AccessTokenParams struct {
	Subject   string
	TenantID  string
	ClientID  string
	SessionID string
	Scope     string
	JKT       string
}

// IssueAccessToken signs a DPoP-bound access token with the tenant's active
// key. Resource servers must match a presented proof's thumbprint against
// cnf.jkt; our duty is embedding it correctly.
func (i *Issuer) IssueAccessToken(ctx context.Context, p AccessTokenParams) (string, error) {
	key, err := i.keys.ActiveKey(ctx, p.TenantID)
	if err != nil {
		return "", errors.Wrap(err, "[Issuer.IssueAccessToken] ActiveKey")
	}
	private, err := key.Private()
	if err != nil {
		return "", errors.Wrap(err, "[Issuer.IssueAccessToken] Private")
	}

	now := i.nowFunc()
	claims := jwt.MapClaims{
		"iss":    i.IssuerForTenant(p.TenantID),
		"sub":    p.Subject,
		"aud":    i.audience,
		"tenant": p.TenantID,
		"scope":  p.Scope,
		"sid":    p.SessionID,
		"cnf":    map[string]any{"jkt": p.JKT},
		"iat":    now.Unix(),
		"exp":    now.Add(i.accessTokenTTL).Unix(),
		"jti":    uuid.New().String(),
	}
	if p.ClientID != "" {
		claims["client_id"] = p.ClientID
	}

	t := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	t.Header["kid"] = key.Kid
	signed, err := t.SignedString(private)
	if err != nil {
		return "", errors.Wrap(err, "[Issuer.IssueAccessToken] SignedString")
	}
	return signed, nil
}

// SignRefreshToken signs a refresh-token JWT carrying the family chain
// metadata. The refresh family manager owns persistence; this only mints the
// wire form. Implements refresh.Signer.
func (i *Issuer) SignRefreshToken(ctx context.Context, p refresh.SignParams) (*refresh.Signed, error) {
	key, err := i.keys.ActiveKey(ctx, p.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "[Issuer.SignRefreshToken] ActiveKey")
	}
	private, err := key.Private()
	if err != nil {
		return nil, errors.Wrap(err, "[Issuer.SignRefreshToken] Private")
	}

	now := i.nowFunc()
	expiresAt := now.Add(i.refreshTokenTTL)
	jti := uuid.New().String()
	issuer := i.IssuerForTenant(p.TenantID)

	claims := jwt.MapClaims{
		"iss":        issuer,
		"aud":        issuer,
		"sub":        p.Subject,
		"tenant_id":  p.TenantID,
		"scope":      p.Scope,
		"cnf":        map[string]any{"jkt": p.JKT},
		"family_id":  p.FamilyID,
		"session_id": p.SessionID,
		"client_id":  p.ClientID,
		"device_id":  p.DeviceID,
		"iat":        now.Unix(),
		"nbf":        now.Unix(),
		"exp":        expiresAt.Unix(),
		"jti":        jti,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	t.Header["kid"] = key.Kid
	signed, err := t.SignedString(private)
	if err != nil {
		return nil, errors.Wrap(err, "[Issuer.SignRefreshToken] SignedString")
	}

	return &refresh.Signed{
		Raw:       signed,
		JTI:       jti,
		Kid:       key.Kid,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// Claims are the verified claims of an access token.
type Claims struct {
	Subject   string
	TenantID  string
	SessionID string
	Scope     string
	JKT       string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerifyAccessToken parses and verifies an access token against the signing
// keys referenced by its kid header. Used by the logout path and by tests;
// resource servers perform the equivalent check on their side.
func (i *Issuer) VerifyAccessToken(ctx context.Context, raw string) (*Claims, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrInvalidToken
		}
		return i.keys.VerificationKey(ctx, kid)
	}, jwt.WithValidMethods([]string{keys.ES256}), jwt.WithTimeFunc(i.nowFunc))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	claims.Subject, _ = mapClaims["sub"].(string)
	claims.TenantID, _ = mapClaims["tenant"].(string)
	claims.SessionID, _ = mapClaims["sid"].(string)
	claims.Scope, _ = mapClaims["scope"].(string)
	claims.JTI, _ = mapClaims["jti"].(string)
	if cnf, ok := mapClaims["cnf"].(map[string]any); ok {
		claims.JKT, _ = cnf["jkt"].(string)
	}
	if iat, ok := mapClaims["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := mapClaims["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return claims, nil
}
