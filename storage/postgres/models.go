package postgres

import (
	"strings"
	"time"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/authcode"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/clients"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/revocation"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/sessions"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/keys"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/refresh"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/users"
)

type authCodeModel struct {
	Code                string `gorm:"primaryKey"`
	ClientID            string `gorm:"index"`
	TenantID            string
	RedirectURI         string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	UserID              string
	DeviceID            string
	CreatedAt           time.Time
	ExpiresAt           time.Time `gorm:"index"`
}

func (authCodeModel) TableName() string { return "auth_codes" }

func (m *authCodeModel) toDomain() *authcode.Code {
	return &authcode.Code{
		Code:                m.Code,
		ClientID:            m.ClientID,
		TenantID:            m.TenantID,
		RedirectURI:         m.RedirectURI,
		Scope:               m.Scope,
		CodeChallenge:       m.CodeChallenge,
		CodeChallengeMethod: m.CodeChallengeMethod,
		UserID:              m.UserID,
		DeviceID:            m.DeviceID,
		CreatedAt:           m.CreatedAt,
		ExpiresAt:           m.ExpiresAt,
	}
}

func authCodeFromDomain(c *authcode.Code) *authCodeModel {
	return &authCodeModel{
		Code:                c.Code,
		ClientID:            c.ClientID,
		TenantID:            c.TenantID,
		RedirectURI:         c.RedirectURI,
		Scope:               c.Scope,
		CodeChallenge:       c.CodeChallenge,
		CodeChallengeMethod: c.CodeChallengeMethod,
		UserID:              c.UserID,
		DeviceID:            c.DeviceID,
		CreatedAt:           c.CreatedAt,
		ExpiresAt:           c.ExpiresAt,
	}
}

// replayEntryModel carries the cross-instance replay constraint: the
// composite unique index is what makes a DPoP jti single-use fleet-wide.
type replayEntryModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	TenantID  string `gorm:"uniqueIndex:idx_replay_tenant_jkt_jti"`
	JKT       string `gorm:"uniqueIndex:idx_replay_tenant_jkt_jti"`
	JTI       string `gorm:"uniqueIndex:idx_replay_tenant_jkt_jti"`
	IAT       time.Time
	CreatedAt time.Time
}

func (replayEntryModel) TableName() string { return "dpop_replay_entries" }

type refreshTokenModel struct {
	ID            string `gorm:"primaryKey"`
	TokenHash     string `gorm:"uniqueIndex"`
	JKT           string
	Kid           string
	JTI           string
	FamilyID      string `gorm:"index"`
	ParentID      string
	ReplacedByID  string
	UsedAt        *time.Time
	UserID        string `gorm:"index"`
	ClientID      string
	DeviceID      string
	SessionID     string
	TenantID      string
	Scope         string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Revoked       bool
	RevokedReason string
}

func (refreshTokenModel) TableName() string { return "refresh_tokens" }

func (m *refreshTokenModel) toDomain() *refresh.Token {
	return &refresh.Token{
		ID:            m.ID,
		TokenHash:     m.TokenHash,
		JKT:           m.JKT,
		Kid:           m.Kid,
		JTI:           m.JTI,
		FamilyID:      m.FamilyID,
		ParentID:      m.ParentID,
		ReplacedByID:  m.ReplacedByID,
		UsedAt:        m.UsedAt,
		UserID:        m.UserID,
		ClientID:      m.ClientID,
		DeviceID:      m.DeviceID,
		SessionID:     m.SessionID,
		TenantID:      m.TenantID,
		Scope:         m.Scope,
		IssuedAt:      m.IssuedAt,
		ExpiresAt:     m.ExpiresAt,
		Revoked:       m.Revoked,
		RevokedReason: m.RevokedReason,
	}
}

func refreshTokenFromDomain(t *refresh.Token) *refreshTokenModel {
	return &refreshTokenModel{
		ID:            t.ID,
		TokenHash:     t.TokenHash,
		JKT:           t.JKT,
		Kid:           t.Kid,
		JTI:           t.JTI,
		FamilyID:      t.FamilyID,
		ParentID:      t.ParentID,
		ReplacedByID:  t.ReplacedByID,
		UsedAt:        t.UsedAt,
		UserID:        t.UserID,
		ClientID:      t.ClientID,
		DeviceID:      t.DeviceID,
		SessionID:     t.SessionID,
		TenantID:      t.TenantID,
		Scope:         t.Scope,
		IssuedAt:      t.IssuedAt,
		ExpiresAt:     t.ExpiresAt,
		Revoked:       t.Revoked,
		RevokedReason: t.RevokedReason,
	}
}

type sessionModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	TenantID  string
	DeviceID  string
	CnfJKT    string
	Version   int
	IssuedAt  time.Time
	NotAfter  time.Time
	RevokedAt *time.Time
}

func (sessionModel) TableName() string { return "sessions" }

func (m *sessionModel) toDomain() *sessions.Session {
	return &sessions.Session{
		ID:        m.ID,
		UserID:    m.UserID,
		TenantID:  m.TenantID,
		DeviceID:  m.DeviceID,
		CnfJKT:    m.CnfJKT,
		Version:   m.Version,
		IssuedAt:  m.IssuedAt,
		NotAfter:  m.NotAfter,
		RevokedAt: m.RevokedAt,
	}
}

func sessionFromDomain(s *sessions.Session) *sessionModel {
	return &sessionModel{
		ID:        s.ID,
		UserID:    s.UserID,
		TenantID:  s.TenantID,
		DeviceID:  s.DeviceID,
		CnfJKT:    s.CnfJKT,
		Version:   s.Version,
		IssuedAt:  s.IssuedAt,
		NotAfter:  s.NotAfter,
		RevokedAt: s.RevokedAt,
	}
}

type signingKeyModel struct {
	Kid           string `gorm:"primaryKey"`
	TenantID      string `gorm:"index"`
	Algorithm     string
	PublicKeyPEM  string
	PrivateKeyPEM string
	Status        string `gorm:"index"`
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

func (signingKeyModel) TableName() string { return "signing_keys" }

func (m *signingKeyModel) toDomain() *keys.SigningKey {
	return &keys.SigningKey{
		Kid:           m.Kid,
		TenantID:      m.TenantID,
		Algorithm:     m.Algorithm,
		PublicKeyPEM:  m.PublicKeyPEM,
		PrivateKeyPEM: m.PrivateKeyPEM,
		Status:        keys.Status(m.Status),
		CreatedAt:     m.CreatedAt,
		ExpiresAt:     m.ExpiresAt,
	}
}

func signingKeyFromDomain(k *keys.SigningKey) *signingKeyModel {
	return &signingKeyModel{
		Kid:           k.Kid,
		TenantID:      k.TenantID,
		Algorithm:     k.Algorithm,
		PublicKeyPEM:  k.PublicKeyPEM,
		PrivateKeyPEM: k.PrivateKeyPEM,
		Status:        string(k.Status),
		CreatedAt:     k.CreatedAt,
		ExpiresAt:     k.ExpiresAt,
	}
}

type revocationEventModel struct {
	ID        string `gorm:"primaryKey"`
	Type      string
	Subject   string `gorm:"index"`
	TenantID  string
	SessionID string `gorm:"index"`
	JTI       string
	NotBefore time.Time
	CreatedAt time.Time
}

func (revocationEventModel) TableName() string { return "revocation_events" }

func revocationEventFromDomain(e *revocation.Event) *revocationEventModel {
	return &revocationEventModel{
		ID:        e.ID,
		Type:      string(e.Type),
		Subject:   e.Subject,
		TenantID:  e.TenantID,
		SessionID: e.SessionID,
		JTI:       e.JTI,
		NotBefore: e.NotBefore,
		CreatedAt: e.CreatedAt,
	}
}

type clientModel struct {
	ID           string `gorm:"primaryKey"`
	Secret       string
	Type         string
	TenantID     string
	RedirectURIs string
	Scopes       string
	CreatedAt    time.Time
}

func (clientModel) TableName() string { return "clients" }

func (m *clientModel) toDomain() *clients.Client {
	return &clients.Client{
		ID:           m.ID,
		Secret:       m.Secret,
		Type:         clients.ClientType(m.Type),
		TenantID:     m.TenantID,
		RedirectURIs: splitList(m.RedirectURIs),
		Scopes:       splitList(m.Scopes),
	}
}

type userModel struct {
	ID           string `gorm:"primaryKey"`
	TenantID     string `gorm:"index"`
	Email        string `gorm:"index"`
	PasswordHash string
	Blocked      bool
	CreatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

func (m *userModel) toDomain() *users.User {
	return &users.User{
		ID:           m.ID,
		TenantID:     m.TenantID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Blocked:      m.Blocked,
		CreatedAt:    m.CreatedAt,
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}
