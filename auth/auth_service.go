// Package auth composes the authorization-code, login, and token-exchange
// flows out of the code store, DPoP validation, session tracking, refresh
// families, and the token issuer.
package auth

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/authcode"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/clients"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/dpop"
	apperrors "github.com/latamteks-cmyk/SmartEdify-app-sub003/internal/errors"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/oauthmodel"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/pkce"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/revocation"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/sessions"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/refresh"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/users"
)

type Service struct {
	clients    clients.Repo
	users      users.Repo
	codes      *authcode.Store
	sessions   *sessions.Service
	refresh    *refresh.Manager
	issuer     *token.Issuer
	dpop       *dpop.Validator
	revocation *revocation.Registry
	logger     zerolog.Logger
}

type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func NewService(
	clientRepo clients.Repo,
	userRepo users.Repo,
	codes *authcode.Store,
	sessionService *sessions.Service,
	refreshManager *refresh.Manager,
	issuer *token.Issuer,
	dpopValidator *dpop.Validator,
	registry *revocation.Registry,
	options ...ServiceOption,
) *Service {
	s := &Service{
		clients:    clientRepo,
		users:      userRepo,
		codes:      codes,
		sessions:   sessionService,
		refresh:    refreshManager,
		issuer:     issuer,
		dpop:       dpopValidator,
		revocation: registry,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}

	// A revoked family takes its session with it: theft of a refresh token
	// must also kill the access tokens minted under the same session.
	refreshManager.AddFamilyRevokedListener(func(ctx context.Context, event refresh.FamilyRevokedEvent) {
		if event.SessionID == "" {
			return
		}
		if err := sessionService.Revoke(ctx, event.SessionID); err != nil {
			s.logger.Error().Err(err).
				Str("session_id", event.SessionID).
				Str("family_id", event.FamilyID).
				Msg("session cascade after family revocation failed")
		}
	})
	return s
}

// Authorize validates an authorization request and issues a pending code.
// The code is not yet tied to a user; Login binds it after credential
// verification.
func (s *Service) Authorize(ctx context.Context, p AuthorizationParameters) (string, error) {
	client, err := p.Validate(ctx, s.clients)
	if err != nil {
		return "", err
	}

	code, err := s.codes.Issue(ctx, authcode.IssueParams{
		ClientID:            client.ID,
		TenantID:            p.TenantID,
		RedirectURI:         p.RedirectURI,
		Scope:               p.Scope,
		CodeChallenge:       p.CodeChallenge,
		CodeChallengeMethod: p.CodeChallengeMethod,
	})
	if err != nil {
		return "", errors.Wrap(err, "[Service.Authorize] codes.Issue")
	}

	s.logger.Info().
		Str("client_id", client.ID).
		Str("tenant_id", p.TenantID).
		Msg("authorization code issued")
	return code, nil
}

// LoginParams carries the credentials presented against a pending code.
type LoginParams struct {
	Code     string
	TenantID string
	Email    string
	Password string
	DeviceID string
}

// Login verifies credentials and binds the user to the pending code. The
// code stays single-use; binding does not consume it.
func (s *Service) Login(ctx context.Context, p LoginParams) error {
	user, err := users.Authenticate(ctx, s.users, p.TenantID, p.Email, p.Password)
	if err != nil {
		return err
	}
	if err := s.codes.Bind(ctx, p.Code, user.ID, p.DeviceID); err != nil {
		return err
	}

	s.logger.Info().
		Str("tenant_id", p.TenantID).
		Msg("user authenticated, code bound")
	return nil
}

// ProofParams carries the DPoP proof and the request coordinates it must
// cover.
type ProofParams struct {
	Raw string
	HTM string
	HTU string
}

// Token is the grant dispatcher behind POST /oauth2/token.
func (s *Service) Token(ctx context.Context, req oauthmodel.TokenRequest, proof ProofParams) (*oauthmodel.TokenResponse, error) {
	switch req.GrantType {
	case oauthmodel.GrantTypeAuthorizationCode:
		return s.exchangeCode(ctx, req, proof)
	case oauthmodel.GrantTypeRefreshToken:
		return s.rotateRefreshToken(ctx, req, proof)
	default:
		return nil, apperrors.ErrInvalidRequest
	}
}

// exchangeCode is the authorization_code grant: consume the code, verify
// PKCE, validate the DPoP proof, open a session and a token family, and mint
// the bound access token.
func (s *Service) exchangeCode(ctx context.Context, req oauthmodel.TokenRequest, proof ProofParams) (*oauthmodel.TokenResponse, error) {
	code, err := s.codes.Consume(ctx, req.Code, req.RedirectURI)
	if err != nil {
		return nil, apperrors.ErrInvalidGrant
	}
	if code.ClientID != req.ClientID {
		return nil, apperrors.ErrInvalidGrant
	}
	if !pkce.Verify(code.CodeChallenge, code.CodeChallengeMethod, req.CodeVerifier) {
		return nil, apperrors.ErrInvalidCodeVerifier
	}

	validated, err := s.dpop.Validate(ctx, proof.Raw, proof.HTM, proof.HTU, code.TenantID)
	if err != nil {
		return nil, err
	}

	deviceID := code.DeviceID
	if deviceID == "" {
		deviceID = req.DeviceID
	}

	session, err := s.sessions.Start(ctx, sessions.StartParams{
		UserID:   code.UserID,
		TenantID: code.TenantID,
		DeviceID: deviceID,
		CnfJKT:   validated.JKT,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Service.exchangeCode] sessions.Start")
	}

	rawRefresh, _, err := s.refresh.Open(ctx, refresh.OpenParams{
		UserID:    code.UserID,
		TenantID:  code.TenantID,
		ClientID:  code.ClientID,
		DeviceID:  deviceID,
		SessionID: session.ID,
		Scope:     code.Scope,
		JKT:       validated.JKT,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Service.exchangeCode] refresh.Open")
	}

	accessToken, err := s.issuer.IssueAccessToken(ctx, token.AccessTokenParams{
		Subject:   code.UserID,
		TenantID:  code.TenantID,
		ClientID:  code.ClientID,
		SessionID: session.ID,
		Scope:     code.Scope,
		JKT:       validated.JKT,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Service.exchangeCode] IssueAccessToken")
	}

	s.logger.Info().
		Str("tenant_id", code.TenantID).
		Str("session_id", session.ID).
		Msg("authorization code exchanged")

	return &oauthmodel.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		TokenType:    oauthmodel.TokenTypeDPoP,
		ExpiresIn:    int64(s.issuer.AccessTokenTTL().Seconds()),
		Scope:        code.Scope,
	}, nil
}

// rotateRefreshToken is the refresh_token grant. The stored record is
// resolved first so the proof can be checked against the tenant and key the
// token is bound to; the revocation watermark is consulted before rotation so
// a logged-out session cannot mint new tokens.
func (s *Service) rotateRefreshToken(ctx context.Context, req oauthmodel.TokenRequest, proof ProofParams) (*oauthmodel.TokenResponse, error) {
	record, err := s.refresh.Lookup(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	validated, err := s.dpop.Validate(ctx, proof.Raw, proof.HTM, proof.HTU, record.TenantID)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocation.IsRevoked(ctx, revocation.Query{
		TenantID:  record.TenantID,
		Subject:   record.UserID,
		SessionID: record.SessionID,
	}, record.IssuedAt)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.rotateRefreshToken] IsRevoked")
	}
	if revoked {
		return nil, refresh.ErrTokenInvalid
	}

	rawRefresh, child, err := s.refresh.Rotate(ctx, req.RefreshToken, validated.JKT)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.issuer.IssueAccessToken(ctx, token.AccessTokenParams{
		Subject:   child.UserID,
		TenantID:  child.TenantID,
		ClientID:  child.ClientID,
		SessionID: child.SessionID,
		Scope:     child.Scope,
		JKT:       child.JKT,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Service.rotateRefreshToken] IssueAccessToken")
	}

	return &oauthmodel.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		TokenType:    oauthmodel.TokenTypeDPoP,
		ExpiresIn:    int64(s.issuer.AccessTokenTTL().Seconds()),
		Scope:        child.Scope,
	}, nil
}

// Logout ends the session named by a verified access token and revokes its
// refresh-token families. Access tokens minted under the session die at the
// revocation watermark.
func (s *Service) Logout(ctx context.Context, rawAccessToken string) error {
	claims, err := s.issuer.VerifyAccessToken(ctx, rawAccessToken)
	if err != nil {
		return apperrors.ErrUnauthorized
	}
	if claims.SessionID == "" {
		return apperrors.ErrUnauthorized
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			return apperrors.ErrUnauthorized
		}
		return errors.Wrap(err, "[Service.Logout] sessions.Get")
	}
	if session.UserID != claims.Subject || session.TenantID != claims.TenantID {
		return apperrors.ErrUnauthorized
	}

	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		return errors.Wrap(err, "[Service.Logout] sessions.Revoke")
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Str("tenant_id", session.TenantID).
		Msg("logout completed")
	return nil
}

// RevokeUserSessions is the administrative kill switch: every session and
// every refresh-token family of the user goes down, and a subject-level
// watermark invalidates all outstanding access tokens.
func (s *Service) RevokeUserSessions(ctx context.Context, userID, tenantID, reason string) (int, error) {
	if reason == "" {
		reason = "admin_revocation"
	}
	if err := s.refresh.RevokeAllForUser(ctx, userID, tenantID, reason); err != nil {
		return 0, errors.Wrap(err, "[Service.RevokeUserSessions] refresh.RevokeAllForUser")
	}
	count, err := s.sessions.RevokeUserSessions(ctx, userID, tenantID)
	if err != nil {
		return 0, errors.Wrap(err, "[Service.RevokeUserSessions] sessions.RevokeUserSessions")
	}
	return count, nil
}
