package auth

import (
	"context"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/clients"
	apperrors "github.com/latamteks-cmyk/SmartEdify-app-sub003/internal/errors"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/oauthmodel"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/pkce"
)

// AuthorizationParameters are the query parameters of GET /oauth2/authorize.
type AuthorizationParameters struct {
	ResponseType        string
	ClientID            string
	TenantID            string
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// Validate resolves the client and checks the request against its
// registration. The redirect URI is validated before anything else so errors
// are never sent to an unregistered destination. PKCE with S256 is mandatory
// for every client; "plain" is rejected outright.
func (p *AuthorizationParameters) Validate(ctx context.Context, repo clients.Repo) (*clients.Client, error) {
	client, err := repo.GetByID(ctx, p.ClientID)
	if err != nil {
		return nil, apperrors.ErrInvalidClient
	}
	if client.TenantID != p.TenantID {
		return nil, apperrors.ErrInvalidClient
	}
	if !client.ValidateRedirectURI(p.RedirectURI) {
		return nil, apperrors.ErrInvalidRedirectURI
	}
	if p.ResponseType != oauthmodel.ResponseTypeCode {
		return nil, apperrors.ErrInvalidRequest
	}
	if !client.ValidateScopes(p.Scope) {
		return nil, apperrors.ErrInvalidScope
	}
	if p.CodeChallenge == "" || p.CodeChallengeMethod != pkce.MethodS256 {
		return nil, apperrors.ErrInvalidRequest
	}
	return client, nil
}
