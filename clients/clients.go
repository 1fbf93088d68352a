// Package clients holds the registered OAuth2 clients and their grant
// constraints.
package clients

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

var ErrClientNotFound = errors.New("client not found")

type ClientType string

const (
	TypePublic       ClientType = "public"
	TypeConfidential ClientType = "confidential"
)

type Client struct {
	ID           string
	Secret       string
	Type         ClientType
	TenantID     string
	RedirectURIs []string
	Scopes       []string
}

func (c *Client) IsPublic() bool {
	return c.Type == TypePublic
}

// ValidateRedirectURI requires an exact match against the registered set; no
// prefix or wildcard matching.
func (c *Client) ValidateRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// ValidateScopes checks every requested scope against the client's allowed
// set. An empty request is valid.
func (c *Client) ValidateScopes(requested string) bool {
	if requested == "" {
		return true
	}
	allowed := make(map[string]struct{}, len(c.Scopes))
	for _, scope := range c.Scopes {
		allowed[scope] = struct{}{}
	}
	for _, scope := range strings.Fields(requested) {
		if _, ok := allowed[scope]; !ok {
			return false
		}
	}
	return true
}

type Repo interface {
	GetByID(ctx context.Context, id string) (*Client, error)
}
