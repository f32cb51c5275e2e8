package http

import (
	"net/http"
)

// =============================================================================
// AUTHENTICATION STRATEGIES
// =============================================================================

// AuthConfig represents authentication configuration.
type AuthConfig interface {
	Apply(req *http.Request)
}

// NoAuth represents no authentication.
type NoAuth struct{}

func (a NoAuth) Apply(req *http.Request) {}

// APIKey uses API key authentication.
type APIKey struct {
	Key    string
	Header string // Header name (default: x-api-key)
}

// Apply adds the API key header to the request.
func (a APIKey) Apply(req *http.Request) {
	if a.Key == "" {
		return
	}
	header := a.Header
	if header == "" {
		header = "x-api-key"
	}
	req.Header.Set(header, a.Key)
}

// OrgAPIKey is an API key scoped to an organization. The org header is only
// sent when OrgID is non-empty.
type OrgAPIKey struct {
	APIKey
	OrgID string
}

// Apply adds the API key and, when set, the x-org-id header.
func (a OrgAPIKey) Apply(req *http.Request) {
	a.APIKey.Apply(req)
	if a.OrgID != "" {
		req.Header.Set("x-org-id", a.OrgID)
	}
}
