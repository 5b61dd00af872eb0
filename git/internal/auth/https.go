package auth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/zyedidia/glob"
)

// TokenUsername is the user name GitHub expects with installation and
// workflow tokens.
const TokenUsername = "x-access-token"

var _ Provider = (*HTTPSAuthProvider)(nil)

// HTTPSAuthProvider sends basic credentials to https remotes.
type HTTPSAuthProvider struct {
	auth *http.BasicAuth

	// AllowedHosts restricts authentication to host glob patterns such as
	// "github.com" or "*.example.com". Empty allows every host.
	AllowedHosts []string
}

// NewHTTPSAuthProvider creates a provider for a user name and password.
func NewHTTPSAuthProvider(username, password string) *HTTPSAuthProvider {
	return &HTTPSAuthProvider{
		auth: &http.BasicAuth{Username: username, Password: password},
	}
}

// NewHTTPSTokenProvider creates a provider for token authentication.
func NewHTTPSTokenProvider(token string) *HTTPSAuthProvider {
	return NewHTTPSAuthProvider(TokenUsername, token)
}

// WithAllowedHosts sets the allowed hosts for this provider.
func (p *HTTPSAuthProvider) WithAllowedHosts(hosts ...string) *HTTPSAuthProvider {
	p.AllowedHosts = hosts
	return p
}

// Method returns the authentication method for remoteURL. Non-https URLs are
// an error; hosts outside AllowedHosts get no authentication.
//
//nolint:ireturn // go-git requires returning transport.AuthMethod interface
func (p *HTTPSAuthProvider) Method(remoteURL string) (transport.AuthMethod, error) {
	parsedURL, err := url.Parse(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("HTTPS auth provider only supports https:// URLs, got %q", parsedURL.Scheme)
	}

	if len(p.AllowedHosts) > 0 && !p.isHostAllowed(parsedURL.Hostname()) {
		return nil, nil
	}
	return p.auth, nil
}

func (p *HTTPSAuthProvider) isHostAllowed(host string) bool {
	for _, pattern := range p.AllowedHosts {
		if matchesPattern(host, pattern) {
			return true
		}
	}
	return false
}

// matchesPattern matches host case-insensitively against a glob. "*.x" also
// matches the bare domain x.
func matchesPattern(host, pattern string) bool {
	host = strings.ToLower(host)
	pattern = strings.ToLower(pattern)
	if host == pattern || strings.TrimPrefix(pattern, "*.") == host {
		return true
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		return false
	}
	return g.MatchString(host)
}
