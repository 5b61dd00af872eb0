// Package auth resolves go-git transport credentials per remote URL.
package auth

import (
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Provider returns the transport.AuthMethod for a remote URL, or nil when
// the URL should be accessed anonymously.
type Provider interface {
	Method(remoteURL string) (transport.AuthMethod, error)
}
