package keys

import (
	"crypto/subtle"

	"github.com/kiranshivaraju/keyserver/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// AdminGate checks the shared admin credential sent with Add, Remove and
// List requests.
type AdminGate struct {
	secret []byte
	hash   []byte
}

// NewAdminGate builds a gate from the configured credential.
func NewAdminGate(cfg config.AdminConfig) *AdminGate {
	g := &AdminGate{}
	if cfg.Secret != "" {
		g.secret = []byte(cfg.Secret)
	}
	if cfg.SecretHash != "" {
		g.hash = []byte(cfg.SecretHash)
	}
	return g
}

// Check returns nil when credential matches the plaintext secret or the
// bcrypt hash. With no credential configured every check fails with
// ErrNotConfigured.
func (g *AdminGate) Check(credential string) error {
	if g == nil || (len(g.secret) == 0 && len(g.hash) == 0) {
		return newError(ErrNotConfigured, "ADMIN_KEY is not set in the environment variables.")
	}
	if credential == "" {
		return newError(ErrUnauthorized, "Unauthorized")
	}
	if len(g.secret) > 0 && subtle.ConstantTimeCompare(g.secret, []byte(credential)) == 1 {
		return nil
	}
	if len(g.hash) > 0 && bcrypt.CompareHashAndPassword(g.hash, []byte(credential)) == nil {
		return nil
	}
	return newError(ErrUnauthorized, "Unauthorized")
}
