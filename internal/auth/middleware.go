package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/userkit/user-service/internal/domain"
	"github.com/userkit/user-service/internal/observability"
)

const (
	principalKey = "auth_principal"
	bearerPrefix = "Bearer "
)

// Principal represents the authenticated caller for the lifetime of a request.
type Principal struct {
	Identity    domain.Identity
	Authorities []domain.Authority
}

// HasAuthority reports whether the principal carries the given authority.
func (p *Principal) HasAuthority(a domain.Authority) bool {
	if p == nil {
		return false
	}
	for _, have := range p.Authorities {
		if have == a {
			return true
		}
	}
	return false
}

// Gate binds a Principal to requests carrying a valid bearer token. It never
// rejects a request; the authorization stage decides what an anonymous caller may do.
type Gate struct {
	tokens  *TokenManager
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewGate constructs the authentication stage.
func NewGate(tokens *TokenManager, logger *zap.Logger, metrics *observability.Metrics) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, logger: logger, metrics: metrics}
}

// Authenticate makes exactly one parse attempt for the request's bearer token.
func (g *Gate) Authenticate(authHeader string) (*Principal, bool) {
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return nil, false
	}
	identity, err := g.tokens.ParseIdentity(authHeader[len(bearerPrefix):])
	if err != nil {
		g.logger.Debug("bearer token rejected", zap.Error(err))
		g.metrics.RecordTokenRejected()
		return nil, false
	}
	return &Principal{
		Identity:    identity,
		Authorities: []domain.Authority{domain.AuthorityAdmin},
	}, true
}

// Handle is the Fiber middleware form of Authenticate.
func (g *Gate) Handle(c *fiber.Ctx) error {
	c.Locals(principalKey, nil)
	if principal, ok := g.Authenticate(c.Get(fiber.HeaderAuthorization)); ok {
		c.Locals(principalKey, principal)
	}
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal != nil
}
