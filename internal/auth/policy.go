package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/userkit/user-service/internal/domain"
	apperrors "github.com/userkit/user-service/pkg/util"
)

// Decision is the outcome of the authorization stage.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	case DenyForbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Rule grants access to a path prefix. A prefix matches itself and any
// sub-path below it.
type Rule struct {
	Prefix    string
	Public    bool
	Authority domain.Authority
}

// Policy maps request paths to access requirements. Rules are evaluated in
// order; paths matching no rule require any authenticated principal.
type Policy struct {
	rules []Rule
}

// NewPolicy builds a policy from ordered rules.
func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: rules}
}

// DefaultPolicy: login, hello and health are public, /users needs ADMIN.
func DefaultPolicy() *Policy {
	return NewPolicy(
		Rule{Prefix: "/login", Public: true},
		Rule{Prefix: "/hello", Public: true},
		Rule{Prefix: "/health", Public: true},
		Rule{Prefix: "/users", Authority: domain.AuthorityAdmin},
	)
}

// Authorize is a pure function of the path and the (possibly nil) principal.
func (p *Policy) Authorize(path string, principal *Principal) Decision {
	path = normalizePath(path)
	for _, rule := range p.rules {
		if !matchPrefix(path, rule.Prefix) {
			continue
		}
		if rule.Public {
			return Allow
		}
		if principal == nil {
			return DenyUnauthenticated
		}
		if rule.Authority != "" && !principal.HasAuthority(rule.Authority) {
			return DenyForbidden
		}
		return Allow
	}
	if principal == nil {
		return DenyUnauthenticated
	}
	return Allow
}

// Challenge describes the WWW-Authenticate header sent with 401 responses.
type Challenge struct {
	Scheme string
	Realm  string
}

func (ch Challenge) String() string {
	return fmt.Sprintf("%s realm=%q", ch.Scheme, ch.Realm)
}

// Enforce is the Fiber middleware form of Authorize. It must run after Gate.Handle.
func (p *Policy) Enforce(challenge Challenge) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		switch p.Authorize(c.Path(), principal) {
		case Allow:
			return c.Next()
		case DenyForbidden:
			return apperrors.NewForbidden("admin authority required")
		default:
			c.Set(fiber.HeaderWWWAuthenticate, challenge.String())
			return c.Status(http.StatusUnauthorized).SendString("Unauthorized")
		}
	}
}

// Fiber routes case-insensitively and ignores trailing slashes, so the policy does too.
func normalizePath(path string) string {
	path = strings.ToLower(path)
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}

func matchPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
