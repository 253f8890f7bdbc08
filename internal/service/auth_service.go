package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/userkit/user-service/internal/auth"
	"github.com/userkit/user-service/internal/config"
	"github.com/userkit/user-service/internal/observability"
)

// AuthService coordinates the login flow: credential check, then token issuance.
type AuthService struct {
	verifier *auth.CredentialVerifier
	tokenMgr *auth.TokenManager
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Identities auth.IdentityStore
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewAuthService builds the service. When deps.Identities is nil the
// configured administrator pair is used.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	tokenMgr, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL())
	if err != nil {
		return nil, err
	}
	identities := deps.Identities
	if identities == nil {
		identities = auth.NewStaticIdentityStore(cfg.AdminUsername, cfg.AdminPassword)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		verifier: auth.NewCredentialVerifier(identities),
		tokenMgr: tokenMgr,
		logger:   logger,
		metrics:  deps.Metrics,
	}, nil
}

// Login verifies the pair and issues a bearer token. A mismatch returns
// auth.ErrCredentialMismatch without saying which field was wrong.
func (s *AuthService) Login(username, password string) (string, time.Time, error) {
	identity, err := s.verifier.Authenticate(username, password)
	if err != nil {
		s.metrics.RecordLogin(observability.LoginRejected)
		s.logger.Info("login rejected", zap.String("username", username))
		return "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.Issue(identity)
	if err != nil {
		return "", time.Time{}, err
	}
	s.metrics.RecordLogin(observability.LoginSucceeded)
	s.logger.Info("login succeeded", zap.String("username", username), zap.Time("expires_at", exp))
	return token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
