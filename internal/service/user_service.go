package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/userkit/user-service/internal/domain"
	"github.com/userkit/user-service/internal/events"
	"github.com/userkit/user-service/internal/repository"
	apperrors "github.com/userkit/user-service/pkg/util"
)

// ErrUserNotFound is wrapped by every id-addressed lookup miss.
var ErrUserNotFound = errors.New("User not found")

// UserInput carries the writable user fields.
type UserInput struct {
	Name  string
	Email string
}

// UserService implements CRUD over users and emits lifecycle events.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewUserService builds the service. dispatcher may be nil.
func NewUserService(users repository.UserRepository, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, dispatcher: dispatcher, logger: logger, now: time.Now}
}

// Create stores a new user with a generated id.
func (s *UserService) Create(ctx context.Context, actor domain.Identity, in UserInput) (*domain.User, error) {
	in, err := validateUserInput(in)
	if err != nil {
		return nil, err
	}
	user := &domain.User{ID: uuid.NewString(), Name: in.Name, Email: in.Email}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.publish(ctx, events.EventUserCreated, actor, user.ID, events.UserChangedPayload{Name: user.Name, Email: user.Email})
	return user, nil
}

// List returns every user; the slice is empty, never nil, when there are none.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// Get returns the user with the given id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, notFound(nil)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return user, nil
}

// Update replaces the writable fields of an existing user.
func (s *UserService) Update(ctx context.Context, actor domain.Identity, id string, in UserInput) (*domain.User, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, notFound(nil)
	}
	in, err := validateUserInput(in)
	if err != nil {
		return nil, err
	}
	user := &domain.User{ID: id, Name: in.Name, Email: in.Email}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapLookupError(err)
	}
	s.publish(ctx, events.EventUserUpdated, actor, user.ID, events.UserChangedPayload{Name: user.Name, Email: user.Email})
	return user, nil
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	id, ok := canonicalID(id)
	if !ok {
		return notFound(nil)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return mapLookupError(err)
	}
	s.publish(ctx, events.EventUserDeleted, actor, id, nil)
	return nil
}

func (s *UserService) publish(ctx context.Context, typ events.EventType, actor domain.Identity, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		UserID:    userID,
		Actor:     actor,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(typ)), zap.Error(err))
	}
}

func validateUserInput(in UserInput) (UserInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" {
		return in, apperrors.NewValidationError("name must not be blank", map[string]any{"field": "name"})
	}
	return in, nil
}

// Ids are UUIDs; anything else cannot exist and is reported as a miss.
func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func notFound(cause error) error {
	if cause == nil {
		cause = ErrUserNotFound
	} else {
		cause = errors.Join(ErrUserNotFound, cause)
	}
	return apperrors.NewNotFound(ErrUserNotFound.Error(), cause)
}

func mapLookupError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(err)
	}
	return apperrors.NewInternalError(err)
}
