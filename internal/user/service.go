package user

import (
	"context"
	"errors"
	"time"

	"chat-platform/internal/auth"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidArgument    = errors.New("invalid argument")
)

// Service is the user directory: registration, credential checks, and
// profile lookups for the rest of the system.
type Service struct {
	store Store
	clock func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: time.Now}
}

func (s *Service) Register(ctx context.Context, username, password, displayName string) (User, error) {
	if username == "" || password == "" {
		return User{}, ErrInvalidArgument
	}
	if displayName == "" {
		displayName = username
	}
	if _, ok, err := s.store.FindByUsername(ctx, username); err != nil {
		return User{}, err
	} else if ok {
		return User{}, ErrUsernameTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.store.Save(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, ok, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if !ok || !auth.VerifyPassword(password, u.PasswordHash) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	u, ok, err := s.store.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *Service) FindAll(ctx context.Context) ([]User, error) {
	return s.store.FindAll(ctx)
}

// UpdateProfile applies the non-nil fields to the user's profile.
func (s *Service) UpdateProfile(ctx context.Context, id string, displayName, avatarURL *string) (User, error) {
	u, ok, err := s.store.Update(ctx, id, func(u User) User {
		if displayName != nil && *displayName != "" {
			u.DisplayName = *displayName
		}
		if avatarURL != nil {
			u.AvatarURL = *avatarURL
		}
		return u
	})
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// DisplayName resolves a user's display name for notifications.
// Unknown ids resolve to "Unknown" rather than failing a fan-out.
func (s *Service) DisplayName(ctx context.Context, id string) string {
	u, ok, err := s.store.FindByID(ctx, id)
	if err != nil || !ok {
		return "Unknown"
	}
	return u.DisplayName
}
