package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomchat/backend/internal/config"
	"roomchat/backend/internal/models"
	"roomchat/backend/internal/storage"
)

var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrBadCredentials = errors.New("incorrect email or password")
)

// UserStore is the part of storage.Storage the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service ties tokens, passwords and the blacklist to the user table.
type Service struct {
	Users     UserStore
	Tokens    *TokenManager
	Passwords *PasswordHasher
	Blacklist Blacklist
}

func NewService(users UserStore, tokens *TokenManager, passwords *PasswordHasher, blacklist Blacklist) *Service {
	return &Service{
		Users:     users,
		Tokens:    tokens,
		Passwords: passwords,
		Blacklist: blacklist,
	}
}

// Register creates an account with a hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	hash, err := s.Passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Name: name, Email: email, Password: hash}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// Authenticate checks an email/password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.Users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.Passwords.Verify(password, user.Password) {
		return nil, ErrBadCredentials
	}
	return user, nil
}

// IssueToken returns a fresh access token for user.
func (s *Service) IssueToken(user *models.User) (string, error) {
	return s.Tokens.Generate(user.Email)
}

// ResolveToken turns a bearer credential into the user it was issued to.
// Every rejection is reported as ErrInvalidToken; only storage or blacklist
// outages surface as other errors.
func (s *Service) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := s.Blacklist.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}

	claims, err := s.Tokens.Validate(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.Users.GetUserByEmail(ctx, claims.Subject)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Revoke blacklists token until it would have expired. A token that cannot
// be decoded is blacklisted for a fixed period instead.
func (s *Service) Revoke(ctx context.Context, token string) error {
	until, err := s.Tokens.ExpiresAt(token)
	if err != nil {
		until = time.Now().Add(config.UndecodableTokenRevocation)
	}
	return s.Blacklist.Revoke(ctx, token, until)
}
