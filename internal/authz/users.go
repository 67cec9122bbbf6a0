package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gatekeeper.dev/internal/token"
)

// Session is the result of a successful login. ExpiresIn is the token
// validity window in seconds.
type Session struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
	User        *User  `json:"-"`
}

// UserService registers and authenticates user accounts. Password checking
// is delegated to the injected hasher and token issuance to the token
// service.
type UserService struct {
	users  UserStore
	hasher PasswordHasher
	tokens *token.Service
	newID  IDGenerator
}

// NewUserService wires the user orchestration.
func NewUserService(users UserStore, hasher PasswordHasher, tokens *token.Service, newID IDGenerator) (*UserService, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if newID == nil {
		newID = NewUUID
	}
	return &UserService{users: users, hasher: hasher, tokens: tokens, newID: newID}, nil
}

// Register creates a new account. When email is empty one is derived from
// the username. Fails with an already-exists error when the username is
// taken.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalidf("username is required")
	}
	if password == "" {
		return nil, invalidf("password is required")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		email = username + "@example.com"
	}

	if _, err := s.users.FindUserByUsername(ctx, username); err == nil {
		return nil, conflictf("user with username %s already exists", username)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &User{
		ID:             s.newID(),
		Username:       username,
		Email:          email,
		HashedPassword: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a bearer token. An unknown username
// fails with not-found; a wrong password fails with unauthorized.
func (s *UserService) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		return Session{}, err
	}
	if err := s.hasher.Verify(user.HashedPassword, password); err != nil {
		return Session{}, unauthorizedf("invalid password for user %s", username)
	}
	accessToken, err := s.tokens.Issue(token.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		User:        user,
	}, nil
}

// Authenticate resolves a bearer token to the account it was issued for.
func (s *UserService) Authenticate(ctx context.Context, tok string) (*User, error) {
	payload, err := s.tokens.Verify(tok)
	if err != nil {
		return nil, err
	}
	return s.users.FindUser(ctx, payload.UserID)
}

// GetUser loads an account by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*User, error) {
	return s.users.FindUser(ctx, id)
}

// ChangePassword replaces the stored credential hash.
func (s *UserService) ChangePassword(ctx context.Context, userID, password string) error {
	if password == "" {
		return invalidf("password is required")
	}
	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.HashedPassword = hash
	return s.users.UpdateUser(ctx, user)
}

// Delete removes an account; group memberships cascade in storage.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	return s.users.DeleteUser(ctx, userID)
}
