package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"baccarat-live-backend/internal/models"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Auth verifies and creates credentials. Callers never see password hashes.
type Auth interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Verify(ctx context.Context, username, password string) (*models.User, error)
}

// AuthService keeps credentials inside the ledger's user records,
// hashed with bcrypt.
type AuthService struct {
	ledger Ledger
}

func NewAuthService(ledger Ledger) *AuthService {
	return &AuthService{ledger: ledger}
}

func (a *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return a.ledger.CreateUser(ctx, username, string(hash))
}

func (a *AuthService) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := a.ledger.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
