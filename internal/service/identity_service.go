package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tsuitodo/tasklist-backend/internal/domain"
	"github.com/tsuitodo/tasklist-backend/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterRequest holds the credentials for a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest holds the credentials presented at sign-in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the representation of a user returned by the service.
// It never carries the credential.
type UserResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

// IdentityService is the session gate: it creates accounts, checks
// credentials, and resolves a session's stored user id back to a live record.
type IdentityService interface {
	// Register creates a new account if the email is unused and returns the
	// new user, ready to be signed in immediately.
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)

	// Login checks credentials. An unknown email and a wrong password are
	// distinct failures (domain.ErrUnknownEmail, domain.ErrBadPassword).
	Login(ctx context.Context, req LoginRequest) (*UserResponse, error)

	// CurrentUser resolves a session's user id to a full record. A miss means
	// the session is stale and must be invalidated by the caller.
	CurrentUser(ctx context.Context, id uint) (*UserResponse, error)
}

type identityService struct {
	users repository.UserRepository
}

// NewIdentityService creates a new instance of identityService.
func NewIdentityService(users repository.UserRepository) IdentityService {
	return &identityService{users: users}
}

func (s *identityService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.New("email and password are required")
	}

	// Email matching is exact and case-sensitive.
	if _, err := s.users.FindByEmail(req.Email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("checking existing account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(user); err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}

	return &UserResponse{ID: user.ID, Email: user.Email}, nil
}

func (s *identityService) Login(ctx context.Context, req LoginRequest) (*UserResponse, error) {
	user, err := s.users.FindByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnknownEmail
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, domain.ErrBadPassword
	}

	return &UserResponse{ID: user.ID, Email: user.Email}, nil
}

func (s *identityService) CurrentUser(ctx context.Context, id uint) (*UserResponse, error) {
	user, err := s.users.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("loading session user %d: %w", id, err)
	}
	return &UserResponse{ID: user.ID, Email: user.Email}, nil
}
