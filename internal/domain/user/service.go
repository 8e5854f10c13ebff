package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/model"
)

var (
	ErrUserNotFound       = apperr.New(apperr.ErrNotFound, "user not found")
	ErrInvalidEmail       = apperr.New(apperr.ErrInvalidArgument, "a valid email is required")
	ErrInvalidName        = apperr.New(apperr.ErrInvalidArgument, "name is required")
	ErrEmailTaken         = apperr.New(apperr.ErrInvalidArgument, "email is already registered")
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthorized, "invalid email or password")
)

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type Service struct {
	profiles store.ProfileStore
}

func NewService(profiles store.ProfileStore) *Service {
	return &Service{profiles: profiles}
}

// Register creates a customer profile
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.Profile, error) {
	return s.register(ctx, in, false)
}

// RegisterAdmin creates an administrator profile
func (s *Service) RegisterAdmin(ctx context.Context, in RegisterInput) (*model.Profile, error) {
	return s.register(ctx, in, true)
}

func (s *Service) register(ctx context.Context, in RegisterInput, isAdmin bool) (*model.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, ErrInvalidEmail
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperr.New(apperr.ErrInvalidArgument, err.Error())
		}
		return nil, apperr.Internal("hash password", err)
	}

	now := time.Now()
	p := &model.Profile{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.profiles.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, apperr.Internal("create profile", err)
	}
	return p, nil
}

// Login verifies credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Profile, error) {
	p, err := s.profiles.GetProfileByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Internal("get profile", err)
	}
	if !auth.CheckPassword(password, p.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Internal("get profile", err)
	}
	return p, nil
}

// Identity resolves the stored identity for a user, including the admin flag
func (s *Service) Identity(ctx context.Context, userID string) (auth.Identity, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return auth.Identity{}, err
	}
	return IdentityOf(p), nil
}

func IdentityOf(p *model.Profile) auth.Identity {
	return auth.Identity{UserID: p.ID, Email: p.Email, IsAdmin: p.IsAdmin}
}
