package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	maxEmailLength    = 100
	maxFullNameLength = 100
)

type Service struct {
	repo   Repository
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewService(repo Repository, hasher PasswordHasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (*User, error) {
	username := strings.TrimSpace(input.Username)
	if !validUsername(username) {
		return nil, ErrInvalidUsername
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	fullName, err := normalizeFullName(input.FullName)
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	exists, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameTaken
	}
	taken, err := s.repo.EmailTaken(ctx, email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hashed, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          email,
		FullName:       fullName,
		HashedPassword: hashed,
		IsActive:       true,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Authenticate returns ErrInvalidCredentials for unknown users, inactive users
// and wrong passwords alike.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.burnComparison(ctx, password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.hasher.Matches(ctx, user.HashedPassword, password)
	if err != nil {
		return nil, err
	}
	if !ok || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*User, error) {
	fullName, err := normalizeFullName(input.FullName)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByUsername(ctx, input.Username); err != nil {
		return nil, err
	}
	taken, err := s.repo.EmailTaken(ctx, email, input.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	if err := s.repo.UpdateProfile(ctx, input.Username, fullName, email); err != nil {
		return nil, err
	}
	return s.repo.GetByUsername(ctx, input.Username)
}

func (s *Service) ChangePassword(ctx context.Context, username, current, next string) error {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	ok, err := s.hasher.Matches(ctx, user.HashedPassword, current)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	if err := s.hasher.Validate(next); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hashed, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, username, hashed)
}

func (s *Service) ListAll(ctx context.Context) ([]Profile, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]Profile, 0, len(users))
	for _, user := range users {
		result = append(result, user.Profile())
	}
	return result, nil
}

func (s *Service) burnComparison(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		hashed, err := s.hasher.Hash(ctx, "dummy-password-for-timing")
		if err == nil {
			s.dummyHash = hashed
		}
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Matches(ctx, s.dummyHash, password)
	}
}

func validUsername(username string) bool {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return false
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func normalizeEmail(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	if email == "" || len(email) > maxEmailLength {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func normalizeFullName(value string) (string, error) {
	name := strings.TrimSpace(value)
	if name == "" || utf8.RuneCountInString(name) > maxFullNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}
