package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const (
	PolicyLength = "length"
	PolicyStrict = "strict"

	minPasswordLength = 8
	maxPasswordBytes  = 72
	passwordSpecials  = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// PasswordHasher hashes and checks passwords with bcrypt. At most workers
// hashing operations run at once; callers wait for a slot or their context.
type PasswordHasher struct {
	cost   int
	policy string
	slots  *semaphore.Weighted
}

func NewPasswordHasher(cost int, policy string, workers int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if policy != PolicyStrict {
		policy = PolicyLength
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &PasswordHasher{
		cost:   cost,
		policy: policy,
		slots:  semaphore.NewWeighted(int64(workers)),
	}
}

func (h *PasswordHasher) Validate(password string) error {
	if len([]rune(password)) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	if h.policy == PolicyStrict && !isStrongPassword(password) {
		return ErrPasswordTooSimple
	}
	return nil
}

func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Matches reports whether password matches hash. A malformed hash counts as
// a mismatch.
func (h *PasswordHasher) Matches(ctx context.Context, hash, password string) (bool, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.slots.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrHashTooShort),
		errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		var versionErr bcrypt.HashVersionTooNewError
		var prefixErr bcrypt.InvalidHashPrefixError
		if errors.As(err, &versionErr) || errors.As(err, &prefixErr) {
			return false, nil
		}
		return false, fmt.Errorf("compare password: %w", err)
	}
}

func isStrongPassword(password string) bool {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}
