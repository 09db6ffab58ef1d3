package user

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrAlreadyExists      = errors.New("user already exists")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("weak password")
	ErrInvalidUsername    = errors.New("username must be 3-50 characters of letters, digits, '.', '_' or '-'")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidName        = errors.New("full name must be 1-100 characters")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
