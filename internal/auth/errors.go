package auth

import "errors"

var (
	ErrMissingToken = errors.New("token missing")
	ErrInvalidToken = errors.New("token invalid")
	ErrExpiredToken = errors.New("token expired")
	ErrRevokedToken = errors.New("token revoked")
	ErrWrongKind    = errors.New("token kind mismatch")

	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

	ErrPasswordTooShort  = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong   = errors.New("password must be at most 72 bytes")
	ErrPasswordTooSimple = errors.New("password must contain upper and lower case letters, a digit and a special character")
)
