package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"household-ledger/pkg/logger"
)

const (
	fallbackSecretKey  = "fallback-secret-key"
	generatedKeyLength = 32
	defaultAccessTTL   = 30 * time.Minute
	defaultRefreshTTL  = 7 * 24 * time.Hour
	TokenTypeBearer    = "bearer"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

type Claims struct {
	Kind Kind `json:"type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

type TokenConfig struct {
	SecretKey  string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TokenService struct {
	key         []byte
	method      jwt.SigningMethod
	accessTTL   time.Duration
	refreshTTL  time.Duration
	revocations RevocationStore
	now         func() time.Time
}

func NewTokenService(cfg TokenConfig, revocations RevocationStore, log logger.Logger) (*TokenService, error) {
	algorithm := cfg.Algorithm
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}

	key := []byte(cfg.SecretKey)
	if cfg.SecretKey == "" || cfg.SecretKey == fallbackSecretKey {
		key = make([]byte, generatedKeyLength)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		log.Warn("auth: SECRET_KEY not configured, using a random per-process key; tokens will not survive restarts")
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}

	return &TokenService{
		key:         key,
		method:      method,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		revocations: revocations,
		now:         time.Now,
	}, nil
}

func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// Issue signs a token for subject. A non-positive ttl selects the default
// lifetime of the kind.
func (s *TokenService) Issue(subject string, kind Kind, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if kind != KindAccess && kind != KindRefresh {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}
	if ttl <= 0 {
		ttl = s.accessTTL
		if kind == KindRefresh {
			ttl = s.refreshTTL
		}
	}

	now := s.now()
	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) Pair(subject string) (TokenPair, error) {
	access, err := s.Issue(subject, KindAccess, 0)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.Issue(subject, KindRefresh, 0)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: TokenTypeBearer}, nil
}

func (s *TokenService) Verify(ctx context.Context, token string, kind Kind) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}

	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	return claims, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.Verify(ctx, refreshToken, KindRefresh)
	if err != nil {
		return "", err
	}
	return s.Issue(claims.Subject, KindAccess, 0)
}

// Revoke records the token id until the token expires. Tokens that do not
// verify are ignored.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	return s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (s *TokenService) SweepRevocations(ctx context.Context) (int, error) {
	return s.revocations.Sweep(ctx, s.now())
}

func (s *TokenService) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
