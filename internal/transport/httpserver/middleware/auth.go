package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"household-ledger/internal/auth"
	userdomain "household-ledger/internal/domain/user"
	"household-ledger/pkg/logger"
)

const AccessCookie = "access_token"

type contextKey int

const (
	userKey contextKey = iota
	tokenKey
)

type User struct {
	ID       string
	Username string
	Email    string
	FullName string
	HomeID   *string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string, kind auth.Kind) (*auth.Claims, error)
}

type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
}

// TokenAuth resolves the access token of a request to an active user.
type TokenAuth struct {
	tokens TokenVerifier
	users  UserLookup
	log    logger.Logger
}

func NewTokenAuth(tokens TokenVerifier, users UserLookup, log logger.Logger) *TokenAuth {
	return &TokenAuth{tokens: tokens, users: users, log: log}
}

func (a *TokenAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := TokenFromRequest(r)
		if !ok {
			unauthorized(w, r)
			return
		}

		claims, err := a.tokens.Verify(r.Context(), token, auth.KindAccess)
		if err != nil {
			if isTokenError(err) {
				unauthorized(w, r)
				return
			}
			a.log.InternalError("auth: verify token failed", err, "request_id", chimw.GetReqID(r.Context()))
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
			return
		}

		found, err := a.users.GetByUsername(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, userdomain.ErrUserNotFound) {
				unauthorized(w, r)
				return
			}
			a.log.InternalError("auth: load user failed", err, "request_id", chimw.GetReqID(r.Context()))
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
			return
		}
		if !found.IsActive {
			unauthorized(w, r)
			return
		}

		ctx := WithUser(r.Context(), User{
			ID:       found.ID,
			Username: found.Username,
			Email:    found.Email,
			FullName: found.FullName,
			HomeID:   found.HomeID,
		})
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TokenFromRequest reads the bearer header first and falls back to the
// access cookie. The cookie value may carry the "Bearer " prefix.
func TokenFromRequest(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		return bearerToken(header)
	}
	cookie, err := r.Cookie(AccessCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	value := cookie.Value
	if unescaped, err := url.QueryUnescape(value); err == nil {
		value = unescaped
	}
	if token, ok := bearerToken(value); ok {
		return token, true
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func bearerToken(value string) (string, bool) {
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func isTokenError(err error) bool {
	return errors.Is(err, auth.ErrMissingToken) ||
		errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrExpiredToken) ||
		errors.Is(err, auth.ErrRevokedToken) ||
		errors.Is(err, auth.ErrWrongKind)
}

// unauthorized sends browsers to the login page and everyone else a 401.
func unauthorized(w http.ResponseWriter, r *http.Request) {
	if acceptsHTML(r) {
		http.Redirect(w, r, "/login?error="+url.QueryEscape("please log in"), http.StatusSeeOther)
		return
	}
	writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
}

func acceptsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (User, bool) {
	value := ctx.Value(userKey)
	user, ok := value.(User)
	if !ok || user.Username == "" {
		return User{}, false
	}
	return user, true
}

// TokenFromContext returns the token the request was authenticated with.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok && token != ""
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
