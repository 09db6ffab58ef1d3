package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"household-ledger/internal/auth"
	homedomain "household-ledger/internal/domain/home"
	userdomain "household-ledger/internal/domain/user"
	"household-ledger/internal/transport/httpserver/middleware"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type updateProfileRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	HomeID    *string   `json:"home_id"`
	CreatedAt time.Time `json:"created_at"`
}

type meResponse struct {
	User        userResponse         `json:"user"`
	Home        *homeSummaryResponse `json:"home"`
	JoinRequest *joinRequestResponse `json:"join_request"`
}

type homeSummaryResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Leader   string `json:"leader"`
	IsLeader bool   `json:"is_leader"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, "auth.register: decode body failed", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	created, err := h.Users.CreateUser(r.Context(), userdomain.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, "auth.register: create user failed", err, "username", req.Username)
		return
	}

	h.log.Info("auth.register: user created", "username", created.Username)
	h.done(w, r, http.StatusCreated, toUserResponse(created.Profile()), "Registration successful, please log in")
}

// Token is the OAuth2 style password grant. It always answers with JSON.
func (h *Handlers) Token(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		f := h.logFailure(r, "auth.token: decode body failed", fmt.Errorf("%w: %v", errInvalidBody, err))
		writeError(w, f.status, f.code, f.message)
		return
	}

	pair, err := h.authenticate(r, req)
	if err != nil {
		f := h.logFailure(r, "auth.token: authenticate failed", err, "username", req.Username)
		writeError(w, f.status, f.code, f.message)
		return
	}

	writeJSON(w, http.StatusOK, h.toTokenResponse(pair))
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, "auth.login: decode body failed", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	pair, err := h.authenticate(r, req)
	if err != nil {
		h.fail(w, r, "auth.login: authenticate failed", err, "username", req.Username)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessCookie,
		Value:    "Bearer " + pair.AccessToken,
		Path:     "/",
		MaxAge:   int(h.Tokens.AccessTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	h.done(w, r, http.StatusOK, h.toTokenResponse(pair), "Logged in")
}

// Logout revokes whatever token the request carries and clears the cookie.
// Requests without a token still succeed.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.TokenFromRequest(r); ok {
		if err := h.Tokens.Revoke(r.Context(), token); err != nil {
			h.fail(w, r, "auth.logout: revoke token failed", err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	h.done(w, r, http.StatusOK, statusResponse{Status: "logged_out"}, "Logged out")
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		f := h.logFailure(r, "auth.refresh: decode body failed", fmt.Errorf("%w: %v", errInvalidBody, err))
		writeError(w, f.status, f.code, f.message)
		return
	}

	access, err := h.Tokens.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		f := h.logFailure(r, "auth.refresh: refresh failed", err)
		writeError(w, f.status, f.code, f.message)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: access,
		TokenType:   auth.TokenTypeBearer,
		ExpiresIn:   int64(h.Tokens.AccessTTL().Seconds()),
	})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	found, err := h.Users.GetByUsername(r.Context(), user.Username)
	if err != nil {
		h.fail(w, r, "auth.me: load user failed", err, "username", user.Username)
		return
	}
	response := meResponse{User: toUserResponse(found.Profile())}

	details, err := h.Homes.HomeOf(r.Context(), user.Username)
	switch {
	case err == nil:
		response.Home = &homeSummaryResponse{
			ID:       details.ID,
			Name:     details.Name,
			Leader:   details.LeaderUsername,
			IsLeader: details.LeaderUsername == user.Username,
		}
	case errors.Is(err, homedomain.ErrNotInHome):
		request, err := h.Homes.PendingRequestFor(r.Context(), user.Username)
		if err != nil && !errors.Is(err, homedomain.ErrRequestNotFound) {
			h.fail(w, r, "auth.me: load join request failed", err, "username", user.Username)
			return
		}
		if request != nil {
			converted := toJoinRequestResponse(*request)
			response.JoinRequest = &converted
		}
	default:
		h.fail(w, r, "auth.me: load home failed", err, "username", user.Username)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	var req updateProfileRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, "auth.update_profile: decode body failed", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	updated, err := h.Users.UpdateProfile(r.Context(), userdomain.UpdateProfileInput{
		Username: user.Username,
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		h.fail(w, r, "auth.update_profile: update failed", err, "username", user.Username)
		return
	}

	h.done(w, r, http.StatusOK, toUserResponse(updated.Profile()), "Profile updated")
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	var req changePasswordRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, "auth.change_password: decode body failed", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	if err := h.Users.ChangePassword(r.Context(), user.Username, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(w, r, "auth.change_password: change failed", err, "username", user.Username)
		return
	}

	h.done(w, r, http.StatusOK, statusResponse{Status: "password_changed"}, "Password changed")
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Users.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, "users.list: list failed", err)
		return
	}

	response := make([]userResponse, 0, len(profiles))
	for _, profile := range profiles {
		response = append(response, toUserResponse(profile))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) authenticate(r *http.Request, req credentialsRequest) (auth.TokenPair, error) {
	found, err := h.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		return auth.TokenPair{}, err
	}
	return h.Tokens.Pair(found.Username)
}

func (h *Handlers) toTokenResponse(pair auth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int64(h.Tokens.AccessTTL().Seconds()),
	}
}

func toUserResponse(profile userdomain.Profile) userResponse {
	return userResponse{
		ID:        profile.ID,
		Username:  profile.Username,
		Email:     profile.Email,
		FullName:  profile.FullName,
		IsActive:  profile.IsActive,
		HomeID:    profile.HomeID,
		CreatedAt: profile.CreatedAt,
	}
}
