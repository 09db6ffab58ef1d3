package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	homedomain "household-ledger/internal/domain/home"
	"household-ledger/internal/transport/httpserver/middleware"
)

type createHomeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type memberRequest struct {
	Username string `json:"username"`
}

type requestJoinRequest struct {
	HomeName string `json:"home_name"`
}

type decideRequest struct {
	RequestID string `json:"request_id"`
	Action    string `json:"action"`
}

type homeResponse struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Description    *string          `json:"description"`
	LeaderUsername string           `json:"leader_username"`
	CreatedAt      time.Time        `json:"created_at"`
	Members        []memberResponse `json:"members,omitempty"`
}

type memberResponse struct {
	Username string    `json:"username"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
	IsLeader bool      `json:"is_leader"`
}

type joinRequestResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	FullName    string     `json:"full_name,omitempty"`
	Email       string     `json:"email,omitempty"`
	HomeID      string     `json:"home_id"`
	HomeName    string     `json:"home_name"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}

func (h *Handlers) CreateHome(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	var req createHomeRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, "homes.create: decode body failed", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	created, err := h.Homes.CreateHome(r.Context(), homedomain.CreateHomeInput{
		Name:        req.Name,
		Description: req.Description,
		Founder:     user.Username,
	})
	if err != nil {
		h.fail(w, r, "homes.create: create home failed", err, "username", user.Username)
		return
	}

	h.log.Info("homes.create: home created", "home_id", created.ID, "leader", created.LeaderUsername)
	h.done(w, r, http.StatusCreated, toHomeResponse(homedomain.HomeDetails{Home: *created}), "Home created")
}

func (h *Handlers) AddMember(w http.ResponseWriter, r *http.Request) {
	h.mutateMember(w, r, "homes.add_member", "Member added", h.Homes.DirectAdd)
}

func (h *Handlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	h.mutateMember(w, r, "homes.remove_member", "Member removed", h.Homes.Remove)
}

func (h *Handlers) PromoteLeader(w http.ResponseWriter, r *http.Request) {
	h.mutateMember(w, r, "homes.promote_leader", "Leadership handed over", h.Homes.PromoteLeader)
}

// mutateMember runs a leader operation on the caller's home against the
// username in the body.
func (h *Handlers) mutateMember(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	message string,
	mutate func(ctx context.Context, homeID, target, requester string) error,
) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	var req memberRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, op+": decode body failed", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	if user.HomeID == nil {
		h.fail(w, r, op+": requester has no home", homedomain.ErrNotInHome, "username", user.Username)
		return
	}
	target := strings.TrimSpace(req.Username)

	if err := mutate(r.Context(), *user.HomeID, target, user.Username); err != nil {
		h.fail(w, r, op+": failed", err, "home_id", *user.HomeID, "requester", user.Username, "target", target)
		return
	}

	h.log.Info(op+": done", "home_id", *user.HomeID, "requester", user.Username, "target", target)
	h.done(w, r, http.StatusOK, statusResponse{Status: "ok"}, message)
}

func (h *Handlers) LeaveHome(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	if err := h.Homes.Leave(r.Context(), user.Username); err != nil {
		h.fail(w, r, "homes.leave: leave failed", err, "username", user.Username)
		return
	}

	h.log.Info("homes.leave: user left home", "username", user.Username)
	h.done(w, r, http.StatusOK, statusResponse{Status: "left"}, "You left the home")
}

func (h *Handlers) RequestJoinHome(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	var req requestJoinRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, "homes.request_join: decode body failed", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	request, err := h.Homes.RequestJoin(r.Context(), user.Username, req.HomeName)
	if err != nil {
		h.fail(w, r, "homes.request_join: request failed", err, "username", user.Username, "home_name", req.HomeName)
		return
	}

	h.done(w, r, http.StatusCreated, toJoinRequestResponse(*request), "Join request sent")
}

func (h *Handlers) DecideJoinRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	var req decideRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, "homes.decide_request: decode body failed", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))

	decided, err := h.Homes.DecideRequest(r.Context(), strings.TrimSpace(req.RequestID), user.Username, action)
	if err != nil {
		h.fail(w, r, "homes.decide_request: decide failed", err, "username", user.Username, "request_id", req.RequestID)
		return
	}

	message := "Join request rejected"
	if decided.Status == homedomain.StatusApproved {
		message = "Join request approved"
	}
	h.done(w, r, http.StatusOK, toJoinRequestResponse(*decided), message)
}

func (h *Handlers) GetHome(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	details, err := h.Homes.HomeOf(r.Context(), user.Username)
	if err != nil {
		if errors.Is(err, homedomain.ErrNotInHome) {
			h.log.BusinessError("homes.get: user has no home", err, "username", user.Username)
			writeError(w, http.StatusNotFound, "home_not_found", "home not found")
			return
		}
		h.fail(w, r, "homes.get: load home failed", err, "username", user.Username)
		return
	}

	writeJSON(w, http.StatusOK, toHomeResponse(*details))
}

func (h *Handlers) ListJoinRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	if user.HomeID == nil {
		h.fail(w, r, "homes.join_requests: requester has no home", homedomain.ErrNotInHome, "username", user.Username)
		return
	}

	pending, err := h.Homes.PendingRequests(r.Context(), *user.HomeID, user.Username)
	if err != nil {
		h.fail(w, r, "homes.join_requests: list failed", err, "username", user.Username)
		return
	}

	response := make([]joinRequestResponse, 0, len(pending))
	for _, item := range pending {
		converted := toJoinRequestResponse(item.JoinRequest)
		converted.FullName = item.FullName
		converted.Email = item.Email
		response = append(response, converted)
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) GetJoinRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	request, err := h.Homes.PendingRequestFor(r.Context(), user.Username)
	if err != nil {
		h.fail(w, r, "homes.join_request: load failed", err, "username", user.Username)
		return
	}

	writeJSON(w, http.StatusOK, toJoinRequestResponse(*request))
}

func toHomeResponse(details homedomain.HomeDetails) homeResponse {
	response := homeResponse{
		ID:             details.ID,
		Name:           details.Name,
		Description:    details.Description,
		LeaderUsername: details.LeaderUsername,
		CreatedAt:      details.CreatedAt,
	}
	if len(details.Members) > 0 {
		response.Members = make([]memberResponse, 0, len(details.Members))
		for _, member := range details.Members {
			response.Members = append(response.Members, memberResponse{
				Username: member.Username,
				FullName: member.FullName,
				Email:    member.Email,
				JoinedAt: member.JoinedAt,
				IsLeader: member.IsLeader,
			})
		}
	}
	return response
}

func toJoinRequestResponse(request homedomain.JoinRequest) joinRequestResponse {
	return joinRequestResponse{
		ID:          request.ID,
		Username:    request.Username,
		HomeID:      request.HomeID,
		HomeName:    request.HomeName,
		Status:      request.Status,
		CreatedAt:   request.CreatedAt,
		ProcessedAt: request.ProcessedAt,
	}
}
