package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	analyticsdomain "household-ledger/internal/domain/analytics"
	ledgerdomain "household-ledger/internal/domain/ledger"
	"household-ledger/internal/transport/httpserver/middleware"
)

const (
	scopeUser = "user"
	scopeHome = "home"
)

type addContributionRequest struct {
	ProductName string      `json:"product_name"`
	Amount      amountField `json:"amount"`
	Description string      `json:"description"`
}

type transferRequest struct {
	RecipientUsername string      `json:"recipient_username"`
	Amount            amountField `json:"amount"`
	Description       string      `json:"description"`
}

type contributionResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	FullName    string    `json:"full_name,omitempty"`
	HomeID      string    `json:"home_id"`
	ProductName string    `json:"product_name"`
	Amount      string    `json:"amount"`
	Description *string   `json:"description"`
	Origin      string    `json:"origin"`
	TransferID  *string   `json:"transfer_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type transferResponse struct {
	ID                string    `json:"id"`
	SenderUsername    string    `json:"sender_username"`
	SenderName        string    `json:"sender_name,omitempty"`
	RecipientUsername string    `json:"recipient_username"`
	RecipientName     string    `json:"recipient_name,omitempty"`
	Direction         string    `json:"direction,omitempty"`
	HomeID            string    `json:"home_id"`
	Amount            string    `json:"amount"`
	Description       *string   `json:"description"`
	CreatedAt         time.Time `json:"created_at"`
}

type transferResultResponse struct {
	Transfer transferResponse     `json:"transfer"`
	Outgoing contributionResponse `json:"outgoing"`
	Incoming contributionResponse `json:"incoming"`
}

type recipientResponse struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Total    string `json:"total"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

func (h *Handlers) AddContribution(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	var req addContributionRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, "contributions.add: decode body failed", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	amount, err := ledgerdomain.ParseAmount(req.Amount.String())
	if err != nil {
		h.fail(w, r, "contributions.add: invalid amount", err, "username", user.Username)
		return
	}

	created, err := h.Ledger.RecordContribution(r.Context(), ledgerdomain.RecordContributionInput{
		Author:      user.Username,
		ProductName: req.ProductName,
		Amount:      amount,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, r, "contributions.add: record failed", err, "username", user.Username)
		return
	}

	h.done(w, r, http.StatusCreated, toContributionResponse(*created, ""), "Contribution added")
}

func (h *Handlers) DeleteContribution(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	id := chi.URLParam(r, "id")

	deleted, err := h.Ledger.DeleteContribution(r.Context(), id, user.Username)
	if err != nil {
		h.fail(w, r, "contributions.delete: delete failed", err, "username", user.Username, "contribution_id", id)
		return
	}

	h.done(w, r, http.StatusOK, deleteResponse{Deleted: deleted}, "Contribution deleted")
}

func (h *Handlers) Transfer(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	var req transferRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, "transfers.create: decode body failed", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	amount, err := ledgerdomain.ParseAmount(req.Amount.String())
	if err != nil {
		h.fail(w, r, "transfers.create: invalid amount", err, "username", user.Username)
		return
	}

	result, err := h.Ledger.RecordTransfer(r.Context(), ledgerdomain.RecordTransferInput{
		Sender:      user.Username,
		Recipient:   req.RecipientUsername,
		Amount:      amount,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, r, "transfers.create: record failed", err, "username", user.Username, "recipient", req.RecipientUsername)
		return
	}

	h.log.Info("transfers.create: transfer recorded",
		"transfer_id", result.Transfer.ID,
		"sender", result.Transfer.SenderUsername,
		"recipient", result.Transfer.RecipientUsername,
	)
	h.done(w, r, http.StatusCreated, transferResultResponse{
		Transfer: toTransferResponse(ledgerdomain.TransferEntry{Transfer: result.Transfer}),
		Outgoing: toContributionResponse(result.Outgoing, ""),
		Incoming: toContributionResponse(result.Incoming, ""),
	}, "Transfer completed")
}

// ListContributions lists the caller's own contributions by default, or the
// whole home with scope=home. year and month narrow the list to one month.
func (h *Handlers) ListContributions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	query := r.URL.Query()
	scope := strings.TrimSpace(query.Get("scope"))
	if scope == "" {
		scope = scopeUser
	}
	period, err := monthFromQuery(query.Get("year"), query.Get("month"))
	if err != nil {
		h.fail(w, r, "contributions.list: invalid period", err, "username", user.Username)
		return
	}

	var response []contributionResponse
	switch scope {
	case scopeUser:
		items, err := h.Ledger.ListByUser(r.Context(), user.Username)
		if err != nil {
			h.fail(w, r, "contributions.list: list by user failed", err, "username", user.Username)
			return
		}
		response = make([]contributionResponse, 0, len(items))
		for _, item := range items {
			if period != nil && (item.CreatedAt.Before(period.From) || !item.CreatedAt.Before(period.To)) {
				continue
			}
			response = append(response, toContributionResponse(item, user.FullName))
		}
	case scopeHome:
		homeID, err := homeIDOf(user)
		if err != nil {
			h.fail(w, r, "contributions.list: user has no home", err, "username", user.Username)
			return
		}
		var items []ledgerdomain.ContributionEntry
		if period != nil {
			items, err = h.Ledger.ListMonth(r.Context(), homeID, period.From.Year(), int(period.From.Month()))
		} else {
			items, err = h.Ledger.ListByHome(r.Context(), homeID)
		}
		if err != nil {
			h.fail(w, r, "contributions.list: list by home failed", err, "home_id", homeID)
			return
		}
		response = make([]contributionResponse, 0, len(items))
		for _, item := range items {
			response = append(response, toContributionResponse(item.Contribution, item.FullName))
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "scope must be user or home")
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) ListTransfers(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	items, err := h.Ledger.TransfersFor(r.Context(), user.Username)
	if err != nil {
		h.fail(w, r, "transfers.list: list failed", err, "username", user.Username)
		return
	}

	response := make([]transferResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toTransferResponse(item))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) TransferRecipients(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	recipients, err := h.Ledger.EligibleRecipients(r.Context(), user.Username)
	if err != nil {
		h.fail(w, r, "transfers.recipients: list failed", err, "username", user.Username)
		return
	}

	response := make([]recipientResponse, 0, len(recipients))
	for _, recipient := range recipients {
		response = append(response, recipientResponse{
			Username: recipient.Username,
			FullName: recipient.FullName,
			Email:    recipient.Email,
			Total:    recipient.Total.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// monthFromQuery returns nil when neither year nor month is given.
func monthFromQuery(yearValue, monthValue string) (*ledgerdomain.Period, error) {
	year, err := parseOptionalInt(yearValue)
	if err != nil {
		return nil, analyticsdomain.ErrInvalidPeriod
	}
	month, err := parseOptionalInt(monthValue)
	if err != nil {
		return nil, analyticsdomain.ErrInvalidPeriod
	}
	if year == nil && month == nil {
		return nil, nil
	}
	if year == nil || month == nil {
		return nil, analyticsdomain.ErrInvalidPeriod
	}
	period, err := ledgerdomain.MonthPeriod(*year, *month)
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func homeIDOf(user middleware.User) (string, error) {
	if user.HomeID == nil {
		return "", ledgerdomain.ErrNoHome
	}
	return *user.HomeID, nil
}

func toContributionResponse(item ledgerdomain.Contribution, fullName string) contributionResponse {
	return contributionResponse{
		ID:          item.ID,
		Username:    item.Username,
		FullName:    fullName,
		HomeID:      item.HomeID,
		ProductName: item.ProductName,
		Amount:      item.Amount.StringFixed(2),
		Description: item.Description,
		Origin:      item.Origin,
		TransferID:  item.TransferID,
		CreatedAt:   item.CreatedAt,
	}
}

func toTransferResponse(item ledgerdomain.TransferEntry) transferResponse {
	return transferResponse{
		ID:                item.ID,
		SenderUsername:    item.SenderUsername,
		SenderName:        item.SenderName,
		RecipientUsername: item.RecipientUsername,
		RecipientName:     item.RecipientName,
		Direction:         item.Direction,
		HomeID:            item.HomeID,
		Amount:            item.Amount.StringFixed(2),
		Description:       item.Description,
		CreatedAt:         item.CreatedAt,
	}
}
