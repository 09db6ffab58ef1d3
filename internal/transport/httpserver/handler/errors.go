package handler

import (
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"household-ledger/internal/auth"
	analyticsdomain "household-ledger/internal/domain/analytics"
	homedomain "household-ledger/internal/domain/home"
	ledgerdomain "household-ledger/internal/domain/ledger"
	userdomain "household-ledger/internal/domain/user"
)

type failure struct {
	status  int
	code    string
	message string
}

type rule struct {
	target error
	status int
	code   string
}

var errInvalidBody = errors.New("invalid request body")

var internalFailure = failure{status: http.StatusInternalServerError, code: "internal_error", message: "internal error"}

// rules maps domain errors to responses. The first match wins.
var rules = []rule{
	{auth.ErrMissingToken, http.StatusUnauthorized, "invalid_token"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{auth.ErrExpiredToken, http.StatusUnauthorized, "invalid_token"},
	{auth.ErrRevokedToken, http.StatusUnauthorized, "invalid_token"},
	{auth.ErrWrongKind, http.StatusUnauthorized, "invalid_token"},
	{userdomain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},

	{homedomain.ErrNotLeader, http.StatusForbidden, "not_leader"},
	{ledgerdomain.ErrNotAuthor, http.StatusForbidden, "not_author"},
	{ledgerdomain.ErrTransferContribution, http.StatusForbidden, "transfer_contribution"},

	{userdomain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{homedomain.ErrNoSuchUser, http.StatusNotFound, "user_not_found"},
	{ledgerdomain.ErrNoSuchUser, http.StatusNotFound, "user_not_found"},
	{analyticsdomain.ErrNoSuchUser, http.StatusNotFound, "user_not_found"},
	{homedomain.ErrNoSuchHome, http.StatusNotFound, "home_not_found"},
	{homedomain.ErrMemberNotFound, http.StatusNotFound, "member_not_found"},
	{homedomain.ErrRequestNotFound, http.StatusNotFound, "join_request_not_found"},
	{ledgerdomain.ErrContributionNotFound, http.StatusNotFound, "contribution_not_found"},

	{userdomain.ErrAlreadyExists, http.StatusConflict, "user_exists"},
	{userdomain.ErrUsernameTaken, http.StatusConflict, "username_taken"},
	{userdomain.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{homedomain.ErrNameTaken, http.StatusConflict, "home_name_taken"},
	{homedomain.ErrAlreadyInHome, http.StatusConflict, "already_in_home"},
	{homedomain.ErrRequestPending, http.StatusConflict, "join_request_pending"},
	{homedomain.ErrAlreadyDecided, http.StatusConflict, "already_decided"},
	{homedomain.ErrLeaderMustTransfer, http.StatusConflict, "leader_must_transfer"},

	{errInvalidBody, http.StatusBadRequest, "invalid_request"},
	{userdomain.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{userdomain.ErrInvalidUsername, http.StatusBadRequest, "invalid_username"},
	{userdomain.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
	{userdomain.ErrInvalidName, http.StatusBadRequest, "invalid_name"},
	{homedomain.ErrInvalidHomeName, http.StatusBadRequest, "invalid_home_name"},
	{homedomain.ErrInvalidDecision, http.StatusBadRequest, "invalid_decision"},
	{homedomain.ErrCannotRemoveLeader, http.StatusBadRequest, "cannot_remove_leader"},
	{homedomain.ErrNotInHome, http.StatusBadRequest, "not_in_home"},
	{ledgerdomain.ErrNoHome, http.StatusBadRequest, "not_in_home"},
	{ledgerdomain.ErrInvalidProduct, http.StatusBadRequest, "invalid_product"},
	{ledgerdomain.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{ledgerdomain.ErrZeroAmount, http.StatusBadRequest, "zero_amount"},
	{ledgerdomain.ErrNonPositiveAmount, http.StatusBadRequest, "non_positive_amount"},
	{ledgerdomain.ErrSelfTransfer, http.StatusBadRequest, "self_transfer"},
	{ledgerdomain.ErrHomeMismatch, http.StatusBadRequest, "home_mismatch"},
	{ledgerdomain.ErrInvalidPeriod, http.StatusBadRequest, "invalid_period"},
	{analyticsdomain.ErrInvalidPeriod, http.StatusBadRequest, "invalid_period"},
}

// classify turns err into a response. Authentication failures share one
// message so callers cannot tell which factor was wrong.
func classify(err error) failure {
	for _, rule := range rules {
		if !errors.Is(err, rule.target) {
			continue
		}
		message := err.Error()
		switch rule.status {
		case http.StatusUnauthorized:
			message = "invalid credentials"
			if rule.code == "invalid_token" {
				message = "invalid token"
			}
		default:
			if rule.target != userdomain.ErrWeakPassword {
				message = rule.target.Error()
			}
		}
		return failure{status: rule.status, code: rule.code, message: message}
	}
	return internalFailure
}

// logFailure classifies err and logs it: domain rejections as business
// errors, everything else as internal errors with the request id.
func (h *Handlers) logFailure(r *http.Request, op string, err error, args ...any) failure {
	f := classify(err)
	args = append(args, "request_id", chimw.GetReqID(r.Context()))
	if f.status == http.StatusInternalServerError {
		h.log.InternalError(op, err, args...)
	} else {
		h.log.BusinessError(op, err, args...)
	}
	return f
}
