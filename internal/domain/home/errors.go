package home

import "errors"

var (
	ErrNoSuchHome         = errors.New("home not found")
	ErrNoSuchUser         = errors.New("user not found")
	ErrNameTaken          = errors.New("home name already taken")
	ErrInvalidHomeName    = errors.New("home name must be 1-100 characters")
	ErrAlreadyInHome      = errors.New("user already belongs to a home")
	ErrNotInHome          = errors.New("user does not belong to a home")
	ErrNotLeader          = errors.New("only the home leader can do this")
	ErrCannotRemoveLeader = errors.New("the leader cannot be removed")
	ErrLeaderMustTransfer = errors.New("leader must hand over leadership before leaving")
	ErrMemberNotFound     = errors.New("member not found")
	ErrRequestPending     = errors.New("join request already pending")
	ErrRequestNotFound    = errors.New("join request not found")
	ErrAlreadyDecided     = errors.New("join request already decided")
	ErrInvalidDecision    = errors.New("decision must be approve or reject")
)
