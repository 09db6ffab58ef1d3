package ledger

import "errors"

var (
	ErrNoHome               = errors.New("user does not belong to a home")
	ErrNoSuchUser           = errors.New("user not found")
	ErrInvalidProduct       = errors.New("product name must be 1-200 characters")
	ErrInvalidAmount        = errors.New("amount must be a number with at most two decimals")
	ErrZeroAmount           = errors.New("amount must not be zero")
	ErrNonPositiveAmount    = errors.New("transfer amount must be positive")
	ErrSelfTransfer         = errors.New("cannot transfer to yourself")
	ErrHomeMismatch         = errors.New("sender and recipient must belong to the same home")
	ErrContributionNotFound = errors.New("contribution not found")
	ErrNotAuthor            = errors.New("only the author can delete a contribution")
	ErrTransferContribution = errors.New("transfer contributions cannot be deleted")
	ErrInvalidPeriod        = errors.New("invalid year or month")
)
