package ledger

import "context"

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	GetAuthor(ctx context.Context, username string) (*Author, error)
	// LockAuthor reads the user row under a lock held until the transaction ends.
	LockAuthor(ctx context.Context, username string) (*Author, error)

	CreateContribution(ctx context.Context, contribution *Contribution) error
	GetContribution(ctx context.Context, id string) (*Contribution, error)
	DeleteContribution(ctx context.Context, id string) error
	ListByUser(ctx context.Context, username string) ([]Contribution, error)
	ListByHome(ctx context.Context, homeID string, period *Period) ([]ContributionEntry, error)

	CreateTransfer(ctx context.Context, transfer *Transfer) error
	ListTransfers(ctx context.Context, username string) ([]TransferEntry, error)

	ListRecipients(ctx context.Context, homeID, exceptUsername string) ([]Recipient, error)
}
