package analytics

import (
	"context"

	"github.com/shopspring/decimal"
	"household-ledger/internal/domain/ledger"
)

type Repository interface {
	GetMember(ctx context.Context, username string) (*Member, error)
	CountMembers(ctx context.Context, homeID string) (int64, error)

	// UserTotal sums the user's contributions. An empty homeID sums across
	// every home.
	UserTotal(ctx context.Context, username, homeID string) (decimal.Decimal, error)
	CountContributions(ctx context.Context, username string) (int64, error)
	RecentContributions(ctx context.Context, username string, limit int) ([]ledger.Contribution, error)
	CountTransfers(ctx context.Context, username string) (TransferCounts, error)

	HomeTotals(ctx context.Context, homeID string, period *Period) (Totals, error)
	ByUser(ctx context.Context, homeID string, period *Period) ([]UserRow, error)
	// ByProduct only counts contributions entered by users, never transfer halves.
	ByProduct(ctx context.Context, homeID string, period *Period) ([]ProductRow, error)
	ByMonth(ctx context.Context, homeID string, period *Period) ([]MonthRow, error)
}
