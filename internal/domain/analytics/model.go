package analytics

import (
	"github.com/shopspring/decimal"
	"household-ledger/internal/domain/ledger"
)

// Period bounds a query to [From, To). A nil period means all time.
type Period = ledger.Period

type Totals struct {
	Count int64
	Total decimal.Decimal
}

type UserRow struct {
	Username string
	FullName string
	Count    int64
	Total    decimal.Decimal
}

type ProductRow struct {
	ProductName string
	Count       int64
	Total       decimal.Decimal
}

type MonthRow struct {
	Year  int
	Month int
	Count int64
	Total decimal.Decimal
}

// MonthlyFilter selects the months of a rollup. No year means the current
// month; a year without a month means the whole year.
type MonthlyFilter struct {
	Year  *int
	Month *int
}

// Member is the slice of a user row analytics reads.
type Member struct {
	Username string
	FullName string
	HomeID   *string
}

type Gap struct {
	Username      string
	UserTotal     decimal.Decimal
	HomeTotal     decimal.Decimal
	Average       decimal.Decimal
	AmountToReach decimal.Decimal
	IsAbove       bool
	MemberCount   int64
}

type HomeReport struct {
	HomeID      string
	Totals      Totals
	MemberCount int64
	Average     decimal.Decimal
	ByUser      []UserRow
	ByProduct   []ProductRow
	ByMonth     []MonthRow
}

type MonthlySummary struct {
	Year      int
	Month     int
	Totals    Totals
	ByUser    []UserRow
	ByProduct []ProductRow
}

type TransferCounts struct {
	Sent     int64
	Received int64
}

type UserStatistics struct {
	Username          string
	ContributionCount int64
	Balance           decimal.Decimal
	SentTransfers     int64
	ReceivedTransfers int64
	Recent            []ledger.Contribution
	Gap               Gap
}
