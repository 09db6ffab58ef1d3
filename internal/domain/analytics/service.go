package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"household-ledger/internal/domain/ledger"
)

const (
	resultDecimals     = 2
	recentContribution = 5
)

// Service answers read-only questions about a home's ledger. Nothing is
// cached; every call reads the current rows.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) UserBalance(ctx context.Context, username string) (decimal.Decimal, error) {
	total, err := s.repo.UserTotal(ctx, username, "")
	if err != nil {
		return decimal.Zero, err
	}
	return total.Round(resultDecimals), nil
}

func (s *Service) HomeTotals(ctx context.Context, homeID string) (Totals, error) {
	totals, err := s.repo.HomeTotals(ctx, homeID, nil)
	if err != nil {
		return Totals{}, err
	}
	return roundTotals(totals), nil
}

// UserRollup orders authors by total descending, then username.
func (s *Service) UserRollup(ctx context.Context, homeID string) ([]UserRow, error) {
	return s.byUser(ctx, homeID, nil)
}

// ProductRollup groups user entered contributions by product. Transfer halves
// are left out.
func (s *Service) ProductRollup(ctx context.Context, homeID string) ([]ProductRow, error) {
	return s.byProduct(ctx, homeID, nil)
}

func (s *Service) MonthlyRollup(ctx context.Context, homeID string, filter MonthlyFilter) ([]MonthRow, error) {
	period, err := s.monthlyPeriod(filter)
	if err != nil {
		return nil, err
	}
	return s.byMonth(ctx, homeID, &period)
}

// AverageGap compares the user's total in their home with the per member
// average. Users without a home get a zero result.
func (s *Service) AverageGap(ctx context.Context, username string) (Gap, error) {
	member, err := s.repo.GetMember(ctx, username)
	if err != nil {
		return Gap{}, err
	}
	if member.HomeID == nil {
		return emptyGap(member.Username), nil
	}
	homeID := *member.HomeID

	count, err := s.repo.CountMembers(ctx, homeID)
	if err != nil {
		return Gap{}, err
	}
	if count == 0 {
		return emptyGap(member.Username), nil
	}
	totals, err := s.repo.HomeTotals(ctx, homeID, nil)
	if err != nil {
		return Gap{}, err
	}
	userTotal, err := s.repo.UserTotal(ctx, member.Username, homeID)
	if err != nil {
		return Gap{}, err
	}

	return computeGap(member.Username, userTotal, totals.Total, count), nil
}

// HomeReport bundles the totals and rollups of a home over all time.
func (s *Service) HomeReport(ctx context.Context, homeID string) (*HomeReport, error) {
	totals, err := s.HomeTotals(ctx, homeID)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountMembers(ctx, homeID)
	if err != nil {
		return nil, err
	}
	byUser, err := s.byUser(ctx, homeID, nil)
	if err != nil {
		return nil, err
	}
	byProduct, err := s.byProduct(ctx, homeID, nil)
	if err != nil {
		return nil, err
	}
	byMonth, err := s.byMonth(ctx, homeID, nil)
	if err != nil {
		return nil, err
	}

	average := decimal.Zero
	if count > 0 {
		average = totals.Total.Div(decimal.NewFromInt(count)).Round(resultDecimals)
	}
	return &HomeReport{
		HomeID:      homeID,
		Totals:      totals,
		MemberCount: count,
		Average:     average,
		ByUser:      byUser,
		ByProduct:   byProduct,
		ByMonth:     byMonth,
	}, nil
}

func (s *Service) MonthlySummary(ctx context.Context, homeID string, year, month int) (*MonthlySummary, error) {
	period, err := ledger.MonthPeriod(year, month)
	if err != nil {
		return nil, ErrInvalidPeriod
	}

	totals, err := s.repo.HomeTotals(ctx, homeID, &period)
	if err != nil {
		return nil, err
	}
	byUser, err := s.byUser(ctx, homeID, &period)
	if err != nil {
		return nil, err
	}
	byProduct, err := s.byProduct(ctx, homeID, &period)
	if err != nil {
		return nil, err
	}
	return &MonthlySummary{
		Year:      year,
		Month:     month,
		Totals:    roundTotals(totals),
		ByUser:    byUser,
		ByProduct: byProduct,
	}, nil
}

func (s *Service) UserStatistics(ctx context.Context, username string) (*UserStatistics, error) {
	member, err := s.repo.GetMember(ctx, username)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountContributions(ctx, member.Username)
	if err != nil {
		return nil, err
	}
	balance, err := s.UserBalance(ctx, member.Username)
	if err != nil {
		return nil, err
	}
	transfers, err := s.repo.CountTransfers(ctx, member.Username)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.RecentContributions(ctx, member.Username, recentContribution)
	if err != nil {
		return nil, err
	}
	gap, err := s.AverageGap(ctx, member.Username)
	if err != nil {
		return nil, err
	}

	return &UserStatistics{
		Username:          member.Username,
		ContributionCount: count,
		Balance:           balance,
		SentTransfers:     transfers.Sent,
		ReceivedTransfers: transfers.Received,
		Recent:            recent,
		Gap:               gap,
	}, nil
}

func (s *Service) byUser(ctx context.Context, homeID string, period *Period) ([]UserRow, error) {
	rows, err := s.repo.ByUser(ctx, homeID, period)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(resultDecimals)
	}
	return rows, nil
}

func (s *Service) byProduct(ctx context.Context, homeID string, period *Period) ([]ProductRow, error) {
	rows, err := s.repo.ByProduct(ctx, homeID, period)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(resultDecimals)
	}
	return rows, nil
}

func (s *Service) byMonth(ctx context.Context, homeID string, period *Period) ([]MonthRow, error) {
	rows, err := s.repo.ByMonth(ctx, homeID, period)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(resultDecimals)
	}
	return rows, nil
}

func (s *Service) monthlyPeriod(filter MonthlyFilter) (Period, error) {
	if filter.Year == nil {
		if filter.Month != nil {
			return Period{}, ErrInvalidPeriod
		}
		now := s.now().UTC()
		period, err := ledger.MonthPeriod(now.Year(), int(now.Month()))
		if err != nil {
			return Period{}, ErrInvalidPeriod
		}
		return period, nil
	}

	year := *filter.Year
	if filter.Month != nil {
		period, err := ledger.MonthPeriod(year, *filter.Month)
		if err != nil {
			return Period{}, ErrInvalidPeriod
		}
		return period, nil
	}
	if _, err := ledger.MonthPeriod(year, 1); err != nil {
		return Period{}, ErrInvalidPeriod
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Period{From: from, To: from.AddDate(1, 0, 0)}, nil
}

func computeGap(username string, userTotal, homeTotal decimal.Decimal, members int64) Gap {
	average := homeTotal.Div(decimal.NewFromInt(members))
	toReach := average.Sub(userTotal)
	if toReach.IsNegative() {
		toReach = decimal.Zero
	}
	return Gap{
		Username:      username,
		UserTotal:     userTotal.Round(resultDecimals),
		HomeTotal:     homeTotal.Round(resultDecimals),
		Average:       average.Round(resultDecimals),
		AmountToReach: toReach.Round(resultDecimals),
		IsAbove:       userTotal.GreaterThanOrEqual(average),
		MemberCount:   members,
	}
}

func emptyGap(username string) Gap {
	return Gap{
		Username:      username,
		UserTotal:     decimal.Zero,
		HomeTotal:     decimal.Zero,
		Average:       decimal.Zero,
		AmountToReach: decimal.Zero,
	}
}

func roundTotals(totals Totals) Totals {
	totals.Total = totals.Total.Round(resultDecimals)
	return totals
}
