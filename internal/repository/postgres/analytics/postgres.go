package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	analyticsdomain "household-ledger/internal/domain/analytics"
	"household-ledger/internal/domain/ledger"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetMember(ctx context.Context, username string) (*analyticsdomain.Member, error) {
	var member analyticsdomain.Member
	err := r.db.WithContext(ctx).
		Table("users").
		Select("username, full_name, home_id").
		Where("username = ?", username).
		Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, analyticsdomain.ErrNoSuchUser
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *PostgresRepository) CountMembers(ctx context.Context, homeID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Raw("SELECT COUNT(*) FROM home_members WHERE home_id = ?", homeID).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) UserTotal(ctx context.Context, username, homeID string) (decimal.Decimal, error) {
	query := "SELECT COALESCE(SUM(c.amount), 0) AS total FROM contributions c WHERE c.username = ?"
	args := []interface{}{username}
	if homeID != "" {
		query += " AND c.home_id = ?"
		args = append(args, homeID)
	}

	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

func (r *PostgresRepository) CountContributions(ctx context.Context, username string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Raw("SELECT COUNT(*) FROM contributions WHERE username = ?", username).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) RecentContributions(ctx context.Context, username string, limit int) ([]ledger.Contribution, error) {
	var contributions []ledger.Contribution
	if err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&contributions).Error; err != nil {
		return nil, err
	}
	return contributions, nil
}

func (r *PostgresRepository) CountTransfers(ctx context.Context, username string) (analyticsdomain.TransferCounts, error) {
	query := "SELECT " +
		"COALESCE(SUM(CASE WHEN t.sender_username = ? THEN 1 ELSE 0 END), 0) AS sent, " +
		"COALESCE(SUM(CASE WHEN t.recipient_username = ? THEN 1 ELSE 0 END), 0) AS received " +
		"FROM transfers t WHERE t.sender_username = ? OR t.recipient_username = ?"

	var row struct {
		Sent     int64 `gorm:"column:sent"`
		Received int64 `gorm:"column:received"`
	}
	if err := r.db.WithContext(ctx).Raw(query, username, username, username, username).Scan(&row).Error; err != nil {
		return analyticsdomain.TransferCounts{}, err
	}
	return analyticsdomain.TransferCounts{Sent: row.Sent, Received: row.Received}, nil
}

func (r *PostgresRepository) HomeTotals(ctx context.Context, homeID string, period *analyticsdomain.Period) (analyticsdomain.Totals, error) {
	where, args := buildContributionWhere(homeID, period)
	query := "SELECT COUNT(*) AS total_count, COALESCE(SUM(c.amount), 0) AS total FROM contributions c WHERE " + where

	var row struct {
		TotalCount int64           `gorm:"column:total_count"`
		Total      decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&row).Error; err != nil {
		return analyticsdomain.Totals{}, err
	}
	return analyticsdomain.Totals{Count: row.TotalCount, Total: row.Total}, nil
}

func (r *PostgresRepository) ByUser(ctx context.Context, homeID string, period *analyticsdomain.Period) ([]analyticsdomain.UserRow, error) {
	where, args := buildContributionWhere(homeID, period)
	query := "SELECT c.username AS username, u.full_name AS full_name, COUNT(c.id) AS total_count, COALESCE(SUM(c.amount), 0) AS total " +
		"FROM contributions c JOIN users u ON u.username = c.username " +
		"WHERE " + where + " " +
		"GROUP BY c.username, u.full_name " +
		"ORDER BY total DESC, c.username ASC"

	var rows []struct {
		Username   string          `gorm:"column:username"`
		FullName   string          `gorm:"column:full_name"`
		TotalCount int64           `gorm:"column:total_count"`
		Total      decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]analyticsdomain.UserRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, analyticsdomain.UserRow{
			Username: row.Username,
			FullName: row.FullName,
			Count:    row.TotalCount,
			Total:    row.Total,
		})
	}
	return result, nil
}

func (r *PostgresRepository) ByProduct(ctx context.Context, homeID string, period *analyticsdomain.Period) ([]analyticsdomain.ProductRow, error) {
	where, args := buildContributionWhere(homeID, period)
	query := "SELECT c.product_name AS product_name, COUNT(c.id) AS total_count, COALESCE(SUM(c.amount), 0) AS total " +
		"FROM contributions c " +
		"WHERE " + where + " AND c.origin = ? " +
		"GROUP BY c.product_name " +
		"ORDER BY total DESC, c.product_name ASC"
	args = append(args, ledger.OriginUser)

	var rows []struct {
		ProductName string          `gorm:"column:product_name"`
		TotalCount  int64           `gorm:"column:total_count"`
		Total       decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]analyticsdomain.ProductRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, analyticsdomain.ProductRow{
			ProductName: row.ProductName,
			Count:       row.TotalCount,
			Total:       row.Total,
		})
	}
	return result, nil
}

func (r *PostgresRepository) ByMonth(ctx context.Context, homeID string, period *analyticsdomain.Period) ([]analyticsdomain.MonthRow, error) {
	where, args := buildContributionWhere(homeID, period)
	yearExpr, monthExpr := r.monthParts("c.created_at")
	query := fmt.Sprintf("SELECT %s AS year, %s AS month, COUNT(c.id) AS total_count, COALESCE(SUM(c.amount), 0) AS total "+
		"FROM contributions c WHERE %s "+
		"GROUP BY 1, 2 "+
		"ORDER BY year DESC, month DESC, total_count DESC", yearExpr, monthExpr, where)

	var rows []struct {
		Year       int             `gorm:"column:year"`
		Month      int             `gorm:"column:month"`
		TotalCount int64           `gorm:"column:total_count"`
		Total      decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]analyticsdomain.MonthRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, analyticsdomain.MonthRow{
			Year:  row.Year,
			Month: row.Month,
			Count: row.TotalCount,
			Total: row.Total,
		})
	}
	return result, nil
}

// monthParts returns the UTC calendar year and month of a timestamp column in
// the SQL dialect of the connection.
func (r *PostgresRepository) monthParts(column string) (string, string) {
	if r.db.Dialector.Name() == "sqlite" {
		return fmt.Sprintf("CAST(strftime('%%Y', %s) AS INTEGER)", column),
			fmt.Sprintf("CAST(strftime('%%m', %s) AS INTEGER)", column)
	}
	return fmt.Sprintf("EXTRACT(YEAR FROM %s AT TIME ZONE 'UTC')::int", column),
		fmt.Sprintf("EXTRACT(MONTH FROM %s AT TIME ZONE 'UTC')::int", column)
}

func buildContributionWhere(homeID string, period *analyticsdomain.Period) (string, []interface{}) {
	where := "c.home_id = ?"
	args := []interface{}{homeID}
	if period != nil {
		where += " AND c.created_at >= ? AND c.created_at < ?"
		args = append(args, period.From, period.To)
	}
	return where, args
}
