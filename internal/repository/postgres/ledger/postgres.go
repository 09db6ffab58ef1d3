package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	ledgerdomain "household-ledger/internal/domain/ledger"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(ledgerdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) GetAuthor(ctx context.Context, username string) (*ledgerdomain.Author, error) {
	return r.author(r.db.WithContext(ctx), username)
}

func (r *PostgresRepository) LockAuthor(ctx context.Context, username string) (*ledgerdomain.Author, error) {
	return r.author(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), username)
}

func (r *PostgresRepository) author(db *gorm.DB, username string) (*ledgerdomain.Author, error) {
	var author ledgerdomain.Author
	err := db.Table("users").
		Select("username, full_name, home_id").
		Where("username = ?", username).
		Take(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledgerdomain.ErrNoSuchUser
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *PostgresRepository) CreateContribution(ctx context.Context, contribution *ledgerdomain.Contribution) error {
	return r.db.WithContext(ctx).Create(contribution).Error
}

func (r *PostgresRepository) GetContribution(ctx context.Context, id string) (*ledgerdomain.Contribution, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ledgerdomain.ErrContributionNotFound
	}
	var contribution ledgerdomain.Contribution
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&contribution).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledgerdomain.ErrContributionNotFound
		}
		return nil, err
	}
	return &contribution, nil
}

func (r *PostgresRepository) DeleteContribution(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ledgerdomain.Contribution{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledgerdomain.ErrContributionNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, username string) ([]ledgerdomain.Contribution, error) {
	var contributions []ledgerdomain.Contribution
	if err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at desc, id desc").
		Find(&contributions).Error; err != nil {
		return nil, err
	}
	return contributions, nil
}

func (r *PostgresRepository) ListByHome(ctx context.Context, homeID string, period *ledgerdomain.Period) ([]ledgerdomain.ContributionEntry, error) {
	type contributionRow struct {
		ledgerdomain.Contribution
		FullName string `gorm:"column:full_name"`
	}

	query := r.db.WithContext(ctx).
		Table("contributions").
		Select("contributions.*, users.full_name").
		Joins("join users on users.username = contributions.username").
		Where("contributions.home_id = ?", homeID)
	if period != nil {
		query = query.Where("contributions.created_at >= ? AND contributions.created_at < ?", period.From, period.To)
	}

	var rows []contributionRow
	if err := query.Order("contributions.created_at desc, contributions.id desc").Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]ledgerdomain.ContributionEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, ledgerdomain.ContributionEntry{Contribution: row.Contribution, FullName: row.FullName})
	}
	return entries, nil
}

func (r *PostgresRepository) CreateTransfer(ctx context.Context, transfer *ledgerdomain.Transfer) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r *PostgresRepository) ListTransfers(ctx context.Context, username string) ([]ledgerdomain.TransferEntry, error) {
	type transferRow struct {
		ledgerdomain.Transfer
		SenderName    string `gorm:"column:sender_name"`
		RecipientName string `gorm:"column:recipient_name"`
	}

	var rows []transferRow
	if err := r.db.WithContext(ctx).
		Table("transfers").
		Select("transfers.*, sender.full_name AS sender_name, recipient.full_name AS recipient_name").
		Joins("join users sender on sender.username = transfers.sender_username").
		Joins("join users recipient on recipient.username = transfers.recipient_username").
		Where("transfers.sender_username = ? OR transfers.recipient_username = ?", username, username).
		Order("transfers.created_at desc, transfers.id desc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]ledgerdomain.TransferEntry, 0, len(rows))
	for _, row := range rows {
		direction := ledgerdomain.DirectionReceived
		if row.SenderUsername == username {
			direction = ledgerdomain.DirectionSent
		}
		entries = append(entries, ledgerdomain.TransferEntry{
			Transfer:      row.Transfer,
			SenderName:    row.SenderName,
			RecipientName: row.RecipientName,
			Direction:     direction,
		})
	}
	return entries, nil
}

func (r *PostgresRepository) ListRecipients(ctx context.Context, homeID, exceptUsername string) ([]ledgerdomain.Recipient, error) {
	type recipientRow struct {
		Username string          `gorm:"column:username"`
		FullName string          `gorm:"column:full_name"`
		Email    string          `gorm:"column:email"`
		Total    decimal.Decimal `gorm:"column:total"`
	}

	var rows []recipientRow
	if err := r.db.WithContext(ctx).
		Table("home_members").
		Select("users.username, users.full_name, users.email, COALESCE(SUM(contributions.amount), 0) AS total").
		Joins("join users on users.username = home_members.username").
		Joins("left join contributions on contributions.username = home_members.username AND contributions.home_id = home_members.home_id").
		Where("home_members.home_id = ? AND home_members.username <> ?", homeID, exceptUsername).
		Group("users.username, users.full_name, users.email").
		Order("users.full_name asc, users.username asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	recipients := make([]ledgerdomain.Recipient, 0, len(rows))
	for _, row := range rows {
		recipients = append(recipients, ledgerdomain.Recipient{
			Username: row.Username,
			FullName: row.FullName,
			Email:    row.Email,
			Total:    row.Total.Round(2),
		})
	}
	return recipients, nil
}
