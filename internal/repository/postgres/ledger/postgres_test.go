package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"household-ledger/internal/db/dbtest"
	ledgerdomain "household-ledger/internal/domain/ledger"
	"household-ledger/internal/domain/user"
)

func seedMember(t *testing.T, db *gorm.DB, username, fullName string, homeID *string) {
	t.Helper()
	require.NoError(t, db.Create(&user.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          username + "@x",
		FullName:       fullName,
		HashedPassword: "hash",
		IsActive:       true,
		HomeID:         homeID,
	}).Error)
	if homeID != nil {
		require.NoError(t, db.Exec("INSERT INTO home_members (home_id, username, joined_at) VALUES (?, ?, ?)", *homeID, username, time.Now().UTC()).Error)
	}
}

func seedHome(t *testing.T, db *gorm.DB, name, leader string) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, db.Exec("INSERT INTO homes (id, name, leader_username, created_at) VALUES (?, ?, ?, ?)", id, name, leader, time.Now().UTC()).Error)
	return id
}

func newLedger(t *testing.T) (*ledgerdomain.Service, *PostgresRepository, *gorm.DB, string) {
	t.Helper()
	db := dbtest.New(t)
	maple := seedHome(t, db, "Maple", "alice")
	seedMember(t, db, "alice", "Alice", &maple)
	seedMember(t, db, "bob", "Bob", &maple)
	seedMember(t, db, "dave", "Dave", nil)
	repo := NewPostgres(db)
	return ledgerdomain.NewService(repo), repo, db, maple
}

func sumOf(t *testing.T, db *gorm.DB, username string) decimal.Decimal {
	t.Helper()
	var contributions []ledgerdomain.Contribution
	require.NoError(t, db.Where("username = ?", username).Find(&contributions).Error)
	total := decimal.Zero
	for _, c := range contributions {
		total = total.Add(c.Amount)
	}
	return total
}

func TestContributionAndTransferRoundTrip(t *testing.T) {
	svc, _, db, maple := newLedger(t)
	ctx := context.Background()

	groceries, err := svc.RecordContribution(ctx, ledgerdomain.RecordContributionInput{Author: "alice", ProductName: "Groceries", Amount: decimal.RequireFromString("60.00"), Description: "weekly"})
	require.NoError(t, err)
	require.Equal(t, maple, groceries.HomeID)
	_, err = svc.RecordContribution(ctx, ledgerdomain.RecordContributionInput{Author: "bob", ProductName: "Milk", Amount: decimal.RequireFromString("20.00")})
	require.NoError(t, err)

	result, err := svc.RecordTransfer(ctx, ledgerdomain.RecordTransferInput{Sender: "alice", Recipient: "bob", Amount: decimal.RequireFromString("20.00")})
	require.NoError(t, err)

	require.True(t, sumOf(t, db, "alice").Equal(decimal.NewFromInt(80)), sumOf(t, db, "alice").String())
	require.True(t, sumOf(t, db, "bob").IsZero(), sumOf(t, db, "bob").String())

	var pair []ledgerdomain.Contribution
	require.NoError(t, db.Where("transfer_id = ?", result.Transfer.ID).Find(&pair).Error)
	require.Len(t, pair, 2)
	require.True(t, pair[0].Amount.Add(pair[1].Amount).IsZero())

	entries, err := svc.ListByHome(ctx, maple)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	require.True(t, entries[0].IsTransfer())

	stored, err := svc.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, "weekly", *stored[1].Description)
}

func TestTransferRollsBackOnFailure(t *testing.T) {
	_, repo, db, maple := newLedger(t)
	ctx := context.Background()

	err := repo.Transaction(ctx, func(tx ledgerdomain.Repository) error {
		transfer := &ledgerdomain.Transfer{ID: uuid.NewString(), SenderUsername: "alice", RecipientUsername: "bob", HomeID: maple, Amount: decimal.NewFromInt(5), CreatedAt: time.Now().UTC()}
		if err := tx.CreateTransfer(ctx, transfer); err != nil {
			return err
		}
		duplicate := &ledgerdomain.Contribution{ID: transfer.ID, Username: "alice", HomeID: maple, ProductName: "x", Amount: decimal.NewFromInt(5), Origin: ledgerdomain.OriginTransferOut, TransferID: &transfer.ID, CreatedAt: time.Now().UTC()}
		if err := tx.CreateContribution(ctx, duplicate); err != nil {
			return err
		}
		return tx.CreateContribution(ctx, duplicate)
	})
	require.Error(t, err)

	var transfers, contributions int64
	require.NoError(t, db.Model(&ledgerdomain.Transfer{}).Count(&transfers).Error)
	require.NoError(t, db.Model(&ledgerdomain.Contribution{}).Count(&contributions).Error)
	require.Zero(t, transfers)
	require.Zero(t, contributions)
}

func TestDeleteContributionRules(t *testing.T) {
	svc, _, _, _ := newLedger(t)
	ctx := context.Background()

	milk, err := svc.RecordContribution(ctx, ledgerdomain.RecordContributionInput{Author: "bob", ProductName: "Milk", Amount: decimal.NewFromInt(3)})
	require.NoError(t, err)

	deleted, err := svc.DeleteContribution(ctx, milk.ID, "alice")
	require.False(t, deleted)
	require.ErrorIs(t, err, ledgerdomain.ErrNotAuthor)

	deleted, err = svc.DeleteContribution(ctx, "nope", "bob")
	require.False(t, deleted)
	require.ErrorIs(t, err, ledgerdomain.ErrContributionNotFound)

	deleted, err = svc.DeleteContribution(ctx, milk.ID, "bob")
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = svc.RecordContribution(ctx, ledgerdomain.RecordContributionInput{Author: "dave", ProductName: "Milk", Amount: decimal.NewFromInt(3)})
	require.ErrorIs(t, err, ledgerdomain.ErrNoHome)
}

func TestMonthListingTransfersAndRecipients(t *testing.T) {
	_, repo, _, maple := newLedger(t)
	ctx := context.Background()

	january := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	february := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateContribution(ctx, &ledgerdomain.Contribution{ID: uuid.NewString(), Username: "alice", HomeID: maple, ProductName: "Rent", Amount: decimal.NewFromInt(500), Origin: ledgerdomain.OriginUser, CreatedAt: january}))
	require.NoError(t, repo.CreateContribution(ctx, &ledgerdomain.Contribution{ID: uuid.NewString(), Username: "bob", HomeID: maple, ProductName: "Power", Amount: decimal.RequireFromString("40.50"), Origin: ledgerdomain.OriginUser, CreatedAt: february}))

	period, err := ledgerdomain.MonthPeriod(2024, 1)
	require.NoError(t, err)
	entries, err := repo.ListByHome(ctx, maple, &period)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Rent", entries[0].ProductName)
	require.Equal(t, "Alice", entries[0].FullName)

	transfer := &ledgerdomain.Transfer{ID: uuid.NewString(), SenderUsername: "bob", RecipientUsername: "alice", HomeID: maple, Amount: decimal.NewFromInt(7), CreatedAt: february}
	require.NoError(t, repo.CreateTransfer(ctx, transfer))

	forAlice, err := repo.ListTransfers(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, forAlice, 1)
	require.Equal(t, ledgerdomain.DirectionReceived, forAlice[0].Direction)
	require.Equal(t, "Bob", forAlice[0].SenderName)

	recipients, err := repo.ListRecipients(ctx, maple, "alice")
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	require.Equal(t, "bob", recipients[0].Username)
	require.True(t, recipients[0].Total.Equal(decimal.RequireFromString("40.5")), recipients[0].Total.String())
}
