package ledger

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxProductLength   = 200
	amountDecimals     = 2
	transferFallback   = "Balancing household contributions"
	transferOutProduct = "Fund transfer to "
	transferInProduct  = "Fund received from "
)

var amountLimit = decimal.New(1, 10)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ParseAmount reads a decimal amount as entered by a user.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

func (s *Service) RecordContribution(ctx context.Context, input RecordContributionInput) (*Contribution, error) {
	product, err := normalizeProduct(input.ProductName)
	if err != nil {
		return nil, err
	}
	if input.Amount.IsZero() {
		return nil, ErrZeroAmount
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}

	var result Contribution
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		author, err := tx.LockAuthor(ctx, input.Author)
		if err != nil {
			return err
		}
		if author.HomeID == nil {
			return ErrNoHome
		}

		contribution := Contribution{
			ID:          uuid.NewString(),
			Username:    author.Username,
			HomeID:      *author.HomeID,
			ProductName: product,
			Amount:      input.Amount.Round(amountDecimals),
			Description: optional(input.Description),
			Origin:      OriginUser,
			CreatedAt:   s.now().UTC(),
		}
		if err := tx.CreateContribution(ctx, &contribution); err != nil {
			return err
		}

		result = contribution
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RecordTransfer moves credit from sender to recipient inside their shared
// home. The transfer row and both offsetting contributions commit together.
func (s *Service) RecordTransfer(ctx context.Context, input RecordTransferInput) (*TransferResult, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	sender := strings.TrimSpace(input.Sender)
	recipient := strings.TrimSpace(input.Recipient)
	if sender == recipient {
		return nil, ErrSelfTransfer
	}

	var result TransferResult
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		from, to, err := lockPair(ctx, tx, sender, recipient)
		if err != nil {
			return err
		}
		if from.HomeID == nil || to.HomeID == nil || *from.HomeID != *to.HomeID {
			return ErrHomeMismatch
		}

		now := s.now().UTC()
		amount := input.Amount.Round(amountDecimals)
		transfer := Transfer{
			ID:                uuid.NewString(),
			SenderUsername:    from.Username,
			RecipientUsername: to.Username,
			HomeID:            *from.HomeID,
			Amount:            amount,
			Description:       optional(input.Description),
			CreatedAt:         now,
		}
		if err := tx.CreateTransfer(ctx, &transfer); err != nil {
			return err
		}

		description := strings.TrimSpace(input.Description)
		if description == "" {
			description = transferFallback
		}
		outgoing := Contribution{
			ID:          uuid.NewString(),
			Username:    from.Username,
			HomeID:      transfer.HomeID,
			ProductName: transferOutProduct + to.FullName,
			Amount:      amount,
			Description: &description,
			Origin:      OriginTransferOut,
			TransferID:  &transfer.ID,
			CreatedAt:   now,
		}
		incoming := Contribution{
			ID:          uuid.NewString(),
			Username:    to.Username,
			HomeID:      transfer.HomeID,
			ProductName: transferInProduct + from.FullName,
			Amount:      amount.Neg(),
			Description: &description,
			Origin:      OriginTransferIn,
			TransferID:  &transfer.ID,
			CreatedAt:   now,
		}
		if err := tx.CreateContribution(ctx, &outgoing); err != nil {
			return err
		}
		if err := tx.CreateContribution(ctx, &incoming); err != nil {
			return err
		}

		result = TransferResult{Transfer: transfer, Outgoing: outgoing, Incoming: incoming}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteContribution removes a contribution written by requester. Halves of a
// transfer cannot be deleted.
func (s *Service) DeleteContribution(ctx context.Context, id, requester string) (bool, error) {
	deleted := false
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		contribution, err := tx.GetContribution(ctx, id)
		if err != nil {
			return err
		}
		if contribution.Username != requester {
			return ErrNotAuthor
		}
		if contribution.IsTransfer() {
			return ErrTransferContribution
		}
		if err := tx.DeleteContribution(ctx, contribution.ID); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *Service) ListByUser(ctx context.Context, username string) ([]Contribution, error) {
	return s.repo.ListByUser(ctx, username)
}

func (s *Service) ListByHome(ctx context.Context, homeID string) ([]ContributionEntry, error) {
	return s.repo.ListByHome(ctx, homeID, nil)
}

func (s *Service) ListMonth(ctx context.Context, homeID string, year, month int) ([]ContributionEntry, error) {
	period, err := MonthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByHome(ctx, homeID, &period)
}

// HomeOf returns the home id the user currently belongs to.
func (s *Service) HomeOf(ctx context.Context, username string) (string, error) {
	author, err := s.repo.GetAuthor(ctx, username)
	if err != nil {
		return "", err
	}
	if author.HomeID == nil {
		return "", ErrNoHome
	}
	return *author.HomeID, nil
}

func (s *Service) TransfersFor(ctx context.Context, username string) ([]TransferEntry, error) {
	return s.repo.ListTransfers(ctx, username)
}

// EligibleRecipients lists the other members of the sender's home.
func (s *Service) EligibleRecipients(ctx context.Context, sender string) ([]Recipient, error) {
	homeID, err := s.HomeOf(ctx, sender)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRecipients(ctx, homeID, sender)
}

// MonthPeriod returns the half-open UTC range covering one calendar month.
func MonthPeriod(year, month int) (Period, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 {
		return Period{}, ErrInvalidPeriod
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Period{From: from, To: from.AddDate(0, 1, 0)}, nil
}

// lockPair locks both user rows in username order so concurrent transfers
// between the same users cannot deadlock.
func lockPair(ctx context.Context, tx Repository, sender, recipient string) (*Author, *Author, error) {
	first, second := sender, recipient
	if second < first {
		first, second = second, first
	}

	locked := make(map[string]*Author, 2)
	for _, username := range []string{first, second} {
		author, err := tx.LockAuthor(ctx, username)
		if err != nil {
			return nil, nil, err
		}
		locked[username] = author
	}
	return locked[sender], locked[recipient], nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(amountDecimals)) {
		return ErrInvalidAmount
	}
	if amount.Abs().GreaterThanOrEqual(amountLimit) {
		return ErrInvalidAmount
	}
	return nil
}

func normalizeProduct(value string) (string, error) {
	product := strings.TrimSpace(value)
	if product == "" || utf8.RuneCountInString(product) > maxProductLength {
		return "", ErrInvalidProduct
	}
	return product, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
