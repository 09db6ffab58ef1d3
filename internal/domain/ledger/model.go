package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OriginUser        = "user"
	OriginTransferOut = "transfer_out"
	OriginTransferIn  = "transfer_in"

	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// Contribution is one signed ledger row. Rows with a transfer origin always
// come in pairs that share TransferID and cancel each other out.
type Contribution struct {
	ID          string          `gorm:"type:uuid;primaryKey"`
	Username    string          `gorm:"size:50;not null;index"`
	HomeID      string          `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"size:200;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Description *string         `gorm:"type:text"`
	Origin      string          `gorm:"size:16;not null;default:'user';index"`
	TransferID  *string         `gorm:"type:uuid;index"`
	CreatedAt   time.Time       `gorm:"not null;index"`
}

func (c Contribution) IsTransfer() bool {
	return c.Origin != OriginUser
}

type Transfer struct {
	ID                string          `gorm:"type:uuid;primaryKey"`
	SenderUsername    string          `gorm:"size:50;not null;index"`
	RecipientUsername string          `gorm:"size:50;not null;index"`
	HomeID            string          `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Description       *string         `gorm:"type:text"`
	CreatedAt         time.Time       `gorm:"not null"`
}

// Author is the part of a user row the ledger needs to stamp a contribution.
type Author struct {
	Username string
	FullName string
	HomeID   *string
}

type ContributionEntry struct {
	Contribution
	FullName string
}

type TransferEntry struct {
	Transfer
	SenderName    string
	RecipientName string
	Direction     string
}

type Recipient struct {
	Username string
	FullName string
	Email    string
	Total    decimal.Decimal
}

type Period struct {
	From time.Time
	To   time.Time
}

type RecordContributionInput struct {
	Author      string
	ProductName string
	Amount      decimal.Decimal
	Description string
}

type RecordTransferInput struct {
	Sender      string
	Recipient   string
	Amount      decimal.Decimal
	Description string
}

// TransferResult holds the transfer row and the two contributions written
// with it.
type TransferResult struct {
	Transfer Transfer
	Outgoing Contribution
	Incoming Contribution
}
