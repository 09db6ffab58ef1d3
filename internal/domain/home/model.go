package home

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

type Home struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	Name           string    `gorm:"size:100;not null;uniqueIndex"`
	Description    *string   `gorm:"type:text"`
	LeaderUsername string    `gorm:"size:50;not null;index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

type Member struct {
	HomeID   string    `gorm:"type:uuid;primaryKey"`
	Username string    `gorm:"size:50;primaryKey;uniqueIndex"`
	JoinedAt time.Time `gorm:"autoCreateTime"`

	Home Home `gorm:"foreignKey:HomeID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Member) TableName() string {
	return "home_members"
}

type JoinRequest struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	Username    string    `gorm:"size:50;not null;index"`
	HomeID      string    `gorm:"type:uuid;not null;index"`
	HomeName    string    `gorm:"size:100;not null"`
	Status      string    `gorm:"size:16;not null;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	ProcessedAt *time.Time
}

// Resident is the slice of a user record the registry reads and writes.
type Resident struct {
	Username string
	FullName string
	Email    string
	HomeID   *string
}

type MemberProfile struct {
	Username string
	FullName string
	Email    string
	JoinedAt time.Time
	IsLeader bool
}

type HomeDetails struct {
	Home
	Members []MemberProfile
}

type PendingRequest struct {
	JoinRequest
	FullName string
	Email    string
}

type CreateHomeInput struct {
	Name        string
	Description string
	Founder     string
}
