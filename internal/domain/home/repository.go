package home

import (
	"context"
	"time"
)

// Repository methods prefixed with Lock take a row lock that is held until
// the surrounding transaction ends.
type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	GetResident(ctx context.Context, username string) (*Resident, error)
	LockResident(ctx context.Context, username string) (*Resident, error)
	SetResidentHome(ctx context.Context, username string, homeID *string) error

	GetHome(ctx context.Context, homeID string) (*Home, error)
	LockHome(ctx context.Context, homeID string) (*Home, error)
	GetHomeByName(ctx context.Context, name string) (*Home, error)
	IsNameTaken(ctx context.Context, name string) (bool, error)
	CreateHome(ctx context.Context, home *Home) error
	UpdateLeader(ctx context.Context, homeID, username string) error
	DeleteHome(ctx context.Context, homeID string) error

	AddMember(ctx context.Context, member *Member) error
	GetMember(ctx context.Context, homeID, username string) (*Member, error)
	DeleteMember(ctx context.Context, homeID, username string) error
	CountMembers(ctx context.Context, homeID string) (int64, error)
	ListMembers(ctx context.Context, homeID string) ([]MemberProfile, error)

	CreateJoinRequest(ctx context.Context, request *JoinRequest) error
	GetJoinRequest(ctx context.Context, id string) (*JoinRequest, error)
	LockJoinRequest(ctx context.Context, id string) (*JoinRequest, error)
	HasPendingRequest(ctx context.Context, username, homeID string) (bool, error)
	SetJoinRequestStatus(ctx context.Context, id, status string, processedAt time.Time) error
	RejectPendingByUser(ctx context.Context, username string, processedAt time.Time) error
	RejectPendingByHome(ctx context.Context, homeID string, processedAt time.Time) error
	ListPendingRequests(ctx context.Context, homeID string) ([]PendingRequest, error)
	GetPendingRequestByUser(ctx context.Context, username string) (*JoinRequest, error)
}
