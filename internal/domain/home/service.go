package home

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxHomeNameLength = 100

// Service owns homes, memberships and join requests. Every mutation runs in a
// single transaction and locks rows in the order user, home, join request.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) CreateHome(ctx context.Context, input CreateHomeInput) (*Home, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || utf8.RuneCountInString(name) > maxHomeNameLength {
		return nil, ErrInvalidHomeName
	}
	var description *string
	if value := strings.TrimSpace(input.Description); value != "" {
		description = &value
	}

	var result Home
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		founder, err := tx.LockResident(ctx, input.Founder)
		if err != nil {
			return err
		}
		if founder.HomeID != nil {
			return ErrAlreadyInHome
		}

		taken, err := tx.IsNameTaken(ctx, name)
		if err != nil {
			return err
		}
		if taken {
			return ErrNameTaken
		}

		now := s.now().UTC()
		home := Home{
			ID:             uuid.NewString(),
			Name:           name,
			Description:    description,
			LeaderUsername: founder.Username,
			CreatedAt:      now,
		}
		if err := tx.CreateHome(ctx, &home); err != nil {
			return err
		}
		if err := s.join(ctx, tx, home.ID, founder.Username, now); err != nil {
			return err
		}

		result = home
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) DirectAdd(ctx context.Context, homeID, candidate, requester string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		resident, err := tx.LockResident(ctx, strings.TrimSpace(candidate))
		if err != nil {
			return err
		}

		home, err := tx.LockHome(ctx, homeID)
		if err != nil {
			return err
		}
		if home.LeaderUsername != requester {
			return ErrNotLeader
		}
		if resident.HomeID != nil {
			return ErrAlreadyInHome
		}

		return s.join(ctx, tx, home.ID, resident.Username, s.now().UTC())
	})
}

func (s *Service) Remove(ctx context.Context, homeID, target, requester string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		resident, err := tx.LockResident(ctx, strings.TrimSpace(target))
		if err != nil {
			if errors.Is(err, ErrNoSuchUser) {
				return ErrMemberNotFound
			}
			return err
		}

		home, err := tx.LockHome(ctx, homeID)
		if err != nil {
			return err
		}
		if home.LeaderUsername != requester {
			return ErrNotLeader
		}
		if resident.Username == home.LeaderUsername {
			return ErrCannotRemoveLeader
		}
		if _, err := tx.GetMember(ctx, home.ID, resident.Username); err != nil {
			return err
		}

		if err := tx.DeleteMember(ctx, home.ID, resident.Username); err != nil {
			return err
		}
		return tx.SetResidentHome(ctx, resident.Username, nil)
	})
}

// Leave removes username from its home. A leader may only leave as the last
// member, which dissolves the home.
func (s *Service) Leave(ctx context.Context, username string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		resident, err := tx.LockResident(ctx, username)
		if err != nil {
			return err
		}
		if resident.HomeID == nil {
			return ErrNotInHome
		}

		home, err := tx.LockHome(ctx, *resident.HomeID)
		if err != nil {
			return err
		}

		if home.LeaderUsername != resident.Username {
			if err := tx.DeleteMember(ctx, home.ID, resident.Username); err != nil {
				return err
			}
			return tx.SetResidentHome(ctx, resident.Username, nil)
		}

		count, err := tx.CountMembers(ctx, home.ID)
		if err != nil {
			return err
		}
		if count > 1 {
			return ErrLeaderMustTransfer
		}

		if err := tx.DeleteMember(ctx, home.ID, resident.Username); err != nil {
			return err
		}
		if err := tx.SetResidentHome(ctx, resident.Username, nil); err != nil {
			return err
		}
		if err := tx.RejectPendingByHome(ctx, home.ID, s.now().UTC()); err != nil {
			return err
		}
		return tx.DeleteHome(ctx, home.ID)
	})
}

func (s *Service) PromoteLeader(ctx context.Context, homeID, newLeader, requester string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		home, err := tx.LockHome(ctx, homeID)
		if err != nil {
			return err
		}
		if home.LeaderUsername != requester {
			return ErrNotLeader
		}
		newLeader = strings.TrimSpace(newLeader)
		if newLeader == home.LeaderUsername {
			return nil
		}
		if _, err := tx.GetMember(ctx, home.ID, newLeader); err != nil {
			return err
		}
		return tx.UpdateLeader(ctx, home.ID, newLeader)
	})
}

func (s *Service) RequestJoin(ctx context.Context, applicant, homeName string) (*JoinRequest, error) {
	homeName = strings.TrimSpace(homeName)
	if homeName == "" {
		return nil, ErrNoSuchHome
	}

	var result JoinRequest
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		resident, err := tx.LockResident(ctx, applicant)
		if err != nil {
			return err
		}
		if resident.HomeID != nil {
			return ErrAlreadyInHome
		}

		home, err := tx.GetHomeByName(ctx, homeName)
		if err != nil {
			return err
		}

		pending, err := tx.HasPendingRequest(ctx, resident.Username, home.ID)
		if err != nil {
			return err
		}
		if pending {
			return ErrRequestPending
		}

		request := JoinRequest{
			ID:        uuid.NewString(),
			Username:  resident.Username,
			HomeID:    home.ID,
			HomeName:  home.Name,
			Status:    StatusPending,
			CreatedAt: s.now().UTC(),
		}
		if err := tx.CreateJoinRequest(ctx, &request); err != nil {
			return err
		}

		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DecideRequest approves or rejects a pending request. Approval adds the
// applicant to the home in the same transaction that marks the request.
func (s *Service) DecideRequest(ctx context.Context, requestID, leader, decision string) (*JoinRequest, error) {
	decision = strings.ToLower(strings.TrimSpace(decision))
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, ErrInvalidDecision
	}

	var result JoinRequest
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		snapshot, err := tx.GetJoinRequest(ctx, requestID)
		if err != nil {
			return err
		}

		resident, err := tx.LockResident(ctx, snapshot.Username)
		if err != nil {
			return err
		}
		home, err := tx.LockHome(ctx, snapshot.HomeID)
		if err != nil {
			if errors.Is(err, ErrNoSuchHome) {
				return ErrAlreadyDecided
			}
			return err
		}
		if home.LeaderUsername != leader {
			return ErrNotLeader
		}

		request, err := tx.LockJoinRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if request.Status != StatusPending {
			return ErrAlreadyDecided
		}

		now := s.now().UTC()
		if decision == DecisionReject {
			if err := tx.SetJoinRequestStatus(ctx, request.ID, StatusRejected, now); err != nil {
				return err
			}
			request.Status = StatusRejected
			request.ProcessedAt = &now
			result = *request
			return nil
		}

		if resident.HomeID != nil {
			return ErrAlreadyInHome
		}
		if err := tx.SetJoinRequestStatus(ctx, request.ID, StatusApproved, now); err != nil {
			return err
		}
		if err := s.join(ctx, tx, home.ID, resident.Username, now); err != nil {
			return err
		}

		request.Status = StatusApproved
		request.ProcessedAt = &now
		result = *request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) PendingRequests(ctx context.Context, homeID, requester string) ([]PendingRequest, error) {
	home, err := s.repo.GetHome(ctx, homeID)
	if err != nil {
		return nil, err
	}
	if home.LeaderUsername != requester {
		return nil, ErrNotLeader
	}
	return s.repo.ListPendingRequests(ctx, home.ID)
}

func (s *Service) PendingRequestFor(ctx context.Context, username string) (*JoinRequest, error) {
	return s.repo.GetPendingRequestByUser(ctx, username)
}

func (s *Service) GetHome(ctx context.Context, homeID string) (*HomeDetails, error) {
	home, err := s.repo.GetHome(ctx, homeID)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, home.ID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		members[i].IsLeader = members[i].Username == home.LeaderUsername
	}
	return &HomeDetails{Home: *home, Members: members}, nil
}

// HomeOf returns the home username belongs to.
func (s *Service) HomeOf(ctx context.Context, username string) (*HomeDetails, error) {
	resident, err := s.repo.GetResident(ctx, username)
	if err != nil {
		return nil, err
	}
	if resident.HomeID == nil {
		return nil, ErrNotInHome
	}
	return s.GetHome(ctx, *resident.HomeID)
}

// join adds the membership, points the user at the home and closes any
// other pending requests of the user.
func (s *Service) join(ctx context.Context, tx Repository, homeID, username string, now time.Time) error {
	if err := tx.AddMember(ctx, &Member{HomeID: homeID, Username: username, JoinedAt: now}); err != nil {
		return err
	}
	if err := tx.SetResidentHome(ctx, username, &homeID); err != nil {
		return err
	}
	return tx.RejectPendingByUser(ctx, username, now)
}
