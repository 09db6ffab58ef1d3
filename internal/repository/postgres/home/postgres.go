package home

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	homedomain "household-ledger/internal/domain/home"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(homedomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) GetResident(ctx context.Context, username string) (*homedomain.Resident, error) {
	return r.resident(r.db.WithContext(ctx), username)
}

func (r *PostgresRepository) LockResident(ctx context.Context, username string) (*homedomain.Resident, error) {
	return r.resident(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), username)
}

func (r *PostgresRepository) resident(db *gorm.DB, username string) (*homedomain.Resident, error) {
	var resident homedomain.Resident
	err := db.Table("users").
		Select("username, full_name, email, home_id").
		Where("username = ?", username).
		Take(&resident).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, homedomain.ErrNoSuchUser
	}
	if err != nil {
		return nil, err
	}
	return &resident, nil
}

func (r *PostgresRepository) SetResidentHome(ctx context.Context, username string, homeID *string) error {
	result := r.db.WithContext(ctx).
		Table("users").
		Where("username = ?", username).
		Update("home_id", homeID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return homedomain.ErrNoSuchUser
	}
	return nil
}

func (r *PostgresRepository) GetHome(ctx context.Context, homeID string) (*homedomain.Home, error) {
	return r.home(r.db.WithContext(ctx), homeID)
}

func (r *PostgresRepository) LockHome(ctx context.Context, homeID string) (*homedomain.Home, error) {
	return r.home(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), homeID)
}

func (r *PostgresRepository) home(db *gorm.DB, homeID string) (*homedomain.Home, error) {
	if !validID(homeID) {
		return nil, homedomain.ErrNoSuchHome
	}
	var home homedomain.Home
	if err := db.Where("id = ?", homeID).Take(&home).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, homedomain.ErrNoSuchHome
		}
		return nil, err
	}
	return &home, nil
}

func (r *PostgresRepository) GetHomeByName(ctx context.Context, name string) (*homedomain.Home, error) {
	var home homedomain.Home
	if err := r.db.WithContext(ctx).Where("name = ?", name).Take(&home).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, homedomain.ErrNoSuchHome
		}
		return nil, err
	}
	return &home, nil
}

func (r *PostgresRepository) IsNameTaken(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&homedomain.Home{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRepository) CreateHome(ctx context.Context, home *homedomain.Home) error {
	err := r.db.WithContext(ctx).Create(home).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return homedomain.ErrNameTaken
	}
	return err
}

func (r *PostgresRepository) UpdateLeader(ctx context.Context, homeID, username string) error {
	result := r.db.WithContext(ctx).
		Model(&homedomain.Home{}).
		Where("id = ?", homeID).
		Update("leader_username", username)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return homedomain.ErrNoSuchHome
	}
	return nil
}

func (r *PostgresRepository) DeleteHome(ctx context.Context, homeID string) error {
	return r.db.WithContext(ctx).Where("id = ?", homeID).Delete(&homedomain.Home{}).Error
}

func (r *PostgresRepository) AddMember(ctx context.Context, member *homedomain.Member) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(member).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return homedomain.ErrAlreadyInHome
	}
	return err
}

func (r *PostgresRepository) GetMember(ctx context.Context, homeID, username string) (*homedomain.Member, error) {
	var member homedomain.Member
	if err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Where("home_id = ? AND username = ?", homeID, username).
		Take(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, homedomain.ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *PostgresRepository) DeleteMember(ctx context.Context, homeID, username string) error {
	return r.db.WithContext(ctx).
		Where("home_id = ? AND username = ?", homeID, username).
		Delete(&homedomain.Member{}).Error
}

func (r *PostgresRepository) CountMembers(ctx context.Context, homeID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&homedomain.Member{}).Where("home_id = ?", homeID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) ListMembers(ctx context.Context, homeID string) ([]homedomain.MemberProfile, error) {
	type memberRow struct {
		Username string    `gorm:"column:username"`
		FullName string    `gorm:"column:full_name"`
		Email    string    `gorm:"column:email"`
		JoinedAt time.Time `gorm:"column:joined_at"`
	}

	var rows []memberRow
	if err := r.db.WithContext(ctx).
		Table("home_members").
		Select("home_members.username, users.full_name, users.email, home_members.joined_at").
		Joins("join users on users.username = home_members.username").
		Where("home_members.home_id = ?", homeID).
		Order("home_members.joined_at asc, home_members.username asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	members := make([]homedomain.MemberProfile, 0, len(rows))
	for _, row := range rows {
		members = append(members, homedomain.MemberProfile{
			Username: row.Username,
			FullName: row.FullName,
			Email:    row.Email,
			JoinedAt: row.JoinedAt,
		})
	}
	return members, nil
}

func (r *PostgresRepository) CreateJoinRequest(ctx context.Context, request *homedomain.JoinRequest) error {
	err := r.db.WithContext(ctx).Create(request).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return homedomain.ErrRequestPending
	}
	return err
}

func (r *PostgresRepository) GetJoinRequest(ctx context.Context, id string) (*homedomain.JoinRequest, error) {
	return r.joinRequest(r.db.WithContext(ctx), id)
}

func (r *PostgresRepository) LockJoinRequest(ctx context.Context, id string) (*homedomain.JoinRequest, error) {
	return r.joinRequest(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *PostgresRepository) joinRequest(db *gorm.DB, id string) (*homedomain.JoinRequest, error) {
	if !validID(id) {
		return nil, homedomain.ErrRequestNotFound
	}
	var request homedomain.JoinRequest
	if err := db.Where("id = ?", id).Take(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, homedomain.ErrRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *PostgresRepository) HasPendingRequest(ctx context.Context, username, homeID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&homedomain.JoinRequest{}).
		Where("username = ? AND home_id = ? AND status = ?", username, homeID, homedomain.StatusPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRepository) SetJoinRequestStatus(ctx context.Context, id, status string, processedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&homedomain.JoinRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "processed_at": processedAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return homedomain.ErrRequestNotFound
	}
	return nil
}

func (r *PostgresRepository) RejectPendingByUser(ctx context.Context, username string, processedAt time.Time) error {
	return r.rejectPending(ctx, "username = ?", username, processedAt)
}

func (r *PostgresRepository) RejectPendingByHome(ctx context.Context, homeID string, processedAt time.Time) error {
	return r.rejectPending(ctx, "home_id = ?", homeID, processedAt)
}

func (r *PostgresRepository) rejectPending(ctx context.Context, condition string, value string, processedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&homedomain.JoinRequest{}).
		Where(condition, value).
		Where("status = ?", homedomain.StatusPending).
		Updates(map[string]interface{}{"status": homedomain.StatusRejected, "processed_at": processedAt}).Error
}

func (r *PostgresRepository) ListPendingRequests(ctx context.Context, homeID string) ([]homedomain.PendingRequest, error) {
	type requestRow struct {
		homedomain.JoinRequest
		FullName string `gorm:"column:full_name"`
		Email    string `gorm:"column:email"`
	}

	var rows []requestRow
	if err := r.db.WithContext(ctx).
		Table("join_requests").
		Select("join_requests.*, users.full_name, users.email").
		Joins("join users on users.username = join_requests.username").
		Where("join_requests.home_id = ? AND join_requests.status = ?", homeID, homedomain.StatusPending).
		Order("join_requests.created_at asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	requests := make([]homedomain.PendingRequest, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, homedomain.PendingRequest{
			JoinRequest: row.JoinRequest,
			FullName:    row.FullName,
			Email:       row.Email,
		})
	}
	return requests, nil
}

func (r *PostgresRepository) GetPendingRequestByUser(ctx context.Context, username string) (*homedomain.JoinRequest, error) {
	var request homedomain.JoinRequest
	if err := r.db.WithContext(ctx).
		Where("username = ? AND status = ?", username, homedomain.StatusPending).
		Order("created_at desc").
		Take(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, homedomain.ErrRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
