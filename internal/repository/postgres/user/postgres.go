package user

import (
	"context"
	"errors"

	"gorm.io/gorm"
	domain "household-ledger/internal/domain/user"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return duplicateError(ctx, r.db, user)
	}
	return err
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRepository) EmailTaken(ctx context.Context, email, exceptUsername string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email)
	if exceptUsername != "" {
		query = query.Where("username <> ?", exceptUsername)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, username, fullName, email string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{"full_name": fullName, "email": email})
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return domain.ErrEmailTaken
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, username, hashedPassword string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("username = ?", username).
		Update("hashed_password", hashedPassword)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := r.db.WithContext(ctx).Order("full_name asc, username asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// duplicateError tells which unique column a concurrent insert collided with.
func duplicateError(ctx context.Context, db *gorm.DB, user *domain.User) error {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", user.Username).Count(&count).Error; err == nil && count > 0 {
		return domain.ErrUsernameTaken
	}
	return domain.ErrEmailTaken
}
