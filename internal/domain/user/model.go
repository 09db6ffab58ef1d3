package user

import "time"

type User struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	Username       string    `gorm:"size:50;not null;uniqueIndex"`
	Email          string    `gorm:"size:100;not null;uniqueIndex"`
	FullName       string    `gorm:"size:100;not null"`
	HashedPassword string    `gorm:"not null"`
	IsActive       bool      `gorm:"not null;default:true"`
	HomeID         *string   `gorm:"type:uuid;index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// Profile is the user without credentials.
type Profile struct {
	ID        string
	Username  string
	Email     string
	FullName  string
	IsActive  bool
	HomeID    *string
	CreatedAt time.Time
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		HomeID:    u.HomeID,
		CreatedAt: u.CreatedAt,
	}
}

type CreateUserInput struct {
	Username string
	Email    string
	FullName string
	Password string
}

type UpdateProfileInput struct {
	Username string
	FullName string
	Email    string
}
