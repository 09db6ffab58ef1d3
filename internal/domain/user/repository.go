package user

import "context"

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email, exceptUsername string) (bool, error)
	UpdateProfile(ctx context.Context, username, fullName, email string) error
	UpdatePassword(ctx context.Context, username, hashedPassword string) error
	List(ctx context.Context) ([]User, error)
}

type PasswordHasher interface {
	Validate(password string) error
	Hash(ctx context.Context, password string) (string, error)
	Matches(ctx context.Context, hash, password string) (bool, error)
}
