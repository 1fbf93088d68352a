// Package users holds the user accounts the authorization endpoints
// authenticate against.
package users

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/latamteks-cmyk/SmartEdify-app-sub003/internal/errors"
)

type User struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash string
	Blocked      bool
	CreatedAt    time.Time
}

type Repo interface {
	GetByEmail(ctx context.Context, tenantID, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticate verifies a user's credentials. Unknown users and bad
// passwords return the same error so the login form cannot be used to probe
// for accounts.
func Authenticate(ctx context.Context, repo Repo, tenantID, email, password string) (*User, error) {
	user, err := repo.GetByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, apperrors.ErrUserBlocked
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}
