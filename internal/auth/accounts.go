package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"hse/internal/core"
	"hse/internal/records"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Accounts checks and creates sign-in accounts.
type Accounts struct {
	users records.UserStore
}

func NewAccounts(users records.UserStore) *Accounts {
	return &Accounts{users: users}
}

// Authenticate returns the account for email when password matches.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := a.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Burn the same time as a real comparison.
			CheckPassword(password, dummyHash)
			return core.User{}, ErrInvalidCredentials
		}
		return core.User{}, fmt.Errorf("find user: %w", err)
	}
	if !CheckPassword(password, user.PasswordHash) {
		return core.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Create hashes password and stores a new account.
func (a *Accounts) Create(ctx context.Context, email, password string) (core.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := a.users.CreateUser(ctx, core.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "Sign-in account created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// bcrypt hash of a random string, compared against for unknown emails.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3i5p0cTRyJrMgGP2G2Z8Fvu"
