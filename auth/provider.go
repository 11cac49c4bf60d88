// Package auth holds the pluggable authentication providers and the bearer token issuer.
package auth

import (
	"context"
	"errors"
	"net/http"

	"Gin_postgres_redis_asset_tracker/models"
)

var ErrInvalidCredentials = errors.New("username or credential wrong")

// Credentials is the union of what the providers understand.
// AllowList reads Username; Passkey reads SessionID and Request (the assertion body).
type Credentials struct {
	Username  string
	SessionID string
	Request   *http.Request
}

// Identity is an authenticated user.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

func (i Identity) Actor() models.Actor {
	return models.Actor{UserID: i.UserID, Username: i.Username, IsAdmin: i.IsAdmin}
}

func identityOf(u *models.User) *Identity {
	return &Identity{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
}

// Provider authenticates credentials into an Identity.
type Provider interface {
	Authenticate(ctx context.Context, creds Credentials) (*Identity, error)
}

// UserStore is the user lookup the providers need.
type UserStore interface {
	FindOrCreateUser(ctx context.Context, username, newID string, isAdmin bool) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}
