package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// AllowList accepts any username on a configured list and treats it as an administrator.
type AllowList struct {
	users   UserStore
	allowed map[string]struct{}
	newID   func() string
}

func NewAllowList(users UserStore, usernames []string) *AllowList {
	allowed := make(map[string]struct{}, len(usernames))
	for _, u := range usernames {
		if u = strings.ToLower(strings.TrimSpace(u)); u != "" {
			allowed[u] = struct{}{}
		}
	}
	return &AllowList{users: users, allowed: allowed, newID: uuid.NewString}
}

func (p *AllowList) Allowed(username string) bool {
	_, ok := p.allowed[strings.ToLower(strings.TrimSpace(username))]
	return ok
}

func (p *AllowList) Authenticate(ctx context.Context, creds Credentials) (*Identity, error) {
	name := strings.ToLower(strings.TrimSpace(creds.Username))
	if !p.Allowed(name) {
		return nil, ErrInvalidCredentials
	}
	u, err := p.users.FindOrCreateUser(ctx, name, p.newID(), true)
	if err != nil {
		return nil, err
	}
	return identityOf(u), nil
}

// Usernames returns the allow-listed names, used to seed user rows at startup.
func (p *AllowList) Usernames() []string {
	out := make([]string, 0, len(p.allowed))
	for u := range p.allowed {
		out = append(out, u)
	}
	return out
}
