package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"Gin_postgres_redis_asset_tracker/models"
	"Gin_postgres_redis_asset_tracker/session"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// CredentialStore persists passkeys.
type CredentialStore interface {
	UserStore
	LoadUserCredentials(ctx context.Context, userID string) ([]models.Credential, error)
	AddCredential(ctx context.Context, c *models.Credential) error
	UpdateCredentialCounter(ctx context.Context, credID []byte, newCount uint32, cloneWarn bool) error
	FindUserByCredentialID(ctx context.Context, credID []byte) (*models.User, *models.Credential, error)
}

// Passkey authenticates WebAuthn assertions. Registration requires an already logged-in actor.
type Passkey struct {
	wa    *webauthn.WebAuthn
	store CredentialStore
	sess  *session.Store
}

func NewPasskey(wa *webauthn.WebAuthn, store CredentialStore, sess *session.Store) *Passkey {
	return &Passkey{wa: wa, store: store, sess: sess}
}

// WebAuthn: DB user -> waUser
type waUser struct {
	user  models.User
	creds []webauthn.Credential
}

func (u *waUser) WebAuthnID() []byte                         { id, _ := uuid.Parse(u.user.ID); return id[:] }
func (u *waUser) WebAuthnName() string                       { return u.user.Username }
func (u *waUser) WebAuthnDisplayName() string                { return u.user.DisplayName }
func (u *waUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func toWaCred(c models.Credential) webauthn.Credential {
	return webauthn.Credential{
		ID:              c.CredentialID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Authenticator: webauthn.Authenticator{
			AAGUID:       c.AAGUID,
			SignCount:    c.SignCount,
			CloneWarning: c.CloneWarning,
		},
		Flags: webauthn.CredentialFlags{
			BackupEligible: c.BackupEligible,
			BackupState:    c.BackupState,
		},
	}
}

func (p *Passkey) wrap(ctx context.Context, u *models.User) (*waUser, error) {
	cs, err := p.store.LoadUserCredentials(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	ws := make([]webauthn.Credential, 0, len(cs))
	for _, c := range cs {
		ws = append(ws, toWaCred(c))
	}
	return &waUser{user: *u, creds: ws}, nil
}

// BeginLogin starts an assertion. An empty username starts a discoverable (usernameless) login.
func (p *Passkey) BeginLogin(ctx context.Context, username string) (*protocol.CredentialAssertion, string, error) {
	var (
		opts *protocol.CredentialAssertion
		sd   *webauthn.SessionData
		err  error
	)
	if username == "" {
		opts, sd, err = p.wa.BeginDiscoverableLogin(webauthn.WithUserVerification(protocol.VerificationRequired))
	} else {
		u, ferr := p.store.FindUserByUsername(ctx, username)
		if ferr != nil {
			return nil, "", ferr
		}
		w, werr := p.wrap(ctx, u)
		if werr != nil {
			return nil, "", werr
		}
		opts, sd, err = p.wa.BeginLogin(w, webauthn.WithUserVerification(protocol.VerificationRequired))
	}
	if err != nil {
		return nil, "", fmt.Errorf("begin login: %w", err)
	}
	sid := uuid.NewString()
	if err := p.sess.SaveAuth(ctx, sid, sd); err != nil {
		return nil, "", err
	}
	return opts, sid, nil
}

// Authenticate finishes the assertion started by BeginLogin.
func (p *Passkey) Authenticate(ctx context.Context, creds Credentials) (*Identity, error) {
	if creds.SessionID == "" || creds.Request == nil {
		return nil, ErrInvalidCredentials
	}
	sd, err := p.sess.TakeAuth(ctx, creds.SessionID)
	if err != nil {
		return nil, err
	}

	if creds.Username != "" {
		u, err := p.store.FindUserByUsername(ctx, creds.Username)
		if err != nil {
			return nil, err
		}
		w, err := p.wrap(ctx, u)
		if err != nil {
			return nil, err
		}
		cred, err := p.wa.FinishLogin(w, *sd, creds.Request)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		_ = p.store.UpdateCredentialCounter(ctx, cred.ID, cred.Authenticator.SignCount, cred.Authenticator.CloneWarning)
		return identityOf(u), nil
	}

	handler := func(rawID, _ []byte) (webauthn.User, error) {
		u, _, err := p.store.FindUserByCredentialID(ctx, rawID)
		if err != nil {
			return nil, protocol.ErrBadRequest.WithDetails("credential not found")
		}
		return p.wrap(ctx, u)
	}
	user, cred, err := p.wa.FinishPasskeyLogin(handler, *sd, creds.Request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	w, ok := user.(*waUser)
	if !ok {
		return nil, errors.New("unexpected webauthn user type")
	}
	_ = p.store.UpdateCredentialCounter(ctx, cred.ID, cred.Authenticator.SignCount, cred.Authenticator.CloneWarning)
	return identityOf(&w.user), nil
}

// BeginRegistration issues creation options for a new passkey of the actor.
func (p *Passkey) BeginRegistration(ctx context.Context, actor models.Actor) (*protocol.CredentialCreation, error) {
	u, err := p.store.FindUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	w, err := p.wrap(ctx, u)
	if err != nil {
		return nil, err
	}
	opts, sd, err := p.wa.BeginRegistration(
		w,
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			UserVerification: protocol.VerificationRequired,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}
	if err := p.sess.SaveReg(ctx, u.ID, sd); err != nil {
		return nil, err
	}
	return opts, nil
}

// FinishRegistration verifies the attestation in r and stores the credential.
func (p *Passkey) FinishRegistration(ctx context.Context, actor models.Actor, r *http.Request) error {
	u, err := p.store.FindUserByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	w, err := p.wrap(ctx, u)
	if err != nil {
		return err
	}
	sd, err := p.sess.TakeReg(ctx, u.ID)
	if err != nil {
		return err
	}
	cred, err := p.wa.FinishRegistration(w, *sd, r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return p.store.AddCredential(ctx, &models.Credential{
		UserID:          u.ID,
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		AAGUID:          cred.Authenticator.AAGUID,
		SignCount:       cred.Authenticator.SignCount,
		CloneWarning:    cred.Authenticator.CloneWarning,
		BackupEligible:  cred.Flags.BackupEligible,
		BackupState:     cred.Flags.BackupState,
	})
}
