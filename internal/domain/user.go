package domain

import (
	"context"

	"github.com/google/uuid"
)

// Authenticator names the backend a user profile signs in with
type Authenticator string

const (
	AuthenticatorLocal Authenticator = "local"
	AuthenticatorCloud Authenticator = "cloud"
)

// Session is the signed-in local user
type Session struct {
	UserID      int64     `json:"user_id"`
	UserUUID    uuid.UUID `json:"user_uuid"`
	WorkspaceID string    `json:"workspace_id"`
	Token       string    `json:"-"`
}

// UserProfile is the on-disk profile of a local user
type UserProfile struct {
	UID           int64         `json:"uid"`
	Email         string        `json:"email"`
	Name          string        `json:"name"`
	WorkspaceID   string        `json:"workspace_id"`
	Authenticator Authenticator `json:"authenticator"`
}

// SignIn is the body accepted when the application hands over a cloud session.
// AnonUID, when set, names the anonymous local user whose data is migrated.
type SignIn struct {
	UID           int64         `json:"uid" validate:"required,gt=0"`
	UserUUID      uuid.UUID     `json:"user_uuid" validate:"required"`
	Email         string        `json:"email" validate:"required,email,max=255"`
	Name          string        `json:"name" validate:"max=255"`
	WorkspaceID   string        `json:"workspace_id" validate:"required"`
	Token         string        `json:"token" validate:"required"`
	Authenticator Authenticator `json:"authenticator" validate:"omitempty,oneof=local cloud"`
	AnonUID       int64         `json:"anon_uid,omitempty" validate:"gte=0"`
}

// SignInResponse is returned once a session is stored
type SignInResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   int64   `json:"expires_in"`
	Session     Session `json:"session"`
	Migrated    bool    `json:"migrated"`
}

// AnonUser is a local-only user whose data is migrated on cloud sign up
type AnonUser struct {
	Session Session
}

// SessionProvider resolves the current session
type SessionProvider interface {
	CurrentSession(ctx context.Context) (*Session, error)
}

// SessionRepository defines storage for the current session
type SessionRepository interface {
	SessionProvider
	SaveSession(ctx context.Context, session *Session) error
	SetCurrentWorkspace(ctx context.Context, uid int64, workspaceID string) error
	Delete(ctx context.Context) error
}

// UserProfileRepository defines storage for user profiles
type UserProfileRepository interface {
	GetProfile(ctx context.Context, uid int64) (*UserProfile, error)
	SaveProfile(ctx context.Context, profile *UserProfile) error
}
