package service

import (
	"context"
	"fmt"

	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/Rrens/workspace-sync/internal/security"
	"github.com/rs/zerolog/log"
)

// SessionService stores the cloud session handed over by the application
type SessionService struct {
	sessions   domain.SessionRepository
	profiles   domain.UserProfileRepository
	importer   *ImportService
	collabs    CollabHandleProvider
	jwtManager *security.JWTManager
	deviceID   string
}

// NewSessionService creates a new session service
func NewSessionService(
	sessions domain.SessionRepository,
	profiles domain.UserProfileRepository,
	importer *ImportService,
	collabs CollabHandleProvider,
	jwtManager *security.JWTManager,
	deviceID string,
) *SessionService {
	return &SessionService{
		sessions:   sessions,
		profiles:   profiles,
		importer:   importer,
		collabs:    collabs,
		jwtManager: jwtManager,
		deviceID:   deviceID,
	}
}

// SignIn stores in as the current session and issues a local API token. When
// in.AnonUID names an anonymous local user, that user's data is migrated into
// the new workspace; a failed migration does not fail the sign in.
func (s *SessionService) SignIn(ctx context.Context, in domain.SignIn) (*domain.SignInResponse, error) {
	var anon *domain.AnonUser
	if in.AnonUID > 0 && in.AnonUID != in.UID {
		profile, err := s.profiles.GetProfile(ctx, in.AnonUID)
		if err != nil {
			return nil, err
		}
		if profile != nil {
			anon = &domain.AnonUser{Session: domain.Session{UserID: profile.UID, WorkspaceID: profile.WorkspaceID}}
		} else {
			log.Warn().Int64("anon_uid", in.AnonUID).Msg("Anonymous user has no profile, skipping migration")
		}
	}

	authenticator := in.Authenticator
	if authenticator == "" {
		authenticator = domain.AuthenticatorCloud
	}

	session := domain.Session{
		UserID:      in.UID,
		UserUUID:    in.UserUUID,
		WorkspaceID: in.WorkspaceID,
		Token:       in.Token,
	}
	if err := s.sessions.SaveSession(ctx, &session); err != nil {
		return nil, err
	}

	if err := s.profiles.SaveProfile(ctx, &domain.UserProfile{
		UID:           in.UID,
		Email:         in.Email,
		Name:          in.Name,
		WorkspaceID:   in.WorkspaceID,
		Authenticator: authenticator,
	}); err != nil {
		return nil, err
	}

	migrated := false
	if anon != nil {
		if err := s.migrateAnonUser(ctx, *anon); err != nil {
			log.Error().Err(err).Int64("uid", in.UID).Int64("anon_uid", anon.Session.UserID).Msg("Migrate anon user data failed")
		} else {
			migrated = true
		}
	}

	token, err := s.jwtManager.GenerateAccessToken(in.UID, in.UserUUID, s.deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &domain.SignInResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.jwtManager.AccessTokenTTL().Seconds()),
		Session:     session,
		Migrated:    migrated,
	}, nil
}

func (s *SessionService) migrateAnonUser(ctx context.Context, anon domain.AnonUser) error {
	handle, err := s.collabs.Handle(ctx, anon.Session.UserID)
	if err != nil {
		return err
	}
	return s.importer.MigrateAnonUserOnCloudSignUp(ctx, anon, handle)
}

// SignOut forgets the current session
func (s *SessionService) SignOut(ctx context.Context) error {
	return s.sessions.Delete(ctx)
}

// CurrentSession returns the signed-in session
func (s *SessionService) CurrentSession(ctx context.Context) (*domain.Session, error) {
	return s.sessions.CurrentSession(ctx)
}

// SessionStatusCallback records the workspace a user opens as the current
// workspace of the session and profile
type SessionStatusCallback struct {
	sessions domain.SessionRepository
	profiles domain.UserProfileRepository
}

// NewSessionStatusCallback creates a new status callback
func NewSessionStatusCallback(sessions domain.SessionRepository, profiles domain.UserProfileRepository) *SessionStatusCallback {
	return &SessionStatusCallback{sessions: sessions, profiles: profiles}
}

// OpenWorkspace implements domain.UserStatusCallback
func (c *SessionStatusCallback) OpenWorkspace(ctx context.Context, uid int64, workspace *domain.UserWorkspace) error {
	if err := c.sessions.SetCurrentWorkspace(ctx, uid, workspace.ID); err != nil {
		return err
	}

	profile, err := c.profiles.GetProfile(ctx, uid)
	if err != nil {
		return err
	}
	if profile == nil {
		return nil
	}
	profile.WorkspaceID = workspace.ID
	return c.profiles.SaveProfile(ctx, profile)
}
