package service

import (
	"context"
	"sync"
	"time"

	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/rs/zerolog/log"
)

// UserWorkspaceService serves workspaces from the local cache and keeps the
// cache in line with the remote service
type UserWorkspaceService struct {
	workspaceRepo  domain.UserWorkspaceRepository
	cloud          domain.UserCloudService
	sessions       domain.SessionProvider
	notifier       domain.Notifier
	statusCallback domain.UserStatusCallback
	deviceID       string
	refreshTimeout time.Duration

	mu        sync.Mutex
	closed    bool
	refreshes sync.WaitGroup
}

// NewUserWorkspaceService creates a new workspace service
func NewUserWorkspaceService(
	workspaceRepo domain.UserWorkspaceRepository,
	cloud domain.UserCloudService,
	sessions domain.SessionProvider,
	notifier domain.Notifier,
	statusCallback domain.UserStatusCallback,
	deviceID string,
	refreshTimeout time.Duration,
) *UserWorkspaceService {
	if refreshTimeout <= 0 {
		refreshTimeout = 30 * time.Second
	}
	return &UserWorkspaceService{
		workspaceRepo:  workspaceRepo,
		cloud:          cloud,
		sessions:       sessions,
		notifier:       notifier,
		statusCallback: statusCallback,
		deviceID:       deviceID,
		refreshTimeout: refreshTimeout,
	}
}

// GetWorkspace returns the cached workspace, or nil when it is absent or the
// cache cannot be read
func (s *UserWorkspaceService) GetWorkspace(ctx context.Context, uid int64, workspaceID string) *domain.UserWorkspace {
	workspace, err := s.workspaceRepo.Get(ctx, uid, workspaceID)
	if err != nil {
		log.Debug().Err(err).Int64("uid", uid).Str("workspace_id", workspaceID).Msg("Failed to read cached workspace")
		return nil
	}
	return workspace
}

// ListWorkspaces returns the cached workspaces of uid and starts a background
// refresh from the remote service. The returned list is the cache as it was
// before the refresh.
func (s *UserWorkspaceService) ListWorkspaces(ctx context.Context, uid int64) ([]domain.UserWorkspace, error) {
	workspaces, err := s.workspaceRepo.ListByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return workspaces, nil
	}

	s.refreshes.Add(1)
	go func() {
		defer s.refreshes.Done()
		s.refresh(context.WithoutCancel(ctx), uid)
	}()

	return workspaces, nil
}

// refresh mirrors the remote workspace list into the cache and tells the UI.
// Failures end the refresh silently.
//
// The remote list belongs to whoever holds the session, so nothing is written
// unless that is still uid once the list has arrived.
func (s *UserWorkspaceService) refresh(ctx context.Context, uid int64) {
	ctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
	defer cancel()

	if !s.sessionOwnedBy(ctx, uid) {
		return
	}

	remote, err := s.cloud.ListWorkspaces(ctx, uid)
	if err != nil {
		log.Error().Err(err).Int64("uid", uid).Msg("Failed to fetch remote workspaces")
		return
	}

	if !s.sessionOwnedBy(ctx, uid) {
		return
	}

	if err := s.workspaceRepo.SaveUserWorkspaces(ctx, uid, remote); err != nil {
		log.Error().Err(err).Int64("uid", uid).Msg("Failed to save user workspaces")
		return
	}

	n, err := domain.NewNotification(domain.DidUpdateUserWorkspaces, uid, domain.RepeatedUserWorkspace{Items: remote})
	if err != nil {
		log.Error().Err(err).Int64("uid", uid).Msg("Failed to build workspace notification")
		return
	}
	s.notifier.Send(ctx, n)

	log.Debug().Int64("uid", uid).Int("count", len(remote)).Msg("Refreshed user workspaces")
}

func (s *UserWorkspaceService) sessionOwnedBy(ctx context.Context, uid int64) bool {
	session, err := s.sessions.CurrentSession(ctx)
	if err != nil {
		log.Warn().Err(err).Int64("uid", uid).Msg("No session for workspace refresh")
		return false
	}
	if session.UserID != uid {
		log.Warn().
			Int64("uid", uid).
			Int64("session_uid", session.UserID).
			Msg("Session changed hands, dropping workspace refresh")
		return false
	}
	return true
}

// Wait blocks until every started refresh has finished. Lists served after
// Wait no longer start refreshes.
func (s *UserWorkspaceService) Wait() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.refreshes.Wait()
}

// OpenWorkspace switches the signed-in user to workspaceID. The remote call and
// the status callback are best effort.
func (s *UserWorkspaceService) OpenWorkspace(ctx context.Context, workspaceID string) error {
	session, err := s.sessions.CurrentSession(ctx)
	if err != nil {
		return err
	}
	uid := session.UserID

	if err := s.cloud.OpenWorkspace(ctx, workspaceID); err != nil {
		log.Error().Err(err).Int64("uid", uid).Str("workspace_id", workspaceID).Msg("Failed to open remote workspace")
	}

	workspace := s.GetWorkspace(ctx, uid, workspaceID)
	if workspace == nil {
		log.Warn().Int64("uid", uid).Str("workspace_id", workspaceID).Msg("Opened workspace is not cached")
		return nil
	}

	if err := s.statusCallback.OpenWorkspace(ctx, uid, workspace); err != nil {
		log.Error().Err(err).Int64("uid", uid).Str("workspace_id", workspaceID).Msg("Open workspace callback failed")
	}

	if n, err := domain.NewNotification(domain.DidOpenWorkspace, uid, workspace); err == nil {
		s.notifier.Send(ctx, n)
	}

	return nil
}

// ResetWorkspace asks the remote service to rebuild the folder of a workspace
func (s *UserWorkspaceService) ResetWorkspace(ctx context.Context, reset domain.ResetWorkspace) error {
	object := domain.CollabObject{
		ObjectID:    reset.WorkspaceID,
		UID:         reset.UID,
		WorkspaceID: reset.WorkspaceID,
		CollabType:  domain.CollabTypeFolder,
		DeviceID:    s.deviceID,
	}
	return s.cloud.ResetWorkspace(ctx, object)
}

// GetWorkspaceMembers lists members straight from the remote service
func (s *UserWorkspaceService) GetWorkspaceMembers(ctx context.Context, workspaceID string) ([]domain.WorkspaceMember, error) {
	return s.cloud.GetWorkspaceMembers(ctx, workspaceID)
}

// AddWorkspaceMember forwards to the remote service
func (s *UserWorkspaceService) AddWorkspaceMember(ctx context.Context, email, workspaceID string) error {
	return s.cloud.AddWorkspaceMember(ctx, email, workspaceID)
}

// RemoveWorkspaceMember forwards to the remote service
func (s *UserWorkspaceService) RemoveWorkspaceMember(ctx context.Context, email, workspaceID string) error {
	return s.cloud.RemoveWorkspaceMember(ctx, email, workspaceID)
}

// UpdateWorkspaceMember forwards to the remote service
func (s *UserWorkspaceService) UpdateWorkspaceMember(ctx context.Context, email, workspaceID string, role domain.Role) error {
	return s.cloud.UpdateWorkspaceMember(ctx, email, workspaceID, role)
}
