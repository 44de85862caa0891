package service

import (
	"context"
	"fmt"

	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/rs/zerolog/log"
)

// CollabHandleProvider resolves the collab store of a local user
type CollabHandleProvider interface {
	Handle(ctx context.Context, uid int64) (domain.CollabDBHandle, error)
}

// ImportService moves legacy local data into the current cloud workspace
type ImportService struct {
	sessions  domain.SessionProvider
	profiles  domain.UserProfileRepository
	extractor domain.ImportDataExtractor
	folders   domain.FolderImporter
	cloud     domain.UserCloudService
	collabs   CollabHandleProvider
}

// NewImportService creates a new import service
func NewImportService(
	sessions domain.SessionProvider,
	profiles domain.UserProfileRepository,
	extractor domain.ImportDataExtractor,
	folders domain.FolderImporter,
	cloud domain.UserCloudService,
	collabs CollabHandleProvider,
) *ImportService {
	return &ImportService{
		sessions:  sessions,
		profiles:  profiles,
		extractor: extractor,
		folders:   folders,
		cloud:     cloud,
		collabs:   collabs,
	}
}

// ImportAppFlowyDataFolder imports the legacy data described by importCtx into
// the workspace of the current session.
//
// Items are imported one after another; the first failure is returned and items
// already imported stay imported.
func (s *ImportService) ImportAppFlowyDataFolder(ctx context.Context, importCtx domain.ImportContext) error {
	session, err := s.sessions.CurrentSession(ctx)
	if err != nil {
		return err
	}

	data, err := s.extractor.Extract(ctx, importCtx, session.WorkspaceID)
	if err != nil {
		return fmt.Errorf("failed to extract import data: %w", err)
	}

	switch d := data.(type) {
	case domain.AppFlowyDataFolder:
		for i, item := range d.Items {
			if err := s.importItem(ctx, session, importCtx, item); err != nil {
				log.Error().
					Err(err).
					Int64("uid", session.UserID).
					Int("item", i).
					Msg("Import item failed")
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %T", domain.ErrUnsupportedImport, data)
	}

	log.Info().
		Int64("uid", session.UserID).
		Int64("imported_uid", importCtx.ImportedSession.UserID).
		Str("workspace_id", session.WorkspaceID).
		Msg("Imported local data")
	return nil
}

func (s *ImportService) importItem(ctx context.Context, session *domain.Session, importCtx domain.ImportContext, item domain.AppFlowyData) error {
	switch it := item.(type) {
	case domain.FolderData:
		return s.importFolder(ctx, session.WorkspaceID, it)
	case domain.CollabObjectData:
		return s.uploadCollabObjects(ctx, session, importCtx, it)
	default:
		return fmt.Errorf("%w: %T", domain.ErrUnsupportedImport, item)
	}
}

// importFolder runs on its own goroutine so a panic in the folder importer
// cannot take the caller down. It is not cancelled once started.
func (s *ImportService) importFolder(ctx context.Context, workspaceID string, folder domain.FolderData) error {
	taskCtx := context.WithoutCancel(ctx)
	return runDetached(func() error {
		if err := s.folders.ImportDatabaseViews(taskCtx, workspaceID, folder.DatabaseViewIDsByDatabaseID); err != nil {
			return fmt.Errorf("failed to import database views: %w", err)
		}
		if err := s.folders.ImportViews(taskCtx, workspaceID, folder.Views); err != nil {
			return fmt.Errorf("failed to import views: %w", err)
		}
		return nil
	})
}

func (s *ImportService) uploadCollabObjects(ctx context.Context, session *domain.Session, importCtx domain.ImportContext, objects domain.CollabObjectData) error {
	profile, err := s.profiles.GetProfile(ctx, session.UserID)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("%w: uid %d", domain.ErrProfileNotFound, session.UserID)
	}

	if importCtx.ImportedCollabDB == nil {
		return domain.ErrCollabDBUnavailable
	}
	lease, ok := importCtx.ImportedCollabDB.Upgrade()
	if !ok {
		return domain.ErrCollabDBUnavailable
	}
	defer lease.Release()

	importedUID := importCtx.ImportedSession.UserID
	params := make([]domain.CollabParams, 0, len(objects.RowObjectIDs)+len(objects.DocumentObjectIDs)+len(objects.DatabaseObjectIDs))

	groups := []struct {
		collabType domain.CollabType
		ids        []string
	}{
		{domain.CollabTypeDatabaseRow, objects.RowObjectIDs},
		{domain.CollabTypeDocument, objects.DocumentObjectIDs},
		{domain.CollabTypeDatabase, objects.DatabaseObjectIDs},
	}
	for _, group := range groups {
		for _, objectID := range group.ids {
			encoded, err := lease.GetEncodedCollab(ctx, importedUID, objectID)
			if err != nil {
				return fmt.Errorf("failed to read collab %s: %w", objectID, err)
			}
			if encoded == nil {
				log.Warn().
					Int64("uid", importedUID).
					Str("object_id", objectID).
					Str("collab_type", string(group.collabType)).
					Msg("Collab object not found, skipping")
				continue
			}
			params = append(params, domain.CollabParams{
				ObjectID:      objectID,
				CollabType:    group.collabType,
				EncodedCollab: *encoded,
			})
		}
	}

	if len(params) == 0 {
		return nil
	}

	if err := s.cloud.BatchCreateCollabObjects(ctx, profile.WorkspaceID, params); err != nil {
		return fmt.Errorf("failed to upload collab objects: %w", err)
	}

	log.Debug().Int64("uid", session.UserID).Int("count", len(params)).Msg("Uploaded collab objects")
	return nil
}

// MigrateAnonUserOnCloudSignUp imports the data of an anonymous local user into
// the workspace of the user who just signed up
func (s *ImportService) MigrateAnonUserOnCloudSignUp(ctx context.Context, anon domain.AnonUser, collabDB domain.CollabDBHandle) error {
	return s.ImportAppFlowyDataFolder(ctx, domain.ImportContext{
		ImportedSession:  anon.Session,
		ImportedCollabDB: collabDB,
	})
}

// ImportLocalUser imports the data of another local user, optionally grouped
// under a container view
func (s *ImportService) ImportLocalUser(ctx context.Context, req domain.ImportRequest) error {
	profile, err := s.profiles.GetProfile(ctx, req.LegacyUID)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("%w: uid %d", domain.ErrProfileNotFound, req.LegacyUID)
	}

	handle, err := s.collabs.Handle(ctx, req.LegacyUID)
	if err != nil {
		return err
	}

	return s.ImportAppFlowyDataFolder(ctx, domain.ImportContext{
		ImportedSession: domain.Session{
			UserID:      profile.UID,
			WorkspaceID: profile.WorkspaceID,
		},
		ImportedCollabDB: handle,
		ContainerName:    req.ContainerName,
	})
}
