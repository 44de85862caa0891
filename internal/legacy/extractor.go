package legacy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Extractor reads a legacy collab store and produces the data to import into a
// destination workspace. It implements domain.ImportDataExtractor.
type Extractor struct {
	now   func() time.Time
	newID func() string
}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Extract builds an AppFlowyDataFolder holding the folder structure first and
// the collab objects second.
func (e *Extractor) Extract(ctx context.Context, importCtx domain.ImportContext, destWorkspaceID string) (domain.ImportData, error) {
	if importCtx.ImportedCollabDB == nil {
		return nil, domain.ErrCollabDBUnavailable
	}
	lease, ok := importCtx.ImportedCollabDB.Upgrade()
	if !ok {
		return nil, domain.ErrCollabDBUnavailable
	}
	defer lease.Release()

	uid := importCtx.ImportedSession.UserID
	items := make([]domain.AppFlowyData, 0, 2)

	folder, err := e.extractFolder(ctx, lease, importCtx, destWorkspaceID)
	if err != nil {
		return nil, err
	}
	if folder != nil {
		items = append(items, *folder)
	}

	objects, err := extractObjects(ctx, lease, uid)
	if err != nil {
		return nil, err
	}
	items = append(items, objects)

	return domain.AppFlowyDataFolder{Items: items}, nil
}

func (e *Extractor) extractFolder(ctx context.Context, reader domain.CollabReader, importCtx domain.ImportContext, destWorkspaceID string) (*domain.FolderData, error) {
	uid := importCtx.ImportedSession.UserID
	folderID := importCtx.ImportedSession.WorkspaceID

	encoded, err := reader.GetEncodedCollab(ctx, uid, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy folder: %w", err)
	}
	if encoded == nil {
		log.Warn().Int64("uid", uid).Str("folder_id", folderID).Msg("Legacy folder not found, importing objects only")
		return nil, nil
	}

	snapshot, err := DecodeFolder(*encoded)
	if err != nil {
		return nil, err
	}

	roots := buildTree(snapshot.Views, folderID)
	parentID := destWorkspaceID

	if importCtx.ContainerName != "" {
		container := domain.View{
			ID:           e.newID(),
			ParentViewID: destWorkspaceID,
			Name:         importCtx.ContainerName,
			Layout:       domain.ViewLayoutDocument,
			CreatedAt:    e.now().Unix(),
		}
		reparent(roots, container.ID)
		roots = []domain.ParentChildViews{{ParentView: container, ChildViews: roots}}
	} else {
		reparent(roots, parentID)
	}

	return &domain.FolderData{
		Views:                       roots,
		DatabaseViewIDsByDatabaseID: databaseViews(snapshot, roots),
	}, nil
}

func extractObjects(ctx context.Context, reader domain.CollabReader, uid int64) (domain.CollabObjectData, error) {
	var data domain.CollabObjectData
	var err error

	if data.RowObjectIDs, err = reader.ListObjectIDs(ctx, uid, domain.CollabTypeDatabaseRow); err != nil {
		return data, fmt.Errorf("failed to list legacy rows: %w", err)
	}
	if data.DocumentObjectIDs, err = reader.ListObjectIDs(ctx, uid, domain.CollabTypeDocument); err != nil {
		return data, fmt.Errorf("failed to list legacy documents: %w", err)
	}
	if data.DatabaseObjectIDs, err = reader.ListObjectIDs(ctx, uid, domain.CollabTypeDatabase); err != nil {
		return data, fmt.Errorf("failed to list legacy databases: %w", err)
	}

	return data, nil
}

// buildTree nests views under their parents. Views whose parent is the legacy
// workspace or unknown become roots. Siblings are ordered by creation time.
func buildTree(views []domain.View, rootID string) []domain.ParentChildViews {
	known := make(map[string]bool, len(views))
	for _, v := range views {
		known[v.ID] = true
	}

	children := make(map[string][]domain.View)
	var roots []domain.View
	for _, v := range views {
		if v.ParentViewID == rootID || !known[v.ParentViewID] || v.ParentViewID == v.ID {
			roots = append(roots, v)
			continue
		}
		children[v.ParentViewID] = append(children[v.ParentViewID], v)
	}

	visited := make(map[string]bool, len(views))
	var build func(vs []domain.View) []domain.ParentChildViews
	build = func(vs []domain.View) []domain.ParentChildViews {
		sortViews(vs)
		out := make([]domain.ParentChildViews, 0, len(vs))
		for _, v := range vs {
			if visited[v.ID] {
				continue
			}
			visited[v.ID] = true
			out = append(out, domain.ParentChildViews{
				ParentView: v,
				ChildViews: build(children[v.ID]),
			})
		}
		return out
	}

	return build(roots)
}

func sortViews(vs []domain.View) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].CreatedAt != vs[j].CreatedAt {
			return vs[i].CreatedAt < vs[j].CreatedAt
		}
		return vs[i].ID < vs[j].ID
	})
}

func reparent(views []domain.ParentChildViews, parentID string) {
	for i := range views {
		views[i].ParentView.ParentViewID = parentID
	}
}

// databaseViews keeps the database associations of views that are imported
func databaseViews(snapshot FolderSnapshot, roots []domain.ParentChildViews) map[string][]string {
	imported := make(map[string]bool)
	var walk func([]domain.ParentChildViews)
	walk = func(vs []domain.ParentChildViews) {
		for _, v := range vs {
			imported[v.ParentView.ID] = true
			walk(v.ChildViews)
		}
	}
	walk(roots)

	out := make(map[string][]string, len(snapshot.DatabaseViews))
	for databaseID, viewIDs := range snapshot.DatabaseViews {
		var kept []string
		for _, id := range viewIDs {
			if imported[id] {
				kept = append(kept, id)
			}
		}
		if len(kept) > 0 {
			out[databaseID] = kept
		}
	}
	return out
}
