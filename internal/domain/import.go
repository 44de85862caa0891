package domain

import "context"

// ViewLayout is how a view renders its content
type ViewLayout string

const (
	ViewLayoutDocument ViewLayout = "document"
	ViewLayoutGrid     ViewLayout = "grid"
	ViewLayoutBoard    ViewLayout = "board"
	ViewLayoutCalendar ViewLayout = "calendar"
)

// View is a node of the folder hierarchy
type View struct {
	ID           string     `json:"id"`
	ParentViewID string     `json:"parent_view_id"`
	Name         string     `json:"name"`
	Layout       ViewLayout `json:"layout"`
	CreatedAt    int64      `json:"created_at"`
}

// ParentChildViews is a view together with its descendants
type ParentChildViews struct {
	ParentView View               `json:"parent_view"`
	ChildViews []ParentChildViews `json:"child_views"`
}

// ImportContext describes one migration of legacy data. It is built once per
// import call and not persisted.
type ImportContext struct {
	ImportedSession  Session
	ImportedCollabDB CollabDBHandle
	// ContainerName, when non-empty, groups the imported views under a new view
	ContainerName string
}

// ImportRequest asks to import the local data of another local user into the
// current workspace
type ImportRequest struct {
	LegacyUID     int64  `json:"legacy_uid" validate:"required,gt=0"`
	ContainerName string `json:"container_name" validate:"max=255"`
}

// ImportData is the closed set of payloads produced by the legacy extractor.
type ImportData interface {
	isImportData()
}

// AppFlowyDataFolder is a batch of independently importable items
type AppFlowyDataFolder struct {
	Items []AppFlowyData
}

func (AppFlowyDataFolder) isImportData() {}

// AppFlowyData is one importable item: either folder structure or collab objects.
type AppFlowyData interface {
	isAppFlowyData()
}

// FolderData carries the view hierarchy and the views that reference each database
type FolderData struct {
	Views                       []ParentChildViews
	DatabaseViewIDsByDatabaseID map[string][]string
}

func (FolderData) isAppFlowyData() {}

// CollabObjectData lists the objects to upload to the destination workspace
type CollabObjectData struct {
	RowObjectIDs      []string
	DocumentObjectIDs []string
	DatabaseObjectIDs []string
}

func (CollabObjectData) isAppFlowyData() {}

// ImportDataExtractor turns a legacy store into ImportData
type ImportDataExtractor interface {
	Extract(ctx context.Context, importCtx ImportContext, destWorkspaceID string) (ImportData, error)
}

// FolderImporter applies imported views to the destination workspace
type FolderImporter interface {
	ImportDatabaseViews(ctx context.Context, workspaceID string, viewIDsByDatabaseID map[string][]string) error
	ImportViews(ctx context.Context, workspaceID string, views []ParentChildViews) error
}
