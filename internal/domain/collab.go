package domain

import "context"

// CollabType is the kind of a collaborative object
type CollabType string

const (
	CollabTypeDocument          CollabType = "document"
	CollabTypeDatabase          CollabType = "database"
	CollabTypeWorkspaceDatabase CollabType = "workspace_database"
	CollabTypeFolder            CollabType = "folder"
	CollabTypeDatabaseRow       CollabType = "database_row"
	CollabTypeUserAwareness     CollabType = "user_awareness"
)

// CollabObject addresses one collaborative object on the remote service
type CollabObject struct {
	ObjectID    string     `json:"object_id"`
	UID         int64      `json:"uid"`
	WorkspaceID string     `json:"workspace_id"`
	CollabType  CollabType `json:"collab_type"`
	DeviceID    string     `json:"device_id"`
}

// EncodedCollab is the persisted state of a collaborative object
type EncodedCollab struct {
	StateVector []byte `json:"state_vector"`
	DocState    []byte `json:"doc_state"`
}

// CollabParams is one object in a batch upload
type CollabParams struct {
	ObjectID      string
	CollabType    CollabType
	EncodedCollab EncodedCollab
}

// CollabReader reads objects out of a local collab store.
// GetEncodedCollab returns (nil, nil) when the object does not exist.
type CollabReader interface {
	GetEncodedCollab(ctx context.Context, uid int64, objectID string) (*EncodedCollab, error)
	ListObjectIDs(ctx context.Context, uid int64, collabType CollabType) ([]string, error)
}

// CollabDBLease is a live reference to a collab store. Release must be called
// once the holder is done with it.
type CollabDBLease interface {
	CollabReader
	Release()
}

// CollabDBHandle is a non-owning reference to a collab store. Upgrade fails once
// the owner has torn the store down.
type CollabDBHandle interface {
	Upgrade() (CollabDBLease, bool)
}
