package legacy

import (
	"fmt"

	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/fxamacker/cbor/v2"
)

// FolderSnapshot is the decoded state of a legacy folder object: a flat view
// list plus the views that present each database.
type FolderSnapshot struct {
	Views         []domain.View       `cbor:"views"`
	DatabaseViews map[string][]string `cbor:"database_views"`
}

// EncodeFolder packs a snapshot into the doc state of a folder object
func EncodeFolder(snapshot FolderSnapshot) (domain.EncodedCollab, error) {
	data, err := cbor.Marshal(snapshot)
	if err != nil {
		return domain.EncodedCollab{}, fmt.Errorf("failed to encode folder: %w", err)
	}
	return domain.EncodedCollab{DocState: data}, nil
}

// DecodeFolder unpacks the doc state of a folder object
func DecodeFolder(encoded domain.EncodedCollab) (FolderSnapshot, error) {
	var snapshot FolderSnapshot
	if err := cbor.Unmarshal(encoded.DocState, &snapshot); err != nil {
		return FolderSnapshot{}, fmt.Errorf("%w: folder: %w", domain.ErrConversion, err)
	}
	return snapshot, nil
}
