package handler

import (
	"context"
	"net/http"

	"github.com/Rrens/workspace-sync/internal/api/response"
	"github.com/Rrens/workspace-sync/internal/domain"
)

// Importer imports the local data of another local user
type Importer interface {
	ImportLocalUser(ctx context.Context, req domain.ImportRequest) error
}

// ImportHandler handles legacy data imports
type ImportHandler struct {
	importer Importer
}

// NewImportHandler creates a new import handler
func NewImportHandler(importer Importer) *ImportHandler {
	return &ImportHandler{importer: importer}
}

// Import copies the data of req.LegacyUID into the current workspace
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req domain.ImportRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.importer.ImportLocalUser(r.Context(), req); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}
