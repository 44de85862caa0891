package handler

import (
	"context"
	"net/http"

	"github.com/Rrens/workspace-sync/internal/api/middleware"
	"github.com/Rrens/workspace-sync/internal/api/response"
	"github.com/Rrens/workspace-sync/internal/domain"
)

// WorkspaceService is the workspace surface used by WorkspaceHandler
type WorkspaceService interface {
	GetWorkspace(ctx context.Context, uid int64, workspaceID string) *domain.UserWorkspace
	ListWorkspaces(ctx context.Context, uid int64) ([]domain.UserWorkspace, error)
	OpenWorkspace(ctx context.Context, workspaceID string) error
	ResetWorkspace(ctx context.Context, reset domain.ResetWorkspace) error
	GetWorkspaceMembers(ctx context.Context, workspaceID string) ([]domain.WorkspaceMember, error)
	AddWorkspaceMember(ctx context.Context, email, workspaceID string) error
	RemoveWorkspaceMember(ctx context.Context, email, workspaceID string) error
	UpdateWorkspaceMember(ctx context.Context, email, workspaceID string, role domain.Role) error
}

// WorkspaceHandler handles workspace endpoints
type WorkspaceHandler struct {
	workspaceService WorkspaceService
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(workspaceService WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService}
}

// List returns the cached workspaces of the caller. A refresh from the remote
// service runs in the background.
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	workspaces, err := h.workspaceService.ListWorkspaces(r.Context(), uid)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, domain.RepeatedUserWorkspace{Items: workspaces})
}

// Get returns a cached workspace
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	workspaceID, _ := middleware.GetWorkspaceID(r.Context())

	workspace := h.workspaceService.GetWorkspace(r.Context(), uid, workspaceID)
	if workspace == nil {
		response.NotFound(w, "workspace not found")
		return
	}

	response.OK(w, workspace)
}

// Open switches the current workspace
func (h *WorkspaceHandler) Open(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.GetWorkspaceID(r.Context())

	if err := h.workspaceService.OpenWorkspace(r.Context(), workspaceID); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}

// Reset rebuilds the remote folder of a workspace from local data
func (h *WorkspaceHandler) Reset(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	workspaceID, _ := middleware.GetWorkspaceID(r.Context())

	reset := domain.ResetWorkspace{UID: uid, WorkspaceID: workspaceID}
	if err := h.workspaceService.ResetWorkspace(r.Context(), reset); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}

// ListMembers returns the members of a workspace as reported by the remote service
func (h *WorkspaceHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.GetWorkspaceID(r.Context())

	members, err := h.workspaceService.GetWorkspaceMembers(r.Context(), workspaceID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, members)
}

// AddMember invites an email to a workspace
func (h *WorkspaceHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.GetWorkspaceID(r.Context())

	var req domain.WorkspaceMemberInvite
	if !decode(w, r, &req) {
		return
	}

	if err := h.workspaceService.AddWorkspaceMember(r.Context(), req.Email, workspaceID); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}

// UpdateMember changes the role of a member
func (h *WorkspaceHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.GetWorkspaceID(r.Context())

	var req domain.WorkspaceMemberUpdate
	if !decode(w, r, &req) {
		return
	}

	if err := h.workspaceService.UpdateWorkspaceMember(r.Context(), req.Email, workspaceID, req.Role); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}

// RemoveMember removes a member from a workspace
func (h *WorkspaceHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.GetWorkspaceID(r.Context())

	var req domain.WorkspaceMemberInvite
	if !decode(w, r, &req) {
		return
	}

	if err := h.workspaceService.RemoveWorkspaceMember(r.Context(), req.Email, workspaceID); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}
