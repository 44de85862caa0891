package domain

import (
	"context"
	"time"
)

// UserWorkspace is a workspace the local user belongs to, as mirrored in the
// local cache. The remote service owns the record.
type UserWorkspace struct {
	ID                string    `json:"id"`
	UID               int64     `json:"uid"`
	Name              string    `json:"name"`
	CreatedAt         time.Time `json:"created_at"`
	DatabaseStorageID string    `json:"database_storage_id"`
}

// RepeatedUserWorkspace is the payload of a DidUpdateUserWorkspaces notification
type RepeatedUserWorkspace struct {
	Items []UserWorkspace `json:"items"`
}

// Role is a member's role inside a workspace
type Role string

// Role constants
const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleMember, RoleGuest:
		return true
	}
	return false
}

// WorkspaceMember represents workspace membership. Members are never cached locally.
type WorkspaceMember struct {
	WorkspaceID string `json:"workspace_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
}

// WorkspaceMemberInvite is the body of an add-member request
type WorkspaceMemberInvite struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// WorkspaceMemberUpdate is the body of a role change request
type WorkspaceMemberUpdate struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Role  Role   `json:"role" validate:"required,oneof=owner member guest"`
}

// ResetWorkspace identifies the workspace whose remote folder is rebuilt from local data
type ResetWorkspace struct {
	UID         int64  `json:"uid"`
	WorkspaceID string `json:"workspace_id" validate:"required"`
}

// UserWorkspaceRepository defines the local workspace cache
type UserWorkspaceRepository interface {
	Get(ctx context.Context, uid int64, workspaceID string) (*UserWorkspace, error)
	ListByUID(ctx context.Context, uid int64) ([]UserWorkspace, error)
	SaveUserWorkspaces(ctx context.Context, uid int64, workspaces []UserWorkspace) error
}

// UserStatusCallback is notified when the user switches workspace
type UserStatusCallback interface {
	OpenWorkspace(ctx context.Context, uid int64, workspace *UserWorkspace) error
}
