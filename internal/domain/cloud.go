package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// UserCloudService is the remote workspace authority. No call is retried here.
type UserCloudService interface {
	ListWorkspaces(ctx context.Context, uid int64) ([]UserWorkspace, error)
	GetWorkspaceMembers(ctx context.Context, workspaceID string) ([]WorkspaceMember, error)
	AddWorkspaceMember(ctx context.Context, email, workspaceID string) error
	RemoveWorkspaceMember(ctx context.Context, email, workspaceID string) error
	UpdateWorkspaceMember(ctx context.Context, email, workspaceID string, role Role) error
	OpenWorkspace(ctx context.Context, workspaceID string) error
	ResetWorkspace(ctx context.Context, object CollabObject) error
	BatchCreateCollabObjects(ctx context.Context, workspaceID string, objects []CollabParams) error
}

// NotificationKind names a UI notification
type NotificationKind string

const (
	DidUpdateUserWorkspaces NotificationKind = "did_update_user_workspaces"
	DidOpenWorkspace        NotificationKind = "did_open_workspace"
)

// Notification is a one-way message to the UI layer of a user
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	UID     int64            `json:"uid"`
	Payload json.RawMessage  `json:"payload,omitempty"`
}

// NewNotification encodes payload into a notification
func NewNotification(kind NotificationKind, uid int64, payload any) (Notification, error) {
	n := Notification{Kind: kind, UID: uid}
	if payload == nil {
		return n, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return n, fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	n.Payload = data
	return n, nil
}

// Notifier delivers notifications. Delivery is fire-and-forget; nothing is
// reported when nobody listens.
type Notifier interface {
	Send(ctx context.Context, n Notification)
}

// NotificationSubscriber streams the notifications addressed to one user
type NotificationSubscriber interface {
	Subscribe(ctx context.Context, uid int64) (<-chan Notification, func())
}
