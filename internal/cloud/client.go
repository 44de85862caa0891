package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"
)

// HTTPError is a non-2xx answer from the remote service
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Is reports every HTTP failure as a remote service error
func (e *HTTPError) Is(target error) bool {
	return target == domain.ErrRemoteService
}

// Client talks to the remote workspace service. It implements
// domain.UserCloudService and domain.FolderImporter. Requests are never retried.
type Client struct {
	baseURL    string
	sessions   domain.SessionProvider
	httpClient *http.Client
}

// NewClient creates a new cloud client. The bearer token of every request is
// taken from the current session.
func NewClient(baseURL string, sessions domain.SessionProvider, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		sessions:   sessions,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type workspaceDTO struct {
	WorkspaceID       string `json:"workspace_id"`
	WorkspaceName     string `json:"workspace_name"`
	CreatedAt         int64  `json:"created_at"`
	DatabaseStorageID string `json:"database_storage_id"`
}

func (w workspaceDTO) toDomain(uid int64) domain.UserWorkspace {
	var createdAt time.Time
	if w.CreatedAt > 0 {
		createdAt = time.Unix(w.CreatedAt, 0).UTC()
	}
	return domain.UserWorkspace{
		ID:                w.WorkspaceID,
		UID:               uid,
		Name:              w.WorkspaceName,
		CreatedAt:         createdAt,
		DatabaseStorageID: w.DatabaseStorageID,
	}
}

type memberDTO struct {
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role"`
}

type collabParamsDTO struct {
	ObjectID    string `cbor:"object_id"`
	CollabType  string `cbor:"collab_type"`
	StateVector []byte `cbor:"state_vector"`
	DocState    []byte `cbor:"doc_state"`
}

// ListWorkspaces returns every workspace the signed-in user belongs to
func (c *Client) ListWorkspaces(ctx context.Context, uid int64) ([]domain.UserWorkspace, error) {
	var out []workspaceDTO
	if err := c.doJSON(ctx, http.MethodGet, "/api/workspace", nil, &out); err != nil {
		return nil, err
	}

	workspaces := make([]domain.UserWorkspace, 0, len(out))
	for _, w := range out {
		workspaces = append(workspaces, w.toDomain(uid))
	}
	return workspaces, nil
}

// GetWorkspaceMembers lists the members of a workspace
func (c *Client) GetWorkspaceMembers(ctx context.Context, workspaceID string) ([]domain.WorkspaceMember, error) {
	var out []memberDTO
	if err := c.doJSON(ctx, http.MethodGet, workspacePath(workspaceID, "member"), nil, &out); err != nil {
		return nil, err
	}

	members := make([]domain.WorkspaceMember, 0, len(out))
	for _, m := range out {
		members = append(members, domain.WorkspaceMember{
			WorkspaceID: workspaceID,
			Email:       m.Email,
			Name:        m.Name,
			Role:        m.Role,
		})
	}
	return members, nil
}

// AddWorkspaceMember invites email into a workspace
func (c *Client) AddWorkspaceMember(ctx context.Context, email, workspaceID string) error {
	body := map[string]any{"emails": []string{email}}
	return c.doJSON(ctx, http.MethodPost, workspacePath(workspaceID, "member"), body, nil)
}

// RemoveWorkspaceMember removes email from a workspace
func (c *Client) RemoveWorkspaceMember(ctx context.Context, email, workspaceID string) error {
	body := map[string]any{"emails": []string{email}}
	return c.doJSON(ctx, http.MethodDelete, workspacePath(workspaceID, "member"), body, nil)
}

// UpdateWorkspaceMember changes the role of email in a workspace
func (c *Client) UpdateWorkspaceMember(ctx context.Context, email, workspaceID string, role domain.Role) error {
	body := memberDTO{Email: email, Role: role}
	return c.doJSON(ctx, http.MethodPut, workspacePath(workspaceID, "member"), body, nil)
}

// OpenWorkspace tells the remote service which workspace the user switched to
func (c *Client) OpenWorkspace(ctx context.Context, workspaceID string) error {
	return c.doJSON(ctx, http.MethodPut, workspacePath(workspaceID, "open"), nil, nil)
}

// ResetWorkspace asks the remote service to rebuild the folder of a workspace
func (c *Client) ResetWorkspace(ctx context.Context, object domain.CollabObject) error {
	return c.doJSON(ctx, http.MethodPost, workspacePath(object.WorkspaceID, "reset"), object, nil)
}

// BatchCreateCollabObjects uploads objects into a workspace as one CBOR request
func (c *Client) BatchCreateCollabObjects(ctx context.Context, workspaceID string, objects []domain.CollabParams) error {
	items := make([]collabParamsDTO, 0, len(objects))
	for _, o := range objects {
		items = append(items, collabParamsDTO{
			ObjectID:    o.ObjectID,
			CollabType:  string(o.CollabType),
			StateVector: o.EncodedCollab.StateVector,
			DocState:    o.EncodedCollab.DocState,
		})
	}

	body, err := cbor.Marshal(items)
	if err != nil {
		return fmt.Errorf("%w: failed to encode collab batch: %w", domain.ErrConversion, err)
	}

	return c.do(ctx, http.MethodPost, workspacePath(workspaceID, "collab_list"), contentTypeCBOR, body, nil)
}

// ImportDatabaseViews links imported views to their databases
func (c *Client) ImportDatabaseViews(ctx context.Context, workspaceID string, viewIDsByDatabaseID map[string][]string) error {
	body := map[string]any{"database_views": viewIDsByDatabaseID}
	return c.doJSON(ctx, http.MethodPost, workspacePath(workspaceID, "folder/database_views"), body, nil)
}

// ImportViews inserts a view hierarchy into the folder of a workspace
func (c *Client) ImportViews(ctx context.Context, workspaceID string, views []domain.ParentChildViews) error {
	body := map[string]any{"views": views}
	return c.doJSON(ctx, http.MethodPost, workspacePath(workspaceID, "folder/views"), body, nil)
}

func workspacePath(workspaceID, suffix string) string {
	return fmt.Sprintf("/api/workspace/%s/%s", url.PathEscape(workspaceID), suffix)
}

func (c *Client) doJSON(ctx context.Context, method, requestPath string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	return c.do(ctx, method, requestPath, contentTypeJSON, payload, out)
}

func (c *Client) do(ctx context.Context, method, requestPath, contentType string, payload []byte, out any) error {
	session, err := c.sessions.CurrentSession(ctx)
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %w", domain.ErrRemoteService, err)
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.Header.Set("Accept", contentTypeJSON)
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrRemoteService, method, requestPath, err)
	}
	respBody, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("path", requestPath).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Cloud request")

	if readErr != nil {
		return fmt.Errorf("%w: failed to read response: %w", domain.ErrRemoteService, readErr)
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if out == nil || len(respBody) == 0 {
			return nil
		}
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", domain.ErrConversion, err)
		}
		if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
			return nil
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%w: failed to decode response data: %w", domain.ErrConversion, err)
		}
		return nil
	}

	var errPayload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(respBody, &errPayload)
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Code:       errPayload.Code,
		Message:    errPayload.Message,
	}
}

// IsNotFound reports whether err is a 404 from the remote service
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
