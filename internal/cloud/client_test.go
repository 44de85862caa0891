package cloud_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rrens/workspace-sync/internal/cloud"
	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSession struct {
	session *domain.Session
	err     error
}

func (s staticSession) CurrentSession(ctx context.Context) (*domain.Session, error) {
	return s.session, s.err
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *cloud.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return cloud.NewClient(srv.URL, staticSession{session: &domain.Session{UserID: 7, Token: "tok"}}, 5*time.Second)
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func TestClient_ListWorkspaces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/workspace", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeData(w, []map[string]any{
			{"workspace_id": "A", "workspace_name": "Work", "created_at": 1700000000, "database_storage_id": "db"},
			{"workspace_id": "B", "workspace_name": "Home"},
		})
	})

	got, err := client.ListWorkspaces(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.UserWorkspace{
		ID:                "A",
		UID:               7,
		Name:              "Work",
		CreatedAt:         time.Unix(1700000000, 0).UTC(),
		DatabaseStorageID: "db",
	}, got[0])
	assert.True(t, got[1].CreatedAt.IsZero())
}

func TestClient_HTTPErrorIsRemoteServiceError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":"not_member","message":"no access"}`))
	})

	_, err := client.GetWorkspaceMembers(context.Background(), "A")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemoteService)

	var httpErr *cloud.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, "not_member", httpErr.Code)
	assert.Equal(t, "no access", httpErr.Message)
}

func TestClient_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.OpenWorkspace(context.Background(), "missing")
	assert.True(t, cloud.IsNotFound(err))
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := cloud.NewClient(srv.URL, staticSession{session: &domain.Session{Token: "tok"}}, time.Second)

	_, err := client.ListWorkspaces(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrRemoteService)
}

func TestClient_NoSession(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()
	client := cloud.NewClient(srv.URL, staticSession{err: domain.ErrSessionMissing}, time.Second)

	_, err := client.ListWorkspaces(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrSessionMissing)
	assert.False(t, called)
}

func TestClient_MemberRequests(t *testing.T) {
	type call struct {
		method string
		body   map[string]any
	}
	var calls []call
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/workspace/A/member", r.URL.Path)
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, call{method: r.Method, body: body})
	})
	ctx := context.Background()

	require.NoError(t, client.AddWorkspaceMember(ctx, "a@example.com", "A"))
	require.NoError(t, client.UpdateWorkspaceMember(ctx, "a@example.com", "A", domain.RoleGuest))
	require.NoError(t, client.RemoveWorkspaceMember(ctx, "a@example.com", "A"))

	require.Len(t, calls, 3)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.Equal(t, []any{"a@example.com"}, calls[0].body["emails"])
	assert.Equal(t, http.MethodPut, calls[1].method)
	assert.Equal(t, "guest", calls[1].body["role"])
	assert.Equal(t, http.MethodDelete, calls[2].method)
}

func TestClient_BatchCreateCollabObjectsSendsCBOR(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/workspace/dest/collab_list", r.URL.Path)
		assert.Equal(t, "application/cbor", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var items []map[string]any
		require.NoError(t, cbor.Unmarshal(raw, &items))
		require.Len(t, items, 1)
		assert.Equal(t, "doc1", items[0]["object_id"])
		assert.Equal(t, "document", items[0]["collab_type"])
		assert.Equal(t, []byte("state"), items[0]["doc_state"])
	})

	err := client.BatchCreateCollabObjects(context.Background(), "dest", []domain.CollabParams{{
		ObjectID:      "doc1",
		CollabType:    domain.CollabTypeDocument,
		EncodedCollab: domain.EncodedCollab{DocState: []byte("state")},
	}})
	require.NoError(t, err)
}

func TestClient_ImportFolder(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
	})
	ctx := context.Background()

	require.NoError(t, client.ImportDatabaseViews(ctx, "dest", map[string][]string{"db": {"v"}}))
	require.NoError(t, client.ImportViews(ctx, "dest", []domain.ParentChildViews{{ParentView: domain.View{ID: "v"}}}))

	assert.Equal(t, []string{
		"/api/workspace/dest/folder/database_views",
		"/api/workspace/dest/folder/views",
	}, paths)
}

func TestClient_OpenAndResetWorkspace(t *testing.T) {
	type call struct {
		method string
		path   string
		body   []byte
	}
	var calls []call
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.Path, body})
	})
	ctx := context.Background()

	require.NoError(t, client.OpenWorkspace(ctx, "w1"))
	require.NoError(t, client.ResetWorkspace(ctx, domain.CollabObject{
		ObjectID:    "w1",
		UID:         7,
		WorkspaceID: "w1",
		CollabType:  domain.CollabTypeFolder,
		DeviceID:    "device-1",
	}))

	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPut, calls[0].method)
	assert.Equal(t, "/api/workspace/w1/open", calls[0].path)
	assert.Equal(t, http.MethodPost, calls[1].method)
	assert.Equal(t, "/api/workspace/w1/reset", calls[1].path)

	var sent domain.CollabObject
	require.NoError(t, json.Unmarshal(calls[1].body, &sent))
	assert.Equal(t, domain.CollabTypeFolder, sent.CollabType)
	assert.Equal(t, "device-1", sent.DeviceID)
}
