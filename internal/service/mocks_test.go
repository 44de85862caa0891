package service

import (
	"context"

	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockWorkspaceRepository mocks domain.UserWorkspaceRepository
type MockWorkspaceRepository struct {
	mock.Mock
}

func (m *MockWorkspaceRepository) Get(ctx context.Context, uid int64, workspaceID string) (*domain.UserWorkspace, error) {
	args := m.Called(ctx, uid, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserWorkspace), args.Error(1)
}

func (m *MockWorkspaceRepository) ListByUID(ctx context.Context, uid int64) ([]domain.UserWorkspace, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.UserWorkspace), args.Error(1)
}

func (m *MockWorkspaceRepository) SaveUserWorkspaces(ctx context.Context, uid int64, workspaces []domain.UserWorkspace) error {
	args := m.Called(ctx, uid, workspaces)
	return args.Error(0)
}

// MockCloudService mocks domain.UserCloudService
type MockCloudService struct {
	mock.Mock
}

func (m *MockCloudService) ListWorkspaces(ctx context.Context, uid int64) ([]domain.UserWorkspace, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.UserWorkspace), args.Error(1)
}

func (m *MockCloudService) GetWorkspaceMembers(ctx context.Context, workspaceID string) ([]domain.WorkspaceMember, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WorkspaceMember), args.Error(1)
}

func (m *MockCloudService) AddWorkspaceMember(ctx context.Context, email, workspaceID string) error {
	return m.Called(ctx, email, workspaceID).Error(0)
}

func (m *MockCloudService) RemoveWorkspaceMember(ctx context.Context, email, workspaceID string) error {
	return m.Called(ctx, email, workspaceID).Error(0)
}

func (m *MockCloudService) UpdateWorkspaceMember(ctx context.Context, email, workspaceID string, role domain.Role) error {
	return m.Called(ctx, email, workspaceID, role).Error(0)
}

func (m *MockCloudService) OpenWorkspace(ctx context.Context, workspaceID string) error {
	return m.Called(ctx, workspaceID).Error(0)
}

func (m *MockCloudService) ResetWorkspace(ctx context.Context, object domain.CollabObject) error {
	return m.Called(ctx, object).Error(0)
}

func (m *MockCloudService) BatchCreateCollabObjects(ctx context.Context, workspaceID string, objects []domain.CollabParams) error {
	return m.Called(ctx, workspaceID, objects).Error(0)
}

// MockSessionRepository mocks domain.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) CurrentSession(ctx context.Context) (*domain.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) SaveSession(ctx context.Context, session *domain.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) SetCurrentWorkspace(ctx context.Context, uid int64, workspaceID string) error {
	return m.Called(ctx, uid, workspaceID).Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockProfileRepository mocks domain.UserProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetProfile(ctx context.Context, uid int64) (*domain.UserProfile, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockProfileRepository) SaveProfile(ctx context.Context, profile *domain.UserProfile) error {
	return m.Called(ctx, profile).Error(0)
}

// MockNotifier mocks domain.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, n domain.Notification) {
	m.Called(ctx, n)
}

// MockStatusCallback mocks domain.UserStatusCallback
type MockStatusCallback struct {
	mock.Mock
}

func (m *MockStatusCallback) OpenWorkspace(ctx context.Context, uid int64, workspace *domain.UserWorkspace) error {
	return m.Called(ctx, uid, workspace).Error(0)
}

// MockExtractor mocks domain.ImportDataExtractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, importCtx domain.ImportContext, destWorkspaceID string) (domain.ImportData, error) {
	args := m.Called(ctx, importCtx, destWorkspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.ImportData), args.Error(1)
}

// MockFolderImporter mocks domain.FolderImporter
type MockFolderImporter struct {
	mock.Mock
}

func (m *MockFolderImporter) ImportDatabaseViews(ctx context.Context, workspaceID string, viewIDsByDatabaseID map[string][]string) error {
	return m.Called(ctx, workspaceID, viewIDsByDatabaseID).Error(0)
}

func (m *MockFolderImporter) ImportViews(ctx context.Context, workspaceID string, views []domain.ParentChildViews) error {
	return m.Called(ctx, workspaceID, views).Error(0)
}

// MockCollabHandles mocks CollabHandleProvider
type MockCollabHandles struct {
	mock.Mock
}

func (m *MockCollabHandles) Handle(ctx context.Context, uid int64) (domain.CollabDBHandle, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.CollabDBHandle), args.Error(1)
}

// fakeCollabDB is an in-memory collab store behind a weak handle
type fakeCollabDB struct {
	objects  map[string]*domain.EncodedCollab
	errs     map[string]error
	closed   bool
	upgrades int
	released int
}

func newFakeCollabDB() *fakeCollabDB {
	return &fakeCollabDB{
		objects: make(map[string]*domain.EncodedCollab),
		errs:    make(map[string]error),
	}
}

func (f *fakeCollabDB) Upgrade() (domain.CollabDBLease, bool) {
	if f.closed {
		return nil, false
	}
	f.upgrades++
	return fakeLease{db: f}, true
}

type fakeLease struct {
	db *fakeCollabDB
}

func (l fakeLease) GetEncodedCollab(ctx context.Context, uid int64, objectID string) (*domain.EncodedCollab, error) {
	if err := l.db.errs[objectID]; err != nil {
		return nil, err
	}
	return l.db.objects[objectID], nil
}

func (l fakeLease) ListObjectIDs(ctx context.Context, uid int64, collabType domain.CollabType) ([]string, error) {
	return nil, nil
}

func (l fakeLease) Release() {
	l.db.released++
}
