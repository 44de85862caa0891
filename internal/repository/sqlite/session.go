package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/Rrens/workspace-sync/internal/security"
	"github.com/google/uuid"
)

// SessionRepository implements domain.SessionRepository. The table holds at
// most one row, the current session. The cloud token is sealed with enc.
type SessionRepository struct {
	db  *DB
	enc *security.Encryptor
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB, enc *security.Encryptor) *SessionRepository {
	return &SessionRepository{db: db, enc: enc}
}

// CurrentSession returns the signed-in session or domain.ErrSessionMissing
func (r *SessionRepository) CurrentSession(ctx context.Context) (*domain.Session, error) {
	query := `
		SELECT uid, user_uuid, workspace_id, token
		FROM user_session
		WHERE id = 1
	`

	var s domain.Session
	var userUUID, sealedToken string
	err := r.db.Pool.QueryRowContext(ctx, query).Scan(
		&s.UserID,
		&userUUID,
		&s.WorkspaceID,
		&sealedToken,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionMissing
		}
		return nil, fmt.Errorf("%w: failed to get session: %w", domain.ErrLocalStore, err)
	}

	s.UserUUID, err = uuid.Parse(userUUID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid session user uuid: %w", domain.ErrConversion, err)
	}

	s.Token, err = r.enc.DecryptString(sealedToken)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open session token: %w", domain.ErrConversion, err)
	}

	return &s, nil
}

// SaveSession replaces the current session
func (r *SessionRepository) SaveSession(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO user_session (id, uid, user_uuid, workspace_id, token, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			uid = excluded.uid,
			user_uuid = excluded.user_uuid,
			workspace_id = excluded.workspace_id,
			token = excluded.token,
			updated_at = excluded.updated_at
	`

	sealedToken, err := r.enc.EncryptString(session.Token)
	if err != nil {
		return fmt.Errorf("failed to seal session token: %w", err)
	}

	_, err = r.db.Pool.ExecContext(ctx, query,
		session.UserID,
		session.UserUUID.String(),
		session.WorkspaceID,
		sealedToken,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save session: %w", domain.ErrLocalStore, err)
	}
	return nil
}

// SetCurrentWorkspace records workspaceID as the open workspace of uid.
// It is a no-op when uid is not the signed-in user.
func (r *SessionRepository) SetCurrentWorkspace(ctx context.Context, uid int64, workspaceID string) error {
	query := `
		UPDATE user_session
		SET workspace_id = ?, updated_at = ?
		WHERE id = 1 AND uid = ?
	`

	_, err := r.db.Pool.ExecContext(ctx, query, workspaceID, time.Now().Unix(), uid)
	if err != nil {
		return fmt.Errorf("%w: failed to update session workspace: %w", domain.ErrLocalStore, err)
	}
	return nil
}

// Delete removes the current session
func (r *SessionRepository) Delete(ctx context.Context) error {
	_, err := r.db.Pool.ExecContext(ctx, `DELETE FROM user_session WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("%w: failed to delete session: %w", domain.ErrLocalStore, err)
	}
	return nil
}
