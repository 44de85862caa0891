package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/rs/zerolog/log"
)

// WorkspaceRepository is the local workspace cache
type WorkspaceRepository struct {
	db *DB
}

// NewWorkspaceRepository creates a new workspace repository
func NewWorkspaceRepository(db *DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

// workspaceRow is the shape of a user_workspace_table row
type workspaceRow struct {
	ID                string
	UID               int64
	Name              string
	CreatedAt         int64
	DatabaseStorageID string
}

func workspaceRowFrom(uid int64, w domain.UserWorkspace) (workspaceRow, error) {
	id := strings.TrimSpace(w.ID)
	if id == "" {
		return workspaceRow{}, fmt.Errorf("%w: workspace has no id", domain.ErrConversion)
	}
	return workspaceRow{
		ID:                id,
		UID:               uid,
		Name:              w.Name,
		CreatedAt:         unixSeconds(w.CreatedAt),
		DatabaseStorageID: w.DatabaseStorageID,
	}, nil
}

func (row workspaceRow) toDomain() domain.UserWorkspace {
	return domain.UserWorkspace{
		ID:                row.ID,
		UID:               row.UID,
		Name:              row.Name,
		CreatedAt:         fromUnixSeconds(row.CreatedAt),
		DatabaseStorageID: row.DatabaseStorageID,
	}
}

// Get retrieves a workspace of uid by ID. Returns (nil, nil) when no row exists.
func (r *WorkspaceRepository) Get(ctx context.Context, uid int64, workspaceID string) (*domain.UserWorkspace, error) {
	query := `
		SELECT id, uid, name, created_at, database_storage_id
		FROM user_workspace_table
		WHERE id = ? AND uid = ?
	`

	var row workspaceRow
	err := r.db.Pool.QueryRowContext(ctx, query, workspaceID, uid).Scan(
		&row.ID,
		&row.UID,
		&row.Name,
		&row.CreatedAt,
		&row.DatabaseStorageID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to get workspace: %w", domain.ErrLocalStore, err)
	}

	workspace := row.toDomain()
	return &workspace, nil
}

// ListByUID retrieves every cached workspace of uid
func (r *WorkspaceRepository) ListByUID(ctx context.Context, uid int64) ([]domain.UserWorkspace, error) {
	query := `
		SELECT id, uid, name, created_at, database_storage_id
		FROM user_workspace_table
		WHERE uid = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Pool.QueryContext(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list workspaces: %w", domain.ErrLocalStore, err)
	}
	defer rows.Close()

	workspaces := []domain.UserWorkspace{}
	for rows.Next() {
		var row workspaceRow
		if err := rows.Scan(
			&row.ID,
			&row.UID,
			&row.Name,
			&row.CreatedAt,
			&row.DatabaseStorageID,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan workspace: %w", domain.ErrLocalStore, err)
		}
		workspaces = append(workspaces, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to list workspaces: %w", domain.ErrLocalStore, err)
	}

	return workspaces, nil
}

// SaveUserWorkspaces applies the remote workspace list to the cache of uid.
//
// Records that cannot be converted are dropped before the transaction starts.
// Every remaining record is updated by id, or inserted when no row matched, inside
// a single immediate transaction. A failing record is logged and skipped; the
// records that did not fail are committed together.
func (r *WorkspaceRepository) SaveUserWorkspaces(ctx context.Context, uid int64, workspaces []domain.UserWorkspace) error {
	rows := make([]workspaceRow, 0, len(workspaces))
	for _, w := range workspaces {
		row, err := workspaceRowFrom(uid, w)
		if err != nil {
			log.Debug().Err(err).Int64("uid", uid).Msg("Dropping remote workspace")
			continue
		}
		rows = append(rows, row)
	}

	tx, err := r.db.Pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", domain.ErrLocalStore, err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		if err := upsertWorkspace(ctx, tx, row); err != nil {
			log.Error().
				Err(err).
				Int64("uid", uid).
				Str("workspace_id", row.ID).
				Msg("Error saving user workspace")
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit workspaces: %w", domain.ErrLocalStore, err)
	}

	return nil
}

func upsertWorkspace(ctx context.Context, tx *sql.Tx, row workspaceRow) error {
	update := `
		UPDATE user_workspace_table
		SET name = ?, created_at = ?, database_storage_id = ?
		WHERE id = ? AND uid = ?
	`

	res, err := tx.ExecContext(ctx, update,
		row.Name,
		row.CreatedAt,
		row.DatabaseStorageID,
		row.ID,
		row.UID,
	)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	insert := `
		INSERT INTO user_workspace_table (id, uid, name, created_at, database_storage_id)
		VALUES (?, ?, ?, ?, ?)
	`

	if _, err := tx.ExecContext(ctx, insert,
		row.ID,
		row.UID,
		row.Name,
		row.CreatedAt,
		row.DatabaseStorageID,
	); err != nil {
		return fmt.Errorf("failed to insert workspace: %w", err)
	}

	return nil
}

func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnixSeconds(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
