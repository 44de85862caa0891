package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/workspace-sync/internal/domain"
)

// UserRepository stores local user profiles
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetProfile retrieves the profile of uid. Returns (nil, nil) when absent.
func (r *UserRepository) GetProfile(ctx context.Context, uid int64) (*domain.UserProfile, error) {
	query := `
		SELECT uid, email, name, workspace_id, authenticator
		FROM user_table
		WHERE uid = ?
	`

	var profile domain.UserProfile
	var authenticator string
	err := r.db.Pool.QueryRowContext(ctx, query, uid).Scan(
		&profile.UID,
		&profile.Email,
		&profile.Name,
		&profile.WorkspaceID,
		&authenticator,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to get user profile: %w", domain.ErrLocalStore, err)
	}
	profile.Authenticator = domain.Authenticator(authenticator)

	return &profile, nil
}

// SaveProfile inserts or replaces the profile of profile.UID
func (r *UserRepository) SaveProfile(ctx context.Context, profile *domain.UserProfile) error {
	query := `
		INSERT INTO user_table (uid, email, name, workspace_id, authenticator, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (uid) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			workspace_id = excluded.workspace_id,
			authenticator = excluded.authenticator,
			updated_at = excluded.updated_at
	`

	authenticator := profile.Authenticator
	if authenticator == "" {
		authenticator = domain.AuthenticatorCloud
	}

	_, err := r.db.Pool.ExecContext(ctx, query,
		profile.UID,
		profile.Email,
		profile.Name,
		profile.WorkspaceID,
		string(authenticator),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save user profile: %w", domain.ErrLocalStore, err)
	}

	return nil
}
