package collab

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/workspace-sync/internal/config"
	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/Rrens/workspace-sync/internal/repository/sqlite"
	"github.com/Rrens/workspace-sync/internal/security"
)

const schema = `
	CREATE TABLE IF NOT EXISTS collab_objects (
		uid         INTEGER NOT NULL,
		object_id   TEXT    NOT NULL,
		collab_type TEXT    NOT NULL,
		payload     BLOB    NOT NULL,
		updated_at  INTEGER NOT NULL,
		PRIMARY KEY (uid, object_id)
	);
	CREATE INDEX IF NOT EXISTS idx_collab_objects_type ON collab_objects (uid, collab_type);
`

// Store is the encrypted collab object store of one local user.
// Payloads are CBOR encoded and sealed with a key derived for the store's uid.
type Store struct {
	db  *sqlite.DB
	uid int64
	enc *security.Encryptor
}

// OpenStore opens (creating if needed) the collab store of uid at path
func OpenStore(ctx context.Context, path string, uid int64, cfg config.StorageConfig, secret string) (*Store, error) {
	enc, err := security.NewEncryptorFromSecret(secret, security.CollabKeyInfo(uid))
	if err != nil {
		return nil, fmt.Errorf("failed to create collab encryptor: %w", err)
	}

	db, err := sqlite.Open(ctx, path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLocalStore, err)
	}

	if _, err := db.Pool.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to create collab schema: %w", domain.ErrLocalStore, err)
	}

	return &Store{db: db, uid: uid, enc: enc}, nil
}

// UID returns the owner of the store
func (s *Store) UID() int64 {
	return s.uid
}

// Put writes the encoded state of an object, replacing any previous state
func (s *Store) Put(ctx context.Context, uid int64, objectID string, collabType domain.CollabType, encoded domain.EncodedCollab) error {
	payload, err := s.enc.EncryptCBOR(encoded)
	if err != nil {
		return fmt.Errorf("failed to seal collab %s: %w", objectID, err)
	}

	query := `
		INSERT INTO collab_objects (uid, object_id, collab_type, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (uid, object_id) DO UPDATE SET
			collab_type = excluded.collab_type,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.Pool.ExecContext(ctx, query, uid, objectID, string(collabType), payload, time.Now().Unix()); err != nil {
		return fmt.Errorf("%w: failed to put collab %s: %w", domain.ErrLocalStore, objectID, err)
	}
	return nil
}

// GetEncodedCollab reads an object. Returns (nil, nil) when it does not exist.
func (s *Store) GetEncodedCollab(ctx context.Context, uid int64, objectID string) (*domain.EncodedCollab, error) {
	query := `
		SELECT payload
		FROM collab_objects
		WHERE uid = ? AND object_id = ?
	`

	var payload []byte
	err := s.db.Pool.QueryRowContext(ctx, query, uid, objectID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to get collab %s: %w", domain.ErrLocalStore, objectID, err)
	}

	var encoded domain.EncodedCollab
	if err := s.enc.DecryptCBOR(payload, &encoded); err != nil {
		return nil, fmt.Errorf("%w: collab %s: %w", domain.ErrConversion, objectID, err)
	}

	return &encoded, nil
}

// ListObjectIDs returns the ids of every object of collabType owned by uid
func (s *Store) ListObjectIDs(ctx context.Context, uid int64, collabType domain.CollabType) ([]string, error) {
	query := `
		SELECT object_id
		FROM collab_objects
		WHERE uid = ? AND collab_type = ?
		ORDER BY object_id ASC
	`

	rows, err := s.db.Pool.QueryContext(ctx, query, uid, string(collabType))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list collabs: %w", domain.ErrLocalStore, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: failed to scan collab id: %w", domain.ErrLocalStore, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to list collabs: %w", domain.ErrLocalStore, err)
	}

	return ids, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
