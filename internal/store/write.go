package store

import (
	"context"
	"fmt"

	"github.com/PrimaryFunction/Arkos/internal/model"
)

// CreateProxy inserts a proxy together with a grant for its creator.
// Both rows are written in one transaction: if the grant cannot be written
// the proxy does not persist either.
//
// Returns ErrDuplicateKey if the key is already taken.
func (s *Store) CreateProxy(ctx context.Context, p model.Proxy, creatorID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create proxy: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO proxies (proxy_key, proxy_name, avatar_url)
		VALUES (?, ?, ?)
	`, p.Key, p.Name, p.AvatarURL)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create proxy: insert proxy: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO proxy_users (proxy_key, user_id)
		VALUES (?, ?)
		ON CONFLICT(proxy_key, user_id) DO NOTHING
	`, p.Key, creatorID)
	if err != nil {
		return fmt.Errorf("create proxy: insert grant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create proxy: commit: %w", err)
	}
	return nil
}

// GrantAccess adds userID to the access set of the proxy.
// Granting an existing grant is a successful no-op.
//
// Returns ErrNotFound if the proxy does not exist, so no grant can dangle.
func (s *Store) GrantAccess(ctx context.Context, key, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("grant access: begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM proxies WHERE proxy_key = ?
	`, key).Scan(&exists)
	if err != nil {
		return fmt.Errorf("grant access: check proxy: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO proxy_users (proxy_key, user_id)
		VALUES (?, ?)
		ON CONFLICT(proxy_key, user_id) DO NOTHING
	`, key, userID)
	if err != nil {
		return fmt.Errorf("grant access: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("grant access: commit: %w", err)
	}
	return nil
}

// DeleteProxy removes every grant for the proxy and then the proxy itself.
// Returns the number of grants removed. Deleting an unknown key succeeds
// with zero.
func (s *Store) DeleteProxy(ctx context.Context, key string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("delete proxy: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Grants are removed explicitly so the count is reported and databases
	// without the cascading foreign key are cleaned too.
	result, err := tx.ExecContext(ctx, `
		DELETE FROM proxy_users WHERE proxy_key = ?
	`, key)
	if err != nil {
		return 0, fmt.Errorf("delete proxy: delete grants: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete proxy: rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM proxies WHERE proxy_key = ?
	`, key); err != nil {
		return 0, fmt.Errorf("delete proxy: delete proxy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete proxy: commit: %w", err)
	}
	return removed, nil
}
