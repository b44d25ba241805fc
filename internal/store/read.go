package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PrimaryFunction/Arkos/internal/model"
)

// GetProxy retrieves a proxy by key.
// Returns ErrNotFound if no proxy has that key.
func (s *Store) GetProxy(ctx context.Context, key string) (model.Proxy, error) {
	var p model.Proxy
	err := s.db.QueryRowContext(ctx, `
		SELECT proxy_key, proxy_name, avatar_url
		FROM proxies
		WHERE proxy_key = ?
	`, key).Scan(&p.Key, &p.Name, &p.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Proxy{}, ErrNotFound
	}
	if err != nil {
		return model.Proxy{}, fmt.Errorf("get proxy: %w", err)
	}
	return p, nil
}

// HasGrant reports whether userID holds a grant for the proxy.
func (s *Store) HasGrant(ctx context.Context, key, userID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM proxy_users
		WHERE proxy_key = ? AND user_id = ?
	`, key, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check grant: %w", err)
	}
	return count > 0, nil
}

// ListAccessible returns the proxies userID holds a grant for, ordered by key.
//
// Returns an empty slice (not nil) if the user has no grants.
func (s *Store) ListAccessible(ctx context.Context, userID string) ([]model.Proxy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.proxy_key, p.proxy_name, p.avatar_url
		FROM proxies p
		JOIN proxy_users u ON p.proxy_key = u.proxy_key
		WHERE u.user_id = ?
		ORDER BY p.proxy_key COLLATE BINARY ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query accessible proxies: %w", err)
	}
	defer rows.Close()

	proxies := []model.Proxy{}
	for rows.Next() {
		var p model.Proxy
		if err := rows.Scan(&p.Key, &p.Name, &p.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan proxy: %w", err)
		}
		proxies = append(proxies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proxies: %w", err)
	}
	return proxies, nil
}

// ListGrantees returns the user IDs holding a grant for the proxy, ordered
// by ID. An unknown key yields an empty slice.
func (s *Store) ListGrantees(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM proxy_users
		WHERE proxy_key = ?
		ORDER BY user_id COLLATE BINARY ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query grantees: %w", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan grantee: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grantees: %w", err)
	}
	return users, nil
}
