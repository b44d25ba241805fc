package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PrimaryFunction/Arkos/internal/model"
)

// GetXP returns the user's XP record, or the default record (xp=0, level=1)
// if the user has never been awarded XP. Read-only.
func (s *Store) GetXP(ctx context.Context, userID string) (model.XPRecord, error) {
	rec, err := getXP(ctx, s.db, userID)
	if err != nil {
		return model.XPRecord{}, fmt.Errorf("get xp: %w", err)
	}
	return rec, nil
}

// UpdateXP loads the user's record (default if absent), applies fn and
// stores the result, all in one transaction. Concurrent updates for the same
// user serialize on the single writer connection, so no increment is lost.
//
// Returns the stored record.
func (s *Store) UpdateXP(ctx context.Context, userID string, fn func(model.XPRecord) model.XPRecord) (model.XPRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.XPRecord{}, fmt.Errorf("update xp: begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := getXP(ctx, tx, userID)
	if err != nil {
		return model.XPRecord{}, fmt.Errorf("update xp: %w", err)
	}

	next := fn(current)
	next.UserID = userID
	if next.XP < 0 || next.Level < 1 {
		return model.XPRecord{}, fmt.Errorf("update xp: invalid record xp=%d level=%d", next.XP, next.Level)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO xp (user_id, xp, level)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET xp = excluded.xp, level = excluded.level
	`, userID, next.XP, next.Level)
	if err != nil {
		return model.XPRecord{}, fmt.Errorf("update xp: upsert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.XPRecord{}, fmt.Errorf("update xp: commit: %w", err)
	}
	return next, nil
}

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getXP(ctx context.Context, q queryRower, userID string) (model.XPRecord, error) {
	rec := model.XPRecord{UserID: userID}
	err := q.QueryRowContext(ctx, `
		SELECT xp, level FROM xp WHERE user_id = ?
	`, userID).Scan(&rec.XP, &rec.Level)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultXPRecord(userID), nil
	}
	if err != nil {
		return model.XPRecord{}, err
	}
	return rec, nil
}
