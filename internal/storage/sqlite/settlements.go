package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/dutch/internal/models"
)

// ReplaceTransfers swaps the stored settlement of a group for a new one.
// Delete and inserts share one transaction: if any insert fails the previous
// settlement is left untouched.
func (s *SQLiteStore) ReplaceTransfers(ctx context.Context, groupID string, transfers []models.Transfer) error {
	createdAt := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM group_transfers WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("failed to delete transfers: %w", err)
	}

	for i, t := range transfers {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO group_transfers (group_id, position, from_user_id, to_user_id, amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			groupID, i, t.FromUserID, t.ToUserID, t.Amount.String(), createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transfer %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListTransfers retrieves the stored settlement of a group in creation order.
func (s *SQLiteStore) ListTransfers(ctx context.Context, groupID string) ([]models.Transfer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, position, from_user_id, to_user_id, amount, created_at
		 FROM group_transfers WHERE group_id = ? ORDER BY position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []models.Transfer
	for rows.Next() {
		var t models.Transfer
		if err := rows.Scan(&t.GroupID, &t.Position, &t.FromUserID, &t.ToUserID, &t.Amount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}

	return transfers, nil
}
