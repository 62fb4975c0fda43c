// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/dutch/internal/models"
	"github.com/mmynk/dutch/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dataSourceName(dbPath)

	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// dataSourceName applies the pragmas to every pooled connection, not just the first one.
// Transactions start IMMEDIATE so concurrent writers queue on busy_timeout instead
// of failing on lock upgrade.
func dataSourceName(dbPath string) string {
	return "file:" + dbPath +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_txlock=immediate"
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateGroup persists a new group and its members to the database.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group, members []models.Member) error {
	// Generate ID if not set
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	group.MemberCount = len(members)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, owner_id, total_amount, member_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.OwnerID, group.TotalAmount.String(), group.MemberCount, group.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("group %q: %w", group.Name, storage.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i := range members {
		members[i].GroupID = group.ID
		if err := insertMember(ctx, tx, members[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetGroup retrieves a group by ID, scoped to its owner.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID, ownerID string) (*models.Group, error) {
	group, err := scanGroup(s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, total_amount, member_count, created_at
		 FROM groups WHERE id = ? AND owner_id = ?`,
		groupID, ownerID,
	))
	if err == sql.ErrNoRows {
		return nil, nil // Group not found or not owned
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

// ListGroups retrieves all groups owned by a user.
func (s *SQLiteStore) ListGroups(ctx context.Context, ownerID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner_id, total_amount, member_count, created_at
		 FROM groups WHERE owner_id = ? ORDER BY created_at, name`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	return groups, nil
}

// GroupNameExists reports whether the owner already has a group with this name.
func (s *SQLiteStore) GroupNameExists(ctx context.Context, ownerID, name string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM groups WHERE owner_id = ? AND name = ?",
		ownerID, name,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check group name: %w", err)
	}
	return true, nil
}

// ApplyGroupChange applies renames, total changes, new members and paid edits in one transaction.
func (s *SQLiteStore) ApplyGroupChange(ctx context.Context, change *storage.GroupChange) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Check ownership
	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM groups WHERE id = ? AND owner_id = ?",
		change.GroupID, change.OwnerID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("group %s: %w", change.GroupID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}

	if change.Name != nil {
		_, err = tx.ExecContext(ctx, "UPDATE groups SET name = ? WHERE id = ?", *change.Name, change.GroupID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("group %q: %w", *change.Name, storage.ErrDuplicate)
			}
			return fmt.Errorf("failed to rename group: %w", err)
		}
	}

	if change.TotalAmount != nil {
		_, err = tx.ExecContext(ctx,
			"UPDATE groups SET total_amount = ? WHERE id = ?",
			change.TotalAmount.String(), change.GroupID,
		)
		if err != nil {
			return fmt.Errorf("failed to update total amount: %w", err)
		}
	}

	for _, member := range change.NewMembers {
		member.GroupID = change.GroupID
		if err := insertMember(ctx, tx, member); err != nil {
			return err
		}
	}
	if len(change.NewMembers) > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE groups SET member_count = (SELECT COUNT(*) FROM group_members WHERE group_id = ?)
			 WHERE id = ?`,
			change.GroupID, change.GroupID,
		)
		if err != nil {
			return fmt.Errorf("failed to update member count: %w", err)
		}
	}

	for userID, paid := range change.Paid {
		res, err := tx.ExecContext(ctx,
			"UPDATE group_members SET paid_amount = ? WHERE group_id = ? AND user_id = ?",
			paid.String(), change.GroupID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to update paid amount: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("member %s: %w", userID, storage.ErrNotFound)
		}
	}

	if change.ClearTransfers {
		if _, err := tx.ExecContext(ctx, "DELETE FROM group_transfers WHERE group_id = ?", change.GroupID); err != nil {
			return fmt.Errorf("failed to clear transfers: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListMembers retrieves a group's members with their usernames.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.group_id, m.user_id, u.username, m.paid_amount
		 FROM group_members m JOIN users u ON u.id = m.user_id
		 WHERE m.group_id = ? ORDER BY m.user_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Username, &m.Paid); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// DeleteGroup removes a group; members and transfers cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID, ownerID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM groups WHERE id = ? AND owner_id = ?",
		groupID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	group := &models.Group{}
	err := row.Scan(&group.ID, &group.Name, &group.OwnerID, &group.TotalAmount, &group.MemberCount, &group.CreatedAt)
	if err != nil {
		return nil, err
	}
	return group, nil
}

func insertMember(ctx context.Context, tx *sql.Tx, member models.Member) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, paid_amount) VALUES (?, ?, ?)",
		member.GroupID, member.UserID, member.Paid.String(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("member %s: %w", member.UserID, storage.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
