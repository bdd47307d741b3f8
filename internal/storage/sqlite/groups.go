package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const groupColumns = "id, name, description, creator_id, created_at"

func scanGroup(scan func(dest ...any) error) (*models.Group, error) {
	group := &models.Group{}
	var description sql.NullString
	if err := scan(&group.ID, &group.Name, &description, &group.CreatorID, &group.CreatedAt); err != nil {
		return nil, err
	}
	group.Description = description.String
	return group, nil
}

// CreateGroup persists a new group and makes its creator the owner.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	return s.WithTx(ctx, func(tx storage.Store) error {
		q := tx.(*SQLiteStore).q
		_, err := q.ExecContext(ctx,
			"INSERT INTO groups ("+groupColumns+") VALUES (?, ?, ?, ?, ?)",
			group.ID, group.Name, nullable(group.Description), group.CreatorID, group.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		return tx.AddGroupMember(ctx, &models.Membership{
			GroupID:  group.ID,
			UserID:   group.CreatorID,
			Role:     models.RoleOwner,
			JoinedAt: group.CreatedAt,
		})
	})
}

// GetGroup retrieves a group by ID. Returns nil if it does not exist.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := scanGroup(s.q.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE id = ?", groupID,
	).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// UpdateGroup overwrites a group's name and description.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE groups SET name = ?, description = ? WHERE id = ?",
		group.Name, nullable(group.Description), group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	} else if n == 0 {
		return fmt.Errorf("group not found: %s", group.ID)
	}
	return nil
}

// DeleteGroup removes a group; memberships, expenses and shares cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) (bool, error) {
	res, err := s.q.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return false, fmt.Errorf("failed to delete group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete group: %w", err)
	}
	return n > 0, nil
}

// GetGroupsByIDs retrieves multiple groups keyed by ID.
func (s *SQLiteStore) GetGroupsByIDs(ctx context.Context, ids []string) (map[string]*models.Group, error) {
	groups := make(map[string]*models.Group, len(ids))
	if len(ids) == 0 {
		return groups, nil
	}

	rows, err := s.q.QueryContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE id IN ("+placeholders(len(ids))+")",
		toArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		group, err := scanGroup(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups[group.ID] = group
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// ListGroupsForUser lists the groups the user created or joined.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups
		 WHERE creator_id = ? OR id IN (SELECT group_id FROM group_members WHERE user_id = ?)
		 ORDER BY created_at DESC, rowid DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows.Scan)
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

// AddGroupMember adds a user to a group; existing members are left untouched.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, m *models.Membership) error {
	if m.Role == "" {
		m.Role = models.RoleMember
	}
	if m.JoinedAt == 0 {
		m.JoinedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (group_id, user_id) DO NOTHING`,
		m.GroupID, m.UserID, m.Role, m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

// RemoveGroupMember deletes a membership row.
func (s *SQLiteStore) RemoveGroupMember(ctx context.Context, groupID, userID string) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = ? AND user_id = ?", groupID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove group member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to remove group member: %w", err)
	}
	return n > 0, nil
}

// IsUserInGroup reports membership; the group creator is always a member.
func (s *SQLiteStore) IsUserInGroup(ctx context.Context, groupID, userID string) (bool, error) {
	var exists int
	err := s.q.QueryRowContext(ctx,
		`SELECT 1 FROM groups g
		 WHERE g.id = ? AND (g.creator_id = ? OR EXISTS (
		     SELECT 1 FROM group_members m WHERE m.group_id = g.id AND m.user_id = ?))`,
		groupID, userID, userID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return true, nil
}

// GetGroupMembers returns every member's user ID, creator included.
func (s *SQLiteStore) GetGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT creator_id FROM groups WHERE id = ?
		 UNION
		 SELECT user_id FROM group_members WHERE group_id = ?
		 ORDER BY 1`,
		groupID, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}

// GetUserGroupMemberships lists the user's memberships, including groups
// they created without an explicit membership row.
func (s *SQLiteStore) GetUserGroupMemberships(ctx context.Context, userID string) ([]*models.Membership, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT group_id, user_id, role, joined_at FROM group_members WHERE user_id = ?
		 UNION ALL
		 SELECT g.id, g.creator_id, 'owner', g.created_at FROM groups g
		 WHERE g.creator_id = ? AND NOT EXISTS (
		     SELECT 1 FROM group_members m WHERE m.group_id = g.id AND m.user_id = g.creator_id)
		 ORDER BY 4, 1`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m := &models.Membership{}
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}
	return memberships, nil
}
