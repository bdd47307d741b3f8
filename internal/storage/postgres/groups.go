package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const groupColumns = "id, name, description, creator_id, created_at"

func scanGroup(row pgx.Row) (*models.Group, error) {
	group := &models.Group{}
	var description *string
	if err := row.Scan(&group.ID, &group.Name, &description, &group.CreatorID, &group.CreatedAt); err != nil {
		return nil, err
	}
	group.Description = deref(description)
	return group, nil
}

func collectGroups(rows pgx.Rows) ([]*models.Group, error) {
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

// CreateGroup persists a new group and makes its creator the owner.
func (s *PostgresStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	return s.WithTx(ctx, func(tx storage.Store) error {
		_, err := tx.(*PostgresStore).q.Exec(ctx,
			"INSERT INTO groups ("+groupColumns+") VALUES ($1, $2, $3, $4, $5)",
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
func (s *PostgresStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := scanGroup(s.q.QueryRow(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE id = $1", groupID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// UpdateGroup overwrites a group's name and description.
func (s *PostgresStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	tag, err := s.q.Exec(ctx,
		"UPDATE groups SET name = $1, description = $2 WHERE id = $3",
		group.Name, nullable(group.Description), group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("group not found: %s", group.ID)
	}
	return nil
}

// DeleteGroup removes a group; memberships, expenses and shares cascade.
func (s *PostgresStore) DeleteGroup(ctx context.Context, groupID string) (bool, error) {
	tag, err := s.q.Exec(ctx, "DELETE FROM groups WHERE id = $1", groupID)
	if err != nil {
		return false, fmt.Errorf("failed to delete group: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetGroupsByIDs retrieves multiple groups keyed by ID.
func (s *PostgresStore) GetGroupsByIDs(ctx context.Context, ids []string) (map[string]*models.Group, error) {
	byID := make(map[string]*models.Group, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	rows, err := s.q.Query(ctx, "SELECT "+groupColumns+" FROM groups WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups by IDs: %w", err)
	}
	groups, err := collectGroups(rows)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		byID[g.ID] = g
	}
	return byID, nil
}

// ListGroupsForUser lists the groups the user created or joined.
func (s *PostgresStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+groupColumns+` FROM groups
		 WHERE creator_id = $1 OR id IN (SELECT group_id FROM group_members WHERE user_id = $1)
		 ORDER BY created_at DESC, seq DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return collectGroups(rows)
}

// AddGroupMember adds a user to a group; existing members are left untouched.
func (s *PostgresStore) AddGroupMember(ctx context.Context, m *models.Membership) error {
	if m.Role == "" {
		m.Role = models.RoleMember
	}
	if m.JoinedAt == 0 {
		m.JoinedAt = time.Now().Unix()
	}

	_, err := s.q.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (group_id, user_id) DO NOTHING`,
		m.GroupID, m.UserID, m.Role, m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

// RemoveGroupMember deletes a membership row.
func (s *PostgresStore) RemoveGroupMember(ctx context.Context, groupID, userID string) (bool, error) {
	tag, err := s.q.Exec(ctx,
		"DELETE FROM group_members WHERE group_id = $1 AND user_id = $2", groupID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove group member: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// IsUserInGroup reports membership; the group creator is always a member.
func (s *PostgresStore) IsUserInGroup(ctx context.Context, groupID, userID string) (bool, error) {
	var ok bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM groups g
		     WHERE g.id = $1 AND (g.creator_id = $2 OR EXISTS (
		         SELECT 1 FROM group_members m WHERE m.group_id = g.id AND m.user_id = $2)))`,
		groupID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}

// GetGroupMembers returns every member's user ID, creator included.
func (s *PostgresStore) GetGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.q.Query(ctx,
		`SELECT creator_id FROM groups WHERE id = $1
		 UNION
		 SELECT user_id FROM group_members WHERE group_id = $1
		 ORDER BY 1`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}

	members, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan group members: %w", err)
	}
	return members, nil
}

// GetUserGroupMemberships lists the user's memberships, including groups
// they created without an explicit membership row.
func (s *PostgresStore) GetUserGroupMemberships(ctx context.Context, userID string) ([]*models.Membership, error) {
	rows, err := s.q.Query(ctx,
		`SELECT group_id, user_id, role, joined_at FROM group_members WHERE user_id = $1
		 UNION ALL
		 SELECT g.id, g.creator_id, 'owner', g.created_at FROM groups g
		 WHERE g.creator_id = $1 AND NOT EXISTS (
		     SELECT 1 FROM group_members m WHERE m.group_id = g.id AND m.user_id = g.creator_id)
		 ORDER BY 4, 1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get memberships: %w", err)
	}

	memberships, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Membership, error) {
		m := &models.Membership{}
		err := row.Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan memberships: %w", err)
	}
	return memberships, nil
}
