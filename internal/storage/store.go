// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// GroupReader exposes the group lookups the engines depend on.
// Absent entities are reported as nil results, never as errors.
type GroupReader interface {
	// GetGroup returns nil if the group does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// IsUserInGroup is true for members and for the group's creator.
	IsUserInGroup(ctx context.Context, groupID, userID string) (bool, error)

	// GetGroupMembers returns member user IDs, creator included.
	GetGroupMembers(ctx context.Context, groupID string) ([]string, error)

	// GetGroupsByIDs returns a map of group ID to Group; unknown IDs are omitted.
	GetGroupsByIDs(ctx context.Context, ids []string) (map[string]*models.Group, error)

	// GetUserGroupMemberships lists every group the user belongs to.
	GetUserGroupMemberships(ctx context.Context, userID string) ([]*models.Membership, error)
}

// GroupWriter manages groups and their membership.
type GroupWriter interface {
	// CreateGroup persists a new group and adds its creator as owner.
	// The group.ID field will be populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	// AddGroupMember adds a user to a group. Adding an existing member is a no-op.
	AddGroupMember(ctx context.Context, m *models.Membership) error

	// UpdateGroup overwrites name and description.
	// Returns an error if the group is not found.
	UpdateGroup(ctx context.Context, group *models.Group) error

	// DeleteGroup removes a group with its memberships, expenses and shares.
	// It returns false if the group did not exist.
	DeleteGroup(ctx context.Context, groupID string) (bool, error)

	// RemoveGroupMember returns false if the user was not a member.
	RemoveGroupMember(ctx context.Context, groupID, userID string) (bool, error)

	// ListGroupsForUser lists the groups a user belongs to, newest first.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)
}

// ExpenseStore persists expenses and their shares.
type ExpenseStore interface {
	// CreateExpense persists a new expense without shares.
	// The expense.ID and CreatedAt fields will be populated by the store.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// UpdateExpense overwrites description, amount, payer, group and policy.
	// Returns an error if the expense is not found.
	UpdateExpense(ctx context.Context, expense *models.Expense) error

	// DeleteExpense removes an expense and its shares.
	// Returns an error if the expense is not found.
	DeleteExpense(ctx context.Context, expenseID string) error

	// GetExpense returns the expense with its shares, or nil if absent.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// AddShare persists a share. The share.ID field will be populated by the store.
	AddShare(ctx context.Context, share *models.ExpenseShare) error

	// ListShares lists the shares of one expense.
	ListShares(ctx context.Context, expenseID string) ([]models.ExpenseShare, error)

	// DeleteSharesForExpense removes every share of an expense.
	DeleteSharesForExpense(ctx context.Context, expenseID string) error

	// ListExpensesForGroup returns all group expenses, settlements included,
	// each with its shares, oldest first.
	ListExpensesForGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// ListSettlementRecords returns the group's recorded settlements, newest first.
	ListSettlementRecords(ctx context.Context, groupID string) ([]*models.Expense, error)

	// GetGroupTotalExpenses sums every expense amount in the group.
	GetGroupTotalExpenses(ctx context.Context, groupID string) (decimal.Decimal, error)
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID returns nil if the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail returns nil if no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUsersByIDs returns a map of user ID to User; unknown IDs are omitted.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// Transactor groups writes into one atomic unit.
type Transactor interface {
	// WithTx runs fn inside one transaction. fn receives a Store bound to
	// that transaction; returning an error rolls everything back.
	// Nested calls join the outer transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// Store defines the full set of storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the engines or the service layer.
type Store interface {
	GroupReader
	GroupWriter
	ExpenseStore
	UserStore
	Transactor

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
