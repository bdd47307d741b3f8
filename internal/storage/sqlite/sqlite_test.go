package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { store.Close() })
	return store
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createGroup(t *testing.T, store *SQLiteStore, creator string, members ...string) *models.Group {
	t.Helper()
	ctx := context.Background()

	group := &models.Group{Name: "Roommates", CreatorID: creator}
	require.NoError(t, store.CreateGroup(ctx, group))
	for _, m := range members {
		require.NoError(t, store.AddGroupMember(ctx, &models.Membership{GroupID: group.ID, UserID: m}))
	}
	return group
}

func createExpense(t *testing.T, store *SQLiteStore, groupID, payer, total string, shares map[string]string) *models.Expense {
	t.Helper()
	ctx := context.Background()

	expense := &models.Expense{Amount: amount(total), PayerID: payer, GroupID: groupID, Policy: models.PolicyExact}
	require.NoError(t, store.CreateExpense(ctx, expense))
	for user, a := range shares {
		require.NoError(t, store.AddShare(ctx, &models.ExpenseShare{ExpenseID: expense.ID, UserID: user, Amount: amount(a)}))
	}
	return expense
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := models.NewUser("alice@example.com", "alice", "hash")
	require.NoError(t, store.CreateUser(ctx, alice))

	t.Run("GetUserByID", func(t *testing.T) {
		got, err := store.GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, "alice@example.com", got.Email)
	})

	t.Run("GetUserByEmail", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, alice.ID, got.ID)
	})

	t.Run("missing user is nil", func(t *testing.T) {
		got, err := store.GetUserByID(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("duplicate email fails", func(t *testing.T) {
		err := store.CreateUser(ctx, models.NewUser("alice@example.com", "alice2", "hash"))
		assert.Error(t, err)
	})

	t.Run("GetUsersByIDs omits unknown", func(t *testing.T) {
		users, err := store.GetUsersByIDs(ctx, []string{alice.ID, "ghost"})
		require.NoError(t, err)
		assert.Len(t, users, 1)
		assert.Contains(t, users, alice.ID)
	})
}

func TestGroupMembership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := createGroup(t, store, "alice", "bob")

	t.Run("creator and members are in group", func(t *testing.T) {
		for _, user := range []string{"alice", "bob"} {
			ok, err := store.IsUserInGroup(ctx, group.ID, user)
			require.NoError(t, err)
			assert.True(t, ok, user)
		}

		ok, err := store.IsUserInGroup(ctx, group.ID, "carol")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown group has no members", func(t *testing.T) {
		ok, err := store.IsUserInGroup(ctx, "missing", "alice")
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := store.GetGroup(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("GetGroupMembers", func(t *testing.T) {
		members, err := store.GetGroupMembers(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, members)
	})

	t.Run("adding twice is a no-op", func(t *testing.T) {
		require.NoError(t, store.AddGroupMember(ctx, &models.Membership{GroupID: group.ID, UserID: "bob"}))
		members, err := store.GetGroupMembers(ctx, group.ID)
		require.NoError(t, err)
		assert.Len(t, members, 2)
	})

	t.Run("memberships and group listing", func(t *testing.T) {
		memberships, err := store.GetUserGroupMemberships(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, memberships, 1)
		assert.Equal(t, models.RoleOwner, memberships[0].Role)

		groups, err := store.ListGroupsForUser(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, group.ID, groups[0].ID)

		byID, err := store.GetGroupsByIDs(ctx, []string{group.ID, "missing"})
		require.NoError(t, err)
		assert.Len(t, byID, 1)
	})

	t.Run("RemoveGroupMember", func(t *testing.T) {
		removed, err := store.RemoveGroupMember(ctx, group.ID, "bob")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.RemoveGroupMember(ctx, group.ID, "bob")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestUpdateAndDeleteGroup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := createGroup(t, store, "alice", "bob")
	expense := createExpense(t, store, group.ID, "alice", "40", map[string]string{"alice": "20", "bob": "20"})

	group.Name, group.Description = "Flat 4B", "Rent and bills"
	require.NoError(t, store.UpdateGroup(ctx, group))
	got, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flat 4B", got.Name)
	assert.Equal(t, "Rent and bills", got.Description)

	assert.Error(t, store.UpdateGroup(ctx, &models.Group{ID: "missing", Name: "x"}))

	deleted, err := store.DeleteGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	gone, err := store.GetExpense(ctx, expense.ID)
	require.NoError(t, err)
	assert.Nil(t, gone, "expenses cascade with their group")

	shares, err := store.ListShares(ctx, expense.ID)
	require.NoError(t, err)
	assert.Empty(t, shares)

	memberships, err := store.GetUserGroupMemberships(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, memberships)

	deleted, err = store.DeleteGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "alice", "bob", "carol")

	t.Run("create and get with shares", func(t *testing.T) {
		e := createExpense(t, store, group.ID, "alice", "90", map[string]string{"alice": "30", "bob": "30", "carol": "30"})
		assert.NotEmpty(t, e.ID)
		assert.NotZero(t, e.CreatedAt)

		got, err := store.GetExpense(ctx, e.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, amount("90").Equal(got.Amount))
		assert.Equal(t, group.ID, got.GroupID)
		assert.Equal(t, models.PolicyExact, got.Policy)
		assert.Len(t, got.Shares, 3)
		assert.True(t, amount("90").Equal(got.ShareTotal()))
	})

	t.Run("personal expense has no group", func(t *testing.T) {
		e := createExpense(t, store, "", "bob", "10", map[string]string{"alice": "10"})
		got, err := store.GetExpense(ctx, e.ID)
		require.NoError(t, err)
		assert.Empty(t, got.GroupID)
	})

	t.Run("update and replace shares", func(t *testing.T) {
		e := createExpense(t, store, group.ID, "bob", "20", map[string]string{"alice": "20"})
		e.Amount = amount("40")
		e.Description = "Groceries"
		require.NoError(t, store.UpdateExpense(ctx, e))
		require.NoError(t, store.DeleteSharesForExpense(ctx, e.ID))
		require.NoError(t, store.AddShare(ctx, &models.ExpenseShare{ExpenseID: e.ID, UserID: "carol", Amount: amount("40")}))

		got, err := store.GetExpense(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, "Groceries", got.Description)
		require.Len(t, got.Shares, 1)
		assert.Equal(t, "carol", got.Shares[0].UserID)
	})

	t.Run("update missing expense fails", func(t *testing.T) {
		err := store.UpdateExpense(ctx, &models.Expense{ID: "missing", Amount: amount("1"), Policy: models.PolicyEqual})
		assert.Error(t, err)
	})

	t.Run("delete cascades shares", func(t *testing.T) {
		e := createExpense(t, store, group.ID, "carol", "5", map[string]string{"bob": "5"})
		require.NoError(t, store.DeleteExpense(ctx, e.ID))

		got, err := store.GetExpense(ctx, e.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		shares, err := store.ListShares(ctx, e.ID)
		require.NoError(t, err)
		assert.Empty(t, shares)

		assert.Error(t, store.DeleteExpense(ctx, e.ID))
	})

	t.Run("list for group attaches shares", func(t *testing.T) {
		expenses, err := store.ListExpensesForGroup(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, expenses, 2)
		for _, e := range expenses {
			assert.NotEmpty(t, e.Shares, e.ID)
		}

		total, err := store.GetGroupTotalExpenses(ctx, group.ID)
		require.NoError(t, err)
		assert.True(t, amount("130").Equal(total), total.String())
	})
}

func TestSettlementRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "alice", "bob")

	createExpense(t, store, group.ID, "alice", "50", map[string]string{"bob": "50"})
	for _, a := range []string{"10", "20"} {
		e := &models.Expense{Amount: amount(a), PayerID: "bob", GroupID: group.ID, Policy: models.PolicyExact, IsSettlement: true}
		require.NoError(t, store.CreateExpense(ctx, e))
		require.NoError(t, store.AddShare(ctx, &models.ExpenseShare{ExpenseID: e.ID, UserID: "alice", Amount: amount(a), IsPaid: true}))
	}

	records, err := store.ListSettlementRecords(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, amount("20").Equal(records[0].Amount), "newest first")
	assert.True(t, records[0].IsSettlement)
	require.Len(t, records[0].Shares, 1)
	assert.True(t, records[0].Shares[0].IsPaid)
}

func TestWithTx(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "alice")

	t.Run("error rolls back", func(t *testing.T) {
		var id string
		boom := errors.New("boom")
		err := store.WithTx(ctx, func(tx storage.Store) error {
			e := &models.Expense{Amount: amount("10"), PayerID: "alice", GroupID: group.ID, Policy: models.PolicyEqual}
			if err := tx.CreateExpense(ctx, e); err != nil {
				return err
			}
			id = e.ID
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := store.GetExpense(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("success commits", func(t *testing.T) {
		var id string
		err := store.WithTx(ctx, func(tx storage.Store) error {
			e := &models.Expense{Amount: amount("10"), PayerID: "alice", GroupID: group.ID, Policy: models.PolicyEqual}
			if err := tx.CreateExpense(ctx, e); err != nil {
				return err
			}
			id = e.ID
			// nested calls join the outer transaction
			return tx.WithTx(ctx, func(inner storage.Store) error {
				return inner.AddShare(ctx, &models.ExpenseShare{ExpenseID: e.ID, UserID: "alice", Amount: amount("10")})
			})
		})
		require.NoError(t, err)

		got, err := store.GetExpense(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Len(t, got.Shares, 1)
	})
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "?"},
		{3, "?, ?, ?"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, placeholders(tt.n))
	}
}
