package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// newTestStore connects to the database named by SPLITLEDGER_TEST_POSTGRES_DSN.
// Tests share one database, so every test uses fresh random IDs.
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("SPLITLEDGER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SPLITLEDGER_TEST_POSTGRES_DSN not set")
	}

	store, err := NewFromDSN(context.Background(), dsn)
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { store.Close() })
	return store
}

func id() string { return uuid.New().String() }

func TestConfigConnString(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "ledger", Password: "secret", DBName: "splitledger"}
	assert.Equal(t, "host=db port=5432 user=ledger password=secret dbname=splitledger sslmode=disable", cfg.ConnString())

	cfg.Schema = "ledger"
	assert.Contains(t, cfg.ConnString(), "search_path=ledger")
}

func TestGroupsAndMembership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice, bob := id(), id()

	group := &models.Group{Name: "Trip", CreatorID: alice}
	require.NoError(t, store.CreateGroup(ctx, group))
	require.NoError(t, store.AddGroupMember(ctx, &models.Membership{GroupID: group.ID, UserID: bob}))

	ok, err := store.IsUserInGroup(ctx, group.ID, alice)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.IsUserInGroup(ctx, group.ID, id())
	require.NoError(t, err)
	assert.False(t, ok)

	members, err := store.GetGroupMembers(ctx, group.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{alice, bob}, members)

	memberships, err := store.GetUserGroupMemberships(ctx, bob)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, models.RoleMember, memberships[0].Role)

	removed, err := store.RemoveGroupMember(ctx, group.ID, bob)
	require.NoError(t, err)
	assert.True(t, removed)

	group.Name = "Trip 2"
	require.NoError(t, store.UpdateGroup(ctx, group))
	got, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trip 2", got.Name)

	expense := &models.Expense{Amount: decimal.NewFromInt(10), PayerID: alice, GroupID: group.ID, Policy: models.PolicyEqual}
	require.NoError(t, store.CreateExpense(ctx, expense))

	deleted, err := store.DeleteGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	gone, err := store.GetExpense(ctx, expense.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	deleted, err = store.DeleteGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestExpensesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice, bob := id(), id()

	group := &models.Group{Name: "Flat", CreatorID: alice}
	require.NoError(t, store.CreateGroup(ctx, group))

	expense := &models.Expense{
		Description: "Rent",
		Amount:      decimal.RequireFromString("100.50"),
		PayerID:     alice,
		GroupID:     group.ID,
		Policy:      models.PolicyEqual,
	}
	require.NoError(t, store.CreateExpense(ctx, expense))
	for _, u := range []string{alice, bob} {
		require.NoError(t, store.AddShare(ctx, &models.ExpenseShare{
			ExpenseID: expense.ID, UserID: u, Amount: decimal.RequireFromString("50.25"),
		}))
	}

	got, err := store.GetExpense(ctx, expense.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "100.5", got.Amount.String())
	assert.Len(t, got.Shares, 2)

	listed, err := store.ListExpensesForGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Len(t, listed[0].Shares, 2)

	total, err := store.GetGroupTotalExpenses(ctx, group.ID)
	require.NoError(t, err)
	assert.True(t, expense.Amount.Equal(total))

	require.NoError(t, store.DeleteExpense(ctx, expense.ID))
	got, err = store.GetExpense(ctx, expense.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWithTxRollback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var groupID string
	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx storage.Store) error {
		group := &models.Group{Name: "Doomed", CreatorID: id()}
		if err := tx.CreateGroup(ctx, group); err != nil {
			return err
		}
		groupID = group.ID
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetGroup(ctx, groupID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
