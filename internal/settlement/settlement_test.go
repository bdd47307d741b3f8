package settlement

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/ledgererr"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/splitter"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	engine   *Engine
	splitter *splitter.Engine
	store    *sqlite.SQLiteStore
	groupID  string
}

// setup creates users alice, bob, carol and dave, and one group holding the
// first three with alice as creator.
func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		u := models.NewUser(name+"@example.com", name, "hash")
		u.ID = name
		require.NoError(t, store.CreateUser(ctx, u))
	}

	group := &models.Group{Name: "Roommates", CreatorID: "alice"}
	require.NoError(t, store.CreateGroup(ctx, group))
	for _, u := range []string{"bob", "carol"} {
		require.NoError(t, store.AddGroupMember(ctx, &models.Membership{GroupID: group.ID, UserID: u}))
	}

	logger := slog.New(slog.DiscardHandler)
	return &fixture{
		engine:   New(store, logger),
		splitter: splitter.New(store, logger),
		store:    store,
		groupID:  group.ID,
	}
}

func (f *fixture) splitEqual(t *testing.T, payer, amount string, participants ...string) {
	t.Helper()
	_, err := f.splitter.Split(context.Background(), splitter.SplitRequest{
		Policy: models.PolicyEqual, Amount: dec(amount), PayerID: payer,
		GroupID: f.groupID, RequesterID: payer, Participants: participants,
	})
	require.NoError(t, err)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestGroupBalances(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.splitEqual(t, "alice", "90", "alice", "bob", "carol")

	balances, err := f.engine.GroupBalances(ctx, f.groupID)
	require.NoError(t, err)
	assertAmount(t, "60", balances["alice"])
	assertAmount(t, "-30", balances["bob"])
	assertAmount(t, "-30", balances["carol"])

	again, err := f.engine.GroupBalances(ctx, f.groupID)
	require.NoError(t, err)
	assert.Equal(t, balances, again, "recomputing without mutation yields identical balances")
}

func TestGroupBalancesConserve(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.splitEqual(t, "alice", "90", "alice", "bob", "carol")
	f.splitEqual(t, "bob", "45.50", "alice", "bob")
	_, err := f.splitter.Split(ctx, splitter.SplitRequest{
		Policy: models.PolicyExact, Amount: dec("70"), PayerID: "carol",
		GroupID: f.groupID, RequesterID: "carol",
		Shares: []splitter.ShareInput{{UserID: "alice", Amount: dec("20")}, {UserID: "bob", Amount: dec("50")}},
	})
	require.NoError(t, err)

	balances, err := f.engine.GroupBalances(ctx, f.groupID)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, b := range balances {
		sum = sum.Add(b)
	}
	assert.True(t, sum.IsZero(), "credits and debits must cancel, got %s", sum.String())
}

func TestGroupBalancesFor(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.splitEqual(t, "alice", "40", "alice", "bob")
	f.splitEqual(t, "carol", "10", "carol")

	balances, err := f.engine.GroupBalancesFor(ctx, f.groupID, "bob")
	require.NoError(t, err)
	require.Len(t, balances, 2, "carol nets to zero and is dropped")
	assert.Equal(t, "alice", balances[0].UserID)
	assert.Equal(t, models.StatusOwed, balances[0].Status())
	assert.Equal(t, "bob", balances[1].Username)
	assert.Equal(t, models.StatusOwes, balances[1].Status())

	_, err = f.engine.GroupBalancesFor(ctx, f.groupID, "dave")
	assert.True(t, ledgererr.IsAccessDenied(err), err)
}

func TestGroupSettlementSummary(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("empty group", func(t *testing.T) {
		summary, err := f.engine.GroupSettlementSummary(ctx, f.groupID, "alice")
		require.NoError(t, err)
		assert.Equal(t, "Roommates", summary.GroupName)
		assert.Empty(t, summary.Balances)
		assert.Empty(t, summary.Transfers)
		assert.True(t, summary.TotalExpenses.IsZero())
	})

	f.splitEqual(t, "alice", "90", "alice", "bob", "carol")

	t.Run("plan settles every balance", func(t *testing.T) {
		summary, err := f.engine.GroupSettlementSummary(ctx, f.groupID, "carol")
		require.NoError(t, err)

		require.Len(t, summary.Balances, 3)
		assert.Equal(t, "alice", summary.Balances[0].Username)
		assertAmount(t, "60", summary.Balances[0].Amount)

		require.Len(t, summary.Transfers, 2)
		assert.Equal(t, models.SettlementTransfer{
			FromUserID: "bob", FromUsername: "bob", ToUserID: "alice", ToUsername: "alice", Amount: summary.Transfers[0].Amount,
		}, summary.Transfers[0])
		assertAmount(t, "30", summary.Transfers[0].Amount)
		assert.Equal(t, "carol", summary.Transfers[1].FromUserID)

		assertAmount(t, "90", summary.TotalExpenses)
		assertAmount(t, "60", summary.TotalSettlementsNeeded)
	})

	t.Run("outsider is denied", func(t *testing.T) {
		_, err := f.engine.GroupSettlementSummary(ctx, f.groupID, "dave")
		assert.True(t, ledgererr.IsAccessDenied(err), err)
	})

	t.Run("missing group", func(t *testing.T) {
		_, err := f.engine.GroupSettlementSummary(ctx, "missing", "alice")
		assert.True(t, ledgererr.IsNotFound(err), err)
	})
}

func TestMarkSettlementPaid(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.splitEqual(t, "alice", "90", "alice", "bob", "carol")

	ok, err := f.engine.MarkSettlementPaid(ctx, f.groupID, "bob", "alice", dec("30"), "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	balances, err := f.engine.GroupBalances(ctx, f.groupID)
	require.NoError(t, err)
	assertAmount(t, "0", balances["bob"])
	assertAmount(t, "30", balances["alice"])

	summary, err := f.engine.GroupSettlementSummary(ctx, f.groupID, "alice")
	require.NoError(t, err)
	require.Len(t, summary.Transfers, 1)
	assert.Equal(t, "carol", summary.Transfers[0].FromUserID)
	assertAmount(t, "120", summary.TotalExpenses)

	history, err := f.engine.SettlementHistory(ctx, f.groupID, "carol")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Settlement payment from bob to alice", history[0].Description)
	assert.Equal(t, "bob", history[0].PaidBy)
	require.Len(t, history[0].Shares, 1)
	assert.Equal(t, "alice", history[0].Shares[0].User)
	assert.True(t, history[0].Shares[0].IsPaid)
	assertAmount(t, "30", history[0].Shares[0].Amount)

	expenses, err := f.store.ListExpensesForGroup(ctx, f.groupID)
	require.NoError(t, err)
	settlement := expenses[len(expenses)-1]
	assert.True(t, settlement.IsSettlement)
	assert.Equal(t, models.PolicyExact, settlement.Policy)
}

func TestMarkSettlementPaidRejects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// a member without a user record
	require.NoError(t, f.store.AddGroupMember(ctx, &models.Membership{GroupID: f.groupID, UserID: "ghost"}))

	tests := []struct {
		name      string
		from, to  string
		amount    string
		requester string
		is        func(error) bool
	}{
		{"requester outside group", "bob", "alice", "10", "dave", ledgererr.IsAccessDenied},
		{"payee outside group", "bob", "dave", "10", "bob", ledgererr.IsMembership},
		{"zero amount", "bob", "alice", "0", "bob", ledgererr.IsShareMismatch},
		{"negative amount", "bob", "alice", "-5", "bob", ledgererr.IsShareMismatch},
		{"self settlement", "bob", "bob", "10", "bob", ledgererr.IsShareMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := f.engine.MarkSettlementPaid(ctx, f.groupID, tt.from, tt.to, dec(tt.amount), tt.requester)
			assert.False(t, ok)
			assert.True(t, tt.is(err), "unexpected error: %v", err)
		})
	}

	t.Run("unknown user is swallowed", func(t *testing.T) {
		ok, err := f.engine.MarkSettlementPaid(ctx, f.groupID, "ghost", "alice", dec("10"), "alice")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	records, err := f.store.ListSettlementRecords(ctx, f.groupID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSettlementHistoryAccess(t *testing.T) {
	f := setup(t)

	_, err := f.engine.SettlementHistory(context.Background(), f.groupID, "dave")
	assert.True(t, ledgererr.IsAccessDenied(err), err)
}

func TestUserBalances(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	other := &models.Group{Name: "Book club", CreatorID: "bob"}
	require.NoError(t, f.store.CreateGroup(ctx, other))
	require.NoError(t, f.store.AddGroupMember(ctx, &models.Membership{GroupID: other.ID, UserID: "alice"}))

	f.splitEqual(t, "alice", "90", "alice", "bob", "carol")
	_, err := f.splitter.Split(ctx, splitter.SplitRequest{
		Policy: models.PolicyEqual, Amount: dec("50"), PayerID: "bob",
		GroupID: other.ID, RequesterID: "bob", Participants: []string{"alice", "bob"},
	})
	require.NoError(t, err)

	t.Run("across groups", func(t *testing.T) {
		balances, err := f.engine.UserBalancesAcrossGroups(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, balances, 2)
		assertAmount(t, "60", balances[f.groupID])
		assertAmount(t, "-25", balances[other.ID])

		balances, err = f.engine.UserBalancesAcrossGroups(ctx, "dave")
		require.NoError(t, err)
		assert.Empty(t, balances)
	})

	t.Run("summary", func(t *testing.T) {
		summary, err := f.engine.UserSettlementSummary(ctx, "alice", "alice")
		require.NoError(t, err)
		require.NotNil(t, summary)
		assert.Equal(t, "alice", summary.Username)
		assertAmount(t, "60", summary.TotalOwedToUser)
		assertAmount(t, "25", summary.TotalUserOwes)
		assertAmount(t, "35", summary.NetBalance)

		require.Len(t, summary.Groups, 2)
		assert.Equal(t, "Book club", summary.Groups[0].GroupName)
		assert.Equal(t, models.StatusOwes, summary.Groups[0].Status)
		assert.Equal(t, models.StatusOwed, summary.Groups[1].Status)
	})

	t.Run("only own summary", func(t *testing.T) {
		_, err := f.engine.UserSettlementSummary(ctx, "alice", "bob")
		assert.True(t, ledgererr.IsAccessDenied(err), err)
	})

	t.Run("unknown user", func(t *testing.T) {
		summary, err := f.engine.UserSettlementSummary(ctx, "nobody", "nobody")
		require.NoError(t, err)
		assert.Nil(t, summary)
	})
}
