// Package settlement aggregates persisted shares into balances and plans the
// payments that settle them.
package settlement

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledgererr"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Engine computes balances and records settlements. It keeps no state:
// every call recomputes from the full expense history.
type Engine struct {
	store  storage.Store
	logger *slog.Logger
}

// New returns an Engine backed by store.
func New(store storage.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// GroupBalances returns every involved user's signed net position in the
// group. Positive means the user is owed money.
func (e *Engine) GroupBalances(ctx context.Context, groupID string) (map[string]decimal.Decimal, error) {
	expenses, err := e.store.ListExpensesForGroup(ctx, groupID)
	if err != nil {
		return nil, ledgererr.Storage("group_balances", err)
	}

	input := make([]calculator.ExpenseForBalance, len(expenses))
	for i, exp := range expenses {
		shares := make([]calculator.Share, len(exp.Shares))
		for j, s := range exp.Shares {
			shares[j] = calculator.Share{UserID: s.UserID, Amount: s.Amount}
		}
		input[i] = calculator.ExpenseForBalance{PayerID: exp.PayerID, Amount: exp.Amount, Shares: shares}
	}
	return calculator.CalculateGroupBalances(input), nil
}

// GroupBalancesFor returns the group's non-zero balances with usernames,
// largest creditor first. The requester must be a member.
func (e *Engine) GroupBalancesFor(ctx context.Context, groupID, requesterID string) ([]models.Balance, error) {
	const op = "group_balances"

	if _, err := e.requireGroupMember(ctx, op, groupID, requesterID); err != nil {
		return nil, err
	}

	raw, err := e.GroupBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	names, err := e.usernames(ctx, op, keys(raw))
	if err != nil {
		return nil, err
	}
	return visibleBalances(raw, names), nil
}

// UserBalancesAcrossGroups returns, per group the user belongs to, the
// user's balance when it is more than a cent away from zero.
func (e *Engine) UserBalancesAcrossGroups(ctx context.Context, userID string) (map[string]decimal.Decimal, error) {
	memberships, err := e.store.GetUserGroupMemberships(ctx, userID)
	if err != nil {
		return nil, ledgererr.Storage("user_balances", err)
	}

	out := make(map[string]decimal.Decimal)
	for _, m := range memberships {
		balances, err := e.GroupBalances(ctx, m.GroupID)
		if err != nil {
			return nil, err
		}
		if b := balances[userID]; !calculator.NearlyZero(b) {
			out[m.GroupID] = b
		}
	}
	return out, nil
}

// UserSettlementSummary totals what the user is owed and owes across groups.
// Users may only view their own summary. An unknown user yields nil.
func (e *Engine) UserSettlementSummary(ctx context.Context, userID, requesterID string) (*models.UserSettlementSummary, error) {
	const op = "user_settlement_summary"

	if userID != requesterID {
		return nil, ledgererr.AccessDenied(op, "users can only view their own settlement summary")
	}

	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ledgererr.Storage(op, err)
	}
	if user == nil {
		return nil, nil
	}

	balances, err := e.UserBalancesAcrossGroups(ctx, userID)
	if err != nil {
		return nil, err
	}

	groups, err := e.store.GetGroupsByIDs(ctx, keys(balances))
	if err != nil {
		return nil, ledgererr.Storage(op, err)
	}

	owed, owes := decimal.Zero, decimal.Zero
	summary := &models.UserSettlementSummary{UserID: user.ID, Username: user.Username}
	for groupID, b := range balances {
		if b.IsPositive() {
			owed = owed.Add(b)
		} else {
			owes = owes.Add(b.Abs())
		}

		name := fmt.Sprintf("Group %s", groupID)
		if g, ok := groups[groupID]; ok {
			name = g.Name
		}
		rounded := calculator.RoundCents(b)
		summary.Groups = append(summary.Groups, models.GroupBalance{
			GroupID:   groupID,
			GroupName: name,
			Balance:   rounded,
			Status:    models.BalanceStatus(rounded),
		})
	}
	slices.SortFunc(summary.Groups, func(a, b models.GroupBalance) int {
		return cmp.Or(cmp.Compare(a.GroupName, b.GroupName), cmp.Compare(a.GroupID, b.GroupID))
	})

	summary.TotalOwedToUser = calculator.RoundCents(owed)
	summary.TotalUserOwes = calculator.RoundCents(owes)
	summary.NetBalance = calculator.RoundCents(owed.Sub(owes))
	return summary, nil
}

// GroupSettlementSummary returns the group's balances, a greedy transfer
// plan that settles them, and the group totals.
func (e *Engine) GroupSettlementSummary(ctx context.Context, groupID, requesterID string) (*models.GroupSettlement, error) {
	const op = "group_settlement_summary"

	group, err := e.requireGroupMember(ctx, op, groupID, requesterID)
	if err != nil {
		return nil, err
	}

	raw, err := e.GroupBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}

	summary := &models.GroupSettlement{
		GroupID:                group.ID,
		GroupName:              group.Name,
		TotalExpenses:          decimal.Zero,
		TotalSettlementsNeeded: decimal.Zero,
	}
	if len(raw) == 0 {
		return summary, nil
	}

	names, err := e.usernames(ctx, op, keys(raw))
	if err != nil {
		return nil, err
	}

	summary.Balances = visibleBalances(raw, names)
	for _, b := range summary.Balances {
		if b.Amount.IsNegative() {
			summary.TotalSettlementsNeeded = summary.TotalSettlementsNeeded.Add(b.Amount.Abs())
		}
	}

	for _, t := range calculator.OptimalSettlements(raw) {
		summary.Transfers = append(summary.Transfers, models.SettlementTransfer{
			FromUserID:   t.From,
			FromUsername: nameOf(names, t.From),
			ToUserID:     t.To,
			ToUsername:   nameOf(names, t.To),
			Amount:       t.Amount,
		})
	}

	total, err := e.store.GetGroupTotalExpenses(ctx, groupID)
	if err != nil {
		return nil, ledgererr.Storage(op, err)
	}
	summary.TotalExpenses = calculator.RoundCents(total)
	return summary, nil
}

// requireGroupMember loads the group and checks the requester belongs to it.
func (e *Engine) requireGroupMember(ctx context.Context, op, groupID, requesterID string) (*models.Group, error) {
	group, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, ledgererr.Storage(op, err)
	}
	if group == nil {
		return nil, ledgererr.NotFound(op, "group", groupID)
	}

	ok, err := e.store.IsUserInGroup(ctx, groupID, requesterID)
	if err != nil {
		return nil, ledgererr.Storage(op, err)
	}
	if !ok {
		return nil, ledgererr.AccessDenied(op, "user %s does not have access to group %s", requesterID, groupID)
	}
	return group, nil
}

// usernames resolves display names for ids; unknown users are left out.
func (e *Engine) usernames(ctx context.Context, op string, ids []string) (map[string]string, error) {
	users, err := e.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, ledgererr.Storage(op, err)
	}
	names := make(map[string]string, len(users))
	for id, u := range users {
		names[id] = u.Username
	}
	return names, nil
}

func nameOf(names map[string]string, id string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return "User " + id
}

// visibleBalances drops near-zero entries, rounds to cents and sorts by
// amount descending, then user ID.
func visibleBalances(raw map[string]decimal.Decimal, names map[string]string) []models.Balance {
	var out []models.Balance
	for id, amount := range raw {
		if calculator.NearlyZero(amount) {
			continue
		}
		out = append(out, models.Balance{
			UserID:   id,
			Username: nameOf(names, id),
			Amount:   calculator.RoundCents(amount),
		})
	}
	slices.SortFunc(out, func(a, b models.Balance) int {
		return cmp.Or(b.Amount.Cmp(a.Amount), cmp.Compare(a.UserID, b.UserID))
	})
	return out
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
