// Package splitter turns a payment into persisted expense shares under one
// of the equal, exact or percentage policies.
package splitter

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledgererr"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// ShareInput is a caller-provided amount for one user (exact policy).
type ShareInput struct {
	UserID string
	Amount decimal.Decimal
}

// PercentageInput is a caller-provided percentage for one user (percentage policy).
type PercentageInput struct {
	UserID     string
	Percentage decimal.Decimal
}

// SplitRequest describes an expense to split. Only the input matching
// Policy is read: Participants for equal, Shares for exact, Percentages for
// percentage.
type SplitRequest struct {
	Policy      models.SplitPolicy
	Amount      decimal.Decimal
	PayerID     string
	GroupID     string
	Description string
	RequesterID string

	Participants []string
	Shares       []ShareInput
	Percentages  []PercentageInput
}

// targets lists the users that will hold a share.
func (r SplitRequest) targets() []string {
	switch r.Policy {
	case models.PolicyEqual:
		return r.Participants
	case models.PolicyExact:
		ids := make([]string, len(r.Shares))
		for i, s := range r.Shares {
			ids[i] = s.UserID
		}
		return ids
	case models.PolicyPercentage:
		ids := make([]string, len(r.Percentages))
		for i, p := range r.Percentages {
			ids[i] = p.UserID
		}
		return ids
	}
	return nil
}

// Engine creates, re-splits and deletes expenses.
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

// Split validates req, computes the shares and persists the expense with its
// shares in one transaction. The amount and every share are stored rounded to
// the cent. Nothing is written if validation fails.
func (e *Engine) Split(ctx context.Context, req SplitRequest) (*models.Expense, error) {
	const op = "split"

	req.Amount = calculator.RoundCents(req.Amount)
	shares, err := e.validate(ctx, op, req)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		Description: req.Description,
		Amount:      req.Amount,
		PayerID:     req.PayerID,
		GroupID:     req.GroupID,
		Policy:      req.Policy,
	}

	err = e.store.WithTx(ctx, func(tx storage.Store) error {
		if err := tx.CreateExpense(ctx, expense); err != nil {
			return err
		}
		saved, err := addShares(ctx, tx, expense.ID, shares)
		if err != nil {
			return err
		}
		expense.Shares = saved
		return nil
	})
	if err != nil {
		e.logger.Error("Split failed", "group_id", req.GroupID, "error", err)
		return nil, ledgererr.Storage(op, err)
	}

	e.logger.Info("Expense split",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"policy", expense.Policy,
		"amount", expense.Amount.String(),
		"shares", len(expense.Shares),
	)
	return expense, nil
}

// UpdateSplit replaces an expense's fields and re-splits it. Old shares are
// deleted and the new ones created; shares are never diffed.
func (e *Engine) UpdateSplit(ctx context.Context, expenseID string, req SplitRequest) (*models.Expense, error) {
	const op = "update_split"

	existing, err := e.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, ledgererr.Storage(op, err)
	}
	if existing == nil {
		return nil, ledgererr.NotFound(op, "expense", expenseID)
	}
	if err := e.checkVisible(ctx, op, existing, req.RequesterID); err != nil {
		return nil, err
	}
	if existing.IsSettlement {
		return nil, ledgererr.ShareMismatch(op, "settlement records cannot be re-split")
	}

	req.Amount = calculator.RoundCents(req.Amount)
	shares, err := e.validate(ctx, op, req)
	if err != nil {
		return nil, err
	}

	updated := &models.Expense{
		ID:          existing.ID,
		Description: req.Description,
		Amount:      req.Amount,
		PayerID:     req.PayerID,
		GroupID:     req.GroupID,
		Policy:      req.Policy,
		CreatedAt:   existing.CreatedAt,
	}

	err = e.store.WithTx(ctx, func(tx storage.Store) error {
		if err := tx.UpdateExpense(ctx, updated); err != nil {
			return err
		}
		if err := tx.DeleteSharesForExpense(ctx, updated.ID); err != nil {
			return err
		}
		saved, err := addShares(ctx, tx, updated.ID, shares)
		if err != nil {
			return err
		}
		updated.Shares = saved
		return nil
	})
	if err != nil {
		e.logger.Error("UpdateSplit failed", "expense_id", expenseID, "error", err)
		return nil, ledgererr.Storage(op, err)
	}

	e.logger.Info("Expense re-split", "expense_id", updated.ID, "policy", updated.Policy, "shares", len(updated.Shares))
	return updated, nil
}

// DeleteExpense removes an expense and its shares. It returns false when the
// expense does not exist.
func (e *Engine) DeleteExpense(ctx context.Context, expenseID, requesterID string) (bool, error) {
	const op = "delete_expense"

	expense, err := e.store.GetExpense(ctx, expenseID)
	if err != nil {
		return false, ledgererr.Storage(op, err)
	}
	if expense == nil {
		return false, nil
	}
	if err := e.checkVisible(ctx, op, expense, requesterID); err != nil {
		return false, err
	}

	err = e.store.WithTx(ctx, func(tx storage.Store) error {
		if err := tx.DeleteSharesForExpense(ctx, expenseID); err != nil {
			return err
		}
		return tx.DeleteExpense(ctx, expenseID)
	})
	if err != nil {
		e.logger.Error("DeleteExpense failed", "expense_id", expenseID, "error", err)
		return false, ledgererr.Storage(op, err)
	}

	e.logger.Info("Expense deleted", "expense_id", expenseID, "requester_id", requesterID)
	return true, nil
}

// GetExpense returns one expense with its shares.
func (e *Engine) GetExpense(ctx context.Context, expenseID, requesterID string) (*models.Expense, error) {
	const op = "get_expense"

	expense, err := e.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, ledgererr.Storage(op, err)
	}
	if expense == nil {
		return nil, ledgererr.NotFound(op, "expense", expenseID)
	}
	if err := e.checkVisible(ctx, op, expense, requesterID); err != nil {
		return nil, err
	}
	return expense, nil
}

// ListGroupExpenses returns every expense of a group, settlements included,
// oldest first.
func (e *Engine) ListGroupExpenses(ctx context.Context, groupID, requesterID string) ([]*models.Expense, error) {
	const op = "list_group_expenses"

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
		return nil, ledgererr.AccessDenied(op, "user %s is not a member of group %s", requesterID, groupID)
	}

	expenses, err := e.store.ListExpensesForGroup(ctx, groupID)
	if err != nil {
		return nil, ledgererr.Storage(op, err)
	}
	return expenses, nil
}

// validate runs every check that must pass before a write: the target set,
// group membership and the policy's arithmetic.
func (e *Engine) validate(ctx context.Context, op string, req SplitRequest) ([]calculator.Share, error) {
	targets := req.targets()
	if len(targets) == 0 {
		if _, err := models.ParseSplitPolicy(string(req.Policy)); err != nil {
			return nil, ledgererr.ShareMismatch(op, "%v", err)
		}
		return nil, ledgererr.ShareMismatch(op, "no participants provided")
	}
	if !req.Amount.IsPositive() {
		return nil, ledgererr.ShareMismatch(op, "amount must be positive, got %s", req.Amount.String())
	}

	if err := e.ensureMembership(ctx, op, req.GroupID, req.RequesterID, req.PayerID, targets); err != nil {
		return nil, err
	}

	shares, err := computeShares(req)
	if err != nil {
		return nil, ledgererr.ShareMismatch(op, "%v", err)
	}
	return shares, nil
}

// computeShares dispatches to the calculator for the request's policy.
func computeShares(req SplitRequest) ([]calculator.Share, error) {
	switch req.Policy {
	case models.PolicyEqual:
		return calculator.EqualShares(req.Amount, req.Participants)
	case models.PolicyExact:
		given := make([]calculator.Share, len(req.Shares))
		for i, s := range req.Shares {
			given[i] = calculator.Share{UserID: s.UserID, Amount: s.Amount}
		}
		return calculator.ExactShares(req.Amount, given)
	case models.PolicyPercentage:
		given := make([]calculator.PercentageShare, len(req.Percentages))
		for i, p := range req.Percentages {
			given[i] = calculator.PercentageShare{UserID: p.UserID, Percent: p.Percentage}
		}
		return calculator.PercentageShares(req.Amount, given)
	}
	_, err := models.ParseSplitPolicy(string(req.Policy))
	return nil, err
}

func addShares(ctx context.Context, tx storage.Store, expenseID string, shares []calculator.Share) ([]models.ExpenseShare, error) {
	out := make([]models.ExpenseShare, 0, len(shares))
	for _, s := range shares {
		share := models.ExpenseShare{ExpenseID: expenseID, UserID: s.UserID, Amount: s.Amount}
		if err := tx.AddShare(ctx, &share); err != nil {
			return nil, err
		}
		out = append(out, share)
	}
	return out, nil
}
