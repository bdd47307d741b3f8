package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

const (
	expenseColumns = "id, description, amount, payer_id, group_id, policy, is_settlement, created_at"
	shareColumns   = "id, expense_id, user_id, amount, is_paid"
)

func scanExpense(row pgx.Row) (*models.Expense, error) {
	e := &models.Expense{}
	var description, groupID *string
	var policy string
	if err := row.Scan(&e.ID, &description, &e.Amount, &e.PayerID, &groupID, &policy, &e.IsSettlement, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Description = deref(description)
	e.GroupID = deref(groupID)
	e.Policy = models.SplitPolicy(policy)
	return e, nil
}

func scanShare(row pgx.CollectableRow) (models.ExpenseShare, error) {
	var sh models.ExpenseShare
	err := row.Scan(&sh.ID, &sh.ExpenseID, &sh.UserID, &sh.Amount, &sh.IsPaid)
	return sh, err
}

// CreateExpense persists a new expense (shares are added separately).
func (s *PostgresStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.Exec(ctx,
		"INSERT INTO expenses ("+expenseColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		expense.ID, nullable(expense.Description), expense.Amount.String(), expense.PayerID,
		nullable(expense.GroupID), string(expense.Policy), expense.IsSettlement, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

// UpdateExpense overwrites the mutable fields of an expense.
func (s *PostgresStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE expenses SET description = $1, amount = $2, payer_id = $3, group_id = $4, policy = $5
		 WHERE id = $6`,
		nullable(expense.Description), expense.Amount.String(), expense.PayerID,
		nullable(expense.GroupID), string(expense.Policy), expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expense not found: %s", expense.ID)
	}
	return nil
}

// DeleteExpense removes an expense; its shares cascade.
func (s *PostgresStore) DeleteExpense(ctx context.Context, expenseID string) error {
	tag, err := s.q.Exec(ctx, "DELETE FROM expenses WHERE id = $1", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expense not found: %s", expenseID)
	}
	return nil
}

// GetExpense retrieves an expense with its shares. Returns nil if absent.
func (s *PostgresStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense, err := scanExpense(s.q.QueryRow(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = $1", expenseID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	expense.Shares, err = s.ListShares(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	return expense, nil
}

// AddShare persists one expense share.
func (s *PostgresStore) AddShare(ctx context.Context, share *models.ExpenseShare) error {
	if share.ID == "" {
		share.ID = uuid.New().String()
	}

	_, err := s.q.Exec(ctx,
		"INSERT INTO expense_shares ("+shareColumns+") VALUES ($1, $2, $3, $4, $5)",
		share.ID, share.ExpenseID, share.UserID, share.Amount.String(), share.IsPaid,
	)
	if err != nil {
		return fmt.Errorf("failed to insert share: %w", err)
	}
	return nil
}

// ListShares lists the shares of an expense in insertion order.
func (s *PostgresStore) ListShares(ctx context.Context, expenseID string) ([]models.ExpenseShare, error) {
	return s.queryShares(ctx,
		"SELECT "+shareColumns+" FROM expense_shares WHERE expense_id = $1 ORDER BY seq",
		expenseID,
	)
}

// DeleteSharesForExpense removes all shares of an expense.
func (s *PostgresStore) DeleteSharesForExpense(ctx context.Context, expenseID string) error {
	if _, err := s.q.Exec(ctx, "DELETE FROM expense_shares WHERE expense_id = $1", expenseID); err != nil {
		return fmt.Errorf("failed to delete shares: %w", err)
	}
	return nil
}

// ListExpensesForGroup returns every expense of the group with shares attached.
func (s *PostgresStore) ListExpensesForGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return s.listWithShares(ctx, groupID,
		"SELECT "+expenseColumns+" FROM expenses WHERE group_id = $1 ORDER BY created_at, seq",
	)
}

// ListSettlementRecords returns the group's settlement expenses, newest first.
func (s *PostgresStore) ListSettlementRecords(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return s.listWithShares(ctx, groupID,
		"SELECT "+expenseColumns+" FROM expenses WHERE group_id = $1 AND is_settlement ORDER BY created_at DESC, seq DESC",
	)
}

// GetGroupTotalExpenses sums expense amounts; NUMERIC keeps the sum exact.
func (s *PostgresStore) GetGroupTotalExpenses(ctx context.Context, groupID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.q.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE group_id = $1", groupID,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) queryShares(ctx context.Context, query string, args ...any) ([]models.ExpenseShare, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	shares, err := pgx.CollectRows(rows, scanShare)
	if err != nil {
		return nil, fmt.Errorf("failed to scan shares: %w", err)
	}
	return shares, nil
}

// listWithShares runs an expense query for groupID and loads the shares of
// every group expense in one further query.
func (s *PostgresStore) listWithShares(ctx context.Context, groupID, query string) ([]*models.Expense, error) {
	rows, err := s.q.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	expenses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Expense, error) {
		return scanExpense(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan expenses: %w", err)
	}
	if len(expenses) == 0 {
		return expenses, nil
	}

	shares, err := s.queryShares(ctx,
		`SELECT s.id, s.expense_id, s.user_id, s.amount, s.is_paid
		 FROM expense_shares s JOIN expenses e ON e.id = s.expense_id
		 WHERE e.group_id = $1 ORDER BY s.seq`,
		groupID,
	)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Expense, len(expenses))
	for _, e := range expenses {
		byID[e.ID] = e
	}
	for _, sh := range shares {
		if e, ok := byID[sh.ExpenseID]; ok {
			e.Shares = append(e.Shares, sh)
		}
	}
	return expenses, nil
}
