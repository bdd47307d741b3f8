package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

const expenseColumns = "id, description, amount, payer_id, group_id, policy, is_settlement, created_at"

func scanExpense(scan func(dest ...any) error) (*models.Expense, error) {
	e := &models.Expense{}
	var description, groupID sql.NullString
	var policy string
	if err := scan(&e.ID, &description, &e.Amount, &e.PayerID, &groupID, &policy, &e.IsSettlement, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Description = description.String
	e.GroupID = groupID.String
	e.Policy = models.SplitPolicy(policy)
	return e, nil
}

// CreateExpense persists a new expense (shares are added separately).
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		"INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		expense.ID, nullable(expense.Description), expense.Amount.String(), expense.PayerID,
		nullable(expense.GroupID), string(expense.Policy), expense.IsSettlement, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

// UpdateExpense overwrites the mutable fields of an expense.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE expenses SET description = ?, amount = ?, payer_id = ?, group_id = ?, policy = ?
		 WHERE id = ?`,
		nullable(expense.Description), expense.Amount.String(), expense.PayerID,
		nullable(expense.GroupID), string(expense.Policy), expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	} else if n == 0 {
		return fmt.Errorf("expense not found: %s", expense.ID)
	}
	return nil
}

// DeleteExpense removes an expense; its shares cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	} else if n == 0 {
		return fmt.Errorf("expense not found: %s", expenseID)
	}
	return nil
}

// GetExpense retrieves an expense with its shares. Returns nil if absent.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense, err := scanExpense(s.q.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", expenseID,
	).Scan)
	if errors.Is(err, sql.ErrNoRows) {
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
func (s *SQLiteStore) AddShare(ctx context.Context, share *models.ExpenseShare) error {
	if share.ID == "" {
		share.ID = uuid.New().String()
	}

	_, err := s.q.ExecContext(ctx,
		"INSERT INTO expense_shares (id, expense_id, user_id, amount, is_paid) VALUES (?, ?, ?, ?, ?)",
		share.ID, share.ExpenseID, share.UserID, share.Amount.String(), share.IsPaid,
	)
	if err != nil {
		return fmt.Errorf("failed to insert share: %w", err)
	}
	return nil
}

// ListShares lists the shares of an expense in insertion order.
func (s *SQLiteStore) ListShares(ctx context.Context, expenseID string) ([]models.ExpenseShare, error) {
	return s.queryShares(ctx,
		"SELECT id, expense_id, user_id, amount, is_paid FROM expense_shares WHERE expense_id = ? ORDER BY rowid",
		expenseID,
	)
}

// DeleteSharesForExpense removes all shares of an expense.
func (s *SQLiteStore) DeleteSharesForExpense(ctx context.Context, expenseID string) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM expense_shares WHERE expense_id = ?", expenseID); err != nil {
		return fmt.Errorf("failed to delete shares: %w", err)
	}
	return nil
}

// ListExpensesForGroup returns every expense of the group with shares attached.
func (s *SQLiteStore) ListExpensesForGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	expenses, err := s.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE group_id = ? ORDER BY created_at, rowid",
		groupID,
	)
	if err != nil {
		return nil, err
	}
	if err := s.attachShares(ctx, groupID, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// ListSettlementRecords returns the group's settlement expenses, newest first.
func (s *SQLiteStore) ListSettlementRecords(ctx context.Context, groupID string) ([]*models.Expense, error) {
	expenses, err := s.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE group_id = ? AND is_settlement = 1 ORDER BY created_at DESC, rowid DESC",
		groupID,
	)
	if err != nil {
		return nil, err
	}
	if err := s.attachShares(ctx, groupID, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// GetGroupTotalExpenses sums expense amounts in Go; SQLite's SUM would go
// through floating point.
func (s *SQLiteStore) GetGroupTotalExpenses(ctx context.Context, groupID string) (decimal.Decimal, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT amount FROM expenses WHERE group_id = ?", groupID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to iterate amounts: %w", err)
	}
	return total, nil
}

func (s *SQLiteStore) queryExpenses(ctx context.Context, query string, args ...any) ([]*models.Expense, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

func (s *SQLiteStore) queryShares(ctx context.Context, query string, args ...any) ([]models.ExpenseShare, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	defer rows.Close()

	var shares []models.ExpenseShare
	for rows.Next() {
		var sh models.ExpenseShare
		if err := rows.Scan(&sh.ID, &sh.ExpenseID, &sh.UserID, &sh.Amount, &sh.IsPaid); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares = append(shares, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}
	return shares, nil
}

// attachShares loads the shares of every group expense in one query.
func (s *SQLiteStore) attachShares(ctx context.Context, groupID string, expenses []*models.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	shares, err := s.queryShares(ctx,
		`SELECT s.id, s.expense_id, s.user_id, s.amount, s.is_paid
		 FROM expense_shares s JOIN expenses e ON e.id = s.expense_id
		 WHERE e.group_id = ? ORDER BY s.rowid`,
		groupID,
	)
	if err != nil {
		return err
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
	return nil
}
