package settlement

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledgererr"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// MarkSettlementPaid records that from paid to the given amount, as a
// settlement expense paid by from with a single paid share for to.
//
// Access, membership and input errors are returned. Anything that fails
// after that (an unknown user, a storage error) is logged, rolled back and
// reported as false with a nil error.
func (e *Engine) MarkSettlementPaid(ctx context.Context, groupID, fromUserID, toUserID string, amount decimal.Decimal, requesterID string) (bool, error) {
	const op = "mark_settlement_paid"

	ok, err := e.store.IsUserInGroup(ctx, groupID, requesterID)
	if err != nil {
		return false, ledgererr.Storage(op, err)
	}
	if !ok {
		return false, ledgererr.AccessDenied(op, "user %s does not have access to group %s", requesterID, groupID)
	}

	members, err := e.store.GetGroupMembers(ctx, groupID)
	if err != nil {
		return false, ledgererr.Storage(op, err)
	}
	if !slices.Contains(members, fromUserID) || !slices.Contains(members, toUserID) {
		return false, ledgererr.Membership(op, "one or both users are not members of group %s", groupID)
	}

	amount = calculator.RoundCents(amount)
	if !amount.IsPositive() {
		return false, ledgererr.ShareMismatch(op, "settlement amount must be positive")
	}
	if fromUserID == toUserID {
		return false, ledgererr.ShareMismatch(op, "cannot settle with oneself")
	}

	if err := e.recordSettlement(ctx, groupID, fromUserID, toUserID, amount); err != nil {
		e.logger.Error("MarkSettlementPaid failed",
			"group_id", groupID,
			"from", fromUserID,
			"to", toUserID,
			"amount", amount.String(),
			"error", err,
		)
		return false, nil
	}

	e.logger.Info("Settlement recorded", "group_id", groupID, "from", fromUserID, "to", toUserID, "amount", amount.String())
	return true, nil
}

func (e *Engine) recordSettlement(ctx context.Context, groupID, fromUserID, toUserID string, amount decimal.Decimal) error {
	return e.store.WithTx(ctx, func(tx storage.Store) error {
		from, err := tx.GetUserByID(ctx, fromUserID)
		if err != nil {
			return err
		}
		to, err := tx.GetUserByID(ctx, toUserID)
		if err != nil {
			return err
		}
		if from == nil || to == nil {
			return fmt.Errorf("unknown user in settlement %s -> %s", fromUserID, toUserID)
		}

		expense := &models.Expense{
			Description:  fmt.Sprintf("Settlement payment from %s to %s", from.Username, to.Username),
			Amount:       amount,
			PayerID:      fromUserID,
			GroupID:      groupID,
			Policy:       models.PolicyExact,
			IsSettlement: true,
		}
		if err := tx.CreateExpense(ctx, expense); err != nil {
			return err
		}
		return tx.AddShare(ctx, &models.ExpenseShare{
			ExpenseID: expense.ID,
			UserID:    toUserID,
			Amount:    amount,
			IsPaid:    true,
		})
	})
}

// SettlementHistory lists the group's recorded settlements, newest first,
// with usernames in place of IDs.
func (e *Engine) SettlementHistory(ctx context.Context, groupID, requesterID string) ([]models.SettlementHistoryEntry, error) {
	const op = "settlement_history"

	ok, err := e.store.IsUserInGroup(ctx, groupID, requesterID)
	if err != nil {
		return nil, ledgererr.Storage(op, err)
	}
	if !ok {
		return nil, ledgererr.AccessDenied(op, "user %s does not have access to group %s", requesterID, groupID)
	}

	records, err := e.store.ListSettlementRecords(ctx, groupID)
	if err != nil {
		return nil, ledgererr.Storage(op, err)
	}

	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.PayerID] = struct{}{}
		for _, s := range r.Shares {
			seen[s.UserID] = struct{}{}
		}
	}
	names, err := e.usernames(ctx, op, keys(seen))
	if err != nil {
		return nil, err
	}

	history := make([]models.SettlementHistoryEntry, 0, len(records))
	for _, r := range records {
		entry := models.SettlementHistoryEntry{
			ID:          r.ID,
			Description: r.Description,
			Amount:      r.Amount,
			PaidBy:      nameOf(names, r.PayerID),
			CreatedAt:   r.CreatedAt,
		}
		for _, s := range r.Shares {
			entry.Shares = append(entry.Shares, models.SettlementHistoryShare{
				User:   nameOf(names, s.UserID),
				Amount: s.Amount,
				IsPaid: s.IsPaid,
			})
		}
		history = append(history, entry)
	}
	return history, nil
}
