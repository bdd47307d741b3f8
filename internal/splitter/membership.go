package splitter

import (
	"context"

	"github.com/mmynk/splitledger/internal/ledgererr"
	"github.com/mmynk/splitledger/internal/models"
)

// ensureMembership checks, in order: the group exists, the requester is a
// member, the payer is a member, every target user is a member. Expenses
// without a group skip all checks.
func (e *Engine) ensureMembership(ctx context.Context, op, groupID, requesterID, payerID string, targets []string) error {
	if groupID == "" {
		return nil
	}

	group, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return ledgererr.Storage(op, err)
	}
	if group == nil {
		return ledgererr.Membership(op, "group not found: %s", groupID)
	}

	ok, err := e.store.IsUserInGroup(ctx, groupID, requesterID)
	if err != nil {
		return ledgererr.Storage(op, err)
	}
	if !ok {
		return ledgererr.AccessDenied(op, "requester %s is not in group %s", requesterID, groupID)
	}

	ok, err = e.store.IsUserInGroup(ctx, groupID, payerID)
	if err != nil {
		return ledgererr.Storage(op, err)
	}
	if !ok {
		return ledgererr.Membership(op, "payer %s is not in group %s", payerID, groupID)
	}

	for _, userID := range targets {
		ok, err := e.store.IsUserInGroup(ctx, groupID, userID)
		if err != nil {
			return ledgererr.Storage(op, err)
		}
		if !ok {
			return ledgererr.Membership(op, "user %s is not in group %s", userID, groupID)
		}
	}
	return nil
}

// checkVisible allows the payer, any share holder and, for group expenses,
// any group member.
func (e *Engine) checkVisible(ctx context.Context, op string, expense *models.Expense, requesterID string) error {
	if requesterID != "" && (expense.PayerID == requesterID || expense.HasShareFor(requesterID)) {
		return nil
	}
	if expense.GroupID != "" {
		ok, err := e.store.IsUserInGroup(ctx, expense.GroupID, requesterID)
		if err != nil {
			return ledgererr.Storage(op, err)
		}
		if ok {
			return nil
		}
	}
	return ledgererr.AccessDenied(op, "user %s cannot access expense %s", requesterID, expense.ID)
}
