package service

import (
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/api"
)

func toAPIUser(u *models.User) api.User {
	return api.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func toAPIGroup(g *models.Group, members []string) api.Group {
	if members == nil {
		members = []string{}
	}
	return api.Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatorID:   g.CreatorID,
		CreatedAt:   g.CreatedAt,
		Members:     members,
	}
}

func toAPIExpense(e *models.Expense) api.Expense {
	shares := make([]api.Share, len(e.Shares))
	for i, s := range e.Shares {
		shares[i] = api.Share{
			ID:     s.ID,
			UserID: s.UserID,
			Amount: s.Amount,
			IsPaid: s.IsPaid,
		}
	}
	return api.Expense{
		ID:           e.ID,
		Description:  e.Description,
		Amount:       e.Amount,
		PayerID:      e.PayerID,
		GroupID:      e.GroupID,
		Policy:       string(e.Policy),
		IsSettlement: e.IsSettlement,
		CreatedAt:    e.CreatedAt,
		Shares:       shares,
	}
}

func toAPIBalances(balances []models.Balance) []api.Balance {
	out := make([]api.Balance, len(balances))
	for i, b := range balances {
		out[i] = api.Balance{
			UserID:   b.UserID,
			Username: b.Username,
			Amount:   b.Amount,
			Status:   b.Status(),
		}
	}
	return out
}

func toAPITransfers(transfers []models.SettlementTransfer) []api.Transfer {
	out := make([]api.Transfer, len(transfers))
	for i, t := range transfers {
		out[i] = api.Transfer{
			FromUserID:   t.FromUserID,
			FromUsername: t.FromUsername,
			ToUserID:     t.ToUserID,
			ToUsername:   t.ToUsername,
			Amount:       t.Amount,
		}
	}
	return out
}

func toAPIGroupBalances(groups []models.GroupBalance) []api.GroupBalance {
	out := make([]api.GroupBalance, len(groups))
	for i, g := range groups {
		out[i] = api.GroupBalance{
			GroupID:   g.GroupID,
			GroupName: g.GroupName,
			Balance:   g.Balance,
			Status:    g.Status,
		}
	}
	return out
}

func toAPISettlementRecords(entries []models.SettlementHistoryEntry) []api.SettlementRecord {
	out := make([]api.SettlementRecord, len(entries))
	for i, e := range entries {
		shares := make([]api.SettlementShare, len(e.Shares))
		for j, s := range e.Shares {
			shares[j] = api.SettlementShare{User: s.User, Amount: s.Amount, IsPaid: s.IsPaid}
		}
		out[i] = api.SettlementRecord{
			ID:          e.ID,
			Description: e.Description,
			Amount:      e.Amount,
			PaidBy:      e.PaidBy,
			CreatedAt:   e.CreatedAt,
			Shares:      shares,
		}
	}
	return out
}
