package models

import "github.com/shopspring/decimal"

// Balance statuses reported to clients.
const (
	StatusOwed    = "owed"
	StatusOwes    = "owes"
	StatusSettled = "settled"
)

// Balance is a user's signed net position in a group.
// Positive means the user is owed money, negative means the user owes.
type Balance struct {
	UserID   string
	Username string
	Amount   decimal.Decimal
}

// Status classifies the balance as owed, owes or settled.
func (b Balance) Status() string {
	return BalanceStatus(b.Amount)
}

// BalanceStatus classifies a signed amount.
func BalanceStatus(amount decimal.Decimal) string {
	switch amount.Sign() {
	case 1:
		return StatusOwed
	case -1:
		return StatusOwes
	default:
		return StatusSettled
	}
}

// SettlementTransfer is one recommended payment from a debtor to a creditor.
type SettlementTransfer struct {
	FromUserID   string
	FromUsername string
	ToUserID     string
	ToUsername   string
	Amount       decimal.Decimal
}

// GroupSettlement is the full settlement view of a group.
type GroupSettlement struct {
	GroupID   string
	GroupName string

	// Balances excludes users within a cent of zero, sorted by amount descending.
	Balances []Balance

	// Transfers is the greedy settlement plan.
	Transfers []SettlementTransfer

	// TotalExpenses sums every expense in the group, settlements included.
	TotalExpenses decimal.Decimal

	// TotalSettlementsNeeded sums the absolute debtor balances.
	TotalSettlementsNeeded decimal.Decimal
}

// GroupBalance is one group's line in a user's cross-group summary.
type GroupBalance struct {
	GroupID   string
	GroupName string
	Balance   decimal.Decimal
	Status    string
}

// UserSettlementSummary aggregates a user's position across all groups.
type UserSettlementSummary struct {
	UserID          string
	Username        string
	TotalOwedToUser decimal.Decimal
	TotalUserOwes   decimal.Decimal
	NetBalance      decimal.Decimal
	Groups          []GroupBalance
}

// SettlementHistoryEntry is a recorded settlement as shown in group history.
type SettlementHistoryEntry struct {
	ID          string
	Description string
	Amount      decimal.Decimal
	PaidBy      string
	CreatedAt   int64
	Shares      []SettlementHistoryShare
}

// SettlementHistoryShare is the receiving side of a recorded settlement.
type SettlementHistoryShare struct {
	User   string
	Amount decimal.Decimal
	IsPaid bool
}
