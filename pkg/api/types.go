package api

import "github.com/shopspring/decimal"

// User is the public view of an account.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"created_at"`
}

type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	CreatorID   string   `json:"creator_id"`
	CreatedAt   int64    `json:"created_at"`
	Members     []string `json:"members"`
}

type Share struct {
	ID     string          `json:"id"`
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	IsPaid bool            `json:"is_paid"`
}

type Expense struct {
	ID           string          `json:"id"`
	Description  string          `json:"description,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	PayerID      string          `json:"payer_id"`
	GroupID      string          `json:"group_id,omitempty"`
	Policy       string          `json:"policy"`
	IsSettlement bool            `json:"is_settlement"`
	CreatedAt    int64           `json:"created_at"`
	Shares       []Share         `json:"shares"`
}

// Balance is a signed position: positive means owed, negative means owes.
type Balance struct {
	UserID   string          `json:"user_id"`
	Username string          `json:"username"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
}

type Transfer struct {
	FromUserID   string          `json:"from_user_id"`
	FromUsername string          `json:"from_username"`
	ToUserID     string          `json:"to_user_id"`
	ToUsername   string          `json:"to_username"`
	Amount       decimal.Decimal `json:"amount"`
}

type GroupBalance struct {
	GroupID   string          `json:"group_id"`
	GroupName string          `json:"group_name"`
	Balance   decimal.Decimal `json:"balance"`
	Status    string          `json:"status"`
}

type SettlementShare struct {
	User   string          `json:"user"`
	Amount decimal.Decimal `json:"amount"`
	IsPaid bool            `json:"is_paid"`
}

type SettlementRecord struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Amount      decimal.Decimal   `json:"amount"`
	PaidBy      string            `json:"paid_by"`
	CreatedAt   int64             `json:"created_at"`
	Shares      []SettlementShare `json:"shares"`
}

// AuthService messages.

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type RegisterResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User User `json:"user"`
}

// GroupService messages.

type CreateGroupRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	MemberIDs   []string `json:"member_ids" validate:"dive,required"`
}

type CreateGroupResponse struct {
	Group Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type GetGroupResponse struct {
	Group Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []Group `json:"groups"`
}

type UpdateGroupRequest struct {
	GroupID     string `json:"group_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type UpdateGroupResponse struct {
	Group Group `json:"group"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type DeleteGroupResponse struct {
	Deleted bool `json:"deleted"`
}

type AddMemberRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
}

type AddMemberResponse struct {
	Group Group `json:"group"`
}

type RemoveMemberRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
}

type RemoveMemberResponse struct {
	Removed bool `json:"removed"`
}

// ExpenseService messages.

type ShareInput struct {
	UserID string          `json:"user_id" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

type PercentageInput struct {
	UserID     string          `json:"user_id" validate:"required"`
	Percentage decimal.Decimal `json:"percentage"`
}

// SplitInput carries the policy and its inputs. Only the list matching
// Policy is read.
type SplitInput struct {
	Policy         string            `json:"policy" validate:"required,oneof=equal exact percentage"`
	Amount         decimal.Decimal   `json:"amount" validate:"positive_decimal"`
	PayerID        string            `json:"payer_id"`
	GroupID        string            `json:"group_id"`
	Description    string            `json:"description" validate:"max=255"`
	ParticipantIDs []string          `json:"participant_ids" validate:"dive,required"`
	Shares         []ShareInput      `json:"shares" validate:"dive"`
	Percentages    []PercentageInput `json:"percentages" validate:"dive"`
}

type CreateExpenseRequest struct {
	SplitInput
}

type CreateExpenseResponse struct {
	Expense Expense `json:"expense"`
}

type UpdateExpenseRequest struct {
	ExpenseID string `json:"expense_id" validate:"required"`
	SplitInput
}

type UpdateExpenseResponse struct {
	Expense Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id" validate:"required"`
}

type DeleteExpenseResponse struct {
	Deleted bool `json:"deleted"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expense_id" validate:"required"`
}

type GetExpenseResponse struct {
	Expense Expense `json:"expense"`
}

type ListGroupExpensesRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type ListGroupExpensesResponse struct {
	Expenses []Expense `json:"expenses"`
}

// SettlementService messages.

type GetGroupSettlementSummaryRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type GetGroupSettlementSummaryResponse struct {
	GroupID                string          `json:"group_id"`
	GroupName              string          `json:"group_name"`
	Balances               []Balance       `json:"balances"`
	Transfers              []Transfer      `json:"transfers"`
	TotalExpenses          decimal.Decimal `json:"total_expenses"`
	TotalSettlementsNeeded decimal.Decimal `json:"total_settlements_needed"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type GetGroupBalancesResponse struct {
	GroupID  string    `json:"group_id"`
	Balances []Balance `json:"balances"`
}

// GetUserBalancesRequest defaults UserID to the requester.
type GetUserBalancesRequest struct {
	UserID string `json:"user_id"`
}

type GetUserBalancesResponse struct {
	UserID   string                     `json:"user_id"`
	Balances map[string]decimal.Decimal `json:"balances"`
}

// GetUserSettlementSummaryRequest defaults UserID to the requester.
type GetUserSettlementSummaryRequest struct {
	UserID string `json:"user_id"`
}

type GetUserSettlementSummaryResponse struct {
	UserID          string          `json:"user_id"`
	Username        string          `json:"username"`
	TotalOwedToUser decimal.Decimal `json:"total_owed_to_user"`
	TotalUserOwes   decimal.Decimal `json:"total_user_owes"`
	NetBalance      decimal.Decimal `json:"net_balance"`
	GroupBalances   []GroupBalance  `json:"group_balances"`
}

type MarkSettlementPaidRequest struct {
	GroupID    string          `json:"group_id" validate:"required"`
	FromUserID string          `json:"from_user_id" validate:"required"`
	ToUserID   string          `json:"to_user_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

type MarkSettlementPaidResponse struct {
	Message string `json:"message"`
}

type GetSettlementHistoryRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type GetSettlementHistoryResponse struct {
	Settlements []SettlementRecord `json:"settlements"`
}
