package api

// Fully-qualified service names.
const (
	AuthServiceName       = "splitledger.v1.AuthService"
	GroupServiceName      = "splitledger.v1.GroupService"
	ExpenseServiceName    = "splitledger.v1.ExpenseService"
	SettlementServiceName = "splitledger.v1.SettlementService"
)

// Procedure paths, as mounted on the HTTP mux.
const (
	AuthServiceRegisterProcedure       = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure          = "/" + AuthServiceName + "/Login"
	AuthServiceGetCurrentUserProcedure = "/" + AuthServiceName + "/GetCurrentUser"

	GroupServiceCreateGroupProcedure  = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure     = "/" + GroupServiceName + "/GetGroup"
	GroupServiceListGroupsProcedure   = "/" + GroupServiceName + "/ListGroups"
	GroupServiceUpdateGroupProcedure  = "/" + GroupServiceName + "/UpdateGroup"
	GroupServiceDeleteGroupProcedure  = "/" + GroupServiceName + "/DeleteGroup"
	GroupServiceAddMemberProcedure    = "/" + GroupServiceName + "/AddMember"
	GroupServiceRemoveMemberProcedure = "/" + GroupServiceName + "/RemoveMember"

	ExpenseServiceCreateExpenseProcedure     = "/" + ExpenseServiceName + "/CreateExpense"
	ExpenseServiceUpdateExpenseProcedure     = "/" + ExpenseServiceName + "/UpdateExpense"
	ExpenseServiceDeleteExpenseProcedure     = "/" + ExpenseServiceName + "/DeleteExpense"
	ExpenseServiceGetExpenseProcedure        = "/" + ExpenseServiceName + "/GetExpense"
	ExpenseServiceListGroupExpensesProcedure = "/" + ExpenseServiceName + "/ListGroupExpenses"

	SettlementServiceGetGroupSettlementSummaryProcedure = "/" + SettlementServiceName + "/GetGroupSettlementSummary"
	SettlementServiceGetGroupBalancesProcedure          = "/" + SettlementServiceName + "/GetGroupBalances"
	SettlementServiceGetUserBalancesProcedure           = "/" + SettlementServiceName + "/GetUserBalances"
	SettlementServiceGetUserSettlementSummaryProcedure  = "/" + SettlementServiceName + "/GetUserSettlementSummary"
	SettlementServiceMarkSettlementPaidProcedure        = "/" + SettlementServiceName + "/MarkSettlementPaid"
	SettlementServiceGetSettlementHistoryProcedure      = "/" + SettlementServiceName + "/GetSettlementHistory"
)

// PublicProcedures need no bearer token.
var PublicProcedures = []string{
	AuthServiceRegisterProcedure,
	AuthServiceLoginProcedure,
}
