package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/splitter"
	"github.com/mmynk/splitledger/pkg/api"
)

// ExpenseService exposes the splitter engine over Connect.
type ExpenseService struct {
	splitter *splitter.Engine
	logger   *slog.Logger
}

// NewExpenseService creates an ExpenseService backed by engine.
func NewExpenseService(engine *splitter.Engine, logger *slog.Logger) *ExpenseService {
	return &ExpenseService{splitter: engine, logger: logger}
}

// Handler mounts every ExpenseService procedure under the service path.
func (s *ExpenseService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(api.ExpenseServiceCreateExpenseProcedure, connect.NewUnaryHandler(api.ExpenseServiceCreateExpenseProcedure, s.CreateExpense, opts...))
	mux.Handle(api.ExpenseServiceUpdateExpenseProcedure, connect.NewUnaryHandler(api.ExpenseServiceUpdateExpenseProcedure, s.UpdateExpense, opts...))
	mux.Handle(api.ExpenseServiceDeleteExpenseProcedure, connect.NewUnaryHandler(api.ExpenseServiceDeleteExpenseProcedure, s.DeleteExpense, opts...))
	mux.Handle(api.ExpenseServiceGetExpenseProcedure, connect.NewUnaryHandler(api.ExpenseServiceGetExpenseProcedure, s.GetExpense, opts...))
	mux.Handle(api.ExpenseServiceListGroupExpensesProcedure, connect.NewUnaryHandler(api.ExpenseServiceListGroupExpensesProcedure, s.ListGroupExpenses, opts...))
	return "/" + api.ExpenseServiceName + "/", mux
}

// CreateExpense splits a new expense. The payer defaults to the requester.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	userID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("CreateExpense request received",
		"group_id", req.Msg.GroupID,
		"policy", req.Msg.Policy,
		"amount", req.Msg.Amount.String(),
	)

	expense, err := s.splitter.Split(ctx, splitRequest(req.Msg.SplitInput, userID))
	if err != nil {
		s.logger.Warn("CreateExpense failed", "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.CreateExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// UpdateExpense replaces an expense's fields and re-splits it.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	userID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("UpdateExpense request received", "expense_id", req.Msg.ExpenseID)

	expense, err := s.splitter.UpdateSplit(ctx, req.Msg.ExpenseID, splitRequest(req.Msg.SplitInput, userID))
	if err != nil {
		s.logger.Warn("UpdateExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.UpdateExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// DeleteExpense removes an expense. Deleting an unknown expense is not an
// error; Deleted reports whether anything was removed.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	userID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("DeleteExpense request received", "expense_id", req.Msg.ExpenseID)

	deleted, err := s.splitter.DeleteExpense(ctx, req.Msg.ExpenseID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DeleteExpenseResponse{Deleted: deleted}), nil
}

// GetExpense returns one expense visible to the requester.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	userID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}

	expense, err := s.splitter.GetExpense(ctx, req.Msg.ExpenseID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// ListGroupExpenses lists a group's expenses, oldest first.
func (s *ExpenseService) ListGroupExpenses(ctx context.Context, req *connect.Request[api.ListGroupExpensesRequest]) (*connect.Response[api.ListGroupExpensesResponse], error) {
	userID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ListGroupExpenses request received", "group_id", req.Msg.GroupID)

	expenses, err := s.splitter.ListGroupExpenses(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]api.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toAPIExpense(e)
	}
	s.logger.Info("ListGroupExpenses successful", "group_id", req.Msg.GroupID, "count", len(out))
	return connect.NewResponse(&api.ListGroupExpensesResponse{Expenses: out}), nil
}

func splitRequest(in api.SplitInput, requester string) splitter.SplitRequest {
	payer := in.PayerID
	if payer == "" {
		payer = requester
	}

	req := splitter.SplitRequest{
		Policy:       models.SplitPolicy(in.Policy),
		Amount:       in.Amount,
		PayerID:      payer,
		GroupID:      in.GroupID,
		Description:  in.Description,
		RequesterID:  requester,
		Participants: in.ParticipantIDs,
	}
	for _, sh := range in.Shares {
		req.Shares = append(req.Shares, splitter.ShareInput{UserID: sh.UserID, Amount: sh.Amount})
	}
	for _, p := range in.Percentages {
		req.Percentages = append(req.Percentages, splitter.PercentageInput{UserID: p.UserID, Percentage: p.Percentage})
	}
	return req
}
