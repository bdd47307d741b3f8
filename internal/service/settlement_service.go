package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/pkg/api"
)

var (
	errOtherUser        = errors.New("users can only view their own balances")
	errSettlementFailed = errors.New("settlement could not be recorded")
)

// SettlementService exposes balances, settlement plans and recorded
// settlements over Connect.
type SettlementService struct {
	engine *settlement.Engine
	logger *slog.Logger
}

// NewSettlementService creates a SettlementService backed by engine.
func NewSettlementService(engine *settlement.Engine, logger *slog.Logger) *SettlementService {
	return &SettlementService{engine: engine, logger: logger}
}

// Handler mounts every SettlementService procedure under the service path.
func (s *SettlementService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(api.SettlementServiceGetGroupSettlementSummaryProcedure, connect.NewUnaryHandler(api.SettlementServiceGetGroupSettlementSummaryProcedure, s.GetGroupSettlementSummary, opts...))
	mux.Handle(api.SettlementServiceGetGroupBalancesProcedure, connect.NewUnaryHandler(api.SettlementServiceGetGroupBalancesProcedure, s.GetGroupBalances, opts...))
	mux.Handle(api.SettlementServiceGetUserBalancesProcedure, connect.NewUnaryHandler(api.SettlementServiceGetUserBalancesProcedure, s.GetUserBalances, opts...))
	mux.Handle(api.SettlementServiceGetUserSettlementSummaryProcedure, connect.NewUnaryHandler(api.SettlementServiceGetUserSettlementSummaryProcedure, s.GetUserSettlementSummary, opts...))
	mux.Handle(api.SettlementServiceMarkSettlementPaidProcedure, connect.NewUnaryHandler(api.SettlementServiceMarkSettlementPaidProcedure, s.MarkSettlementPaid, opts...))
	mux.Handle(api.SettlementServiceGetSettlementHistoryProcedure, connect.NewUnaryHandler(api.SettlementServiceGetSettlementHistoryProcedure, s.GetSettlementHistory, opts...))
	return "/" + api.SettlementServiceName + "/", mux
}

// GetGroupSettlementSummary returns balances, the transfer plan and totals.
func (s *SettlementService) GetGroupSettlementSummary(ctx context.Context, req *connect.Request[api.GetGroupSettlementSummaryRequest]) (*connect.Response[api.GetGroupSettlementSummaryResponse], error) {
	userID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("GetGroupSettlementSummary request received", "group_id", req.Msg.GroupID)

	summary, err := s.engine.GroupSettlementSummary(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.GetGroupSettlementSummaryResponse{
		GroupID:                summary.GroupID,
		GroupName:              summary.GroupName,
		Balances:               toAPIBalances(summary.Balances),
		Transfers:              toAPITransfers(summary.Transfers),
		TotalExpenses:          summary.TotalExpenses,
		TotalSettlementsNeeded: summary.TotalSettlementsNeeded,
	}), nil
}

// GetGroupBalances returns the group's non-zero balances.
func (s *SettlementService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	userID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}

	balances, err := s.engine.GroupBalancesFor(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetGroupBalancesResponse{
		GroupID:  req.Msg.GroupID,
		Balances: toAPIBalances(balances),
	}), nil
}

// GetUserBalances returns the requester's balance in every group where it
// is non-zero.
func (s *SettlementService) GetUserBalances(ctx context.Context, req *connect.Request[api.GetUserBalancesRequest]) (*connect.Response[api.GetUserBalancesResponse], error) {
	userID, err := s.selfOnly(ctx, req.Msg.UserID)
	if err != nil {
		return nil, err
	}

	balances, err := s.engine.UserBalancesAcrossGroups(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make(map[string]decimal.Decimal, len(balances))
	for groupID, b := range balances {
		out[groupID] = calculator.RoundCents(b)
	}
	return connect.NewResponse(&api.GetUserBalancesResponse{UserID: userID, Balances: out}), nil
}

// GetUserSettlementSummary totals the requester's position across groups.
func (s *SettlementService) GetUserSettlementSummary(ctx context.Context, req *connect.Request[api.GetUserSettlementSummaryRequest]) (*connect.Response[api.GetUserSettlementSummaryResponse], error) {
	requester, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	userID := req.Msg.UserID
	if userID == "" {
		userID = requester
	}

	summary, err := s.engine.UserSettlementSummary(ctx, userID, requester)
	if err != nil {
		return nil, toConnectError(err)
	}
	if summary == nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("user %s not found", userID))
	}

	return connect.NewResponse(&api.GetUserSettlementSummaryResponse{
		UserID:          summary.UserID,
		Username:        summary.Username,
		TotalOwedToUser: summary.TotalOwedToUser,
		TotalUserOwes:   summary.TotalUserOwes,
		NetBalance:      summary.NetBalance,
		GroupBalances:   toAPIGroupBalances(summary.Groups),
	}), nil
}

// MarkSettlementPaid records a real-world repayment between two members.
func (s *SettlementService) MarkSettlementPaid(ctx context.Context, req *connect.Request[api.MarkSettlementPaidRequest]) (*connect.Response[api.MarkSettlementPaidResponse], error) {
	userID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("MarkSettlementPaid request received",
		"group_id", req.Msg.GroupID,
		"from", req.Msg.FromUserID,
		"to", req.Msg.ToUserID,
		"amount", req.Msg.Amount.String(),
	)

	ok, err := s.engine.MarkSettlementPaid(ctx, req.Msg.GroupID, req.Msg.FromUserID, req.Msg.ToUserID, req.Msg.Amount, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !ok {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errSettlementFailed)
	}

	return connect.NewResponse(&api.MarkSettlementPaidResponse{
		Message: fmt.Sprintf("Settlement of %s recorded", calculator.RoundCents(req.Msg.Amount).StringFixed(2)),
	}), nil
}

// GetSettlementHistory lists the group's recorded settlements, newest first.
func (s *SettlementService) GetSettlementHistory(ctx context.Context, req *connect.Request[api.GetSettlementHistoryRequest]) (*connect.Response[api.GetSettlementHistoryResponse], error) {
	userID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}

	history, err := s.engine.SettlementHistory(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetSettlementHistoryResponse{Settlements: toAPISettlementRecords(history)}), nil
}

// selfOnly resolves an optional user ID against the requester.
func (s *SettlementService) selfOnly(ctx context.Context, userID string) (string, error) {
	requester, err := requesterID(ctx)
	if err != nil {
		return "", err
	}
	if userID != "" && userID != requester {
		return "", connect.NewError(connect.CodePermissionDenied, errOtherUser)
	}
	return requester, nil
}
