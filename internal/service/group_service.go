package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
)

// GroupService implements the Connect GroupService.
type GroupService struct {
	store    storage.Store
	balances *settlement.Engine
	logger   *slog.Logger
}

// NewGroupService creates a new GroupService with the given storage backend.
// balances is consulted before members leave or a group is deleted.
func NewGroupService(store storage.Store, balances *settlement.Engine, logger *slog.Logger) *GroupService {
	return &GroupService{store: store, balances: balances, logger: logger}
}

// Handler mounts every GroupService procedure under the service path.
func (s *GroupService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(api.GroupServiceCreateGroupProcedure, connect.NewUnaryHandler(api.GroupServiceCreateGroupProcedure, s.CreateGroup, opts...))
	mux.Handle(api.GroupServiceGetGroupProcedure, connect.NewUnaryHandler(api.GroupServiceGetGroupProcedure, s.GetGroup, opts...))
	mux.Handle(api.GroupServiceListGroupsProcedure, connect.NewUnaryHandler(api.GroupServiceListGroupsProcedure, s.ListGroups, opts...))
	mux.Handle(api.GroupServiceUpdateGroupProcedure, connect.NewUnaryHandler(api.GroupServiceUpdateGroupProcedure, s.UpdateGroup, opts...))
	mux.Handle(api.GroupServiceDeleteGroupProcedure, connect.NewUnaryHandler(api.GroupServiceDeleteGroupProcedure, s.DeleteGroup, opts...))
	mux.Handle(api.GroupServiceAddMemberProcedure, connect.NewUnaryHandler(api.GroupServiceAddMemberProcedure, s.AddMember, opts...))
	mux.Handle(api.GroupServiceRemoveMemberProcedure, connect.NewUnaryHandler(api.GroupServiceRemoveMemberProcedure, s.RemoveMember, opts...))
	return "/" + api.GroupServiceName + "/", mux
}

// CreateGroup creates a group owned by the requester and adds the listed
// members in the same transaction.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	userID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.MemberIDs),
	)

	users, err := s.store.GetUsersByIDs(ctx, req.Msg.MemberIDs)
	if err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	for _, id := range req.Msg.MemberIDs {
		if users[id] == nil {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("user %s not found", id))
		}
	}

	group := &models.Group{
		Name:        req.Msg.Name,
		Description: req.Msg.Description,
		CreatorID:   userID,
	}
	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		if err := tx.CreateGroup(ctx, group); err != nil {
			return err
		}
		for _, id := range req.Msg.MemberIDs {
			if err := tx.AddGroupMember(ctx, &models.Membership{GroupID: group.ID, UserID: id}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	members, err := s.store.GetGroupMembers(ctx, group.ID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Group created", "group_id", group.ID)
	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group, members)}), nil
}

// GetGroup retrieves a group the requester belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	s.logger.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	members, err := s.store.GetGroupMembers(ctx, group.ID)
	if err != nil {
		s.logger.Error("GetGroup failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(group, members)}), nil
}

// ListGroups lists the requester's groups, newest first.
func (s *GroupService) ListGroups(ctx context.Context, _ *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ListGroups request received", "user_id", userID)

	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		s.logger.Error("ListGroups failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	out := make([]api.Group, len(groups))
	for i, g := range groups {
		members, err := s.store.GetGroupMembers(ctx, g.ID)
		if err != nil {
			s.logger.Error("ListGroups failed", "group_id", g.ID, "error", err)
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		out[i] = toAPIGroup(g, members)
	}

	s.logger.Info("ListGroups successful", "count", len(out))
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// UpdateGroup renames a group or changes its description. Any member may edit.
func (s *GroupService) UpdateGroup(ctx context.Context, req *connect.Request[api.UpdateGroupRequest]) (*connect.Response[api.UpdateGroupResponse], error) {
	s.logger.Info("UpdateGroup request received", "group_id", req.Msg.GroupID)

	group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	group.Name = req.Msg.Name
	group.Description = req.Msg.Description
	if err := s.store.UpdateGroup(ctx, group); err != nil {
		s.logger.Error("UpdateGroup failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	members, err := s.store.GetGroupMembers(ctx, group.ID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&api.UpdateGroupResponse{Group: toAPIGroup(group, members)}), nil
}

// DeleteGroup removes a group with its whole expense history. Only the
// creator may delete, and only once every balance is settled.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error) {
	s.logger.Info("DeleteGroup request received", "group_id", req.Msg.GroupID)

	group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	userID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	if userID != group.CreatorID {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("only the group creator can delete group %s", group.ID))
	}

	balances, err := s.balances.GroupBalances(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	for user, balance := range balances {
		if !calculator.NearlyZero(balance) {
			return nil, connect.NewError(connect.CodeFailedPrecondition,
				fmt.Errorf("group has unsettled balances: user %s at %s", user, calculator.RoundCents(balance).StringFixed(calculator.CentPlaces)))
		}
	}

	deleted, err := s.store.DeleteGroup(ctx, group.ID)
	if err != nil {
		s.logger.Error("DeleteGroup failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Group deleted", "group_id", group.ID, "requester_id", userID)
	return connect.NewResponse(&api.DeleteGroupResponse{Deleted: deleted}), nil
}

// AddMember adds an existing user to a group. Any member may invite.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error) {
	s.logger.Info("AddMember request received", "group_id", req.Msg.GroupID, "user_id", req.Msg.UserID)

	group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, req.Msg.UserID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if user == nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("user %s not found", req.Msg.UserID))
	}

	if err := s.store.AddGroupMember(ctx, &models.Membership{GroupID: group.ID, UserID: user.ID}); err != nil {
		s.logger.Error("AddMember failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	members, err := s.store.GetGroupMembers(ctx, group.ID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&api.AddMemberResponse{Group: toAPIGroup(group, members)}), nil
}

// RemoveMember drops a membership. The creator cannot be removed, and neither
// can a member whose group balance is not settled.
func (s *GroupService) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error) {
	s.logger.Info("RemoveMember request received", "group_id", req.Msg.GroupID, "user_id", req.Msg.UserID)

	group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	if req.Msg.UserID == group.CreatorID {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("group creator cannot be removed"))
	}

	balances, err := s.balances.GroupBalances(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if balance := balances[req.Msg.UserID]; !calculator.NearlyZero(balance) {
		return nil, connect.NewError(connect.CodeFailedPrecondition,
			fmt.Errorf("user %s has an unsettled balance of %s", req.Msg.UserID, calculator.RoundCents(balance).StringFixed(calculator.CentPlaces)))
	}

	removed, err := s.store.RemoveGroupMember(ctx, group.ID, req.Msg.UserID)
	if err != nil {
		s.logger.Error("RemoveMember failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&api.RemoveMemberResponse{Removed: removed}), nil
}

// memberGroup loads a group and checks the requester belongs to it.
func (s *GroupService) memberGroup(ctx context.Context, groupID string) (*models.Group, error) {
	userID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if group == nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("group %s not found", groupID))
	}

	ok, err := s.store.IsUserInGroup(ctx, groupID, userID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if !ok {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("user %s is not a member of group %s", userID, groupID))
	}
	return group, nil
}
