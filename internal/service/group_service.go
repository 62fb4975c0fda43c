package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/dutch/internal/auth"
	"github.com/mmynk/dutch/internal/middleware"
	"github.com/mmynk/dutch/internal/models"
	"github.com/mmynk/dutch/internal/settlement"
	pb "github.com/mmynk/dutch/pkg/dutchrpc"
)

// GroupService implements the Connect GroupService
type GroupService struct {
	pb.UnimplementedGroupServiceHandler
	manager *settlement.Manager
	engine  *settlement.Engine
}

// NewGroupService creates a new GroupService on top of the lifecycle manager
// and the settlement engine it drives.
func NewGroupService(manager *settlement.Manager, engine *settlement.Engine) *GroupService {
	return &GroupService{manager: manager, engine: engine}
}

// CreateGroup creates a new group and returns its initial settlement.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[pb.CreateGroupRequest]) (*connect.Response[pb.CreateGroupResponse], error) {
	ownerID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
		"owner_id", ownerID,
	)

	res, err := s.manager.CreateGroup(ctx, ownerID, settlement.CreateGroupInput{
		Name:        req.Msg.Name,
		Members:     req.Msg.Members,
		TotalAmount: req.Msg.TotalAmount,
		Paid:        req.Msg.Paid,
	})
	if err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Group created", "group_id", res.Group.ID, "transfers_count", len(res.Transfers))

	return connect.NewResponse(&pb.CreateGroupResponse{
		Group:     toProtoGroup(res.Group),
		Transfers: toProtoTransfers(res.Transfers),
	}), nil
}

// Recompute recalculates and stores the settlement of a group.
func (s *GroupService) Recompute(ctx context.Context, req *connect.Request[pb.RecomputeRequest]) (*connect.Response[pb.RecomputeResponse], error) {
	ownerID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.GroupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group_id required"))
	}

	slog.Info("Recompute request received", "group_id", req.Msg.GroupID)

	transfers, err := s.engine.Recompute(ctx, ownerID, req.Msg.GroupID)
	if err != nil {
		slog.Error("Recompute failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&pb.RecomputeResponse{
		Transfers: toProtoTransfers(transfers),
	}), nil
}

// GetGroup retrieves a group with its members, balances and settlement.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[pb.GetGroupRequest]) (*connect.Response[pb.GetGroupResponse], error) {
	ownerID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	got, err := s.manager.GetGroupWithSettlement(ctx, ownerID, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	members := make([]*pb.Member, len(got.Members))
	for i, m := range got.Members {
		members[i] = &pb.Member{
			UserID:   m.UserID,
			Username: m.Username,
			Paid:     m.Paid,
			Balance:  m.Balance,
		}
	}

	slog.Info("GetGroup successful", "group_id", got.Group.ID, "name", got.Group.Name)

	return connect.NewResponse(&pb.GetGroupResponse{
		Group:     toProtoGroup(got.Group),
		Members:   members,
		Transfers: toProtoTransfers(got.Transfers),
	}), nil
}

// ListGroups retrieves all groups owned by the caller.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[pb.ListGroupsRequest]) (*connect.Response[pb.ListGroupsResponse], error) {
	ownerID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("ListGroups request received", "owner_id", ownerID)

	groups, err := s.manager.ListGroups(ctx, ownerID)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, toConnectError(err)
	}

	protoGroups := make([]*pb.Group, len(groups))
	for i, group := range groups {
		protoGroups[i] = toProtoGroup(group)
	}

	slog.Info("ListGroups successful", "count", len(groups))

	return connect.NewResponse(&pb.ListGroupsResponse{
		Groups: protoGroups,
	}), nil
}

// UpdateGroup edits an existing group and recomputes its settlement when money changed.
func (s *GroupService) UpdateGroup(ctx context.Context, req *connect.Request[pb.UpdateGroupRequest]) (*connect.Response[pb.UpdateGroupResponse], error) {
	ownerID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("UpdateGroup request received",
		"group_id", req.Msg.GroupID,
		"new_members_count", len(req.Msg.NewMembers),
		"spending_count", len(req.Msg.MemberSpending),
	)

	in := settlement.UpdateGroupInput{
		GroupID:        req.Msg.GroupID,
		Name:           req.Msg.Name,
		TotalAmount:    req.Msg.TotalAmount,
		MemberSpending: req.Msg.MemberSpending,
	}
	for _, nm := range req.Msg.NewMembers {
		if nm == nil {
			continue
		}
		in.NewMembers = append(in.NewMembers, settlement.NewMember{Username: nm.Username, Spent: nm.Spent})
	}

	res, err := s.manager.UpdateGroup(ctx, ownerID, in)
	if err != nil {
		slog.Error("UpdateGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Group updated", "group_id", res.Group.ID, "recalculated", res.Recalculated)

	return connect.NewResponse(&pb.UpdateGroupResponse{
		Group:          toProtoGroup(res.Group),
		AddedMembers:   res.AddedMembers,
		SkippedMembers: res.SkippedMembers,
		Recalculated:   res.Recalculated,
		Transfers:      toProtoTransfers(res.Transfers),
	}), nil
}

// DeleteGroup removes a group by ID.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[pb.DeleteGroupRequest]) (*connect.Response[pb.DeleteGroupResponse], error) {
	ownerID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("DeleteGroup request received", "group_id", req.Msg.GroupID)

	if err := s.manager.DeleteGroup(ctx, ownerID, req.Msg.GroupID); err != nil {
		slog.Error("DeleteGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&pb.DeleteGroupResponse{}), nil
}

func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// toConnectError maps settlement errors to Connect codes. Storage faults are
// reported without their cause.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, settlement.ErrStorage):
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	case errors.Is(err, settlement.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, settlement.ErrDuplicateGroup):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, settlement.ErrInconsistentTotal),
		errors.Is(err, settlement.ErrPendingReconciliation):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, settlement.ErrInsufficientMembers),
		errors.Is(err, settlement.ErrInvalidTotal),
		errors.Is(err, settlement.ErrTotalMismatch),
		errors.Is(err, settlement.ErrUserNotFound),
		errors.Is(err, settlement.ErrMissingCreatorContribution),
		errors.Is(err, settlement.ErrInvalidInput):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
}

func toProtoGroup(group *models.Group) *pb.Group {
	return &pb.Group{
		ID:          group.ID,
		Name:        group.Name,
		OwnerID:     group.OwnerID,
		TotalAmount: group.TotalAmount,
		MemberCount: group.MemberCount,
		CreatedAt:   group.CreatedAt,
	}
}

func toProtoTransfers(transfers []models.Transfer) []*pb.Transfer {
	out := make([]*pb.Transfer, len(transfers))
	for i, t := range transfers {
		out[i] = &pb.Transfer{
			FromUserID: t.FromUserID,
			ToUserID:   t.ToUserID,
			Amount:     t.Amount,
		}
	}
	return out
}
