package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/receiptsplit/internal/api"
	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
)

// GroupService implements api.GroupServiceHandler.
type GroupService struct {
	store  storage.Store
	images ImageStore
	logger *slog.Logger
}

var _ api.GroupServiceHandler = (*GroupService)(nil)

// NewGroupService creates a new GroupService with the given storage backend.
// images holds receipt photos removed along with a deleted group; it may be nil.
func NewGroupService(store storage.Store, images ImageStore, logger *slog.Logger) *GroupService {
	return &GroupService{store: store, images: images, logger: logger}
}

// memberGroup loads a group and checks that the caller belongs to it.
func memberGroup(ctx context.Context, store storage.GroupStore, groupID string) (*models.Group, string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, "", err
	}
	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, "", err
	}
	if !group.HasMember(userID) {
		return nil, "", errNotMember
	}
	return group, userID, nil
}

// checkUsersExist rejects IDs that are not registered users.
func (s *GroupService) checkUsersExist(ctx context.Context, ids []string) error {
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown user %q", id))
		}
	}
	return nil
}

func (s *GroupService) groupResponse(ctx context.Context, group *models.Group) *connect.Response[api.GroupResponse] {
	names, err := s.store.GetUsersByIDs(ctx, group.MemberIDs())
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load member names", "group_id", group.ID, "error", err)
	}
	return connect.NewResponse(&api.GroupResponse{Group: toAPIGroup(group, names)})
}

// CreateGroup creates a group owned by the caller.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.GroupResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	var others []string
	for _, id := range req.Msg.MemberIDs {
		if id != userID && !slices.Contains(others, id) {
			others = append(others, id)
		}
	}
	if err := s.checkUsersExist(ctx, others); err != nil {
		return nil, toConnectError(ctx, s.logger, "CreateGroup", err)
	}

	group := &models.Group{
		Name:        req.Msg.Name,
		Description: req.Msg.Description,
		CreatedBy:   userID,
		Members:     []models.GroupMember{{UserID: userID, Role: models.RoleOwner}},
	}
	for _, id := range others {
		group.Members = append(group.Members, models.GroupMember{UserID: id, Role: models.RoleMember})
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, toConnectError(ctx, s.logger, "CreateGroup", err)
	}
	s.logger.InfoContext(ctx, "Group created", "group_id", group.ID, "members", len(group.Members))
	return s.groupResponse(ctx, group), nil
}

// GetGroup returns a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GroupResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	group, _, err := memberGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "GetGroup", err)
	}
	return s.groupResponse(ctx, group), nil
}

// UpdateGroup renames a group or changes its description. Any member may do this.
func (s *GroupService) UpdateGroup(ctx context.Context, req *connect.Request[api.UpdateGroupRequest]) (*connect.Response[api.GroupResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	group, _, err := memberGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "UpdateGroup", err)
	}

	if req.Msg.Name != nil {
		name := strings.TrimSpace(*req.Msg.Name)
		if name == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("group name cannot be empty"))
		}
		group.Name = name
	}
	if req.Msg.Description != nil {
		group.Description = *req.Msg.Description
	}
	if err := s.store.UpdateGroup(ctx, group); err != nil {
		return nil, toConnectError(ctx, s.logger, "UpdateGroup", err)
	}
	s.logger.InfoContext(ctx, "Group updated", "group_id", group.ID)
	return s.groupResponse(ctx, group), nil
}

// ListGroups returns the caller's groups.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "ListGroups", err)
	}

	out := make([]api.Group, len(groups))
	for i, g := range groups {
		out[i] = toAPIGroup(g, nil)
	}
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// AddMembers adds registered users to a group. Any member may invite.
func (s *GroupService) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.GroupResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	if _, _, err := memberGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, toConnectError(ctx, s.logger, "AddMembers", err)
	}
	if err := s.checkUsersExist(ctx, req.Msg.MemberIDs); err != nil {
		return nil, toConnectError(ctx, s.logger, "AddMembers", err)
	}
	if err := s.store.AddGroupMembers(ctx, req.Msg.GroupID, req.Msg.MemberIDs); err != nil {
		return nil, toConnectError(ctx, s.logger, "AddMembers", err)
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "AddMembers", err)
	}
	return s.groupResponse(ctx, group), nil
}

// RemoveMember removes a member. Members may remove themselves; the owner may
// remove anyone but themselves.
func (s *GroupService) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.GroupResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	group, userID, err := memberGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "RemoveMember", err)
	}
	if req.Msg.MemberID == group.CreatedBy {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("the owner cannot leave the group; delete it instead"))
	}
	if req.Msg.MemberID != userID && userID != group.CreatedBy {
		return nil, toConnectError(ctx, s.logger, "RemoveMember", errNotOwner)
	}
	if err := s.store.RemoveGroupMember(ctx, group.ID, req.Msg.MemberID); err != nil {
		return nil, toConnectError(ctx, s.logger, "RemoveMember", err)
	}

	group, err = s.store.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "RemoveMember", err)
	}
	return s.groupResponse(ctx, group), nil
}

// DeleteGroup deletes a group and its receipts. Only the owner may do this.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	group, userID, err := memberGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "DeleteGroup", err)
	}
	if userID != group.CreatedBy {
		return nil, toConnectError(ctx, s.logger, "DeleteGroup", errNotOwner)
	}
	receipts, err := s.store.ListReceiptsByGroup(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "DeleteGroup", err)
	}
	if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
		return nil, toConnectError(ctx, s.logger, "DeleteGroup", err)
	}
	for _, r := range receipts {
		deleteImage(ctx, s.images, s.logger, r.ImageURL)
	}
	s.logger.InfoContext(ctx, "Group deleted", "group_id", group.ID, "user_id", userID, "receipts", len(receipts))
	return connect.NewResponse(&api.DeleteGroupResponse{}), nil
}

// GetGroupBalances nets every finalized receipt in the group into balances
// and suggested payments.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, err
	}
	group, _, err := memberGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "GetGroupBalances", err)
	}

	receipts, err := s.store.ListReceiptsByGroup(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "GetGroupBalances", err)
	}

	var finalized []calculator.ReceiptForBalance
	for _, r := range receipts {
		if r.Status != models.StatusFinalized {
			continue
		}
		rb := calculator.ReceiptForBalance{ReceiptID: r.ID, PayerID: r.CreatedBy}
		for _, p := range r.Participants {
			rb.Participants = append(rb.Participants, calculator.ParticipantOwed{
				MemberID: p.UserID,
				Amount:   p.Amount,
				Paid:     p.IsPaid,
			})
		}
		finalized = append(finalized, rb)
	}

	balances, debts, err := calculator.CalculateGroupBalances(finalized)
	if err != nil {
		return nil, toConnectError(ctx, s.logger, "GetGroupBalances", err)
	}

	resp := &api.GetGroupBalancesResponse{
		Balances: make([]api.MemberBalance, len(balances)),
		Debts:    make([]api.DebtEdge, len(debts)),
	}
	for i, b := range balances {
		resp.Balances[i] = api.MemberBalance{
			MemberID:   b.MemberID,
			NetBalance: toMoney(b.NetBalance),
			TotalPaid:  toMoney(b.TotalPaid),
			TotalOwed:  toMoney(b.TotalOwed),
		}
	}
	for i, d := range debts {
		resp.Debts[i] = api.DebtEdge{From: d.From, To: d.To, Amount: toMoney(d.Amount)}
	}
	return connect.NewResponse(resp), nil
}
