package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	AuthServiceName    = "receiptsplit.v1.AuthService"
	GroupServiceName   = "receiptsplit.v1.GroupService"
	ReceiptServiceName = "receiptsplit.v1.ReceiptService"
)

const (
	AuthServiceRegisterProcedure       = "/receiptsplit.v1.AuthService/Register"
	AuthServiceLoginProcedure          = "/receiptsplit.v1.AuthService/Login"
	AuthServiceGetCurrentUserProcedure = "/receiptsplit.v1.AuthService/GetCurrentUser"

	GroupServiceCreateGroupProcedure      = "/receiptsplit.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure         = "/receiptsplit.v1.GroupService/GetGroup"
	GroupServiceUpdateGroupProcedure      = "/receiptsplit.v1.GroupService/UpdateGroup"
	GroupServiceListGroupsProcedure       = "/receiptsplit.v1.GroupService/ListGroups"
	GroupServiceAddMembersProcedure       = "/receiptsplit.v1.GroupService/AddMembers"
	GroupServiceRemoveMemberProcedure     = "/receiptsplit.v1.GroupService/RemoveMember"
	GroupServiceDeleteGroupProcedure      = "/receiptsplit.v1.GroupService/DeleteGroup"
	GroupServiceGetGroupBalancesProcedure = "/receiptsplit.v1.GroupService/GetGroupBalances"

	ReceiptServiceCreateReceiptProcedure   = "/receiptsplit.v1.ReceiptService/CreateReceipt"
	ReceiptServiceGetReceiptProcedure      = "/receiptsplit.v1.ReceiptService/GetReceipt"
	ReceiptServiceListReceiptsProcedure    = "/receiptsplit.v1.ReceiptService/ListReceipts"
	ReceiptServiceUpdateReceiptProcedure   = "/receiptsplit.v1.ReceiptService/UpdateReceipt"
	ReceiptServiceDeleteReceiptProcedure   = "/receiptsplit.v1.ReceiptService/DeleteReceipt"
	ReceiptServiceAddItemsProcedure        = "/receiptsplit.v1.ReceiptService/AddItems"
	ReceiptServiceUpdateItemProcedure      = "/receiptsplit.v1.ReceiptService/UpdateItem"
	ReceiptServiceDeleteItemProcedure      = "/receiptsplit.v1.ReceiptService/DeleteItem"
	ReceiptServiceAssignItemProcedure      = "/receiptsplit.v1.ReceiptService/AssignItem"
	ReceiptServiceShareItemProcedure       = "/receiptsplit.v1.ReceiptService/ShareItem"
	ReceiptServiceUnassignItemProcedure    = "/receiptsplit.v1.ReceiptService/UnassignItem"
	ReceiptServiceComputeSplitProcedure    = "/receiptsplit.v1.ReceiptService/ComputeSplit"
	ReceiptServicePreviewSplitProcedure    = "/receiptsplit.v1.ReceiptService/PreviewSplit"
	ReceiptServiceFinalizeReceiptProcedure = "/receiptsplit.v1.ReceiptService/FinalizeReceipt"
	ReceiptServiceMarkPaidProcedure        = "/receiptsplit.v1.ReceiptService/MarkPaid"
	ReceiptServiceUploadImageProcedure     = "/receiptsplit.v1.ReceiptService/UploadImage"
)

// AuthServiceHandler is implemented by the auth service.
type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error)
	GetCurrentUser(context.Context, *connect.Request[GetCurrentUserRequest]) (*connect.Response[UserResponse], error)
}

// GroupServiceHandler is implemented by the group service.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error)
	UpdateGroup(context.Context, *connect.Request[UpdateGroupRequest]) (*connect.Response[GroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	AddMembers(context.Context, *connect.Request[AddMembersRequest]) (*connect.Response[GroupResponse], error)
	RemoveMember(context.Context, *connect.Request[RemoveMemberRequest]) (*connect.Response[GroupResponse], error)
	DeleteGroup(context.Context, *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
}

// ReceiptServiceHandler is implemented by the receipt service.
type ReceiptServiceHandler interface {
	CreateReceipt(context.Context, *connect.Request[CreateReceiptRequest]) (*connect.Response[ReceiptResponse], error)
	GetReceipt(context.Context, *connect.Request[GetReceiptRequest]) (*connect.Response[ReceiptResponse], error)
	ListReceipts(context.Context, *connect.Request[ListReceiptsRequest]) (*connect.Response[ListReceiptsResponse], error)
	UpdateReceipt(context.Context, *connect.Request[UpdateReceiptRequest]) (*connect.Response[ReceiptResponse], error)
	DeleteReceipt(context.Context, *connect.Request[DeleteReceiptRequest]) (*connect.Response[DeleteReceiptResponse], error)
	AddItems(context.Context, *connect.Request[AddItemsRequest]) (*connect.Response[ReceiptResponse], error)
	UpdateItem(context.Context, *connect.Request[UpdateItemRequest]) (*connect.Response[ReceiptResponse], error)
	DeleteItem(context.Context, *connect.Request[DeleteItemRequest]) (*connect.Response[ReceiptResponse], error)
	AssignItem(context.Context, *connect.Request[AssignItemRequest]) (*connect.Response[ReceiptResponse], error)
	ShareItem(context.Context, *connect.Request[ShareItemRequest]) (*connect.Response[ReceiptResponse], error)
	UnassignItem(context.Context, *connect.Request[UnassignItemRequest]) (*connect.Response[ReceiptResponse], error)
	ComputeSplit(context.Context, *connect.Request[ComputeSplitRequest]) (*connect.Response[SplitResponse], error)
	PreviewSplit(context.Context, *connect.Request[PreviewSplitRequest]) (*connect.Response[SplitResponse], error)
	FinalizeReceipt(context.Context, *connect.Request[FinalizeReceiptRequest]) (*connect.Response[ReceiptResponse], error)
	MarkPaid(context.Context, *connect.Request[MarkPaidRequest]) (*connect.Response[ReceiptResponse], error)
	UploadImage(context.Context, *connect.Request[UploadImageRequest]) (*connect.Response[ReceiptResponse], error)
}

// DefaultReadMaxBytes caps request bodies unless a handler option raises it.
const DefaultReadMaxBytes = 1 << 20

// ImageReadMaxBytes is the request size needed to upload an image of up to
// maxImage bytes: the base64 encoding in the JSON body plus room for the
// other fields.
func ImageReadMaxBytes(maxImage int64) int {
	return int((maxImage+2)/3*4) + 64<<10
}

// router collects unary handlers for one service under a shared prefix.
type router struct {
	mux  *http.ServeMux
	opts []connect.HandlerOption
}

func newRouter(opts []connect.HandlerOption) *router {
	return &router{
		mux:  http.NewServeMux(),
		opts: append([]connect.HandlerOption{codecOption, connect.WithReadMaxBytes(DefaultReadMaxBytes)}, opts...),
	}
}

func handle[Req, Res any](r *router, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error)) {
	r.mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, r.opts...))
}

func servicePath(name string) string { return "/" + name + "/" }

// NewAuthServiceHandler builds an HTTP handler for the auth service and
// returns the path to mount it on.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	r := newRouter(opts)
	handle(r, AuthServiceRegisterProcedure, svc.Register)
	handle(r, AuthServiceLoginProcedure, svc.Login)
	handle(r, AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser)
	return servicePath(AuthServiceName), r.mux
}

// NewGroupServiceHandler builds an HTTP handler for the group service.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	r := newRouter(opts)
	handle(r, GroupServiceCreateGroupProcedure, svc.CreateGroup)
	handle(r, GroupServiceGetGroupProcedure, svc.GetGroup)
	handle(r, GroupServiceUpdateGroupProcedure, svc.UpdateGroup)
	handle(r, GroupServiceListGroupsProcedure, svc.ListGroups)
	handle(r, GroupServiceAddMembersProcedure, svc.AddMembers)
	handle(r, GroupServiceRemoveMemberProcedure, svc.RemoveMember)
	handle(r, GroupServiceDeleteGroupProcedure, svc.DeleteGroup)
	handle(r, GroupServiceGetGroupBalancesProcedure, svc.GetGroupBalances)
	return servicePath(GroupServiceName), r.mux
}

// NewReceiptServiceHandler builds an HTTP handler for the receipt service.
func NewReceiptServiceHandler(svc ReceiptServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	r := newRouter(opts)
	handle(r, ReceiptServiceCreateReceiptProcedure, svc.CreateReceipt)
	handle(r, ReceiptServiceGetReceiptProcedure, svc.GetReceipt)
	handle(r, ReceiptServiceListReceiptsProcedure, svc.ListReceipts)
	handle(r, ReceiptServiceUpdateReceiptProcedure, svc.UpdateReceipt)
	handle(r, ReceiptServiceDeleteReceiptProcedure, svc.DeleteReceipt)
	handle(r, ReceiptServiceAddItemsProcedure, svc.AddItems)
	handle(r, ReceiptServiceUpdateItemProcedure, svc.UpdateItem)
	handle(r, ReceiptServiceDeleteItemProcedure, svc.DeleteItem)
	handle(r, ReceiptServiceAssignItemProcedure, svc.AssignItem)
	handle(r, ReceiptServiceShareItemProcedure, svc.ShareItem)
	handle(r, ReceiptServiceUnassignItemProcedure, svc.UnassignItem)
	handle(r, ReceiptServiceComputeSplitProcedure, svc.ComputeSplit)
	handle(r, ReceiptServicePreviewSplitProcedure, svc.PreviewSplit)
	handle(r, ReceiptServiceFinalizeReceiptProcedure, svc.FinalizeReceipt)
	handle(r, ReceiptServiceMarkPaidProcedure, svc.MarkPaid)
	handle(r, ReceiptServiceUploadImageProcedure, svc.UploadImage)
	return servicePath(ReceiptServiceName), r.mux
}

func newClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts []connect.ClientOption) *connect.Client[Req, Res] {
	opts = append([]connect.ClientOption{codecOption}, opts...)
	return connect.NewClient[Req, Res](httpClient, strings.TrimRight(baseURL, "/")+procedure, opts...)
}

// AuthServiceClient calls the auth service.
type AuthServiceClient struct {
	register       *connect.Client[RegisterRequest, AuthResponse]
	login          *connect.Client[LoginRequest, AuthResponse]
	getCurrentUser *connect.Client[GetCurrentUserRequest, UserResponse]
}

func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	return &AuthServiceClient{
		register:       newClient[RegisterRequest, AuthResponse](httpClient, baseURL, AuthServiceRegisterProcedure, opts),
		login:          newClient[LoginRequest, AuthResponse](httpClient, baseURL, AuthServiceLoginProcedure, opts),
		getCurrentUser: newClient[GetCurrentUserRequest, UserResponse](httpClient, baseURL, AuthServiceGetCurrentUserProcedure, opts),
	}
}

func (c *AuthServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[UserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

// GroupServiceClient calls the group service.
type GroupServiceClient struct {
	createGroup      *connect.Client[CreateGroupRequest, GroupResponse]
	getGroup         *connect.Client[GetGroupRequest, GroupResponse]
	updateGroup      *connect.Client[UpdateGroupRequest, GroupResponse]
	listGroups       *connect.Client[ListGroupsRequest, ListGroupsResponse]
	addMembers       *connect.Client[AddMembersRequest, GroupResponse]
	removeMember     *connect.Client[RemoveMemberRequest, GroupResponse]
	deleteGroup      *connect.Client[DeleteGroupRequest, DeleteGroupResponse]
	getGroupBalances *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
}

func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	return &GroupServiceClient{
		createGroup:      newClient[CreateGroupRequest, GroupResponse](httpClient, baseURL, GroupServiceCreateGroupProcedure, opts),
		getGroup:         newClient[GetGroupRequest, GroupResponse](httpClient, baseURL, GroupServiceGetGroupProcedure, opts),
		updateGroup:      newClient[UpdateGroupRequest, GroupResponse](httpClient, baseURL, GroupServiceUpdateGroupProcedure, opts),
		listGroups:       newClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL, GroupServiceListGroupsProcedure, opts),
		addMembers:       newClient[AddMembersRequest, GroupResponse](httpClient, baseURL, GroupServiceAddMembersProcedure, opts),
		removeMember:     newClient[RemoveMemberRequest, GroupResponse](httpClient, baseURL, GroupServiceRemoveMemberProcedure, opts),
		deleteGroup:      newClient[DeleteGroupRequest, DeleteGroupResponse](httpClient, baseURL, GroupServiceDeleteGroupProcedure, opts),
		getGroupBalances: newClient[GetGroupBalancesRequest, GetGroupBalancesResponse](httpClient, baseURL, GroupServiceGetGroupBalancesProcedure, opts),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) UpdateGroup(ctx context.Context, req *connect.Request[UpdateGroupRequest]) (*connect.Response[GroupResponse], error) {
	return c.updateGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddMembers(ctx context.Context, req *connect.Request[AddMembersRequest]) (*connect.Response[GroupResponse], error) {
	return c.addMembers.CallUnary(ctx, req)
}

func (c *GroupServiceClient) RemoveMember(ctx context.Context, req *connect.Request[RemoveMemberRequest]) (*connect.Response[GroupResponse], error) {
	return c.removeMember.CallUnary(ctx, req)
}

func (c *GroupServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

// ReceiptServiceClient calls the receipt service.
type ReceiptServiceClient struct {
	createReceipt   *connect.Client[CreateReceiptRequest, ReceiptResponse]
	getReceipt      *connect.Client[GetReceiptRequest, ReceiptResponse]
	listReceipts    *connect.Client[ListReceiptsRequest, ListReceiptsResponse]
	updateReceipt   *connect.Client[UpdateReceiptRequest, ReceiptResponse]
	deleteReceipt   *connect.Client[DeleteReceiptRequest, DeleteReceiptResponse]
	addItems        *connect.Client[AddItemsRequest, ReceiptResponse]
	updateItem      *connect.Client[UpdateItemRequest, ReceiptResponse]
	deleteItem      *connect.Client[DeleteItemRequest, ReceiptResponse]
	assignItem      *connect.Client[AssignItemRequest, ReceiptResponse]
	shareItem       *connect.Client[ShareItemRequest, ReceiptResponse]
	unassignItem    *connect.Client[UnassignItemRequest, ReceiptResponse]
	computeSplit    *connect.Client[ComputeSplitRequest, SplitResponse]
	previewSplit    *connect.Client[PreviewSplitRequest, SplitResponse]
	finalizeReceipt *connect.Client[FinalizeReceiptRequest, ReceiptResponse]
	markPaid        *connect.Client[MarkPaidRequest, ReceiptResponse]
	uploadImage     *connect.Client[UploadImageRequest, ReceiptResponse]
}

func NewReceiptServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ReceiptServiceClient {
	return &ReceiptServiceClient{
		createReceipt:   newClient[CreateReceiptRequest, ReceiptResponse](httpClient, baseURL, ReceiptServiceCreateReceiptProcedure, opts),
		getReceipt:      newClient[GetReceiptRequest, ReceiptResponse](httpClient, baseURL, ReceiptServiceGetReceiptProcedure, opts),
		listReceipts:    newClient[ListReceiptsRequest, ListReceiptsResponse](httpClient, baseURL, ReceiptServiceListReceiptsProcedure, opts),
		updateReceipt:   newClient[UpdateReceiptRequest, ReceiptResponse](httpClient, baseURL, ReceiptServiceUpdateReceiptProcedure, opts),
		deleteReceipt:   newClient[DeleteReceiptRequest, DeleteReceiptResponse](httpClient, baseURL, ReceiptServiceDeleteReceiptProcedure, opts),
		addItems:        newClient[AddItemsRequest, ReceiptResponse](httpClient, baseURL, ReceiptServiceAddItemsProcedure, opts),
		updateItem:      newClient[UpdateItemRequest, ReceiptResponse](httpClient, baseURL, ReceiptServiceUpdateItemProcedure, opts),
		deleteItem:      newClient[DeleteItemRequest, ReceiptResponse](httpClient, baseURL, ReceiptServiceDeleteItemProcedure, opts),
		assignItem:      newClient[AssignItemRequest, ReceiptResponse](httpClient, baseURL, ReceiptServiceAssignItemProcedure, opts),
		shareItem:       newClient[ShareItemRequest, ReceiptResponse](httpClient, baseURL, ReceiptServiceShareItemProcedure, opts),
		unassignItem:    newClient[UnassignItemRequest, ReceiptResponse](httpClient, baseURL, ReceiptServiceUnassignItemProcedure, opts),
		computeSplit:    newClient[ComputeSplitRequest, SplitResponse](httpClient, baseURL, ReceiptServiceComputeSplitProcedure, opts),
		previewSplit:    newClient[PreviewSplitRequest, SplitResponse](httpClient, baseURL, ReceiptServicePreviewSplitProcedure, opts),
		finalizeReceipt: newClient[FinalizeReceiptRequest, ReceiptResponse](httpClient, baseURL, ReceiptServiceFinalizeReceiptProcedure, opts),
		markPaid:        newClient[MarkPaidRequest, ReceiptResponse](httpClient, baseURL, ReceiptServiceMarkPaidProcedure, opts),
		uploadImage:     newClient[UploadImageRequest, ReceiptResponse](httpClient, baseURL, ReceiptServiceUploadImageProcedure, opts),
	}
}

func (c *ReceiptServiceClient) CreateReceipt(ctx context.Context, req *connect.Request[CreateReceiptRequest]) (*connect.Response[ReceiptResponse], error) {
	return c.createReceipt.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) GetReceipt(ctx context.Context, req *connect.Request[GetReceiptRequest]) (*connect.Response[ReceiptResponse], error) {
	return c.getReceipt.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) ListReceipts(ctx context.Context, req *connect.Request[ListReceiptsRequest]) (*connect.Response[ListReceiptsResponse], error) {
	return c.listReceipts.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) UpdateReceipt(ctx context.Context, req *connect.Request[UpdateReceiptRequest]) (*connect.Response[ReceiptResponse], error) {
	return c.updateReceipt.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) DeleteReceipt(ctx context.Context, req *connect.Request[DeleteReceiptRequest]) (*connect.Response[DeleteReceiptResponse], error) {
	return c.deleteReceipt.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) AddItems(ctx context.Context, req *connect.Request[AddItemsRequest]) (*connect.Response[ReceiptResponse], error) {
	return c.addItems.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) UpdateItem(ctx context.Context, req *connect.Request[UpdateItemRequest]) (*connect.Response[ReceiptResponse], error) {
	return c.updateItem.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) DeleteItem(ctx context.Context, req *connect.Request[DeleteItemRequest]) (*connect.Response[ReceiptResponse], error) {
	return c.deleteItem.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) AssignItem(ctx context.Context, req *connect.Request[AssignItemRequest]) (*connect.Response[ReceiptResponse], error) {
	return c.assignItem.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) ShareItem(ctx context.Context, req *connect.Request[ShareItemRequest]) (*connect.Response[ReceiptResponse], error) {
	return c.shareItem.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) UnassignItem(ctx context.Context, req *connect.Request[UnassignItemRequest]) (*connect.Response[ReceiptResponse], error) {
	return c.unassignItem.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) ComputeSplit(ctx context.Context, req *connect.Request[ComputeSplitRequest]) (*connect.Response[SplitResponse], error) {
	return c.computeSplit.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) PreviewSplit(ctx context.Context, req *connect.Request[PreviewSplitRequest]) (*connect.Response[SplitResponse], error) {
	return c.previewSplit.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) FinalizeReceipt(ctx context.Context, req *connect.Request[FinalizeReceiptRequest]) (*connect.Response[ReceiptResponse], error) {
	return c.finalizeReceipt.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) MarkPaid(ctx context.Context, req *connect.Request[MarkPaidRequest]) (*connect.Response[ReceiptResponse], error) {
	return c.markPaid.CallUnary(ctx, req)
}

func (c *ReceiptServiceClient) UploadImage(ctx context.Context, req *connect.Request[UploadImageRequest]) (*connect.Response[ReceiptResponse], error) {
	return c.uploadImage.CallUnary(ctx, req)
}
