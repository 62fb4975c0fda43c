package dutchrpc

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// GroupServiceName is the fully-qualified name of the GroupService service.
	GroupServiceName = "dutch.v1.GroupService"
)

// Procedure paths of GroupService, as they appear in the URL.
const (
	GroupServiceCreateGroupProcedure = "/dutch.v1.GroupService/CreateGroup"
	GroupServiceRecomputeProcedure   = "/dutch.v1.GroupService/Recompute"
	GroupServiceGetGroupProcedure    = "/dutch.v1.GroupService/GetGroup"
	GroupServiceListGroupsProcedure  = "/dutch.v1.GroupService/ListGroups"
	GroupServiceUpdateGroupProcedure = "/dutch.v1.GroupService/UpdateGroup"
	GroupServiceDeleteGroupProcedure = "/dutch.v1.GroupService/DeleteGroup"
)

// GroupServiceClient is a client for the dutch.v1.GroupService service.
type GroupServiceClient interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	Recompute(context.Context, *connect.Request[RecomputeRequest]) (*connect.Response[RecomputeResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	UpdateGroup(context.Context, *connect.Request[UpdateGroupRequest]) (*connect.Response[UpdateGroupResponse], error)
	DeleteGroup(context.Context, *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error)
}

// NewGroupServiceClient constructs a client for the dutch.v1.GroupService service.
// baseURL is the server root, for example http://localhost:8080.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &groupServiceClient{
		createGroup: connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		recompute:   connect.NewClient[RecomputeRequest, RecomputeResponse](httpClient, baseURL+GroupServiceRecomputeProcedure, opts...),
		getGroup:    connect.NewClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups:  connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		updateGroup: connect.NewClient[UpdateGroupRequest, UpdateGroupResponse](httpClient, baseURL+GroupServiceUpdateGroupProcedure, opts...),
		deleteGroup: connect.NewClient[DeleteGroupRequest, DeleteGroupResponse](httpClient, baseURL+GroupServiceDeleteGroupProcedure, opts...),
	}
}

type groupServiceClient struct {
	createGroup *connect.Client[CreateGroupRequest, CreateGroupResponse]
	recompute   *connect.Client[RecomputeRequest, RecomputeResponse]
	getGroup    *connect.Client[GetGroupRequest, GetGroupResponse]
	listGroups  *connect.Client[ListGroupsRequest, ListGroupsResponse]
	updateGroup *connect.Client[UpdateGroupRequest, UpdateGroupResponse]
	deleteGroup *connect.Client[DeleteGroupRequest, DeleteGroupResponse]
}

func (c *groupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) Recompute(ctx context.Context, req *connect.Request[RecomputeRequest]) (*connect.Response[RecomputeResponse], error) {
	return c.recompute.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *groupServiceClient) UpdateGroup(ctx context.Context, req *connect.Request[UpdateGroupRequest]) (*connect.Response[UpdateGroupResponse], error) {
	return c.updateGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}

// GroupServiceHandler is an implementation of the dutch.v1.GroupService service.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	Recompute(context.Context, *connect.Request[RecomputeRequest]) (*connect.Response[RecomputeResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	UpdateGroup(context.Context, *connect.Request[UpdateGroupRequest]) (*connect.Response[UpdateGroupResponse], error)
	DeleteGroup(context.Context, *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error)
}

// NewGroupServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	createGroup := connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...)
	recompute := connect.NewUnaryHandler(GroupServiceRecomputeProcedure, svc.Recompute, opts...)
	getGroup := connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...)
	listGroups := connect.NewUnaryHandler(GroupServiceListGroupsProcedure, svc.ListGroups, opts...)
	updateGroup := connect.NewUnaryHandler(GroupServiceUpdateGroupProcedure, svc.UpdateGroup, opts...)
	deleteGroup := connect.NewUnaryHandler(GroupServiceDeleteGroupProcedure, svc.DeleteGroup, opts...)
	return "/" + GroupServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case GroupServiceCreateGroupProcedure:
			createGroup.ServeHTTP(w, r)
		case GroupServiceRecomputeProcedure:
			recompute.ServeHTTP(w, r)
		case GroupServiceGetGroupProcedure:
			getGroup.ServeHTTP(w, r)
		case GroupServiceListGroupsProcedure:
			listGroups.ServeHTTP(w, r)
		case GroupServiceUpdateGroupProcedure:
			updateGroup.ServeHTTP(w, r)
		case GroupServiceDeleteGroupProcedure:
			deleteGroup.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedGroupServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedGroupServiceHandler struct{}

func (UnimplementedGroupServiceHandler) CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("dutch.v1.GroupService.CreateGroup is not implemented"))
}

func (UnimplementedGroupServiceHandler) Recompute(context.Context, *connect.Request[RecomputeRequest]) (*connect.Response[RecomputeResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("dutch.v1.GroupService.Recompute is not implemented"))
}

func (UnimplementedGroupServiceHandler) GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("dutch.v1.GroupService.GetGroup is not implemented"))
}

func (UnimplementedGroupServiceHandler) ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("dutch.v1.GroupService.ListGroups is not implemented"))
}

func (UnimplementedGroupServiceHandler) UpdateGroup(context.Context, *connect.Request[UpdateGroupRequest]) (*connect.Response[UpdateGroupResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("dutch.v1.GroupService.UpdateGroup is not implemented"))
}

func (UnimplementedGroupServiceHandler) DeleteGroup(context.Context, *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("dutch.v1.GroupService.DeleteGroup is not implemented"))
}
