package service

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "deconfliction.v1.DeconflictionService"

const (
	MethodRegisterMission = "RegisterMission"
	MethodGetMission      = "GetMission"
	MethodListMissions    = "ListMissions"
	MethodDeleteMission   = "DeleteMission"
	MethodClearMissions   = "ClearMissions"
	MethodVerifyMission   = "VerifyMission"
	MethodPositionAt      = "PositionAt"
	MethodClosestApproach = "ClosestApproach"
)

// DeconflictionServer is the server API for the deconfliction service.
type DeconflictionServer interface {
	RegisterMission(context.Context, *RegisterMissionRequest) (*MissionResponse, error)
	GetMission(context.Context, *MissionRequest) (*MissionResponse, error)
	ListMissions(context.Context, *ListMissionsRequest) (*ListMissionsResponse, error)
	DeleteMission(context.Context, *MissionRequest) (*Empty, error)
	ClearMissions(context.Context, *Empty) (*Empty, error)
	VerifyMission(context.Context, *VerifyMissionRequest) (*VerifyMissionResponse, error)
	PositionAt(context.Context, *PositionRequest) (*PositionResponse, error)
	ClosestApproach(context.Context, *ApproachRequest) (*ApproachResponse, error)
}

// RegisterDeconflictionServer registers srv on s. The server must be created
// with grpc.ForceServerCodec(Codec()) or clients must use the json
// content-subtype.
func RegisterDeconflictionServer(s grpc.ServiceRegistrar, srv DeconflictionServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the deconfliction service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DeconflictionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodRegisterMission, Handler: unaryHandler(MethodRegisterMission, DeconflictionServer.RegisterMission)},
		{MethodName: MethodGetMission, Handler: unaryHandler(MethodGetMission, DeconflictionServer.GetMission)},
		{MethodName: MethodListMissions, Handler: unaryHandler(MethodListMissions, DeconflictionServer.ListMissions)},
		{MethodName: MethodDeleteMission, Handler: unaryHandler(MethodDeleteMission, DeconflictionServer.DeleteMission)},
		{MethodName: MethodClearMissions, Handler: unaryHandler(MethodClearMissions, DeconflictionServer.ClearMissions)},
		{MethodName: MethodVerifyMission, Handler: unaryHandler(MethodVerifyMission, DeconflictionServer.VerifyMission)},
		{MethodName: MethodPositionAt, Handler: unaryHandler(MethodPositionAt, DeconflictionServer.PositionAt)},
		{MethodName: MethodClosestApproach, Handler: unaryHandler(MethodClosestApproach, DeconflictionServer.ClosestApproach)},
	},
	Streams: []grpc.StreamDesc{},
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryHandler adapts a typed server method to grpc.MethodHandler, running it
// through the server's interceptor chain when one is installed.
func unaryHandler[Req, Resp any](method string, call func(DeconflictionServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	name := fullMethod(method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(DeconflictionServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*Req))
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: name}, handler)
	}
}
