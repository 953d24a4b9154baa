package service

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a typed client for the deconfliction service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc. Every call forces the JSON codec.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec())}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}

func (c *Client) RegisterMission(ctx context.Context, in *RegisterMissionRequest, opts ...grpc.CallOption) (*MissionResponse, error) {
	out := new(MissionResponse)
	if err := c.invoke(ctx, MethodRegisterMission, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetMission(ctx context.Context, in *MissionRequest, opts ...grpc.CallOption) (*MissionResponse, error) {
	out := new(MissionResponse)
	if err := c.invoke(ctx, MethodGetMission, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMissions(ctx context.Context, in *ListMissionsRequest, opts ...grpc.CallOption) (*ListMissionsResponse, error) {
	out := new(ListMissionsResponse)
	if err := c.invoke(ctx, MethodListMissions, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteMission(ctx context.Context, in *MissionRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, MethodDeleteMission, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ClearMissions(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, MethodClearMissions, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) VerifyMission(ctx context.Context, in *VerifyMissionRequest, opts ...grpc.CallOption) (*VerifyMissionResponse, error) {
	out := new(VerifyMissionResponse)
	if err := c.invoke(ctx, MethodVerifyMission, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PositionAt(ctx context.Context, in *PositionRequest, opts ...grpc.CallOption) (*PositionResponse, error) {
	out := new(PositionResponse)
	if err := c.invoke(ctx, MethodPositionAt, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ClosestApproach(ctx context.Context, in *ApproachRequest, opts ...grpc.CallOption) (*ApproachResponse, error) {
	out := new(ApproachResponse)
	if err := c.invoke(ctx, MethodClosestApproach, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
