package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "codesnap.v1.CodeSnap"

const (
	methodExtract   = "/" + ServiceName + "/Extract"
	methodExplain   = "/" + ServiceName + "/Explain"
	methodScore     = "/" + ServiceName + "/Score"
	methodAnalyze   = "/" + ServiceName + "/Analyze"
	methodListScans = "/" + ServiceName + "/ListScans"
	methodGetScan   = "/" + ServiceName + "/GetScan"
)

// CodeSnapServer is the server API for the CodeSnap service. Messages are
// protobuf well-known types so no generated code is needed.
type CodeSnapServer interface {
	// Extract runs the provider chain on raw image bytes.
	Extract(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	// Explain explains a code snippet.
	Explain(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	// Score returns complexity metrics of a code snippet.
	Score(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// Analyze extracts, explains, scores and records an image.
	Analyze(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	// ListScans returns scan history; accepts {limit, from, to}.
	ListScans(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetScan returns one recorded scan by id.
	GetScan(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterCodeSnapServer registers srv on s.
func RegisterCodeSnapServer(s grpc.ServiceRegistrar, srv CodeSnapServer) {
	s.RegisterService(&CodeSnapServiceDesc, srv)
}

// CodeSnapServiceDesc is the grpc.ServiceDesc for the CodeSnap service.
var CodeSnapServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CodeSnapServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
		{MethodName: "Explain", Handler: explainHandler},
		{MethodName: "Score", Handler: scoreHandler},
		{MethodName: "Analyze", Handler: analyzeHandler},
		{MethodName: "ListScans", Handler: listScansHandler},
		{MethodName: "GetScan", Handler: getScanHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "codesnap/v1/codesnap.proto",
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodeSnapServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodExtract}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CodeSnapServer).Extract(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func explainHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodeSnapServer).Explain(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodExplain}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CodeSnapServer).Explain(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func scoreHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodeSnapServer).Score(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodScore}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CodeSnapServer).Score(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func analyzeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodeSnapServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodAnalyze}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CodeSnapServer).Analyze(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func listScansHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodeSnapServer).ListScans(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListScans}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CodeSnapServer).ListScans(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getScanHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodeSnapServer).GetScan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetScan}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CodeSnapServer).GetScan(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Client is a thin client for the CodeSnap service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) Extract(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodExtract, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Explain(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, methodExplain, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Score(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodScore, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Analyze(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodAnalyze, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListScans(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListScans, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetScan(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetScan, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
