package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/codesnap/constants"
)

// maxMessageBytes leaves headroom over the image cap for framing.
const maxMessageBytes = constants.MaxImageBytes + 1<<20

// NewGRPCServer registers the CodeSnap service, health and reflection.
func NewGRPCServer(svc CodeSnapServer, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{
		grpc.MaxRecvMsgSize(maxMessageBytes),
		grpc.MaxSendMsgSize(maxMessageBytes),
	}, opts...)
	s := grpc.NewServer(opts...)
	RegisterCodeSnapServer(s, svc)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	// reflection for grpcurl
	reflection.Register(s)
	return s, hs
}
