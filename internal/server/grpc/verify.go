package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/mitrasign/internal/common"
	"github.com/dmitrijs2005/mitrasign/internal/server/metrics"
)

// VerifyMethod is the full gRPC method name of Verify.
const VerifyMethod = "/mitrasign.v1.VerificationService/Verify"

// VerificationServer is implemented by GRPCServer.
type VerificationServer interface {
	Verify(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

var verificationServiceDesc = grpc.ServiceDesc{
	ServiceName: "mitrasign.v1.VerificationService",
	HandlerType: (*VerificationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Verify", Handler: verifyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mitrasign/v1/verification.proto",
}

func verifyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VerificationServer).Verify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: VerifyMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(VerificationServer).Verify(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Verify resolves req as a canonical id. Unknown ids yield codes.NotFound
// and store failures codes.Unavailable.
func (s *GRPCServer) Verify(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	v, err := s.resolver.Resolve(ctx, req.GetValue())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.Verifications.WithLabelValues("grpc", metrics.OutcomeNotFound).Inc()
			return nil, status.Error(codes.NotFound, "cannot_verify")
		}
		s.metrics.Verifications.WithLabelValues("grpc", metrics.OutcomeUnavailable).Inc()
		s.logger.Error(ctx, "verification failed", "error", err)
		return nil, grpcStatus(err)
	}

	s.metrics.Verifications.WithLabelValues("grpc", metrics.OutcomeVerified).Inc()
	return structpb.NewStruct(map[string]any{
		"verified":         true,
		"id":               v.ID,
		"subject":          v.Subject,
		"class_name":       v.ClassName,
		"date_signed":      v.DateSigned,
		"signer_full_name": v.SignerFullName,
		"signer_unit_name": v.SignerUnitName,
		"signer_known":     v.SignerKnown,
	})
}

// VerificationClient calls Verify over an existing connection.
type VerificationClient struct {
	cc grpc.ClientConnInterface
}

func NewVerificationClient(cc grpc.ClientConnInterface) *VerificationClient {
	return &VerificationClient{cc: cc}
}

func (c *VerificationClient) Verify(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, VerifyMethod, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
