package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/dmitrijs2005/mitrasign/internal/common"
	"github.com/dmitrijs2005/mitrasign/internal/logging"
	"github.com/dmitrijs2005/mitrasign/internal/server/models"
)

type fakeResolver struct {
	err    error
	gotIDs []string
}

func (f *fakeResolver) Resolve(_ context.Context, id string) (*models.Verification, error) {
	f.gotIDs = append(f.gotIDs, id)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Verification{
		ID:             id,
		Subject:        "Thesis",
		ClassName:      "Final",
		DateSigned:     "17/10/2026",
		SignerFullName: "Ada Lovelace",
		SignerKnown:    true,
	}, nil
}

// startBufconn serves s over an in-memory listener and returns a client
// connection to it.
func startBufconn(t *testing.T, s *GRPCServer) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return conn
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Nop{}, &fakeResolver{}, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop{}, &fakeResolver{}, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}

func TestVerify_OverBufconn(t *testing.T) {
	res := &fakeResolver{}
	conn := startBufconn(t, NewGRPCServer("bufnet", logging.Nop{}, res, nil, time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := NewVerificationClient(conn).Verify(ctx, "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}

	fields := out.AsMap()
	if fields["verified"] != true {
		t.Fatalf("verified = %v, want true", fields["verified"])
	}
	if fields["signer_full_name"] != "Ada Lovelace" {
		t.Fatalf("signer_full_name = %v", fields["signer_full_name"])
	}
	if fields["date_signed"] != "17/10/2026" {
		t.Fatalf("date_signed = %v", fields["date_signed"])
	}
	if len(res.gotIDs) != 1 || res.gotIDs[0] != "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa" {
		t.Fatalf("resolver got %v", res.gotIDs)
	}
}

func TestVerify_ErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", common.ErrorNotFound, codes.NotFound},
		{"transient", fmt.Errorf("%w: db error: %w", common.ErrorTransient, errors.New("reset")), codes.Unavailable},
		{"unexpected", errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := startBufconn(t, NewGRPCServer("bufnet", logging.Nop{}, &fakeResolver{err: tt.err}, nil, time.Second))

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			_, err := NewVerificationClient(conn).Verify(ctx, "x")
			if got := status.Code(err); got != tt.want {
				t.Fatalf("code = %v, want %v (err=%v)", got, tt.want, err)
			}
		})
	}
}

func TestHealth_Serving(t *testing.T) {
	conn := startBufconn(t, NewGRPCServer("bufnet", logging.Nop{}, &fakeResolver{}, nil, time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: "mitrasign.v1.VerificationService"})
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.GetStatus())
	}
}
