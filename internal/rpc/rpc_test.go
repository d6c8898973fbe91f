package rpc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/danielpatrickdp/confidence-gate/internal/engine"
	"github.com/danielpatrickdp/confidence-gate/internal/event"
	"github.com/danielpatrickdp/confidence-gate/internal/session"
	"github.com/danielpatrickdp/confidence-gate/internal/signal"
	"github.com/danielpatrickdp/confidence-gate/internal/tier"
)

func testClient(t *testing.T) *Client {
	t.Helper()

	store, err := session.Open(filepath.Join(t.TempDir(), "confidence.db"), session.DefaultConfig())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	resolver, err := tier.NewResolver(tier.DefaultTiers())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	eng := engine.New(signal.Default(), resolver, engine.DefaultConfig())

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterEngineServer(srv, NewServer(store, eng, zap.NewNop()))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewClientWithConn(conn)
}

func TestEvaluateRoundTrip(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	dec, err := client.Evaluate(ctx, event.Event{
		Tool:      "bash",
		Status:    event.StatusFailure,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if dec.NewScore != 80 { // 85 - 5 for tool_failure
		t.Fatalf("score = %d, want 80", dec.NewScore)
	}
	if dec.Decision != "allow" || dec.Tier != "WORKING" {
		t.Fatalf("decision = %+v", dec)
	}
	var fired bool
	for _, f := range dec.FiredSignals {
		if f.Name == "tool_failure" && f.Delta == -5 {
			fired = true
		}
	}
	if !fired {
		t.Fatalf("fired signals = %+v, want tool_failure", dec.FiredSignals)
	}
}

func TestDisputeStatusReset(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	if _, err := client.Evaluate(ctx, event.Event{
		Tool:      "bash",
		Status:    event.StatusFailure,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	id, err := client.Dispute(ctx, "tool_failure", "network flake")
	if err != nil {
		t.Fatalf("Dispute: %v", err)
	}
	if id == "" {
		t.Fatal("expected a dispute id")
	}

	info, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if info.Score != 80 || info.Turn != 1 {
		t.Fatalf("status = %+v, want score 80 turn 1", info)
	}
	if info.Tier != "WORKING" {
		t.Fatalf("tier = %s, want WORKING", info.Tier)
	}

	if err := client.Reset(ctx, "test reset"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	info, err = client.Status(ctx)
	if err != nil {
		t.Fatalf("Status after reset: %v", err)
	}
	if info.Score != 85 || info.Turn != 0 {
		t.Fatalf("status after reset = %+v, want fresh", info)
	}
}

func TestDisputeRequiresSignal(t *testing.T) {
	client := testClient(t)
	if _, err := client.Dispute(context.Background(), "", "no signal named"); err == nil {
		t.Fatal("expected error for empty signal name")
	}
}

func TestPayloadCodec(t *testing.T) {
	in := engine.HostDecision{
		NewScore:     42,
		Tier:         "HYPOTHESIS",
		Decision:     "deny",
		FiredSignals: []engine.FiredSignal{{Name: "test_failure", Delta: -7}},
		Reason:       "tier HYPOTHESIS does not permit workspace_write",
	}
	st, err := toStruct(in)
	if err != nil {
		t.Fatalf("toStruct: %v", err)
	}
	var out engine.HostDecision
	if err := fromStruct(st, &out); err != nil {
		t.Fatalf("fromStruct: %v", err)
	}
	if out.NewScore != in.NewScore || out.Tier != in.Tier || out.Reason != in.Reason {
		t.Fatalf("round trip = %+v", out)
	}
	if len(out.FiredSignals) != 1 || out.FiredSignals[0].Name != "test_failure" {
		t.Fatalf("fired = %+v", out.FiredSignals)
	}

	if _, err := toStruct(42); err == nil {
		t.Fatal("expected error for non-object payload")
	}
	if err := fromStruct(nil, &out); err == nil {
		t.Fatal("expected error for nil payload")
	}
}
