package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/confidence-gate/internal/engine"
	"github.com/danielpatrickdp/confidence-gate/internal/event"
)

// #region client

// Client wraps the gRPC connection to a running daemon.
type Client struct {
	conn grpc.ClientConnInterface
	owns *grpc.ClientConn
}

// NewClient connects to the daemon at addr.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, owns: conn}, nil
}

// NewClientWithConn wraps an injected connection. Used for testing over an
// in-memory listener.
func NewClientWithConn(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Close shuts down an owned connection.
func (c *Client) Close() error {
	if c.owns == nil {
		return nil
	}
	return c.owns.Close()
}

// #endregion client

// #region invoke

func (c *Client) invoke(ctx context.Context, method string, req interface{}, out interface{}) error {
	reqStruct, err := toStruct(req)
	if err != nil {
		return err
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fmt.Sprintf("/%s/%s", ServiceName, method), reqStruct, resp); err != nil {
		return fmt.Errorf("%s rpc: %w", method, err)
	}
	return fromStruct(resp, out)
}

// #endregion invoke

// #region methods

// Evaluate submits one event for evaluation.
func (c *Client) Evaluate(ctx context.Context, ev event.Event) (engine.HostDecision, error) {
	var out engine.HostDecision
	if err := c.invoke(ctx, "Evaluate", ev, &out); err != nil {
		return engine.HostDecision{}, err
	}
	return out, nil
}

// Dispute records a false-positive claim; returns the ledger ID.
func (c *Client) Dispute(ctx context.Context, signalName, reason string) (string, error) {
	var out struct {
		DisputeID string `json:"dispute_id"`
	}
	req := map[string]string{"signal": signalName, "reason": reason}
	if err := c.invoke(ctx, "Dispute", req, &out); err != nil {
		return "", err
	}
	return out.DisputeID, nil
}

// Reset wipes the daemon's session.
func (c *Client) Reset(ctx context.Context, reason string) error {
	var out struct {
		Reset bool `json:"reset"`
	}
	return c.invoke(ctx, "Reset", map[string]string{"reason": reason}, &out)
}

// StatusInfo is the daemon's session snapshot.
type StatusInfo struct {
	SessionID   string  `json:"session_id"`
	Score       int     `json:"score"`
	Turn        int     `json:"turn"`
	Tier        string  `json:"tier"`
	StreakCount int     `json:"streak_count"`
	StreakMult  float64 `json:"streak_mult"`
}

// Status fetches the current snapshot.
func (c *Client) Status(ctx context.Context) (StatusInfo, error) {
	var out StatusInfo
	if err := c.invoke(ctx, "Status", map[string]string{}, &out); err != nil {
		return StatusInfo{}, err
	}
	return out, nil
}

// #endregion methods

// #region timeout

// DefaultCallTimeout bounds daemon calls from the CLI.
const DefaultCallTimeout = 10 * time.Second

// #endregion timeout
