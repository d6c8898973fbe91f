package rpc

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/confidence-gate/internal/engine"
	"github.com/danielpatrickdp/confidence-gate/internal/event"
	"github.com/danielpatrickdp/confidence-gate/internal/session"
)

// #region server

// Server implements EngineServer over the session store.
type Server struct {
	store *session.Store
	eng   *engine.Engine
	log   *zap.Logger
}

// NewServer wires the daemon service.
func NewServer(store *session.Store, eng *engine.Engine, log *zap.Logger) *Server {
	return &Server{store: store, eng: eng, log: log}
}

// #endregion server

// #region evaluate

// evaluateRequest mirrors the hook's stdin payload.
type evaluateRequest struct {
	Tool      string    `json:"tool"`
	Status    string    `json:"status"`
	ExitCode  int       `json:"exit_code"`
	Content   string    `json:"content"`
	Path      string    `json:"path"`
	HostTurn  int       `json:"turn"`
	Timestamp time.Time `json:"timestamp"`
}

// Evaluate runs one turn. A lock timeout does not become a transport error:
// the host gets an explicit deny payload, failing closed.
func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in evaluateRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	ev := event.Event{
		Tool:      in.Tool,
		Status:    event.Status(in.Status),
		ExitCode:  in.ExitCode,
		Content:   in.Content,
		Path:      in.Path,
		HostTurn:  in.HostTurn,
		Timestamp: in.Timestamp,
	}

	trace, err := s.store.EvaluateEvent(s.eng, ev)
	if errors.Is(err, session.ErrLockTimeout) {
		s.log.Warn("lock timeout, denying", zap.String("tool", ev.Tool))
		return toStruct(engine.HostDecision{
			Decision:     string(engine.DecisionDeny),
			FiredSignals: []engine.FiredSignal{},
			Reason:       "session lock unavailable within bound, failing closed",
		})
	}
	if err != nil {
		s.log.Error("evaluate failed", zap.Error(err))
		return nil, status.Errorf(codes.Internal, "evaluate: %v", err)
	}

	s.log.Debug("evaluated turn",
		zap.Int("turn", trace.Turn),
		zap.Int("score", trace.ScoreAfter),
		zap.String("tier", trace.Tier.Name),
		zap.String("decision", string(trace.Decision)),
	)
	return toStruct(trace.Host())
}

// #endregion evaluate

// #region dispute

type disputeRequest struct {
	Signal string `json:"signal"`
	Reason string `json:"reason"`
}

// Dispute appends a false-positive claim against a signal.
func (s *Server) Dispute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in disputeRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	if in.Signal == "" {
		return nil, status.Error(codes.InvalidArgument, "signal is required")
	}
	rec, err := s.store.RecordDispute(in.Signal, in.Reason)
	if errors.Is(err, session.ErrLockTimeout) {
		return nil, status.Error(codes.Unavailable, "session lock unavailable")
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "dispute: %v", err)
	}
	s.log.Info("dispute recorded", zap.String("signal", rec.Signal), zap.String("id", rec.DisputeID))
	return toStruct(map[string]interface{}{
		"dispute_id": rec.DisputeID,
		"signal":     rec.Signal,
		"created_at": rec.CreatedAt.Format(time.RFC3339Nano),
	})
}

// #endregion dispute

// #region reset

type resetRequest struct {
	Reason string `json:"reason"`
}

// Reset wipes the session back to defaults.
func (s *Server) Reset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in resetRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	reason := in.Reason
	if reason == "" {
		reason = "administrative reset via rpc"
	}
	if err := s.store.Reset(reason); err != nil {
		if errors.Is(err, session.ErrLockTimeout) {
			return nil, status.Error(codes.Unavailable, "session lock unavailable")
		}
		return nil, status.Errorf(codes.Internal, "reset: %v", err)
	}
	s.log.Info("session reset", zap.String("reason", reason))
	return toStruct(map[string]interface{}{"reset": true})
}

// #endregion reset

// #region status

// Status returns the current snapshot with the resolved tier.
func (s *Server) Status(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	st, err := s.store.GetStatus()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "status: %v", err)
	}
	resolved := s.eng.Resolver().Resolve(st.Score)
	return toStruct(map[string]interface{}{
		"session_id":   st.SessionID,
		"score":        st.Score,
		"turn":         st.Turn,
		"tier":         resolved.Name,
		"streak_count": st.StreakCount,
		"streak_mult":  st.StreakMult,
	})
}

// #endregion status

// #region serve

// Serve listens on addr and blocks until the server stops.
func Serve(addr string, store *session.Store, eng *engine.Engine, log *zap.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := grpc.NewServer()
	RegisterEngineServer(srv, NewServer(store, eng, log))
	log.Info("daemon listening", zap.String("addr", addr))
	return srv.Serve(lis)
}

// #endregion serve
