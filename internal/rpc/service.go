// Package rpc exposes the controller over gRPC for hosts that keep one
// long-lived daemon instead of spawning a process per event. Payloads are
// schemaless structpb structs carrying the same JSON shapes as the hook
// binary; the store's exclusive lock still serializes turns.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "confidence.v1.Engine"

// #region server-interface

// EngineServer is the daemon service surface. All four methods mutate or read
// the session store; Evaluate and Dispute and Reset are the only mutators.
type EngineServer interface {
	Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Dispute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Reset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Status(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// #endregion server-interface

// #region service-desc

// RegisterEngineServer registers srv on a gRPC server. The service descriptor
// is written out by hand because the payloads are well-known types; there is
// no generated schema to compile.
func RegisterEngineServer(s *grpc.Server, srv EngineServer) {
	s.RegisterService(&engineServiceDesc, srv)
}

var engineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: engineEvaluateHandler},
		{MethodName: "Dispute", Handler: engineDisputeHandler},
		{MethodName: "Reset", Handler: engineResetHandler},
		{MethodName: "Status", Handler: engineStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "confidence/v1/engine",
}

func engineEvaluateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return unaryHandler(srv, ctx, dec, interceptor, "Evaluate", func(s EngineServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
		return s.Evaluate(ctx, req)
	})
}

func engineDisputeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return unaryHandler(srv, ctx, dec, interceptor, "Dispute", func(s EngineServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
		return s.Dispute(ctx, req)
	})
}

func engineResetHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return unaryHandler(srv, ctx, dec, interceptor, "Reset", func(s EngineServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
		return s.Reset(ctx, req)
	})
}

func engineStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return unaryHandler(srv, ctx, dec, interceptor, "Status", func(s EngineServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
		return s.Status(ctx, req)
	})
}

func unaryHandler(
	srv interface{},
	ctx context.Context,
	dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor,
	method string,
	call func(EngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return call(srv.(EngineServer), ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: fmt.Sprintf("/%s/%s", ServiceName, method),
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return call(srv.(EngineServer), ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc

// #region payload-codec

// toStruct converts any JSON-marshalable value into a structpb payload.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return st, nil
}

// fromStruct decodes a structpb payload into a JSON-tagged value.
func fromStruct(st *structpb.Struct, out interface{}) error {
	if st == nil {
		return status.Error(codes.InvalidArgument, "missing payload")
	}
	data, err := json.Marshal(st.AsMap())
	if err != nil {
		return fmt.Errorf("remarshal payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return status.Errorf(codes.InvalidArgument, "decode payload: %v", err)
	}
	return nil
}

// #endregion payload-codec
