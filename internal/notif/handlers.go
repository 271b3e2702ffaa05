package notif

import (
	"context"
	"encoding/json"
	"log/slog"

	"freelancehub/internal/common"
	"freelancehub/internal/events"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const emitterServiceName = "freelancehub.notif.v1.Emitter"

// EmitterServer is the gRPC surface other marketplace services call to raise notifications.
// Requests and responses are google.protobuf.Struct values shaped like events.NotifyRequest.
type EmitterServer interface {
	Notify(context.Context, *structpb.Struct) (*structpb.Struct, error)
	NotifyMany(context.Context, *structpb.Struct) (*structpb.Struct, error)
	NotifyAudience(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryMethod(name string, call func(EmitterServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + emitterServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EmitterServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(EmitterServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var EmitterServiceDesc = grpc.ServiceDesc{
	ServiceName: emitterServiceName,
	HandlerType: (*EmitterServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Notify", EmitterServer.Notify),
		unaryMethod("NotifyMany", EmitterServer.NotifyMany),
		unaryMethod("NotifyAudience", EmitterServer.NotifyAudience),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "freelancehub/notif/v1/emitter",
}

func RegisterEmitterServer(s grpc.ServiceRegistrar, srv EmitterServer) {
	s.RegisterService(&EmitterServiceDesc, srv)
}

// EmitterClient calls EmitterServer over conn.
type EmitterClient struct {
	cc grpc.ClientConnInterface
}

func NewEmitterClient(cc grpc.ClientConnInterface) *EmitterClient {
	return &EmitterClient{cc: cc}
}

func (c *EmitterClient) invoke(ctx context.Context, method string, req events.NotifyRequest, opts ...grpc.CallOption) (map[string]interface{}, error) {
	in, err := encodeStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+emitterServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func (c *EmitterClient) Notify(ctx context.Context, req events.NotifyRequest, opts ...grpc.CallOption) (map[string]interface{}, error) {
	return c.invoke(ctx, "Notify", req, opts...)
}

func (c *EmitterClient) NotifyMany(ctx context.Context, req events.NotifyRequest, opts ...grpc.CallOption) (map[string]interface{}, error) {
	return c.invoke(ctx, "NotifyMany", req, opts...)
}

func (c *EmitterClient) NotifyAudience(ctx context.Context, req events.NotifyRequest, opts ...grpc.CallOption) (map[string]interface{}, error) {
	return c.invoke(ctx, "NotifyAudience", req, opts...)
}

// GRPCHandler serves EmitterServer on top of the Emitter.
type GRPCHandler struct {
	emitter *Emitter
}

func NewGRPCHandler(emitter *Emitter) *GRPCHandler {
	return &GRPCHandler{emitter: emitter}
}

func (h *GRPCHandler) Notify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req events.NotifyRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, common.ToStatus(err)
	}

	notification, err := h.emitter.Notify(ctx, req.Recipient, req.Kind, req.Message, req.Refs)
	if err != nil {
		slog.WarnContext(ctx, "grpc notify failed", slog.String("kind", string(req.Kind)), slog.Any("error", err))
		return nil, common.ToStatus(err)
	}
	return encodeStruct(map[string]interface{}{"notification": notification})
}

func (h *GRPCHandler) NotifyMany(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req events.NotifyRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, common.ToStatus(err)
	}
	if len(req.Recipients) == 0 {
		return nil, common.ToStatus(common.Validationf("recipients are required"))
	}

	count, err := h.emitter.NotifyMany(ctx, req.Recipients, req.Kind, req.Message, req.Refs)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return encodeStruct(map[string]interface{}{"count": count})
}

func (h *GRPCHandler) NotifyAudience(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req events.NotifyRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, common.ToStatus(err)
	}
	if req.Audience == nil {
		return nil, common.ToStatus(common.Validationf("audience is required"))
	}

	count, err := h.emitter.NotifyAudience(ctx, *req.Audience, req.Kind, req.Message, req.Refs)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return encodeStruct(map[string]interface{}{"count": count})
}

func decodeStruct(in *structpb.Struct, v interface{}) error {
	raw, err := in.MarshalJSON()
	if err != nil {
		return common.Validationf("invalid request: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return common.Validationf("invalid request: %v", err)
	}
	return nil
}

func encodeStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return out, nil
}
