package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"freelancehub/internal/common"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	realtimeServiceName = "freelancehub.realtime.v1.Realtime"
	connectMethod       = "/" + realtimeServiceName + "/Connect"
)

// Client frame actions.
const (
	ActionJoin  = "join"
	ActionLeave = "leave"
)

// Acknowledgement frame types, sent alongside the common.RealtimeEvent types.
const (
	FrameJoined = "joined"
	FrameLeft   = "left"
	FrameError  = "error"
)

// ClientFrame is what a client sends on the Connect stream.
type ClientFrame struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id"`
}

// ServerFrame is what the server sends: an event, or an acknowledgement of a ClientFrame.
type ServerFrame struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Message        *common.Message `json:"message,omitempty"`
	Error          string          `json:"error,omitempty"`
}

type RealtimeServer interface {
	Connect(grpc.ServerStream) error
}

var RealtimeServiceDesc = grpc.ServiceDesc{
	ServiceName: realtimeServiceName,
	HandlerType: (*RealtimeServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "Connect",
			Handler: func(srv interface{}, stream grpc.ServerStream) error {
				return srv.(RealtimeServer).Connect(stream)
			},
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "freelancehub/realtime/v1/realtime",
}

func RegisterRealtimeServer(s grpc.ServiceRegistrar, srv RealtimeServer) {
	s.RegisterService(&RealtimeServiceDesc, srv)
}

// StreamHandler binds each Connect stream to one hub connection. The stream ending is
// the connection drop; a client half-close keeps its joins.
type StreamHandler struct {
	hub *Hub
}

func NewStreamHandler(hub *Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

func (h *StreamHandler) Connect(stream grpc.ServerStream) error {
	ctx := stream.Context()

	token, err := common.TokenFromMetadata(ctx)
	if err != nil {
		return status.Error(codes.Unauthenticated, err.Error())
	}
	conn, err := h.hub.Authenticate(token)
	if err != nil {
		return status.Error(codes.Unauthenticated, "invalid or expired token")
	}
	defer h.hub.Drop(conn)

	acks := make(chan ServerFrame, 8)
	recvErr := make(chan error, 1)
	go func(out chan<- error) {
		out <- h.receive(ctx, stream, conn, acks)
	}(recvErr)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-recvErr:
			if err != nil {
				return err
			}
			// Half-close: the client stopped sending but still receives pushes.
			recvErr = nil
		case frame := <-acks:
			if err := sendFrame(stream, frame); err != nil {
				return err
			}
		case event, ok := <-conn.Events():
			if !ok {
				return nil
			}
			frame := ServerFrame{Type: string(event.Type), ConversationID: event.ConversationID, Message: event.Message}
			if err := sendFrame(stream, frame); err != nil {
				return err
			}
		}
	}
}

func (h *StreamHandler) receive(ctx context.Context, stream grpc.ServerStream, conn *Conn, acks chan<- ServerFrame) error {
	for {
		in := new(structpb.Struct)
		if err := stream.RecvMsg(in); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var frame ClientFrame
		var ack ServerFrame
		if err := decodeFrame(in, &frame); err != nil {
			ack = ServerFrame{Type: FrameError, Error: err.Error()}
		} else {
			ack = h.apply(conn, frame)
		}

		select {
		case acks <- ack:
		case <-ctx.Done():
			return nil
		}
	}
}

func (h *StreamHandler) apply(conn *Conn, frame ClientFrame) ServerFrame {
	switch frame.Action {
	case ActionJoin:
		if err := h.hub.Join(conn, frame.ConversationID); err != nil {
			return ServerFrame{Type: FrameError, ConversationID: frame.ConversationID, Error: err.Error()}
		}
		return ServerFrame{Type: FrameJoined, ConversationID: frame.ConversationID}
	case ActionLeave:
		h.hub.Leave(conn, frame.ConversationID)
		return ServerFrame{Type: FrameLeft, ConversationID: frame.ConversationID}
	default:
		slog.Debug("unknown realtime action", slog.String("conn_id", conn.ID), slog.String("action", frame.Action))
		return ServerFrame{Type: FrameError, ConversationID: frame.ConversationID, Error: "unknown action " + frame.Action}
	}
}

func decodeFrame(in *structpb.Struct, v interface{}) error {
	raw, err := in.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func encodeFrame(v interface{}) (*structpb.Struct, error) {
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

func sendFrame(stream grpc.ServerStream, frame ServerFrame) error {
	out, err := encodeFrame(frame)
	if err != nil {
		return err
	}
	return stream.SendMsg(out)
}

// ClientStream is the client side of Connect.
type ClientStream struct {
	grpc.ClientStream
}

// Connect opens the stream; pass the bearer token in ctx's outgoing metadata.
func Connect(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (*ClientStream, error) {
	stream, err := cc.NewStream(ctx, &RealtimeServiceDesc.Streams[0], connectMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &ClientStream{ClientStream: stream}, nil
}

func (s *ClientStream) Send(frame ClientFrame) error {
	out, err := encodeFrame(frame)
	if err != nil {
		return err
	}
	return s.SendMsg(out)
}

func (s *ClientStream) Recv() (ServerFrame, error) {
	in := new(structpb.Struct)
	if err := s.RecvMsg(in); err != nil {
		return ServerFrame{}, err
	}
	var frame ServerFrame
	if err := decodeFrame(in, &frame); err != nil {
		return ServerFrame{}, err
	}
	return frame, nil
}
