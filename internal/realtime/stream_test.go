package realtime

import (
	"context"
	"net"
	"testing"
	"time"

	"freelancehub/internal/common"
	"freelancehub/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startRealtimeServer(t *testing.T) (*Hub, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	hub := NewHub(common.NewJWTVerifier(testSecret, ""), nil, metrics.New(prometheus.NewRegistry()), 8)

	srv := grpc.NewServer(grpc.ChainStreamInterceptor(common.LoggingStreamInterceptor))
	RegisterRealtimeServer(srv, NewStreamHandler(hub))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return hub, conn
}

func streamContext(t *testing.T, user string) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	if user == "" {
		return ctx
	}
	tok := token(t, common.NewJWTVerifier(testSecret, ""), user)
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok)
}

func TestConnect_RequiresToken(t *testing.T) {
	_, cc := startRealtimeServer(t)

	stream, err := Connect(streamContext(t, ""), cc)
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestConnect_RejectsBadToken(t *testing.T) {
	_, cc := startRealtimeServer(t)

	ctx := metadata.AppendToOutgoingContext(streamContext(t, ""), "authorization", "Bearer nope")
	stream, err := Connect(ctx, cc)
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestConnect_JoinThenReceive(t *testing.T) {
	hub, cc := startRealtimeServer(t)

	stream, err := Connect(streamContext(t, "bob"), cc)
	require.NoError(t, err)

	require.NoError(t, stream.Send(ClientFrame{Action: ActionJoin, ConversationID: "c1"}))
	ack, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, FrameJoined, ack.Type)
	assert.Equal(t, "c1", ack.ConversationID)
	assert.Equal(t, 1, hub.Joined("c1"))

	require.NoError(t, hub.Publish(context.Background(), "c1", common.RealtimeEvent{
		Type:           common.NewMessageEvent,
		ConversationID: "c1",
		Message:        &common.Message{ID: "m1", ConversationID: "c1", Sender: "alice", Recipient: "bob", Content: "hello", DeliveryState: common.Sent},
	}))

	frame, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, string(common.NewMessageEvent), frame.Type)
	require.NotNil(t, frame.Message)
	assert.Equal(t, "hello", frame.Message.Content)
	assert.Equal(t, common.Sent, frame.Message.DeliveryState)

	require.NoError(t, stream.Send(ClientFrame{Action: ActionLeave, ConversationID: "c1"}))
	ack, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, FrameLeft, ack.Type)
	assert.Zero(t, hub.Joined("c1"))
}

func TestConnect_InvalidFrames(t *testing.T) {
	_, cc := startRealtimeServer(t)

	stream, err := Connect(streamContext(t, "bob"), cc)
	require.NoError(t, err)

	require.NoError(t, stream.Send(ClientFrame{Action: "shout", ConversationID: "c1"}))
	frame, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, FrameError, frame.Type)
	assert.Contains(t, frame.Error, "shout")

	require.NoError(t, stream.Send(ClientFrame{Action: ActionJoin}))
	frame, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, FrameError, frame.Type)
}

func TestConnect_HalfCloseKeepsJoins(t *testing.T) {
	hub, cc := startRealtimeServer(t)

	stream, err := Connect(streamContext(t, "bob"), cc)
	require.NoError(t, err)
	require.NoError(t, stream.Send(ClientFrame{Action: ActionJoin, ConversationID: "c1"}))
	_, err = stream.Recv()
	require.NoError(t, err)

	require.NoError(t, stream.CloseSend())
	// Give the server time to observe the half-close.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, hub.Joined("c1"))

	require.NoError(t, hub.Publish(context.Background(), "c1", common.RealtimeEvent{
		Type:           common.NewMessageEvent,
		ConversationID: "c1",
		Message:        &common.Message{ID: "m1", ConversationID: "c1", Sender: "alice", Recipient: "bob", Content: "still here"},
	}))
	frame, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, string(common.NewMessageEvent), frame.Type)
	assert.Equal(t, "still here", frame.Message.Content)
}

func TestConnect_CancelDropsConnection(t *testing.T) {
	hub, cc := startRealtimeServer(t)

	ctx, cancel := context.WithCancel(streamContext(t, "bob"))
	stream, err := Connect(ctx, cc)
	require.NoError(t, err)
	require.NoError(t, stream.Send(ClientFrame{Action: ActionJoin, ConversationID: "c1"}))
	_, err = stream.Recv()
	require.NoError(t, err)
	require.Equal(t, 1, hub.Joined("c1"))

	cancel()
	assert.Eventually(t, func() bool { return hub.Joined("c1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
