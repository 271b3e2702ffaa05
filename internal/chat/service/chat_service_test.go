package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"freelancehub/internal/chat/service/mocks"
	"freelancehub/internal/common"
	"freelancehub/internal/events"
	"freelancehub/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type serviceMocks struct {
	messages    *mocks.MockMessageRepository
	users       *mocks.MockUserDirectory
	notifier    *mocks.MockNotifier
	tracker     *mocks.MockReadTracker
	broadcaster *mocks.MockBroadcaster
	metrics     *metrics.Metrics
}

func newMockedService(t *testing.T) (ChatService, *serviceMocks) {
	ctrl := gomock.NewController(t)
	m := &serviceMocks{
		messages:    mocks.NewMockMessageRepository(ctrl),
		users:       mocks.NewMockUserDirectory(ctrl),
		notifier:    mocks.NewMockNotifier(ctrl),
		tracker:     mocks.NewMockReadTracker(ctrl),
		broadcaster: mocks.NewMockBroadcaster(ctrl),
		metrics:     metrics.New(prometheus.NewRegistry()),
	}
	svc := NewChatService(m.messages, m.users, m.notifier, m.tracker, m.broadcaster, events.NopSink{}, m.metrics)
	return svc, m
}

func TestChatService_Send(t *testing.T) {
	tests := []struct {
		name           string
		recipient      string
		content        string
		conversationID string
		mockSetup      func(m *serviceMocks)
		expectError    error
		errorMsg       string
	}{
		{
			name:      "new thread",
			recipient: "bob",
			content:   "hi",
			mockSetup: func(m *serviceMocks) {
				m.users.EXPECT().ByID(gomock.Any(), "bob").Return(&common.User{ID: "bob"}, nil)
				m.messages.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, msg *common.Message) error {
						assert.NotEmpty(t, msg.ConversationID)
						assert.Equal(t, common.Sent, msg.DeliveryState)
						assert.WithinDuration(t, time.Now(), msg.CreatedAt, time.Second)
						msg.ID = "m1"
						return nil
					})
				m.users.EXPECT().ByID(gomock.Any(), "alice").Return(&common.User{ID: "alice", Username: "Alice"}, nil)
				m.notifier.EXPECT().
					Notify(gomock.Any(), "bob", common.MessageReceivedKind, "New message from Alice", common.SubjectRefs{Message: "m1"}).
					Return(&common.Notification{ID: "n1"}, nil)
				m.broadcaster.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:           "follow-up keeps conversation and survives push and notification failures",
			recipient:      "bob",
			content:        "  again  ",
			conversationID: "conv-123",
			mockSetup: func(m *serviceMocks) {
				m.users.EXPECT().ByID(gomock.Any(), "bob").Return(&common.User{ID: "bob"}, nil)
				m.messages.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, msg *common.Message) error {
						assert.Equal(t, "conv-123", msg.ConversationID)
						assert.Equal(t, "again", msg.Content)
						msg.ID = "m2"
						return nil
					})
				m.users.EXPECT().ByID(gomock.Any(), "alice").Return(nil, common.NotFoundf("user alice"))
				m.notifier.EXPECT().
					Notify(gomock.Any(), "bob", common.MessageReceivedKind, "New message from alice", gomock.Any()).
					Return(nil, errors.New("mongo down"))
				m.broadcaster.EXPECT().Publish(gomock.Any(), "conv-123", gomock.Any()).Return(errors.New("redis down"))
			},
		},
		{
			name:        "empty content",
			recipient:   "bob",
			content:     "   ",
			mockSetup:   func(m *serviceMocks) {},
			expectError: common.ErrValidation,
			errorMsg:    "content is required",
		},
		{
			name:        "missing recipient id",
			content:     "hi",
			mockSetup:   func(m *serviceMocks) {},
			expectError: common.ErrValidation,
		},
		{
			name:      "unknown recipient",
			recipient: "ghost",
			content:   "hi",
			mockSetup: func(m *serviceMocks) {
				m.users.EXPECT().ByID(gomock.Any(), "ghost").Return(nil, common.NotFoundf("user ghost"))
			},
			expectError: common.ErrNotFound,
		},
		{
			name:      "repository save error",
			recipient: "bob",
			content:   "hi",
			mockSetup: func(m *serviceMocks) {
				m.users.EXPECT().ByID(gomock.Any(), "bob").Return(&common.User{ID: "bob"}, nil)
				m.messages.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("database connection failed"))
			},
			errorMsg: "database connection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newMockedService(t)
			tt.mockSetup(m)

			msg, err := svc.Send(context.Background(), "alice", tt.recipient, tt.content, tt.conversationID)

			if tt.expectError != nil || tt.errorMsg != "" {
				require.Error(t, err)
				if tt.expectError != nil {
					assert.ErrorIs(t, err, tt.expectError)
				}
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.Nil(t, msg)
				assert.Zero(t, testutil.ToFloat64(m.metrics.MessagesSent))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", msg.Sender)
			assert.NotEmpty(t, msg.ID)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.MessagesSent))
		})
	}
}

// liveContext matches a context that has not been cancelled.
type liveContext struct{}

func (liveContext) Matches(x any) bool {
	ctx, ok := x.(context.Context)
	return ok && ctx.Err() == nil
}

func (liveContext) String() string { return "is a live context" }

func TestChatService_Send_SurvivesCallerCancellation(t *testing.T) {
	svc, m := newMockedService(t)

	m.users.EXPECT().ByID(liveContext{}, "bob").Return(&common.User{ID: "bob"}, nil)
	m.messages.EXPECT().Create(liveContext{}, gomock.Any()).
		DoAndReturn(func(ctx context.Context, msg *common.Message) error {
			msg.ID = "m1"
			return nil
		})
	m.users.EXPECT().ByID(liveContext{}, "alice").Return(&common.User{ID: "alice", Username: "Alice"}, nil)
	m.notifier.EXPECT().
		Notify(liveContext{}, "bob", common.MessageReceivedKind, "New message from Alice", common.SubjectRefs{Message: "m1"}).
		Return(&common.Notification{ID: "n1"}, nil)
	m.broadcaster.EXPECT().Publish(liveContext{}, gomock.Any(), gomock.Any()).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg, err := svc.Send(ctx, "alice", "bob", "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
}

func TestChatService_FetchConversation(t *testing.T) {
	svc, m := newMockedService(t)
	ctx := context.Background()
	page := common.Page{Number: 1, Size: 20}

	fetched := []*common.Message{
		{ID: "m2", ConversationID: "c1", Sender: "alice", Recipient: "bob", DeliveryState: common.Sent},
		{ID: "m1", ConversationID: "c1", Sender: "bob", Recipient: "alice", DeliveryState: common.Seen},
	}
	m.messages.EXPECT().ByConversation(ctx, "c1", "bob", page).Return(fetched, int64(2), nil)
	m.tracker.EXPECT().MarkConversationRead(ctx, "bob", fetched).
		DoAndReturn(func(ctx context.Context, owner string, msgs []*common.Message) (int, error) {
			msgs[0].DeliveryState = common.Seen
			return 1, nil
		})

	msgs, total, err := svc.FetchConversation(ctx, "bob", "c1", page)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, common.Seen, msgs[0].DeliveryState)

	_, _, err = svc.FetchConversation(ctx, "bob", "", page)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestChatService_FetchConversation_ReadFailureStillReturns(t *testing.T) {
	svc, m := newMockedService(t)
	ctx := context.Background()
	page := common.Page{Number: 1, Size: 20}

	fetched := []*common.Message{{ID: "m1", ConversationID: "c1", Sender: "alice", Recipient: "bob", DeliveryState: common.Sent}}
	m.messages.EXPECT().ByConversation(ctx, "c1", "bob", page).Return(fetched, int64(1), nil)
	m.tracker.EXPECT().MarkConversationRead(ctx, "bob", fetched).Return(0, errors.New("write conflict"))

	msgs, _, err := svc.FetchConversation(ctx, "bob", "c1", page)
	require.NoError(t, err)
	assert.Equal(t, common.Sent, msgs[0].DeliveryState)
}

func TestChatService_DeleteMessage(t *testing.T) {
	tests := []struct {
		name        string
		participant string
		mockSetup   func(m *serviceMocks)
		expectError error
	}{
		{
			name:        "sender deletes",
			participant: "alice",
			mockSetup: func(m *serviceMocks) {
				m.messages.EXPECT().ByID(gomock.Any(), "m1").Return(&common.Message{ID: "m1", Sender: "alice", Recipient: "bob"}, nil)
				m.messages.EXPECT().Delete(gomock.Any(), "m1").Return(nil)
			},
		},
		{
			name:        "recipient deletes",
			participant: "bob",
			mockSetup: func(m *serviceMocks) {
				m.messages.EXPECT().ByID(gomock.Any(), "m1").Return(&common.Message{ID: "m1", Sender: "alice", Recipient: "bob"}, nil)
				m.messages.EXPECT().Delete(gomock.Any(), "m1").Return(nil)
			},
		},
		{
			name:        "outsider is forbidden",
			participant: "mallory",
			mockSetup: func(m *serviceMocks) {
				m.messages.EXPECT().ByID(gomock.Any(), "m1").Return(&common.Message{ID: "m1", Sender: "alice", Recipient: "bob"}, nil)
			},
			expectError: common.ErrForbidden,
		},
		{
			name:        "missing message",
			participant: "alice",
			mockSetup: func(m *serviceMocks) {
				m.messages.EXPECT().ByID(gomock.Any(), "m1").Return(nil, common.NotFoundf("message m1"))
			},
			expectError: common.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newMockedService(t)
			tt.mockSetup(m)

			err := svc.DeleteMessage(context.Background(), tt.participant, "m1")
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestChatService_Delegates(t *testing.T) {
	svc, m := newMockedService(t)
	ctx := context.Background()
	page := common.Page{Number: 2, Size: 10}

	summaries := []*common.ConversationSummary{{ConversationID: "c1", LastMessage: "hi"}}
	m.messages.EXPECT().Conversations(ctx, "alice", page).Return(summaries, int64(11), nil)
	got, total, err := svc.ListConversations(ctx, "alice", page)
	require.NoError(t, err)
	assert.Equal(t, summaries, got)
	assert.Equal(t, int64(11), total)

	read := &common.Message{ID: "m1", DeliveryState: common.Seen}
	m.tracker.EXPECT().MarkMessageRead(ctx, "bob", "m1").Return(read, nil)
	msg, err := svc.MarkMessageRead(ctx, "bob", "m1")
	require.NoError(t, err)
	assert.Equal(t, read, msg)
}
