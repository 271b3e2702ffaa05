package dbmongo

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"freelancehub/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// connectForTest needs MONGO_TEST_URI, e.g. the docker-compose MongoDB.
func connectForTest(t *testing.T) *MongoClient {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	database := "freelancehub_test_" + primitive.NewObjectID().Hex()
	client, err := Connect(uri, database, 10*time.Second)
	require.NoError(t, err, "Failed to connect to MongoDB")

	ctx := context.Background()
	require.NoError(t, client.EnsureIndexes(ctx))
	t.Cleanup(func() {
		_ = client.Database.Drop(context.Background())
		_ = client.Close(context.Background())
	})
	return client
}

func TestNotificationRepository_Integration(t *testing.T) {
	client := connectForTest(t)
	repo := NewNotificationRepository(client)
	ctx := context.Background()

	batch := []*common.Notification{
		{Recipient: "u1", Kind: common.JobPostedKind, Message: "a", ReadState: common.Unread, CreatedAt: common.Clock()},
		{Recipient: "u1", Kind: common.JobPostedKind, Message: "b", ReadState: common.Unread, CreatedAt: common.Clock()},
		{Recipient: "u2", Kind: common.JobPostedKind, Message: "c", ReadState: common.Unread, CreatedAt: common.Clock()},
	}
	stored, err := repo.CreateMany(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 3, stored)
	for _, n := range batch {
		assert.NotEmpty(t, n.ID)
	}

	count, err := repo.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	at := common.Clock().Add(time.Second)
	updated, err := repo.SetReadState(ctx, batch[0].ID, common.Read, at)
	require.NoError(t, err)
	assert.Equal(t, common.Read, updated.ReadState)
	assert.True(t, updated.UpdatedAt.Equal(at))

	unread, total, err := repo.ByRecipient(ctx, "u1", common.NotificationFilter{ReadState: common.Unread}, common.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, unread, 1)
	assert.Equal(t, batch[1].ID, unread[0].ID)

	changed, err := repo.MarkAllRead(ctx, "u1", at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	_, err = repo.ByID(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, batch[2].ID))
	assert.ErrorIs(t, repo.Delete(ctx, batch[2].ID), common.ErrNotFound)

	deleted, err := repo.DeleteByRecipient(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestMessageRepository_Integration(t *testing.T) {
	client := connectForTest(t)
	repo := NewMessageRepository(client)
	ctx := context.Background()

	base := common.Clock()
	msgs := []*common.Message{
		{ConversationID: "c1", Sender: "alice", Recipient: "bob", Content: "hi", DeliveryState: common.Sent, CreatedAt: base},
		{ConversationID: "c1", Sender: "bob", Recipient: "alice", Content: "hey", DeliveryState: common.Sent, CreatedAt: base.Add(time.Millisecond)},
		{ConversationID: "c2", Sender: "carol", Recipient: "bob", Content: "yo", DeliveryState: common.Sent, CreatedAt: base.Add(2 * time.Millisecond)},
	}
	for _, m := range msgs {
		require.NoError(t, repo.Create(ctx, m))
	}

	page := common.Page{Number: 1, Size: 10}
	conv, total, err := repo.ByConversation(ctx, "c1", "bob", page)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, conv, 2)
	assert.Equal(t, "hey", conv[0].Content)

	summaries, count, err := repo.Conversations(ctx, "bob", page)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	require.Len(t, summaries, 2)
	assert.Equal(t, "c2", summaries[0].ConversationID)
	assert.Equal(t, "hey", summaries[1].LastMessage)

	from := []common.DeliveryState{common.Sent, common.Delivered}
	changed, err := repo.AdvanceDelivery(ctx, []string{msgs[0].ID, msgs[1].ID}, "bob", from, common.Seen)
	require.NoError(t, err)
	assert.Equal(t, []string{msgs[0].ID}, changed)

	again, err := repo.AdvanceDelivery(ctx, []string{msgs[0].ID}, "bob", from, common.Seen)
	require.NoError(t, err)
	assert.Empty(t, again)

	read, err := repo.ByID(ctx, msgs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, common.Seen, read.DeliveryState)

	require.NoError(t, repo.Delete(ctx, msgs[2].ID))
	_, err = repo.ByID(ctx, msgs[2].ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMessageRepository_AdvanceDeliveryConcurrent(t *testing.T) {
	client := connectForTest(t)
	repo := NewMessageRepository(client)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 20; i++ {
		m := &common.Message{ConversationID: "c1", Sender: "alice", Recipient: "bob", Content: "hi",
			DeliveryState: common.Sent, CreatedAt: common.Clock()}
		require.NoError(t, repo.Create(ctx, m))
		ids = append(ids, m.ID)
	}

	from := []common.DeliveryState{common.Sent, common.Delivered}
	const readers = 4
	results := make(chan []string, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := repo.AdvanceDelivery(ctx, ids, "bob", from, common.Seen)
			assert.NoError(t, err)
			results <- changed
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]int)
	for changed := range results {
		for _, id := range changed {
			seen[id]++
		}
	}
	assert.Len(t, seen, len(ids))
	for id, n := range seen {
		assert.Equal(t, 1, n, "message %s reported as read more than once", id)
	}
}
