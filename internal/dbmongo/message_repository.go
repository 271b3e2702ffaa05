package dbmongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"freelancehub/internal/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type messageDoc struct {
	ID             primitive.ObjectID `bson:"_id"`
	ConversationID string             `bson:"conversation_id"`
	Sender         string             `bson:"sender"`
	Recipient      string             `bson:"recipient"`
	Content        string             `bson:"content"`
	DeliveryState  string             `bson:"delivery_state"`
	CreatedAt      time.Time          `bson:"created_at"`
}

func (d *messageDoc) toDomain() *common.Message {
	return &common.Message{
		ID:             d.ID.Hex(),
		ConversationID: d.ConversationID,
		Sender:         d.Sender,
		Recipient:      d.Recipient,
		Content:        d.Content,
		DeliveryState:  common.DeliveryState(d.DeliveryState),
		CreatedAt:      d.CreatedAt.UTC(),
	}
}

type summaryDoc struct {
	ConversationID string    `bson:"_id"`
	LastMessage    string    `bson:"last_message"`
	Sender         string    `bson:"sender"`
	Recipient      string    `bson:"recipient"`
	DeliveryState  string    `bson:"delivery_state"`
	CreatedAt      time.Time `bson:"created_at"`
}

type messageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(mc *MongoClient) common.MessageRepository {
	return &messageRepository{coll: mc.Database.Collection(messagesCollection)}
}

func (r *messageRepository) Create(ctx context.Context, message *common.Message) error {
	doc := &messageDoc{
		ID:             primitive.NewObjectID(),
		ConversationID: message.ConversationID,
		Sender:         message.Sender,
		Recipient:      message.Recipient,
		Content:        message.Content,
		DeliveryState:  string(message.DeliveryState),
		CreatedAt:      message.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	message.ID = doc.ID.Hex()
	return nil
}

func (r *messageRepository) ByID(ctx context.Context, id string) (*common.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.NotFoundf("message %s", id)
	}

	var doc messageDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.NotFoundf("message %s", id)
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return doc.toDomain(), nil
}

func participantFilter(participant string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender": participant},
		bson.M{"recipient": participant},
	}}
}

func conversationFilter(conversationID, participant string) bson.M {
	filter := participantFilter(participant)
	filter["conversation_id"] = conversationID
	return filter
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *messageRepository) ByConversation(ctx context.Context, conversationID, participant string, page common.Page) ([]*common.Message, int64, error) {
	filter := conversationFilter(conversationID, participant)

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Size))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get conversation messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode messages: %w", err)
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	messages := make([]*common.Message, len(docs))
	for i := range docs {
		messages[i] = docs[i].toDomain()
	}
	return messages, total, nil
}

// conversationsPipeline keeps the latest message per conversation and pages the
// groups, counting them in the same round trip.
func conversationsPipeline(participant string, page common.Page) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: participantFilter(participant)}},
		{{Key: "$sort", Value: newestFirst}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$conversation_id"},
			{Key: "last_message", Value: bson.M{"$first": "$content"}},
			{Key: "sender", Value: bson.M{"$first": "$sender"}},
			{Key: "recipient", Value: bson.M{"$first": "$recipient"}},
			{Key: "delivery_state", Value: bson.M{"$first": "$delivery_state"}},
			{Key: "created_at", Value: bson.M{"$first": "$created_at"}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$facet", Value: bson.D{
			{Key: "items", Value: bson.A{
				bson.M{"$skip": int64(page.Offset())},
				bson.M{"$limit": int64(page.Size)},
			}},
			{Key: "total", Value: bson.A{bson.M{"$count": "n"}}},
		}}},
	}
}

func (r *messageRepository) Conversations(ctx context.Context, participant string, page common.Page) ([]*common.ConversationSummary, int64, error) {
	cursor, err := r.coll.Aggregate(ctx, conversationsPipeline(participant, page))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Items []summaryDoc `bson:"items"`
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, fmt.Errorf("failed to decode conversations: %w", err)
	}
	if len(results) == 0 {
		return []*common.ConversationSummary{}, 0, nil
	}

	var total int64
	if len(results[0].Total) > 0 {
		total = results[0].Total[0].N
	}

	summaries := make([]*common.ConversationSummary, len(results[0].Items))
	for i, item := range results[0].Items {
		summaries[i] = &common.ConversationSummary{
			ConversationID: item.ConversationID,
			LastMessage:    item.LastMessage,
			Sender:         item.Sender,
			Recipient:      item.Recipient,
			DeliveryState:  common.DeliveryState(item.DeliveryState),
			CreatedAt:      item.CreatedAt.UTC(),
		}
	}
	return summaries, total, nil
}

func advanceFilter(ids []primitive.ObjectID, recipient string, from []common.DeliveryState) bson.M {
	states := make(bson.A, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	return bson.M{
		"_id":            bson.M{"$in": ids},
		"recipient":      recipient,
		"delivery_state": bson.M{"$in": states},
	}
}

func (r *messageRepository) AdvanceDelivery(
	ctx context.Context,
	ids []string,
	recipient string,
	from []common.DeliveryState,
	next common.DeliveryState,
) ([]string, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 || len(from) == 0 {
		return nil, nil
	}

	update := bson.M{"$set": bson.M{"delivery_state": string(next)}}

	// A single id is the common read-receipt path; FindOneAndUpdate makes the
	// transition and its report atomic.
	if len(oids) == 1 {
		var doc messageDoc
		err := r.coll.FindOneAndUpdate(ctx, advanceFilter(oids, recipient, from), update).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to advance message state: %w", err)
		}
		return []string{doc.ID.Hex()}, nil
	}

	cursor, err := r.coll.Find(ctx, advanceFilter(oids, recipient, from), options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to find messages to advance: %w", err)
	}
	var matched []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &matched); err != nil {
		return nil, fmt.Errorf("failed to decode messages to advance: %w", err)
	}
	if len(matched) == 0 {
		return nil, nil
	}

	// Each candidate is advanced by its own conditional update so that concurrent
	// callers never both report the same transition.
	changed := make([]string, 0, len(matched))
	for _, m := range matched {
		result, err := r.coll.UpdateOne(ctx, advanceFilter([]primitive.ObjectID{m.ID}, recipient, from), update)
		if err != nil {
			return changed, fmt.Errorf("failed to advance message state: %w", err)
		}
		if result.ModifiedCount == 1 {
			changed = append(changed, m.ID.Hex())
		}
	}
	return changed, nil
}

func (r *messageRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return common.NotFoundf("message %s", id)
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if result.DeletedCount == 0 {
		return common.NotFoundf("message %s", id)
	}
	return nil
}
