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

type notificationDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Recipient string             `bson:"recipient"`
	Kind      string             `bson:"kind"`
	Message   string             `bson:"message"`
	Refs      common.SubjectRefs `bson:"refs"`
	ReadState string             `bson:"read_state"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func toNotificationDoc(n *common.Notification) *notificationDoc {
	return &notificationDoc{
		Recipient: n.Recipient,
		Kind:      string(n.Kind),
		Message:   n.Message,
		Refs:      n.Refs,
		ReadState: string(n.ReadState),
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func (d *notificationDoc) toDomain() *common.Notification {
	return &common.Notification{
		ID:        d.ID.Hex(),
		Recipient: d.Recipient,
		Kind:      common.NotificationKind(d.Kind),
		Message:   d.Message,
		Refs:      d.Refs,
		ReadState: common.ReadState(d.ReadState),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type notificationRepository struct {
	coll *mongo.Collection
}

func NewNotificationRepository(mc *MongoClient) common.NotificationRepository {
	return &notificationRepository{coll: mc.Database.Collection(notificationsCollection)}
}

func (r *notificationRepository) Create(ctx context.Context, notification *common.Notification) error {
	doc := toNotificationDoc(notification)
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	notification.ID = doc.ID.Hex()
	return nil
}

// CreateMany inserts unordered so one failed document does not stop the rest.
// Records that were not stored are left with an empty ID.
func (r *notificationRepository) CreateMany(ctx context.Context, notifications []*common.Notification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(notifications))
	for i, n := range notifications {
		doc := toNotificationDoc(n)
		doc.ID = primitive.NewObjectID()
		n.ID = doc.ID.Hex()
		docs[i] = doc
	}

	_, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(notifications), nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || len(bwe.WriteErrors) == 0 {
		for _, n := range notifications {
			n.ID = ""
		}
		return 0, fmt.Errorf("failed to create notifications: %w", err)
	}

	for _, we := range bwe.WriteErrors {
		if we.Index >= 0 && we.Index < len(notifications) {
			notifications[we.Index].ID = ""
		}
	}
	return len(notifications) - len(bwe.WriteErrors), nil
}

func (r *notificationRepository) ByID(ctx context.Context, id string) (*common.Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.NotFoundf("notification %s", id)
	}

	var doc notificationDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.NotFoundf("notification %s", id)
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return doc.toDomain(), nil
}

func recipientFilter(recipient string, filter common.NotificationFilter) bson.M {
	query := bson.M{"recipient": recipient}
	if filter.ReadState != "" {
		query["read_state"] = string(filter.ReadState)
	}
	return query
}

func (r *notificationRepository) ByRecipient(
	ctx context.Context,
	recipient string,
	filter common.NotificationFilter,
	page common.Page,
) ([]*common.Notification, int64, error) {
	query := recipientFilter(recipient, filter)

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Size))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get user notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []notificationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	result := make([]*common.Notification, len(docs))
	for i := range docs {
		result[i] = docs[i].toDomain()
	}
	return result, total, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipient string) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, recipientFilter(recipient, common.NotificationFilter{ReadState: common.Unread}))
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) SetReadState(ctx context.Context, id string, state common.ReadState, at time.Time) (*common.Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.NotFoundf("notification %s", id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"read_state": string(state), "updated_at": at}}

	var doc notificationDoc
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.NotFoundf("notification %s", id)
		}
		return nil, fmt.Errorf("failed to update notification read state: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipient string, at time.Time) (int64, error) {
	result, err := r.coll.UpdateMany(ctx,
		recipientFilter(recipient, common.NotificationFilter{ReadState: common.Unread}),
		bson.M{"$set": bson.M{"read_state": string(common.Read), "updated_at": at}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return common.NotFoundf("notification %s", id)
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if result.DeletedCount == 0 {
		return common.NotFoundf("notification %s", id)
	}
	return nil
}

func (r *notificationRepository) DeleteByRecipient(ctx context.Context, recipient string) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"recipient": recipient})
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return result.DeletedCount, nil
}
