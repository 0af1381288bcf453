package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/webhook-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoClient(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	ix := mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "occurred_at", Value: -1}},
		Options: options.Index().SetName("conversation_occurred_idx"),
	}
	_, _ = coll.Indexes().CreateOne(context.Background(), ix)
	return &MongoStore{coll: coll}
}

func (s *MongoStore) FindByMessageID(ctx context.Context, id string) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var m domain.Message
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *MongoStore) UpsertMessage(ctx context.Context, m *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	m.StatusRank = domain.RankOf(m.Status)
	opts := options.Replace().SetUpsert(true)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": m.ID}, m, opts)
	return err
}

// UpdateStatus is a single conditional UpdateOne: the rank filter makes the
// read-compare-write atomic on the server, so concurrent status deliveries
// for the same id cannot interleave into a downgrade.
func (s *MongoStore) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rank := domain.RankOf(status)
	filter := bson.M{"_id": id, "status_rank": bson.M{"$lte": rank}}
	update := bson.M{"$set": bson.M{"status": status, "status_rank": rank}}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) DistinctConversationIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	vals, err := s.coll.Distinct(ctx, "conversation_id", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if id, ok := v.(string); ok && id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *MongoStore) LatestMessageFor(ctx context.Context, conversationID string) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "occurred_at", Value: -1}, {Key: "created_at", Value: -1}})
	var m domain.Message
	if err := s.coll.FindOne(ctx, bson.M{"conversation_id": conversationID}, opts).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *MongoStore) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}, {Key: "created_at", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*domain.Message{}
	for cur.Next(ctx) {
		var m domain.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}

func (s *MongoStore) DeleteMessage(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
