package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime"
)

// MongoStore keeps each document collection in a Mongo collection of the
// same name. Documents are stored as {_id, _type, _v, data, updatedAt}.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

type mongoSnapshot struct {
	ID        string    `bson:"_id"`
	Type      string    `bson:"_type"`
	Version   int       `bson:"_v"`
	Data      bson.Raw  `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func dataField(path string) string { return "data." + path }

func (m *MongoStore) Create(ctx context.Context, collection, id string, data map[string]any) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if data == nil {
		data = map[string]any{}
	}
	doc := bson.M{"_id": id, "_type": realtime.Json0Type, "_v": 1, "data": data, "updatedAt": time.Now().UTC()}
	if _, err := m.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrExists
		}
		return "", fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return id, nil
}

func (m *MongoStore) Get(ctx context.Context, collection, id string) (*realtime.Snapshot, error) {
	var ms mongoSnapshot
	if err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&ms); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	data, err := decodeData(ms.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return &realtime.Snapshot{
		ID:         ms.ID,
		Collection: collection,
		Type:       ms.Type,
		Version:    ms.Version,
		Data:       data,
		UpdatedAt:  ms.UpdatedAt,
	}, nil
}

// decodeData renders BSON as relaxed extended JSON and decodes it with plain
// JSON types, so data read from Mongo has the same shape as data submitted by
// clients (float64 numbers, []any arrays, map[string]any objects).
func decodeData(raw bson.Raw) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	b, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoStore) Put(ctx context.Context, collection, id string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	update := bson.M{
		"$set": bson.M{"data": data, "updatedAt": time.Now().UTC()},
		"$inc": bson.M{"_v": 1},
	}
	res, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, collection, id string) error {
	res, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) ListIDs(ctx context.Context, collection string) ([]string, error) {
	return m.findIDs(ctx, collection, bson.M{})
}

func (m *MongoStore) FindIDs(ctx context.Context, collection, path string, value any) ([]string, error) {
	return m.findIDs(ctx, collection, bson.M{dataField(path): value})
}

func (m *MongoStore) findIDs(ctx context.Context, collection string, filter bson.M) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := m.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []string{}
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (m *MongoStore) EnsureIndex(ctx context.Context, collection, path string) error {
	idx := mongo.IndexModel{Keys: bson.D{{Key: dataField(path), Value: 1}}}
	if _, err := m.db.Collection(collection).Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("create index %s.%s: %w", collection, path, err)
	}
	return nil
}
