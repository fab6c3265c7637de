package schemaversion

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the Mongo collection holding one record per document collection.
const CollectionName = "schema_versions"

// MongoRepository stores records as {_id: <collection>, collection, version}.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) GetAll(ctx context.Context) ([]Record, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("read schema versions: %w", err)
	}
	defer cur.Close(ctx)
	out := []Record{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode schema versions: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) Set(ctx context.Context, collection string, version int) error {
	filter := bson.M{"_id": collection}
	update := bson.M{"$set": bson.M{"collection": collection, "version": version}}
	if _, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("save schema version %s=%d: %w", collection, version, err)
	}
	return nil
}
