package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the production backend.  Filters and updates are
// translated to native query documents so matching happens server side.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore wraps a connected client and selects the database by name.
func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(dbName)}
}

func (s *MongoStore) Find(ctx context.Context, coll string, f Filter, opts FindOptions) ([]bson.Raw, error) {
	q, err := f.toBSON()
	if err != nil {
		return nil, err
	}
	fo := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	cur, err := s.db.Collection(coll).Find(ctx, q, fo)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []bson.Raw{}
	for cur.Next(ctx) {
		// cur.Current is reused between iterations.
		raw := make(bson.Raw, len(cur.Current))
		copy(raw, cur.Current)
		out = append(out, raw)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) FindOne(ctx context.Context, coll, id string) (bson.Raw, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	raw, err := s.db.Collection(coll).FindOne(ctx, bson.M{"_id": oid}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoDocument
		}
		return nil, err
	}
	return raw, nil
}

func (s *MongoStore) InsertOne(ctx context.Context, coll string, v any) (string, error) {
	doc, id, err := toDocument(v)
	if err != nil {
		return "", err
	}
	if _, err := s.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MongoStore) UpdateOne(ctx context.Context, coll string, f Filter, u Update) (int64, error) {
	q, err := f.toBSON()
	if err != nil {
		return 0, err
	}
	if u.Empty() {
		n, err := s.db.Collection(coll).CountDocuments(ctx, q, options.Count().SetLimit(1))
		return n, err
	}
	res, err := s.db.Collection(coll).UpdateOne(ctx, q, u.toBSON())
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (s *MongoStore) UpdateMany(ctx context.Context, coll string, f Filter, u Update) (int64, error) {
	q, err := f.toBSON()
	if err != nil {
		return 0, err
	}
	if u.Empty() {
		return s.db.Collection(coll).CountDocuments(ctx, q)
	}
	res, err := s.db.Collection(coll).UpdateMany(ctx, q, u.toBSON())
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (s *MongoStore) DeleteOne(ctx context.Context, coll string, f Filter) (int64, error) {
	q, err := f.toBSON()
	if err != nil {
		return 0, err
	}
	res, err := s.db.Collection(coll).DeleteOne(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) DeleteMany(ctx context.Context, coll string, f Filter) (int64, error) {
	q, err := f.toBSON()
	if err != nil {
		return 0, err
	}
	res, err := s.db.Collection(coll).DeleteMany(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) Count(ctx context.Context, coll string, f Filter) (int64, error) {
	q, err := f.toBSON()
	if err != nil {
		return 0, err
	}
	return s.db.Collection(coll).CountDocuments(ctx, q)
}

func (s *MongoStore) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *MongoStore) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }
