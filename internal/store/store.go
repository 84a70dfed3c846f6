// Package store abstracts the document database behind a small interface.
// Documents are exchanged as BSON so every backend (MongoDB, the SQL
// document tables and the in-memory store) speaks the same encoding.
// Identifiers are 24-character hex ObjectIDs regardless of backend.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNoDocument is returned by FindOne when no document matches the id.
var ErrNoDocument = errors.New("no document")

// ErrInvalidID is returned when an identifier is not a valid ObjectID hex.
var ErrInvalidID = errors.New("invalid id")

// FindOptions controls pagination for Find.  A zero Limit means no limit.
type FindOptions struct {
	Skip  int64
	Limit int64
}

// Store is the set of document operations the service consumes.  Every
// method takes the request context; implementations must be safe for
// concurrent use.
type Store interface {
	Find(ctx context.Context, coll string, f Filter, opts FindOptions) ([]bson.Raw, error)
	FindOne(ctx context.Context, coll, id string) (bson.Raw, error)
	InsertOne(ctx context.Context, coll string, doc any) (string, error)
	UpdateOne(ctx context.Context, coll string, f Filter, u Update) (int64, error)
	UpdateMany(ctx context.Context, coll string, f Filter, u Update) (int64, error)
	DeleteOne(ctx context.Context, coll string, f Filter) (int64, error)
	DeleteMany(ctx context.Context, coll string, f Filter) (int64, error)
	Count(ctx context.Context, coll string, f Filter) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NewID returns a fresh identifier in the store's hex format.  Inserts
// assign their own ids; NewID serves tests that need an id no document has.
func NewID() string { return primitive.NewObjectID().Hex() }

// ValidID reports whether s is syntactically a store identifier.
func ValidID(s string) bool { return primitive.IsValidObjectID(s) }

// toDocument converts any BSON-marshalable value into a bson.M, assigning a
// fresh _id when the value has none.  The returned id is the hex form.
func toDocument(v any) (bson.M, string, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, "", err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, "", err
	}
	switch id := doc["_id"].(type) {
	case primitive.ObjectID:
		if id.IsZero() {
			id = primitive.NewObjectID()
			doc["_id"] = id
		}
		return doc, id.Hex(), nil
	case string:
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, "", ErrInvalidID
		}
		doc["_id"] = oid
		return doc, id, nil
	case nil:
		oid := primitive.NewObjectID()
		doc["_id"] = oid
		return doc, oid.Hex(), nil
	default:
		return nil, "", ErrInvalidID
	}
}

// cloneDocument deep copies a document by round-tripping it through BSON.
func cloneDocument(doc bson.M) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
