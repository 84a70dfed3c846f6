package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilterMatch(t *testing.T) {
	oid := primitive.NewObjectID()
	ref := primitive.NewObjectID()
	doc := bson.M{
		"_id":       oid,
		"title":     "The Long Night",
		"refs":      primitive.A{ref},
		"duration":  int32(120),
		"rating":    7.5,
		"date_time": primitive.NewDateTimeFromTime(time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC)),
	}

	cases := []struct {
		name string
		f    Filter
		want bool
	}{
		{"empty", nil, true},
		{"id as hex", ByID(oid.Hex()), true},
		{"id list", ByIDs([]string{NewID(), oid.Hex()}), true},
		{"contains ignores case", Filter{Contains("title", "long NIGHT")}, true},
		{"contains miss", Filter{Contains("title", "day")}, false},
		{"array element", Filter{Eq("refs", ref.Hex())}, true},
		{"array element objectid", Filter{Eq("refs", ref)}, true},
		{"int vs float", Filter{Eq("duration", 120)}, true},
		{"range", Filter{Gte("rating", 7), Lte("rating", 8)}, true},
		{"range miss", Filter{Gte("rating", 8)}, false},
		{"date range", Filter{Gte("date_time", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))}, true},
		{"missing field", Filter{Eq("genre", "Drama")}, false},
		{"type mismatch", Filter{Gte("title", 3)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.f.Match(doc))
		})
	}
}

func TestFilterToBSON(t *testing.T) {
	id := NewID()
	q, err := Filter{ByID(id)[0], Gte("rating", 5), Lte("rating", 9), Contains("title", "a.b")}.toBSON()
	assert.NoError(t, err)

	oid, _ := primitive.ObjectIDFromHex(id)
	assert.Equal(t, oid, q["_id"])
	assert.Equal(t, bson.M{"$gte": 5, "$lte": 9}, q["rating"])
	assert.Equal(t, bson.M{"$regex": `a\.b`, "$options": "i"}, q["title"])

	_, err = ByIDs([]string{"zz"}).toBSON()
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestUpdateApply(t *testing.T) {
	doc := bson.M{"_id": "keep", "list": primitive.A{"a", "b"}, "gone": 1}
	u := Update{
		Set:      bson.M{"_id": "changed", "name": "n"},
		Unset:    []string{"gone"},
		AddToSet: bson.M{"list": "a"},
		Pull:     bson.M{"list": "b"},
	}
	assert.NoError(t, u.Apply(doc))
	assert.Equal(t, "keep", doc["_id"])
	assert.Equal(t, "n", doc["name"])
	assert.NotContains(t, doc, "gone")
	assert.Equal(t, primitive.A{"a"}, doc["list"])

	assert.Equal(t, bson.M{
		"$set":      bson.M{"name": "n"},
		"$unset":    bson.M{"gone": ""},
		"$addToSet": bson.M{"list": "a"},
		"$pull":     bson.M{"list": "b"},
	}, u.toBSON())
	assert.True(t, Update{}.Empty())
}
