package store

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Op is a comparison operator in a filter condition.
type Op int

const (
	OpEq Op = iota
	OpIn
	OpContains
	OpGte
	OpLte
)

// Cond is a single predicate on a document field.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of conditions.  The empty filter matches every
// document.
type Filter []Cond

// ByID matches the document with the given hex identifier.
func ByID(id string) Filter { return Filter{Eq("_id", id)} }

// ByIDs matches any document whose identifier is in ids.
func ByIDs(ids []string) Filter {
	vals := make([]any, len(ids))
	for i, id := range ids {
		vals[i] = id
	}
	return Filter{{Field: "_id", Op: OpIn, Value: vals}}
}

// Eq matches when the field equals v.  Array fields match when any
// element equals v.
func Eq(field string, v any) Cond { return Cond{Field: field, Op: OpEq, Value: v} }

// In matches when the field (or any of its elements) equals one of vals.
func In(field string, vals ...any) Cond { return Cond{Field: field, Op: OpIn, Value: vals} }

// Contains matches string fields containing substr, ignoring case.
func Contains(field, substr string) Cond { return Cond{Field: field, Op: OpContains, Value: substr} }

// Gte matches fields greater than or equal to v.
func Gte(field string, v any) Cond { return Cond{Field: field, Op: OpGte, Value: v} }

// Lte matches fields less than or equal to v.
func Lte(field string, v any) Cond { return Cond{Field: field, Op: OpLte, Value: v} }

// And returns a new filter with the extra conditions appended.
func (f Filter) And(conds ...Cond) Filter {
	out := make(Filter, 0, len(f)+len(conds))
	out = append(out, f...)
	return append(out, conds...)
}

// Match evaluates the filter against a decoded document with MongoDB-like
// semantics.  It backs every store that cannot push filters down.
func (f Filter) Match(doc bson.M) bool {
	for _, c := range f {
		if !c.match(doc) {
			return false
		}
	}
	return true
}

func (c Cond) match(doc bson.M) bool {
	v, ok := doc[c.Field]
	if !ok || v == nil {
		return false
	}
	switch c.Op {
	case OpEq:
		return anyElement(v, func(x any) bool { return equalValues(x, c.Value) })
	case OpIn:
		vals, _ := c.Value.([]any)
		return anyElement(v, func(x any) bool {
			for _, want := range vals {
				if equalValues(x, want) {
					return true
				}
			}
			return false
		})
	case OpContains:
		sub, _ := c.Value.(string)
		return anyElement(v, func(x any) bool {
			s, ok := x.(string)
			return ok && strings.Contains(strings.ToLower(s), strings.ToLower(sub))
		})
	case OpGte:
		return anyElement(v, func(x any) bool {
			cmp, ok := compareValues(x, c.Value)
			return ok && cmp >= 0
		})
	case OpLte:
		return anyElement(v, func(x any) bool {
			cmp, ok := compareValues(x, c.Value)
			return ok && cmp <= 0
		})
	}
	return false
}

func anyElement(v any, pred func(any) bool) bool {
	if arr, ok := asArray(v); ok {
		for _, x := range arr {
			if pred(x) {
				return true
			}
		}
		return false
	}
	return pred(v)
}

func asArray(v any) ([]any, bool) {
	switch t := v.(type) {
	case primitive.A:
		return []any(t), true
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// normalize maps BSON-decoded values onto a small set of comparable kinds:
// float64, string, bool and time.Time.  ObjectIDs compare as hex strings so
// callers can filter on "_id" with plain identifiers.
func normalize(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	}
	return v
}

func equalValues(a, b any) bool {
	na, nb := normalize(a), normalize(b)
	if ta, ok := na.(time.Time); ok {
		tb, ok := nb.(time.Time)
		return ok && ta.Equal(tb)
	}
	return na == nb
}

func compareValues(a, b any) (int, bool) {
	na, nb := normalize(a), normalize(b)
	switch x := na.(type) {
	case float64:
		y, ok := nb.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := nb.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := nb.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}

// toBSON renders the filter as a MongoDB query document.
func (f Filter) toBSON() (bson.M, error) {
	q := bson.M{}
	for _, c := range f {
		val, err := bsonValue(c.Field, c.Value)
		if err != nil {
			return nil, err
		}
		var expr any
		switch c.Op {
		case OpEq:
			expr = val
		case OpIn:
			expr = bson.M{"$in": val}
		case OpContains:
			expr = bson.M{"$regex": regexp.QuoteMeta(fmt.Sprint(c.Value)), "$options": "i"}
		case OpGte:
			expr = bson.M{"$gte": val}
		case OpLte:
			expr = bson.M{"$lte": val}
		default:
			return nil, fmt.Errorf("unsupported filter op %d", c.Op)
		}
		if prev, ok := q[c.Field]; ok {
			// Two conditions on one field (e.g. a range) merge their operators.
			pm, okPrev := prev.(bson.M)
			em, okExpr := expr.(bson.M)
			if !okPrev || !okExpr {
				return nil, fmt.Errorf("conflicting conditions on %s", c.Field)
			}
			for k, v := range em {
				pm[k] = v
			}
			continue
		}
		q[c.Field] = expr
	}
	return q, nil
}

// bsonValue converts filter values for the "_id" field from hex strings to
// ObjectIDs; everything else passes through.
func bsonValue(field string, v any) (any, error) {
	if field != "_id" {
		if vals, ok := v.([]any); ok {
			return bson.A(vals), nil
		}
		return v, nil
	}
	conv := func(x any) (any, error) {
		s, ok := x.(string)
		if !ok {
			return x, nil
		}
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, ErrInvalidID
		}
		return oid, nil
	}
	if vals, ok := v.([]any); ok {
		out := make(bson.A, 0, len(vals))
		for _, x := range vals {
			cv, err := conv(x)
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	}
	return conv(v)
}

// validateIDs rejects "_id" conditions whose values are not identifiers, so
// every backend reports ErrInvalidID the way the Mongo translation does.
func (f Filter) validateIDs() error {
	for _, c := range f {
		if c.Field != "_id" {
			continue
		}
		if _, err := bsonValue(c.Field, c.Value); err != nil {
			return err
		}
	}
	return nil
}
