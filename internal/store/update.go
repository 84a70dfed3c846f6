package store

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Update describes the modifications applied to matched documents.  The
// operators mirror MongoDB's $set, $unset, $push, $addToSet and $pull; a
// field must appear under at most one operator.
type Update struct {
	Set      bson.M
	Unset    []string
	Push     bson.M
	AddToSet bson.M
	Pull     bson.M
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return len(u.Set) == 0 && len(u.Unset) == 0 && len(u.Push) == 0 && len(u.AddToSet) == 0 && len(u.Pull) == 0
}

// Apply mutates doc in place.  "_id" is never modified.
func (u Update) Apply(doc bson.M) error {
	if len(u.Set) > 0 {
		set, err := cloneDocument(u.Set)
		if err != nil {
			return err
		}
		for k, v := range set {
			if k == "_id" {
				continue
			}
			doc[k] = v
		}
	}
	for _, k := range u.Unset {
		if k != "_id" {
			delete(doc, k)
		}
	}
	for k, v := range u.Push {
		arr, _ := asArray(doc[k])
		doc[k] = primitive.A(append(arr, v))
	}
	for k, v := range u.AddToSet {
		arr, _ := asArray(doc[k])
		present := false
		for _, x := range arr {
			if equalValues(x, v) {
				present = true
				break
			}
		}
		if !present {
			arr = append(arr, v)
		}
		doc[k] = primitive.A(arr)
	}
	for k, v := range u.Pull {
		arr, ok := asArray(doc[k])
		if !ok {
			continue
		}
		kept := make(primitive.A, 0, len(arr))
		for _, x := range arr {
			if !equalValues(x, v) {
				kept = append(kept, x)
			}
		}
		doc[k] = kept
	}
	return nil
}

// toBSON renders the update as a MongoDB update document.
func (u Update) toBSON() bson.M {
	out := bson.M{}
	if len(u.Set) > 0 {
		set := bson.M{}
		for k, v := range u.Set {
			if k != "_id" {
				set[k] = v
			}
		}
		if len(set) > 0 {
			out["$set"] = set
		}
	}
	if len(u.Unset) > 0 {
		unset := bson.M{}
		for _, k := range u.Unset {
			unset[k] = ""
		}
		out["$unset"] = unset
	}
	if len(u.Push) > 0 {
		out["$push"] = u.Push
	}
	if len(u.AddToSet) > 0 {
		out["$addToSet"] = u.AddToSet
	}
	if len(u.Pull) > 0 {
		out["$pull"] = u.Pull
	}
	return out
}
