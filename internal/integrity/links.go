// Package integrity keeps the cross-collection references consistent.  The
// store has no foreign keys, so every create, update and delete goes
// through a Manager that validates references, writes the back-references
// on the other side and removes dangling ones on delete.  The relations
// are declared once in the link and cascade tables below.
package integrity

import "github.com/iliyamo/cinema-management-api/internal/model"

// Shape tells whether a reference field holds one id or a list of ids.
type Shape int

const (
	List Shape = iota
	Single
)

// Link describes a reference field of a collection and the back-reference
// it implies on the target collection.  When Propagate is false the field
// is only validated; its back-reference is owned by the other side.
type Link struct {
	Field     string
	Shape     Shape
	Target    string
	BackRef   string
	BackShape Shape
	Propagate bool
}

// Action is what a cascade does to a referencing document.
type Action int

const (
	Pull   Action = iota // remove the id from a list field
	Unset                // remove a single-valued field
	Delete               // delete the referencing document
)

func (a Action) String() string {
	switch a {
	case Pull:
		return "pull"
	case Unset:
		return "unset"
	case Delete:
		return "delete"
	}
	return "unknown"
}

// Cascade is applied to Collection for every document whose Field
// references a deleted entity.
type Cascade struct {
	Collection string
	Field      string
	Action     Action
}

var links = map[string][]Link{
	model.Directors: {
		{Field: "movie_ids", Shape: List, Target: model.Movies, BackRef: "director_ids", BackShape: List, Propagate: true},
	},
	model.Movies: {
		{Field: "director_ids", Shape: List, Target: model.Directors, BackRef: "movie_ids", BackShape: List, Propagate: true},
		{Field: "session_ids", Shape: List, Target: model.Sessions, BackRef: "movie_id", BackShape: Single},
	},
	model.Rooms: {
		{Field: "session_ids", Shape: List, Target: model.Sessions, BackRef: "room_id", BackShape: Single},
	},
	model.Sessions: {
		{Field: "movie_id", Shape: Single, Target: model.Movies, BackRef: "session_ids", BackShape: List, Propagate: true},
		{Field: "room_id", Shape: Single, Target: model.Rooms, BackRef: "session_ids", BackShape: List, Propagate: true},
		{Field: "ticket_ids", Shape: List, Target: model.Tickets, BackRef: "session_id", BackShape: Single},
	},
	model.Tickets: {
		{Field: "session_id", Shape: Single, Target: model.Sessions, BackRef: "ticket_ids", BackShape: List, Propagate: true},
		{Field: "payment_details_id", Shape: Single, Target: model.Payments, BackRef: "ticket_id", BackShape: Single, Propagate: true},
	},
	model.Payments: {
		{Field: "ticket_id", Shape: Single, Target: model.Tickets, BackRef: "payment_details_id", BackShape: Single, Propagate: true},
	},
}

var cascades = map[string][]Cascade{
	model.Directors: {
		{Collection: model.Movies, Field: "director_ids", Action: Pull},
	},
	model.Movies: {
		{Collection: model.Directors, Field: "movie_ids", Action: Pull},
		{Collection: model.Sessions, Field: "movie_id", Action: Unset},
	},
	model.Rooms: {
		{Collection: model.Sessions, Field: "room_id", Action: Unset},
	},
	model.Sessions: {
		{Collection: model.Movies, Field: "session_ids", Action: Pull},
		{Collection: model.Rooms, Field: "session_ids", Action: Pull},
		{Collection: model.Tickets, Field: "session_id", Action: Unset},
	},
	model.Tickets: {
		{Collection: model.Sessions, Field: "ticket_ids", Action: Pull},
		{Collection: model.Payments, Field: "ticket_id", Action: Delete},
	},
	model.Payments: {
		{Collection: model.Tickets, Field: "payment_details_id", Action: Unset},
	},
}

// Links returns the reference fields declared for a collection.
func Links(coll string) []Link { return links[coll] }

// Cascades returns the cleanup rules run when a document of coll is deleted.
func Cascades(coll string) []Cascade { return cascades[coll] }
