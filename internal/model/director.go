package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Director is a film director.  MovieIDs is kept in sync with
// Movie.DirectorIDs from both sides.
//
// Fields:
//  ID           – store identifier, rendered as a hex string.
//  Name         – director_name.
//  BirthDate    – free-form date string as supplied by the client.
//  MovieIDs     – movies directed, as hex identifiers.
type Director struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"director_name" json:"director_name" validate:"required"`
	Nationality string             `bson:"nationality" json:"nationality" validate:"required"`
	BirthDate   string             `bson:"birth_date" json:"birth_date" validate:"required"`
	Biography   string             `bson:"biography" json:"biography"`
	Website     string             `bson:"website" json:"website"`
	MovieIDs    []string           `bson:"movie_ids" json:"movie_ids"`
}
