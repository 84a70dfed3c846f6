package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Movie is a film in the catalogue.  SessionIDs is maintained by the
// session side; clients may send it but every id must exist.
type Movie struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title       string             `bson:"movie_title" json:"movie_title" validate:"required"`
	Genre       string             `bson:"genre" json:"genre" validate:"required"`
	Duration    int                `bson:"duration" json:"duration" validate:"gte=0"`
	Rating      string             `bson:"rating" json:"rating"`
	Synopsis    string             `bson:"synopsis" json:"synopsis"`
	ReleaseYear *int               `bson:"release_year,omitempty" json:"release_year"`
	DirectorIDs []string           `bson:"director_ids" json:"director_ids"`
	SessionIDs  []string           `bson:"session_ids" json:"session_ids"`
}
