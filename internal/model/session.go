package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is one screening of a movie in a room.
type Session struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	DateTime          time.Time          `bson:"date_time" json:"date_time" validate:"required"`
	ExhibitionType    string             `bson:"exibition_type" json:"exibition_type"`
	LanguageAudio     string             `bson:"language_audio" json:"language_audio"`
	LanguageSubtitles string             `bson:"language_subtitles" json:"language_subtitles"`
	Status            string             `bson:"status_session" json:"status_session"`
	RoomID            string             `bson:"room_id" json:"room_id" validate:"required"`
	MovieID           string             `bson:"movie_id" json:"movie_id" validate:"required"`
	TicketIDs         []string           `bson:"ticket_ids" json:"ticket_ids"`
}
