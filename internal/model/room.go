package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Room is a screening room.  Capacity is the denominator of every
// occupancy figure; a zero capacity reports 0% occupancy.
type Room struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name          string             `bson:"room_name" json:"room_name" validate:"required"`
	Capacity      int                `bson:"capacity" json:"capacity" validate:"gte=0"`
	ScreenType    string             `bson:"screen_type" json:"screen_type"`
	AudioSystem   string             `bson:"audio_system" json:"audio_system"`
	Accessibility bool               `bson:"acessibility" json:"acessibility"`
	SessionIDs    []string           `bson:"session_ids" json:"session_ids"`
}
