package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ticket is a seat sold for a session.  A ticket has at most one payment;
// PaymentDetailsID is empty until one is attached.
type Ticket struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ChairNumber      int                `bson:"chair_number" json:"chair_number" validate:"gte=0"`
	TicketType       string             `bson:"ticket_type" json:"ticket_type" validate:"required"`
	TicketPrice      float64            `bson:"ticket_price" json:"ticket_price" validate:"gte=0"`
	PurchaseDate     time.Time          `bson:"purchase_date" json:"purchase_date" validate:"required"`
	PaymentStatus    string             `bson:"payment_status" json:"payment_status" validate:"required"`
	SessionID        string             `bson:"session_id" json:"session_id" validate:"required"`
	PaymentDetailsID string             `bson:"payment_details_id,omitempty" json:"payment_details_id,omitempty"`
}

// Paid reports whether the ticket counts towards revenue.
func (t Ticket) Paid() bool { return t.PaymentStatus == StatusPaid }
