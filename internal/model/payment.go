package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentDetail records how a ticket was paid.  Deleting the ticket deletes
// its payment.
type PaymentDetail struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	TransactionID string             `bson:"transaction_id" json:"transaction_id" validate:"required"`
	PaymentMethod string             `bson:"payment_method" json:"payment_method" validate:"required"`
	FinalPrice    float64            `bson:"final_price" json:"final_price" validate:"gte=0"`
	Status        string             `bson:"status" json:"status" validate:"required"`
	PaymentDate   time.Time          `bson:"payment_date" json:"payment_date" validate:"required"`
	TicketID      string             `bson:"ticket_id" json:"ticket_id" validate:"required"`
}
