package model

// Collection names in the document store.
const (
	Directors = "directors"
	Movies    = "movies"
	Rooms     = "rooms"
	Sessions  = "sessions"
	Tickets   = "tickets"
	Payments  = "payments"
)

// StatusPaid is the payment_status value of a paid ticket.  Only paid
// tickets count towards revenue and occupancy.
const StatusPaid = "pago"
