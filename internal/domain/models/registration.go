package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Registration statuses. A registration starts Pending and transitions
// exactly once to Accepted or Rejected; both are terminal.
const (
	RegistrationPending  = "Pending"
	RegistrationAccepted = "Accepted"
	RegistrationRejected = "Rejected"
)

// CampRegistration links a cadet to a camp. The cadet fields are a snapshot
// taken at registration time and are not kept in sync with later profile
// edits.
type CampRegistration struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CampID primitive.ObjectID `bson:"camp_id" json:"camp_id"`

	CadetUID              string `bson:"cadet_uid" json:"cadet_uid"`
	CadetName             string `bson:"cadet_name" json:"cadet_name"`
	CadetYear             int    `bson:"cadet_year" json:"cadet_year"`
	CadetRegimentalNumber string `bson:"cadet_regimental_number,omitempty" json:"cadet_regimental_number,omitempty"`

	Status       string    `bson:"status" json:"status"`
	RegisteredAt time.Time `bson:"registered_at" json:"registered_at"`
}

// TerminalStatus reports whether s is a terminal registration status.
func TerminalStatus(s string) bool {
	return s == RegistrationAccepted || s == RegistrationRejected
}
