package models

import "time"

// Identity is the credential record behind the identity gateway. The _id is
// the uid handed out to the rest of the system; profile documents reference
// it as their own _id.
type Identity struct {
	UID          string    `bson:"_id" json:"uid"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	DisplayName  string    `bson:"display_name" json:"display_name"`
	Role         string    `bson:"role" json:"role"`
	Revoked      bool      `bson:"revoked" json:"revoked"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
