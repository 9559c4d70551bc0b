package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppNotification is an in-app message delivered to a single user, created
// as a side effect of a registration status decision.
type AppNotification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserUID   string             `bson:"user_uid" json:"user_uid"`
	Message   string             `bson:"message" json:"message"`
	Read      bool               `bson:"read" json:"read"`
	Href      string             `bson:"href,omitempty" json:"href,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}
