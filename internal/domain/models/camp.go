package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Camp statuses. A camp starts Upcoming; the status refresh job moves it
// along as its dates pass.
const (
	CampUpcoming  = "Upcoming"
	CampOngoing   = "Ongoing"
	CampCompleted = "Completed"
)

// Camp is a scheduled training event cadets register for.
type Camp struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Location    string             `bson:"location" json:"location"`
	StartDate   time.Time          `bson:"start_date" json:"start_date"`
	EndDate     time.Time          `bson:"end_date" json:"end_date"`
	Status      string             `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DerivedStatus returns the status implied by the camp's dates at time now.
func (c Camp) DerivedStatus(now time.Time) string {
	switch {
	case now.Before(c.StartDate):
		return CampUpcoming
	case now.After(c.EndDate):
		return CampCompleted
	default:
		return CampOngoing
	}
}
