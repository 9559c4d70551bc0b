package models

import "time"

// UserProfile represents a cadet, manager, or admin profile document.
//
// The document _id is the opaque uid minted by the identity gateway; it is
// assigned once at creation and never changes. Profiles are stored in the
// collection mapped from Role (see CollectionForRole), so a profile's role
// is immutable after creation.
type UserProfile struct {
	UID   string `bson:"_id" json:"uid"`
	Role  string `bson:"role" json:"role"`
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Rank  string `bson:"rank,omitempty" json:"rank,omitempty"`
	Unit  string `bson:"unit,omitempty" json:"unit,omitempty"`

	// Cadet-only identifiers. RegimentalNumber changes are counted and
	// clamped; see RegimentalNumberEditCount.
	RegimentalNumber string `bson:"regimental_number,omitempty" json:"regimental_number,omitempty"`
	StudentID        string `bson:"student_id,omitempty" json:"student_id,omitempty"`

	// Contact numbers, 10-digit numeric strings.
	Phone    string `bson:"phone,omitempty" json:"phone,omitempty"`
	WhatsApp string `bson:"whatsapp,omitempty" json:"whatsapp,omitempty"`

	// Year ∈ {1,2,3}, cadets only.
	Year int `bson:"year,omitempty" json:"year,omitempty"`

	// Approved gates cadet login. Set false at signup; flipped by an admin.
	Approved bool `bson:"approved" json:"approved"`

	// Number of accepted regimental-number changes since creation.
	// Never exceeds MaxRegimentalNumberEdits.
	RegimentalNumberEditCount int `bson:"regimental_number_edit_count" json:"regimental_number_edit_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// MaxRegimentalNumberEdits is the lifetime cap on regimental-number changes.
// Once the edit count reaches this value, further changes are silently
// reverted to the stored value.
const MaxRegimentalNumberEdits = 2
