// Package models defines server-side data models persisted in the database
// and the inputs accepted for creating and updating them.
package models

import "time"

// Accepted gender values. GenderOther is only accepted on update.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// Address is the place of residence attached one-to-one to a Person.
type Address struct {
	City            string `json:"city"`
	Street          string `json:"street"`
	HouseNumber     string `json:"houseNumber"`
	ApartmentNumber string `json:"apartmentNumber,omitempty"`
}

// Person is a profile owned by exactly one User.
type Person struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Name         string    `json:"name"`
	LastName     string    `json:"lastName"`
	Gender       string    `json:"gender"`
	Birthday     time.Time `json:"birthday"`
	NationalCode string    `json:"nationalCode"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	// PhotoKey is the object-storage key of the resized photo, empty if none.
	PhotoKey string   `json:"-"`
	HasPhoto bool     `json:"hasPhoto"`
	Address  *Address `json:"address,omitempty"`
}

// PersonInput is a full record submitted on creation. Every field is required.
type PersonInput struct {
	Name         string    `json:"name"`
	LastName     string    `json:"lastName"`
	Gender       string    `json:"gender"`
	Birthday     time.Time `json:"birthday"`
	NationalCode string    `json:"nationalCode"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Photo        []byte    `json:"photo"`
	Address      *Address  `json:"address"`
	// BirthdayMalformed marks a birthday that was supplied but could not be parsed.
	BirthdayMalformed bool `json:"-"`
}

// PersonPatch is a sparse update. Blank strings, a nil Birthday, an empty
// Photo and a nil Address mean "leave unchanged".
type PersonPatch struct {
	Name         string     `json:"name,omitempty"`
	LastName     string     `json:"lastName,omitempty"`
	Gender       string     `json:"gender,omitempty"`
	Birthday     *time.Time `json:"birthday,omitempty"`
	NationalCode string     `json:"nationalCode,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Email        string     `json:"email,omitempty"`
	Photo        []byte     `json:"photo,omitempty"`
	Address      *Address   `json:"address,omitempty"`
	// BirthdayMalformed marks a birthday that was supplied but could not be parsed.
	BirthdayMalformed bool `json:"-"`
}
