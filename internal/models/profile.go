package models

import "time"

const DefaultCountry = "United States"

// Profile holds a user's contact and shipping details. It is separate from
// User so the account row stays small.
type Profile struct {
	UserID       string    `json:"userId"`
	DisplayName  string    `json:"displayName"`
	Phone        string    `json:"phone"`
	AddressLine1 string    `json:"addressLine1"`
	AddressLine2 string    `json:"addressLine2"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postalCode"`
	Country      string    `json:"country"`
	Bio          string    `json:"bio"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ProfileInput struct {
	DisplayName  string `json:"displayName" validate:"max=100"`
	Phone        string `json:"phone" validate:"max=30"`
	AddressLine1 string `json:"addressLine1" validate:"max=200"`
	AddressLine2 string `json:"addressLine2" validate:"max=200"`
	City         string `json:"city" validate:"max=100"`
	State        string `json:"state" validate:"max=100"`
	PostalCode   string `json:"postalCode" validate:"max=20"`
	Country      string `json:"country" validate:"max=100"`
	Bio          string `json:"bio" validate:"max=1000"`
}
