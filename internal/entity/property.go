package entity

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Property struct {
	Id                  uuid.UUID      `json:"id" db:"id"`
	UserId              uuid.UUID      `json:"userId" db:"user_id"`
	Name                string         `json:"name" db:"name"`
	AddressLine1        string         `json:"addressLine1" db:"address_line_1"`
	AddressLine2        sql.NullString `json:"addressLine2" db:"address_line_2"`
	City                string         `json:"city" db:"city"`
	State               string         `json:"state" db:"state"`
	ZipCode             string         `json:"zipCode" db:"zip_code"`
	Country             string         `json:"country" db:"country"`
	PropertySize        sql.NullString `json:"propertySize" db:"property_size"`
	SpecialInstructions sql.NullString `json:"specialInstructions" db:"special_instructions"`
	Active              bool           `json:"active" db:"active"`
	CreatedAt           time.Time      `json:"createdAt" db:"created_at"`
}

// service + repo input model
type CreatePropertyInput struct {
	OwnerUsername       string // given
	Name                string // given
	AddressLine1        string // given
	AddressLine2        string // optional
	City                string // given
	State               string // given
	ZipCode             string // given
	Country             string // defaults to "US"
	PropertySize        string // optional: small|medium|large|xlarge
	SpecialInstructions string // optional
	UserId              string // resolved by the service
	// Id UUID sets automatically
	// CreatedAt sets automatically
}

// controller model
type PropertyOutputModel struct {
	Id           string `json:"id"`
	UserId       string `json:"userId"`
	Name         string `json:"name,omitempty"`
	AddressLine1 string `json:"addressLine1"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
	Country      string `json:"country"`
	PropertySize string `json:"propertySize,omitempty"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"createdAt"`
}
