// Package property provides the rental property domain model and data access.
package property

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a property does not exist.
var ErrNotFound = errors.New("property not found")

// ErrInvalid is returned for properties missing required fields.
var ErrInvalid = errors.New("invalid property")

// Property is a rental listing owned by a landlord.
type Property struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	RentCents *int64    `json:"rent_cents,omitempty"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rent formats the monthly rent, e.g. "1 250,00 €". Empty when unknown.
func (p *Property) Rent() string {
	if p.RentCents == nil {
		return ""
	}
	return FormatCents(*p.RentCents)
}

// Label returns "Title, Address".
func (p *Property) Label() string {
	if p.Title == "" {
		return p.Address
	}
	return p.Title + ", " + p.Address
}

// FormatCents renders an amount in euro cents with a space as thousands
// separator and a comma before the cents.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	euros := fmt.Sprintf("%d", cents/100)
	for i := len(euros) - 3; i > 0; i -= 3 {
		euros = euros[:i] + " " + euros[i:]
	}
	return fmt.Sprintf("%s%s,%02d €", sign, euros, cents%100)
}

// scanProperty scans a property from a database row.
func scanProperty(row interface{ Scan(...any) error }) (*Property, error) {
	var p Property
	var rent sql.NullInt64

	err := row.Scan(&p.ID, &p.Title, &p.Address, &p.City, &rent, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if rent.Valid {
		p.RentCents = &rent.Int64
	}
	return &p, nil
}
