// Package model defines the data types shared by the solar assessment engine.
package model

import "strings"

// Address is a free-text postal address supplied by the caller.
type Address struct {
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// Complete reports whether every address field is non-blank.
func (a Address) Complete() bool {
	for _, f := range []string{a.Street, a.City, a.PostalCode, a.Country} {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

// OneLine joins the non-empty address fields with ", ".
func (a Address) OneLine() string {
	parts := make([]string, 0, 4)
	for _, f := range []string{a.Street, a.City, a.PostalCode, a.Country} {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, ", ")
}

// GeocodedLocation is the resolved coordinate for an address. IsDefault is
// set when the region's default location was substituted, with Reason
// explaining why.
type GeocodedLocation struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formattedAddress"`
	IsDefault        bool    `json:"isDefault"`
	Reason           string  `json:"reason,omitempty"`
}
