package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/truckdispatch/backend/internal/models"
)

var ErrNotFound = errors.New("geocode not found")

type Geocoder interface {
	Geocode(ctx context.Context, query string) (lat float64, lon float64, displayName string, confidence float64, err error)
}

// BuildCustomerQuery assembles a free-text geocoding query from whatever
// location fields the customer row carries.
func BuildCustomerQuery(country string, region string, name string) string {
	country = strings.TrimSpace(country)
	region = strings.TrimSpace(region)
	name = strings.TrimSpace(name)
	parts := []string{}
	if name != "" {
		parts = append(parts, name)
	}
	if region != "" {
		parts = append(parts, region)
	}
	if country != "" {
		parts = append(parts, country)
	}
	return strings.Join(parts, ", ")
}

// ShouldGeocode reports whether a customer needs coordinates filled in.
// Imported rows with missing coordinates come through as 0,0, which is in
// the Gulf of Guinea and never a real delivery point here.
func ShouldGeocode(c models.Customer, force bool) bool {
	if force {
		return true
	}
	return c.Latitude == 0 && c.Longitude == 0
}
