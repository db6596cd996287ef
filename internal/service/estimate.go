package service

import (
	"math"
	"sort"

	"github.com/truckdispatch/backend/internal/models"
	"github.com/truckdispatch/backend/internal/utils"
)

// EmissionFactorKgPerLitre is the CO2 emitted per litre of diesel burned.
// A domain constant, not configuration.
const EmissionFactorKgPerLitre = 2.68

// TripCost holds full-precision route metrics for one truck trip.
// Rounding happens only when figures are stamped onto the reported trip.
type TripCost struct {
	DistanceKm  float64
	FuelLitres  float64
	FuelCost    float64
	EmissionsKg float64
}

// EstimateTrip computes the round-trip metrics for a trip's stops: depot, then
// every stop in route order, then back to the depot.
func EstimateTrip(customers []models.CustomerDemand, depot utils.Point, fuelPricePerLitre, fuelEfficiencyKmpl float64) TripCost {
	if len(customers) == 0 {
		return TripCost{}
	}

	stops := make([]models.CustomerDemand, len(customers))
	copy(stops, customers)
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].RouteOrder < stops[j].RouteOrder })

	distance := 0.0
	current := depot
	for _, s := range stops {
		next := utils.Point{Lat: s.Latitude, Lon: s.Longitude}
		distance += utils.DistanceKm(current, next)
		current = next
	}
	distance += utils.DistanceKm(current, depot)

	litres := 0.0
	if fuelEfficiencyKmpl > 0 {
		litres = distance / fuelEfficiencyKmpl
	}

	return TripCost{
		DistanceKm:  distance,
		FuelLitres:  litres,
		FuelCost:    litres * fuelPricePerLitre,
		EmissionsKg: litres * EmissionFactorKgPerLitre,
	}
}

// Round2 rounds to two decimal places. Applied at the reporting boundary only.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
