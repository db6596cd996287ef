package service

import (
	"github.com/truckdispatch/backend/internal/models"
	"github.com/truckdispatch/backend/internal/utils"
)

// SequenceStops orders customer stops with a greedy nearest-neighbor heuristic
// anchored at the depot. At every step the unvisited customer closest to the
// current position is taken next; ties go to the first encountered, so output
// is deterministic for a given input order. O(n²), fine for the tens-to-low-
// hundreds of stops a region sees per day.
//
// The result is a copy of the input in visiting order with RouteOrder set
// 1..N (1 = first stop after the depot).
func SequenceStops(depot utils.Point, demands []models.CustomerDemand) []models.CustomerDemand {
	if len(demands) == 0 {
		return nil
	}

	remaining := make([]models.CustomerDemand, len(demands))
	copy(remaining, demands)

	ordered := make([]models.CustomerDemand, 0, len(remaining))
	current := depot

	for len(remaining) > 0 {
		best := 0
		bestDist := utils.DistanceKm(current, utils.Point{Lat: remaining[0].Latitude, Lon: remaining[0].Longitude})
		for i := 1; i < len(remaining); i++ {
			d := utils.DistanceKm(current, utils.Point{Lat: remaining[i].Latitude, Lon: remaining[i].Longitude})
			if d < bestDist {
				best = i
				bestDist = d
			}
		}

		next := remaining[best]
		next.RouteOrder = len(ordered) + 1
		ordered = append(ordered, next)
		current = utils.Point{Lat: next.Latitude, Lon: next.Longitude}
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return ordered
}
