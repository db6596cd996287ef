package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truckdispatch/backend/internal/models"
	"github.com/truckdispatch/backend/internal/utils"
)

func demandAt(id string, lat, lon float64) models.CustomerDemand {
	return models.CustomerDemand{CustomerID: id, Latitude: lat, Longitude: lon}
}

func TestSequenceStopsEmpty(t *testing.T) {
	assert.Nil(t, SequenceStops(utils.Point{}, nil))
}

func TestSequenceStopsSingle(t *testing.T) {
	out := SequenceStops(utils.Point{Lat: 0, Lon: 0}, []models.CustomerDemand{demandAt("c1", 10, 10)})
	require.Len(t, out, 1)
	assert.Equal(t, "c1", out[0].CustomerID)
	assert.Equal(t, 1, out[0].RouteOrder)
}

func TestSequenceStopsCollinear(t *testing.T) {
	// Customers due north of the depot at increasing latitudes must be visited
	// in strictly increasing distance order.
	in := []models.CustomerDemand{
		demandAt("far", 0, 5),
		demandAt("near", 0, 1),
		demandAt("mid", 0, 3),
	}
	out := SequenceStops(utils.Point{Lat: 0, Lon: 0}, in)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"near", "mid", "far"}, []string{out[0].CustomerID, out[1].CustomerID, out[2].CustomerID})
	assert.Equal(t, 1, out[0].RouteOrder)
	assert.Equal(t, 2, out[1].RouteOrder)
	assert.Equal(t, 3, out[2].RouteOrder)
}

func TestSequenceStopsIsPermutation(t *testing.T) {
	in := []models.CustomerDemand{
		demandAt("a", 12.97, 77.59),
		demandAt("b", 13.08, 80.27),
		demandAt("c", 17.38, 78.48),
		demandAt("d", 19.07, 72.87),
		demandAt("e", 28.61, 77.21),
	}
	out := SequenceStops(utils.Point{Lat: 12.29, Lon: 76.63}, in)
	require.Len(t, out, len(in))

	seen := map[string]int{}
	for i, d := range out {
		seen[d.CustomerID]++
		assert.Equal(t, i+1, d.RouteOrder)
	}
	for _, d := range in {
		assert.Equal(t, 1, seen[d.CustomerID], "customer %s visited once", d.CustomerID)
	}
}

func TestSequenceStopsTieBreakFirstEncountered(t *testing.T) {
	// Two customers at the same point: input order decides.
	in := []models.CustomerDemand{
		demandAt("first", 0, 1),
		demandAt("second", 0, 1),
	}
	out := SequenceStops(utils.Point{Lat: 0, Lon: 0}, in)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].CustomerID)
	assert.Equal(t, "second", out[1].CustomerID)
}

func TestSequenceStopsDoesNotMutateInput(t *testing.T) {
	in := []models.CustomerDemand{
		demandAt("a", 0, 2),
		demandAt("b", 0, 1),
	}
	_ = SequenceStops(utils.Point{Lat: 0, Lon: 0}, in)
	assert.Equal(t, "a", in[0].CustomerID)
	assert.Equal(t, 0, in[0].RouteOrder)
}
