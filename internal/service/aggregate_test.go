package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truckdispatch/backend/internal/models"
)

var aggDate = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func aggCustomers() []models.Customer {
	return []models.Customer{
		{CustomerID: "c1", Name: "Apex Stores", Latitude: 12.97, Longitude: 77.59, Region: "KA"},
		{CustomerID: "c2", Name: "Blue Mart", Latitude: 13.08, Longitude: 80.27, Region: "TN"},
	}
}

func aggProducts() []models.Product {
	return []models.Product{
		{ProductID: "p1", Name: "Rice 25kg", WeightPerBox: 25, SizePerBox: 0.04},
		{ProductID: "p2", Name: "Oil 10kg", WeightPerBox: 10, SizePerBox: 0.02},
	}
}

func TestAggregateDemandSumsPerCustomer(t *testing.T) {
	orders := []models.Order{
		{OrderID: "o1", CustomerID: "c1", ProductID: "p1", NumBoxes: 10, DeliveryDate: aggDate},
		{OrderID: "o2", CustomerID: "c1", ProductID: "p2", NumBoxes: 5, DeliveryDate: aggDate},
		{OrderID: "o3", CustomerID: "c2", ProductID: "p1", NumBoxes: 4, DeliveryDate: aggDate},
	}

	demands, warnings := AggregateDemand(orders, aggCustomers(), aggProducts(), aggDate, DefaultFallbackBoxWeightKg)
	require.Empty(t, warnings)
	require.Len(t, demands, 2)

	// Sorted by customer id.
	assert.Equal(t, "c1", demands[0].CustomerID)
	assert.InDelta(t, 10*25+5*10, demands[0].TotalWeightKg, 1e-9)
	assert.InDelta(t, 10*0.04+5*0.02, demands[0].TotalVolumeM3, 1e-9)
	assert.Equal(t, []string{"o1", "o2"}, demands[0].OrderIDs)
	assert.Equal(t, "KA", demands[0].Region)

	assert.Equal(t, "c2", demands[1].CustomerID)
	assert.InDelta(t, 100, demands[1].TotalWeightKg, 1e-9)
}

func TestAggregateDemandConservation(t *testing.T) {
	orders := []models.Order{
		{OrderID: "o1", CustomerID: "c1", ProductID: "p1", NumBoxes: 7, DeliveryDate: aggDate},
		{OrderID: "o2", CustomerID: "c2", ProductID: "p2", NumBoxes: 3, DeliveryDate: aggDate},
		{OrderID: "o3", CustomerID: "c1", ProductID: "p2", NumBoxes: 2, DeliveryDate: aggDate},
	}
	demands, _ := AggregateDemand(orders, aggCustomers(), aggProducts(), aggDate, DefaultFallbackBoxWeightKg)

	var got float64
	for _, d := range demands {
		got += d.TotalWeightKg
	}
	want := 7.0*25 + 3*10 + 2*10
	assert.InDelta(t, want, got, 1e-9)
}

func TestAggregateDemandFiltersByCalendarDate(t *testing.T) {
	orders := []models.Order{
		{OrderID: "o1", CustomerID: "c1", ProductID: "p1", NumBoxes: 1, DeliveryDate: aggDate.Add(15 * time.Hour)},
		{OrderID: "o2", CustomerID: "c1", ProductID: "p1", NumBoxes: 1, DeliveryDate: aggDate.AddDate(0, 0, 1)},
	}
	demands, _ := AggregateDemand(orders, aggCustomers(), aggProducts(), aggDate, DefaultFallbackBoxWeightKg)
	require.Len(t, demands, 1)
	// Only o1 matches: time-of-day is ignored, the next day is not.
	assert.Equal(t, []string{"o1"}, demands[0].OrderIDs)
}

func TestAggregateDemandOrphanCustomerExcluded(t *testing.T) {
	orders := []models.Order{
		{OrderID: "o1", CustomerID: "ghost", ProductID: "p1", NumBoxes: 2, DeliveryDate: aggDate},
		{OrderID: "o2", CustomerID: "c1", ProductID: "p1", NumBoxes: 1, DeliveryDate: aggDate},
	}
	demands, warnings := AggregateDemand(orders, aggCustomers(), aggProducts(), aggDate, DefaultFallbackBoxWeightKg)
	require.Len(t, demands, 1)
	assert.Equal(t, "c1", demands[0].CustomerID)

	require.Len(t, warnings, 1)
	assert.Equal(t, WarnOrphanCustomer, warnings[0].Code)
	assert.Equal(t, []string{"o1"}, warnings[0].OrderIDs)
}

func TestAggregateDemandOrphanProductUsesFallbackWeight(t *testing.T) {
	orders := []models.Order{
		{OrderID: "o1", CustomerID: "c1", ProductID: "missing", NumBoxes: 3, DeliveryDate: aggDate},
	}
	demands, warnings := AggregateDemand(orders, aggCustomers(), aggProducts(), aggDate, DefaultFallbackBoxWeightKg)
	require.Len(t, demands, 1)
	assert.InDelta(t, 30, demands[0].TotalWeightKg, 1e-9)
	assert.Zero(t, demands[0].TotalVolumeM3)

	require.Len(t, warnings, 1)
	assert.Equal(t, WarnOrphanProduct, warnings[0].Code)
	assert.Equal(t, []string{"o1"}, warnings[0].OrderIDs)
}

func TestAggregateDemandSkipsNegativeRecords(t *testing.T) {
	orders := []models.Order{
		{OrderID: "o1", CustomerID: "c1", ProductID: "p1", NumBoxes: -4, DeliveryDate: aggDate},
		{OrderID: "o2", CustomerID: "c1", ProductID: "p1", NumBoxes: 2, DeliveryDate: aggDate},
	}
	demands, warnings := AggregateDemand(orders, aggCustomers(), aggProducts(), aggDate, DefaultFallbackBoxWeightKg)
	require.Len(t, demands, 1)
	assert.InDelta(t, 50, demands[0].TotalWeightKg, 1e-9)

	require.Len(t, warnings, 1)
	assert.Equal(t, WarnBadRecord, warnings[0].Code)
	assert.Equal(t, []string{"o1"}, warnings[0].OrderIDs)
}
