package models

import "time"

// DateOnly is the wire format for delivery dates; no time-of-day component.
const DateOnly = "2006-01-02"

type Order struct {
	OrderID      string    `json:"order_id"`
	CustomerID   string    `json:"customer_id"`
	ProductID    string    `json:"product_id"`
	NumBoxes     int       `json:"num_boxes"`
	DeliveryDate time.Time `json:"delivery_date"`
}

type Customer struct {
	CustomerID string  `json:"customer_id"`
	Name       string  `json:"name"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Region     string  `json:"region"`
}

type Product struct {
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	WeightPerBox float64 `json:"weight_per_box_kg"`
	SizePerBox   float64 `json:"size_per_box_m3"`
}

// TruckType is a catalog entry, not a physical vehicle. An allocation run may use
// a type any number of times.
type TruckType struct {
	TruckType      string  `json:"truck_type"`
	CapacityTons   float64 `json:"capacity_tons"`
	CostPerKm      float64 `json:"cost_per_km"`
	FuelEfficiency float64 `json:"fuel_efficiency_kmpl"`
	Region         string  `json:"region,omitempty"`
}

// CapacityKg returns the raw physical capacity in kilograms.
func (t TruckType) CapacityKg() float64 {
	return t.CapacityTons * 1000
}

// CostPerKg is the catalog cost normalized by raw capacity, used by the
// cost-optimized truck ordering.
func (t TruckType) CostPerKg() float64 {
	capacity := t.CapacityKg()
	if capacity == 0 {
		return 0
	}
	return t.CostPerKm / capacity
}

type Warehouse struct {
	Region    string  `json:"region"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CustomerDemand is the per-customer aggregation of one date's orders.
// It is derived data, recomputed every run, never persisted as authoritative state.
type CustomerDemand struct {
	CustomerID    string   `json:"customer_id"`
	Name          string   `json:"name"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Region        string   `json:"region"`
	TotalWeightKg float64  `json:"total_weight_kg"`
	TotalVolumeM3 float64  `json:"total_volume_m3"`
	OrderIDs      []string `json:"order_ids"`

	// RouteOrder is assigned by the sequencer: 1 = first stop after the depot.
	RouteOrder int `json:"route_order"`
}

// TruckTrip is the terminal output artifact of an allocation run. Immutable once
// computed.
type TruckTrip struct {
	TripID             string           `json:"trip_id"`
	TruckType          string           `json:"truck_type"`
	Region             string           `json:"region"`
	Customers          []CustomerDemand `json:"customers"`
	TotalWeightKg      float64          `json:"total_weight_kg"`
	TruckCapacityKg    float64          `json:"truck_capacity_kg"`
	UtilizationPercent float64          `json:"utilization_percent"`
	TotalDistanceKm    float64          `json:"total_distance_km"`
	FuelLitres         float64          `json:"fuel_litres"`
	FuelCost           float64          `json:"fuel_cost"`
	EmissionsKg        float64          `json:"emissions_kg"`
	DeliveryDate       time.Time        `json:"delivery_date"`
}

// UnallocatedDemand records a customer (or leftover grouped batch) that no truck
// type could legally carry. Explicit gap reporting, never a silent drop.
type UnallocatedDemand struct {
	CustomerID    string  `json:"customer_id"`
	Name          string  `json:"name"`
	Region        string  `json:"region"`
	TotalWeightKg float64 `json:"total_weight_kg"`
	Reason        string  `json:"reason"`
}

type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`
	Summary    []byte    `json:"summary"`
}
