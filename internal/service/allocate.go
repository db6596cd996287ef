package service

import (
	"fmt"
	"sort"

	"github.com/truckdispatch/backend/internal/models"
)

// Allocation strategies. Two divergent allocators exist on purpose: the simple
// per-customer best-fit used for capacity reporting, and the FILO grouped packer
// that consolidates a whole route onto shared trucks.
const (
	StrategyPerCustomer = "per_customer"
	StrategyGrouped     = "grouped"
)

// Candidate truck ordering for the grouped packer.
const (
	TruckOrderCapacity  = "capacity"
	TruckOrderCostPerKg = "cost_per_kg"
)

const (
	ReasonNoSuitableTruck  = "NO_SUITABLE_TRUCK"
	ReasonBelowMinimumLoad = "BELOW_MINIMUM_LOAD"
	ReasonExceedsMaximum   = "EXCEEDS_EVERY_TRUCK_MAX"
)

// LoadBounds are the configured load-percent limits, expressed 0..100.
type LoadBounds struct {
	MinLoadPercent float64 `json:"min_load_percent" validate:"gte=0,lte=100"`
	MaxLoadPercent float64 `json:"max_load_percent" validate:"gte=0,lte=100"`
}

func (b LoadBounds) Validate() error {
	if b.MinLoadPercent < 0 || b.MinLoadPercent > 100 || b.MaxLoadPercent < 0 || b.MaxLoadPercent > 100 {
		return fmt.Errorf("load bounds: percents must be within [0,100], got min=%.1f max=%.1f", b.MinLoadPercent, b.MaxLoadPercent)
	}
	if b.MinLoadPercent >= b.MaxLoadPercent {
		return fmt.Errorf("load bounds: min_load_percent (%.1f) must be less than max_load_percent (%.1f)", b.MinLoadPercent, b.MaxLoadPercent)
	}
	return nil
}

// Window returns the legal [min,max] trip weight in kg for a truck type.
func (b LoadBounds) Window(t models.TruckType) (minKg, maxKg float64) {
	capacity := t.CapacityKg()
	return capacity * b.MinLoadPercent / 100, capacity * b.MaxLoadPercent / 100
}

// AllocationConfig controls one allocation run.
type AllocationConfig struct {
	Bounds     LoadBounds
	Strategy   string
	TruckOrder string

	// StrictMin requires a committed grouped trip to meet the truck's minimum
	// load threshold. When false, any non-empty accumulation commits.
	StrictMin bool

	FuelPricePerLitre   float64
	FuelEfficiencyKmpl  float64
	FallbackBoxWeightKg float64
}

func (c AllocationConfig) Validate() error {
	if err := c.Bounds.Validate(); err != nil {
		return err
	}
	switch c.Strategy {
	case StrategyPerCustomer, StrategyGrouped:
	default:
		return fmt.Errorf("allocation config: unknown strategy %q", c.Strategy)
	}
	switch c.TruckOrder {
	case "", TruckOrderCapacity, TruckOrderCostPerKg:
	default:
		return fmt.Errorf("allocation config: unknown truck order %q", c.TruckOrder)
	}
	return nil
}

// AllocatePerCustomer assigns each customer demand independently to the
// cheapest-per-kg truck type whose legal load window contains the customer's
// total weight. Customers no truck can legally carry are reported as
// unallocated, never forced onto an ill-fitting truck.
func AllocatePerCustomer(demands []models.CustomerDemand, trucks []models.TruckType, bounds LoadBounds) ([]models.TruckTrip, []models.UnallocatedDemand) {
	catalog := sortedCatalog(trucks, TruckOrderCostPerKg)

	var trips []models.TruckTrip
	var unallocated []models.UnallocatedDemand

	for _, d := range demands {
		assigned := false
		for _, truck := range catalog {
			minKg, maxKg := bounds.Window(truck)
			if d.TotalWeightKg < minKg || d.TotalWeightKg > maxKg {
				continue
			}
			trips = append(trips, models.TruckTrip{
				TruckType:       truck.TruckType,
				Region:          d.Region,
				Customers:       []models.CustomerDemand{d},
				TotalWeightKg:   d.TotalWeightKg,
				TruckCapacityKg: truck.CapacityKg(),
				// Utilization is measured against the raw physical capacity,
				// not the percent-adjusted window.
				UtilizationPercent: d.TotalWeightKg / truck.CapacityKg() * 100,
			})
			assigned = true
			break
		}
		if !assigned {
			unallocated = append(unallocated, models.UnallocatedDemand{
				CustomerID:    d.CustomerID,
				Name:          d.Name,
				Region:        d.Region,
				TotalWeightKg: d.TotalWeightKg,
				Reason:        ReasonNoSuitableTruck,
			})
		}
	}
	return trips, unallocated
}

// AllocateGrouped packs customers onto shared trucks with a FILO loading
// discipline: stops are taken in descending route order, so freight for the
// farthest stop goes in first and comes off last.
//
// Truck types are tried smallest-capacity-first (or cheapest-per-kg when
// configured) and are a reusable catalog, not a finite fleet. The loop
// terminates when the pool is empty or no truck type can commit any remaining
// customer; the leftover is reported rather than looped on forever.
func AllocateGrouped(demands []models.CustomerDemand, trucks []models.TruckType, cfg AllocationConfig) ([]models.TruckTrip, []models.UnallocatedDemand) {
	catalog := sortedCatalog(trucks, cfg.TruckOrder)

	remaining := make([]models.CustomerDemand, len(demands))
	copy(remaining, demands)
	// FILO: farthest-by-route stop first.
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].RouteOrder > remaining[j].RouteOrder
	})

	var trips []models.TruckTrip

	for len(remaining) > 0 {
		committed := false

		for _, truck := range catalog {
			minKg, maxKg := cfg.Bounds.Window(truck)

			var selected []int
			sum := 0.0
			for i, d := range remaining {
				if sum+d.TotalWeightKg <= maxKg {
					selected = append(selected, i)
					sum += d.TotalWeightKg
				}
			}
			if len(selected) == 0 {
				continue
			}
			if cfg.StrictMin && sum < minKg {
				continue
			}

			members := make([]models.CustomerDemand, 0, len(selected))
			for _, i := range selected {
				members = append(members, remaining[i])
			}
			trips = append(trips, models.TruckTrip{
				TruckType:          truck.TruckType,
				Region:             members[0].Region,
				Customers:          members,
				TotalWeightKg:      sum,
				TruckCapacityKg:    truck.CapacityKg(),
				UtilizationPercent: sum / truck.CapacityKg() * 100,
			})
			remaining = removeIndices(remaining, selected)
			committed = true
			break
		}

		if !committed {
			break
		}
	}

	var unallocated []models.UnallocatedDemand
	for _, d := range remaining {
		unallocated = append(unallocated, models.UnallocatedDemand{
			CustomerID:    d.CustomerID,
			Name:          d.Name,
			Region:        d.Region,
			TotalWeightKg: d.TotalWeightKg,
			Reason:        leftoverReason(d, catalog, cfg),
		})
	}
	return trips, unallocated
}

// leftoverReason explains why a customer could not be committed by the grouped
// packer: either its weight alone exceeds every truck's maximum window, or
// strict minimum enforcement left no truck able to commit.
func leftoverReason(d models.CustomerDemand, catalog []models.TruckType, cfg AllocationConfig) string {
	for _, truck := range catalog {
		_, maxKg := cfg.Bounds.Window(truck)
		if d.TotalWeightKg <= maxKg {
			return ReasonBelowMinimumLoad
		}
	}
	return ReasonExceedsMaximum
}

// sortedCatalog orders truck types for candidate selection. Capacity order
// avoids over-provisioning; cost-per-kg order is the cost-optimized variant.
// Ties fall back to the type name so runs are deterministic regardless of
// catalog input order.
func sortedCatalog(trucks []models.TruckType, order string) []models.TruckType {
	out := make([]models.TruckType, len(trucks))
	copy(out, trucks)
	switch order {
	case TruckOrderCostPerKg:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].CostPerKg() != out[j].CostPerKg() {
				return out[i].CostPerKg() < out[j].CostPerKg()
			}
			if out[i].CapacityTons != out[j].CapacityTons {
				return out[i].CapacityTons < out[j].CapacityTons
			}
			return out[i].TruckType < out[j].TruckType
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].CapacityTons != out[j].CapacityTons {
				return out[i].CapacityTons < out[j].CapacityTons
			}
			return out[i].TruckType < out[j].TruckType
		})
	}
	return out
}

func removeIndices(demands []models.CustomerDemand, indices []int) []models.CustomerDemand {
	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		drop[i] = struct{}{}
	}
	out := demands[:0]
	for i, d := range demands {
		if _, ok := drop[i]; !ok {
			out = append(out, d)
		}
	}
	return out
}
