package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/truckdispatch/backend/internal/models"
	"github.com/truckdispatch/backend/internal/utils"
)

// Built-in defaults, matching the original operational configuration.
const (
	DefaultMinLoadPercent      = 60.0
	DefaultMaxLoadPercent      = 95.0
	DefaultFuelPricePerLitre   = 90.0
	DefaultFuelEfficiencyKmpl  = 4.0
	DefaultFallbackBoxWeightKg = 10.0
)

const ReasonNoTrucksInRegion = "NO_TRUCKS_IN_REGION"

// Engine runs the full allocation pipeline over an immutable input snapshot.
// It performs no I/O; loading the snapshot and persisting the result belong to
// the caller.
type Engine struct {
	Logger zerolog.Logger
}

// RunInput is the read-only snapshot one allocation run operates on.
type RunInput struct {
	Orders     []models.Order
	Customers  []models.Customer
	Products   []models.Product
	Trucks     []models.TruckType
	Warehouses []models.Warehouse
	Date       time.Time
}

// RunSummary mirrors the shape persisted with each run: a chronological event
// list plus headline counts.
type RunSummary struct {
	Events []map[string]any `json:"events"`
	Counts map[string]any   `json:"counts"`
}

// RunResult is the complete outcome of one allocation run.
type RunResult struct {
	Trips       []models.TruckTrip         `json:"trips"`
	Unallocated []models.UnallocatedDemand `json:"unallocated"`
	Demands     []models.CustomerDemand    `json:"customer_summary"`
	Warnings    []Warning                  `json:"warnings"`
	Summary     RunSummary                 `json:"summary"`
}

// Run partitions the day's orders into independent per-region sub-problems,
// aggregates demand, sequences stops, packs trucks, and prices each committed
// trip. Regions are processed in sorted order and results concatenated, so a
// rerun over identical input yields an identical result.
func (e *Engine) Run(input RunInput, cfg AllocationConfig) (RunResult, error) {
	cfg = withDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return RunResult{}, fmt.Errorf("run allocation: %w", err)
	}

	result := RunResult{Summary: RunSummary{Counts: map[string]any{}}}
	start := time.Now()

	warehouseByRegion := make(map[string]models.Warehouse, len(input.Warehouses))
	for _, w := range input.Warehouses {
		warehouseByRegion[w.Region] = w
	}

	kmplByType := make(map[string]float64, len(input.Trucks))
	for _, t := range input.Trucks {
		if t.FuelEfficiency > 0 {
			kmplByType[t.TruckType] = t.FuelEfficiency
		}
	}

	regions := regionPartition(input.Orders, input.Customers, input.Date)
	if len(input.Trucks) == 0 && len(regions) > 0 {
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarnNoTrucks,
			Message: "truck catalog is empty; no trips can be formed",
		})
	}

	result.Summary.Events = append(result.Summary.Events, map[string]any{
		"type":    "region_partition",
		"regions": len(regions),
		"time":    time.Now().UTC(),
	})

	var (
		ordersExcluded     int
		customersAllocated int
	)

	for _, region := range sortedRegionNames(regions) {
		regionOrders := regions[region]

		demands, warnings := AggregateDemand(regionOrders, input.Customers, input.Products, input.Date, cfg.FallbackBoxWeightKg)
		for i := range warnings {
			warnings[i].Region = region
			if warnings[i].Code == WarnOrphanCustomer || warnings[i].Code == WarnBadRecord {
				ordersExcluded += len(warnings[i].OrderIDs)
			}
		}
		result.Warnings = append(result.Warnings, warnings...)
		if len(demands) == 0 {
			continue
		}

		depot, haveWarehouse := regionDepot(region, warehouseByRegion, demands)
		if !haveWarehouse {
			result.Warnings = append(result.Warnings, Warning{
				Code:    WarnNoWarehouse,
				Region:  region,
				Message: "no warehouse for region; customer centroid used as depot",
			})
		}

		sequenced := SequenceStops(depot, demands)
		result.Demands = append(result.Demands, sequenced...)

		trucks := regionTrucks(input.Trucks, region)
		if len(trucks) == 0 {
			// Orders exist but nothing can carry them. Report the gap and keep
			// going; other regions are unaffected.
			result.Warnings = append(result.Warnings, Warning{
				Code:    WarnAllocationGap,
				Region:  region,
				Message: fmt.Sprintf("%d customer(s) with demand but no eligible trucks", len(sequenced)),
			})
			for _, d := range sequenced {
				result.Unallocated = append(result.Unallocated, models.UnallocatedDemand{
					CustomerID:    d.CustomerID,
					Name:          d.Name,
					Region:        region,
					TotalWeightKg: Round2(d.TotalWeightKg),
					Reason:        ReasonNoTrucksInRegion,
				})
			}
			continue
		}

		var trips []models.TruckTrip
		var unallocated []models.UnallocatedDemand
		switch cfg.Strategy {
		case StrategyPerCustomer:
			trips, unallocated = AllocatePerCustomer(sequenced, trucks, cfg.Bounds)
		default:
			trips, unallocated = AllocateGrouped(sequenced, trucks, cfg)
		}

		for i := range trips {
			e.finalizeTrip(&trips[i], input.Date, region, i+1, depot, kmplByType, cfg)
			customersAllocated += len(trips[i].Customers)
		}
		for i := range unallocated {
			unallocated[i].TotalWeightKg = Round2(unallocated[i].TotalWeightKg)
		}

		result.Trips = append(result.Trips, trips...)
		result.Unallocated = append(result.Unallocated, unallocated...)

		e.Logger.Debug().
			Str("region", region).
			Int("customers", len(sequenced)).
			Int("trips", len(trips)).
			Int("unallocated", len(unallocated)).
			Msg("region allocated")
	}

	result.Summary.Events = append(result.Summary.Events, map[string]any{
		"type":            "allocation",
		"trips":           len(result.Trips),
		"unallocated":     len(result.Unallocated),
		"orders_excluded": ordersExcluded,
		"time":            time.Now().UTC(),
	})
	result.Summary.Events = append(result.Summary.Events, map[string]any{
		"type":       "done",
		"elapsed_ms": time.Since(start).Milliseconds(),
		"time":       time.Now().UTC(),
	})

	result.Summary.Counts["regions"] = len(regions)
	result.Summary.Counts["customers"] = len(result.Demands)
	result.Summary.Counts["customers_allocated"] = customersAllocated
	result.Summary.Counts["customers_unallocated"] = len(result.Unallocated)
	result.Summary.Counts["trips"] = len(result.Trips)
	result.Summary.Counts["warnings"] = len(result.Warnings)

	return result, nil
}

// finalizeTrip prices the trip and stamps identity and reporting figures.
// Monetary and distance values are rounded to 2dp here, at the reporting
// boundary; everything upstream keeps full precision.
func (e *Engine) finalizeTrip(trip *models.TruckTrip, date time.Time, region string, seq int, depot utils.Point, kmplByType map[string]float64, cfg AllocationConfig) {
	// The catalog row's fuel efficiency wins over the run-level figure.
	kmpl := cfg.FuelEfficiencyKmpl
	if v, ok := kmplByType[trip.TruckType]; ok {
		kmpl = v
	}
	cost := EstimateTrip(trip.Customers, depot, cfg.FuelPricePerLitre, kmpl)

	trip.TripID = utils.ShortHash(fmt.Sprintf("%s|%s|%d", date.Format(models.DateOnly), region, seq))
	trip.Region = region
	trip.DeliveryDate = date
	trip.TotalWeightKg = Round2(trip.TotalWeightKg)
	trip.UtilizationPercent = Round2(trip.UtilizationPercent)
	trip.TotalDistanceKm = Round2(cost.DistanceKm)
	trip.FuelLitres = Round2(cost.FuelLitres)
	trip.FuelCost = Round2(cost.FuelCost)
	trip.EmissionsKg = Round2(cost.EmissionsKg)
	for i := range trip.Customers {
		trip.Customers[i].TotalWeightKg = Round2(trip.Customers[i].TotalWeightKg)
		trip.Customers[i].TotalVolumeM3 = Round2(trip.Customers[i].TotalVolumeM3)
	}
}

// regionPartition groups the date's orders by their customer's region. Orders
// whose customer is unknown fall into the empty-region bucket and surface as
// orphan warnings during aggregation.
func regionPartition(orders []models.Order, customers []models.Customer, date time.Time) map[string][]models.Order {
	regionByCustomer := make(map[string]string, len(customers))
	for _, c := range customers {
		regionByCustomer[c.CustomerID] = c.Region
	}

	out := map[string][]models.Order{}
	for _, o := range orders {
		if !sameDate(o.DeliveryDate, date) {
			continue
		}
		region := regionByCustomer[o.CustomerID]
		out[region] = append(out[region], o)
	}
	return out
}

func sortedRegionNames(regions map[string][]models.Order) []string {
	names := make([]string, 0, len(regions))
	for r := range regions {
		names = append(names, r)
	}
	sort.Strings(names)
	return names
}

// regionDepot resolves the trip origin: the region's warehouse when one
// exists, otherwise the centroid of the region's customers.
func regionDepot(region string, warehouses map[string]models.Warehouse, demands []models.CustomerDemand) (utils.Point, bool) {
	if w, ok := warehouses[region]; ok {
		return utils.Point{Lat: w.Latitude, Lon: w.Longitude}, true
	}
	var lat, lon float64
	for _, d := range demands {
		lat += d.Latitude
		lon += d.Longitude
	}
	n := float64(len(demands))
	return utils.Point{Lat: lat / n, Lon: lon / n}, false
}

// regionTrucks restricts the catalog to trucks valid for the region. Trucks
// with no region are valid everywhere.
func regionTrucks(trucks []models.TruckType, region string) []models.TruckType {
	var out []models.TruckType
	for _, t := range trucks {
		if t.Region == "" || t.Region == region {
			out = append(out, t)
		}
	}
	return out
}

func withDefaults(cfg AllocationConfig) AllocationConfig {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyGrouped
	}
	if cfg.TruckOrder == "" {
		cfg.TruckOrder = TruckOrderCapacity
	}
	if cfg.Bounds.MinLoadPercent == 0 && cfg.Bounds.MaxLoadPercent == 0 {
		cfg.Bounds = LoadBounds{MinLoadPercent: DefaultMinLoadPercent, MaxLoadPercent: DefaultMaxLoadPercent}
	}
	if cfg.FuelPricePerLitre == 0 {
		cfg.FuelPricePerLitre = DefaultFuelPricePerLitre
	}
	if cfg.FuelEfficiencyKmpl == 0 {
		cfg.FuelEfficiencyKmpl = DefaultFuelEfficiencyKmpl
	}
	if cfg.FallbackBoxWeightKg == 0 {
		cfg.FallbackBoxWeightKg = DefaultFallbackBoxWeightKg
	}
	return cfg
}
