package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/truckdispatch/backend/internal/models"
)

const (
	WarnOrphanCustomer = "ORPHAN_CUSTOMER"
	WarnOrphanProduct  = "ORPHAN_PRODUCT"
	WarnBadRecord      = "BAD_RECORD"
	WarnNoWarehouse    = "NO_WAREHOUSE"
	WarnNoTrucks       = "NO_TRUCKS"
	WarnAllocationGap  = "ALLOCATION_GAP"
)

// Warning is a non-fatal data or coverage problem surfaced to the caller.
// The run continues; nothing is silently dropped.
type Warning struct {
	Code     string   `json:"code"`
	Region   string   `json:"region,omitempty"`
	Message  string   `json:"message"`
	OrderIDs []string `json:"order_ids,omitempty"`
}

// AggregateDemand joins one date's orders with customer and product data and
// sums per-customer weight and volume.
//
// Join policy: an order whose customer is unknown cannot be delivered anywhere
// and is excluded, surfaced in a warning listing the affected order ids. An
// order whose product is unknown keeps its boxes using the flat fallback
// weight per box (and zero volume), also surfaced as a warning. Records with
// negative boxes, weight, or size are skipped with a warning.
//
// Output is sorted by customer id so identical input always aggregates to an
// identical summary.
func AggregateDemand(
	orders []models.Order,
	customers []models.Customer,
	products []models.Product,
	date time.Time,
	fallbackBoxWeightKg float64,
) ([]models.CustomerDemand, []Warning) {
	customerByID := make(map[string]models.Customer, len(customers))
	for _, c := range customers {
		customerByID[c.CustomerID] = c
	}
	productByID := make(map[string]models.Product, len(products))
	for _, p := range products {
		productByID[p.ProductID] = p
	}

	var (
		orphanCustomerIDs []string
		orphanProductIDs  []string
		badRecordIDs      []string
	)

	byCustomer := map[string]*models.CustomerDemand{}

	for _, o := range orders {
		if !sameDate(o.DeliveryDate, date) {
			continue
		}
		if o.NumBoxes < 0 {
			badRecordIDs = append(badRecordIDs, o.OrderID)
			continue
		}

		cust, ok := customerByID[o.CustomerID]
		if !ok {
			orphanCustomerIDs = append(orphanCustomerIDs, o.OrderID)
			continue
		}

		weightPerBox := fallbackBoxWeightKg
		sizePerBox := 0.0
		if prod, ok := productByID[o.ProductID]; ok {
			if prod.WeightPerBox < 0 || prod.SizePerBox < 0 {
				badRecordIDs = append(badRecordIDs, o.OrderID)
				continue
			}
			weightPerBox = prod.WeightPerBox
			sizePerBox = prod.SizePerBox
		} else {
			orphanProductIDs = append(orphanProductIDs, o.OrderID)
		}

		d, ok := byCustomer[o.CustomerID]
		if !ok {
			d = &models.CustomerDemand{
				CustomerID: cust.CustomerID,
				Name:       cust.Name,
				Latitude:   cust.Latitude,
				Longitude:  cust.Longitude,
				Region:     cust.Region,
			}
			byCustomer[o.CustomerID] = d
		}
		d.TotalWeightKg += float64(o.NumBoxes) * weightPerBox
		d.TotalVolumeM3 += float64(o.NumBoxes) * sizePerBox
		d.OrderIDs = append(d.OrderIDs, o.OrderID)
	}

	out := make([]models.CustomerDemand, 0, len(byCustomer))
	for _, d := range byCustomer {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })

	var warnings []Warning
	if len(orphanCustomerIDs) > 0 {
		sort.Strings(orphanCustomerIDs)
		warnings = append(warnings, Warning{
			Code:     WarnOrphanCustomer,
			Message:  fmt.Sprintf("%d order(s) reference unknown customers and were excluded", len(orphanCustomerIDs)),
			OrderIDs: orphanCustomerIDs,
		})
	}
	if len(orphanProductIDs) > 0 {
		sort.Strings(orphanProductIDs)
		warnings = append(warnings, Warning{
			Code:     WarnOrphanProduct,
			Message:  fmt.Sprintf("%d order(s) reference unknown products; flat %.0f kg/box assumed", len(orphanProductIDs), fallbackBoxWeightKg),
			OrderIDs: orphanProductIDs,
		})
	}
	if len(badRecordIDs) > 0 {
		sort.Strings(badRecordIDs)
		warnings = append(warnings, Warning{
			Code:     WarnBadRecord,
			Message:  fmt.Sprintf("%d order(s) skipped due to negative quantity, weight, or size", len(badRecordIDs)),
			OrderIDs: badRecordIDs,
		})
	}
	return out, warnings
}

// sameDate compares calendar dates, ignoring any time-of-day component.
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
