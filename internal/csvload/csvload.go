// Package csvload parses the master data CSV files shared by the import
// endpoint and the offline CLI. Parsers are lenient about header naming and
// report per-line errors instead of failing the whole file.
package csvload

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/truckdispatch/backend/internal/models"
)

// ParseDate accepts a plain YYYY-MM-DD date or an RFC3339 timestamp, which
// gets truncated to its UTC calendar date.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if d, err := time.Parse(models.DateOnly, raw); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}

func Orders(r io.Reader) ([]models.Order, []string) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var errs []string
	var out []models.Order

	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		orderID := normalizeTrim(getFieldAny(rec, index, "order_id", "order id", "id"))
		customerID := normalizeTrim(getFieldAny(rec, index, "customer_id", "customer id"))
		productID := normalizeTrim(getFieldAny(rec, index, "product_id", "product id"))
		boxesStr := normalizeTrim(getFieldAny(rec, index, "num_boxes", "boxes", "quantity", "qty"))
		dateStr := normalizeTrim(getFieldAny(rec, index, "delivery_date", "date"))

		if orderID == "" || customerID == "" || productID == "" {
			errs = append(errs, fmt.Sprintf("orders line %d: order_id/customer_id/product_id required", line))
			continue
		}
		boxes, err := strconv.Atoi(boxesStr)
		if err != nil {
			errs = append(errs, fmt.Sprintf("orders line %d: invalid num_boxes %q", line, boxesStr))
			continue
		}
		date, err := ParseDate(dateStr)
		if err != nil {
			errs = append(errs, fmt.Sprintf("orders line %d: invalid delivery_date %q", line, dateStr))
			continue
		}

		out = append(out, models.Order{
			OrderID:      orderID,
			CustomerID:   customerID,
			ProductID:    productID,
			NumBoxes:     boxes,
			DeliveryDate: date,
		})
	}
	return out, errs
}

func Customers(r io.Reader) ([]models.Customer, []string) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var errs []string
	var out []models.Customer

	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		id := normalizeTrim(getFieldAny(rec, index, "customer_id", "customer id", "id"))
		name := normalizeTrim(getFieldAny(rec, index, "customer_name", "name"))
		latStr := normalizeTrim(getFieldAny(rec, index, "latitude", "lat"))
		lonStr := normalizeTrim(getFieldAny(rec, index, "longitude", "lon", "lng"))
		region := normalizeTrim(getFieldAny(rec, index, "region", "state", "zone"))

		if id == "" {
			errs = append(errs, fmt.Sprintf("customers line %d: customer_id required", line))
			continue
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("customers line %d: invalid latitude %q", line, latStr))
			continue
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("customers line %d: invalid longitude %q", line, lonStr))
			continue
		}
		if name == "" {
			name = id
		}

		out = append(out, models.Customer{
			CustomerID: id,
			Name:       name,
			Latitude:   lat,
			Longitude:  lon,
			Region:     region,
		})
	}
	return out, errs
}

func Products(r io.Reader) ([]models.Product, []string) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var errs []string
	var out []models.Product

	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		id := normalizeTrim(getFieldAny(rec, index, "product_id", "product id", "id"))
		name := normalizeTrim(getFieldAny(rec, index, "product_name", "name"))
		weightStr := normalizeTrim(getFieldAny(rec, index, "weight_per_box", "weight_per_box_kg", "weight"))
		sizeStr := normalizeTrim(getFieldAny(rec, index, "size_per_box", "size_per_box_m3", "volume", "size"))

		if id == "" {
			errs = append(errs, fmt.Sprintf("products line %d: product_id required", line))
			continue
		}
		weight, err := strconv.ParseFloat(weightStr, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("products line %d: invalid weight_per_box %q", line, weightStr))
			continue
		}
		size := 0.0
		if sizeStr != "" {
			size, err = strconv.ParseFloat(sizeStr, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("products line %d: invalid size_per_box %q", line, sizeStr))
				continue
			}
		}
		if name == "" {
			name = id
		}

		out = append(out, models.Product{
			ProductID:    id,
			Name:         name,
			WeightPerBox: weight,
			SizePerBox:   size,
		})
	}
	return out, errs
}

func Trucks(r io.Reader) ([]models.TruckType, []string) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var errs []string
	var out []models.TruckType

	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		truckType := normalizeTrim(getFieldAny(rec, index, "truck_type", "truck type", "type", "name"))
		capStr := normalizeTrim(getFieldAny(rec, index, "capacity_tons", "capacity (tons)", "capacity"))
		costStr := normalizeTrim(getFieldAny(rec, index, "cost_per_km", "cost per km", "cost"))
		kmplStr := normalizeTrim(getFieldAny(rec, index, "fuel_efficiency_kmpl", "fuel_efficiency", "mileage", "kmpl"))
		region := normalizeTrim(getFieldAny(rec, index, "region", "zone"))

		if truckType == "" {
			errs = append(errs, fmt.Sprintf("trucks line %d: truck_type required", line))
			continue
		}
		capacity, err := strconv.ParseFloat(capStr, 64)
		if err != nil || capacity <= 0 {
			errs = append(errs, fmt.Sprintf("trucks line %d: invalid capacity_tons %q", line, capStr))
			continue
		}
		cost, err := strconv.ParseFloat(costStr, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("trucks line %d: invalid cost_per_km %q", line, costStr))
			continue
		}
		kmpl := 0.0
		if kmplStr != "" {
			kmpl, err = strconv.ParseFloat(kmplStr, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("trucks line %d: invalid fuel_efficiency %q", line, kmplStr))
				continue
			}
		}

		out = append(out, models.TruckType{
			TruckType:      truckType,
			CapacityTons:   capacity,
			CostPerKm:      cost,
			FuelEfficiency: kmpl,
			Region:         region,
		})
	}
	return out, errs
}

func Warehouses(r io.Reader) ([]models.Warehouse, []string) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var errs []string
	var out []models.Warehouse

	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		region := normalizeTrim(getFieldAny(rec, index, "region", "zone"))
		name := normalizeTrim(getFieldAny(rec, index, "warehouse_name", "name"))
		latStr := normalizeTrim(getFieldAny(rec, index, "latitude", "lat"))
		lonStr := normalizeTrim(getFieldAny(rec, index, "longitude", "lon", "lng"))

		if region == "" {
			errs = append(errs, fmt.Sprintf("warehouses line %d: region required", line))
			continue
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("warehouses line %d: invalid latitude %q", line, latStr))
			continue
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("warehouses line %d: invalid longitude %q", line, lonStr))
			continue
		}
		if name == "" {
			name = region + " warehouse"
		}

		out = append(out, models.Warehouse{
			Region:    region,
			Name:      name,
			Latitude:  lat,
			Longitude: lon,
		})
	}
	return out, errs
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func getFieldAny(rec []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getField(rec, idx, normalizeHeader(name)); v != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	return strings.ToLower(strings.TrimSpace(h))
}

func normalizeTrim(v string) string {
	return strings.TrimSpace(v)
}
