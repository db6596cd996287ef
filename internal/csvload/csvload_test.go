package csvload

import (
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.March || d.Day() != 1 {
		t.Fatalf("unexpected date: %v", d)
	}

	d, err = ParseDate("2024-03-01T15:04:05Z")
	if err != nil {
		t.Fatalf("parse timestamp: %v", err)
	}
	if d.Hour() != 0 || d.Minute() != 0 {
		t.Fatalf("expected midnight, got %v", d)
	}

	if _, err := ParseDate("01/03/2024"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, err := ParseDate("  "); err == nil {
		t.Fatal("expected error for blank date")
	}
}

func TestOrders(t *testing.T) {
	csv := strings.Join([]string{
		"order_id,customer_id,product_id,num_boxes,delivery_date",
		"ORD-1,CUST-1,PROD-1,10,2024-03-01",
		",CUST-2,PROD-1,5,2024-03-01",
		"ORD-3,CUST-3,PROD-2,many,2024-03-01",
	}, "\n")

	orders, errs := Orders(strings.NewReader(csv))
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if orders[0].OrderID != "ORD-1" || orders[0].NumBoxes != 10 {
		t.Fatalf("unexpected order: %+v", orders[0])
	}
}

func TestCustomers_NameDefaultsToID(t *testing.T) {
	csv := "customer_id,name,lat,lon,region\nCUST-1,,12.97,77.59,KA\n"
	customers, errs := Customers(strings.NewReader(csv))
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(customers) != 1 {
		t.Fatalf("expected 1 customer, got %d", len(customers))
	}
	if customers[0].Name != "CUST-1" {
		t.Fatalf("expected name to default to id, got %q", customers[0].Name)
	}
	if customers[0].Region != "KA" {
		t.Fatalf("unexpected region %q", customers[0].Region)
	}
}

func TestTrucks_BOMHeaderAndAliases(t *testing.T) {
	csv := "\ufeffTruck Type,Capacity (tons),Cost per km,Mileage\nSmall,2,12,6\nLarge,10,30,3.5\n"
	trucks, errs := Trucks(strings.NewReader(csv))
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(trucks) != 2 {
		t.Fatalf("expected 2 trucks, got %d", len(trucks))
	}
	if trucks[0].CapacityTons != 2 || trucks[0].FuelEfficiency != 6 {
		t.Fatalf("unexpected truck: %+v", trucks[0])
	}
}

func TestWarehouses_RegionRequired(t *testing.T) {
	csv := "region,name,latitude,longitude\n,Main,12.97,77.59\nKA,,12.97,77.59\n"
	warehouses, errs := Warehouses(strings.NewReader(csv))
	if len(warehouses) != 1 {
		t.Fatalf("expected 1 warehouse, got %d", len(warehouses))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	if warehouses[0].Name != "KA warehouse" {
		t.Fatalf("expected default name, got %q", warehouses[0].Name)
	}
}
