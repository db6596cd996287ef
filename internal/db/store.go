package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lucsky/cuid"

	"github.com/truckdispatch/backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// TruncateMasterData clears all imported tables plus dependent allocation
// output. Used by the import endpoint before a fresh load.
func (s *Store) TruncateMasterData(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `TRUNCATE orders, customers, products, trucks, warehouses, trips, unallocated_demand RESTART IDENTITY`)
	return err
}

func (s *Store) InsertOrders(ctx context.Context, orders []models.Order) (int64, error) {
	rows := make([][]any, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []any{o.OrderID, o.CustomerID, o.ProductID, o.NumBoxes, o.DeliveryDate})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"orders"}, []string{"order_id", "customer_id", "product_id", "num_boxes", "delivery_date"}, pgx.CopyFromRows(rows))
}

func (s *Store) InsertCustomers(ctx context.Context, customers []models.Customer) (int64, error) {
	rows := make([][]any, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, []any{c.CustomerID, c.Name, c.Latitude, c.Longitude, c.Region})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"customers"}, []string{"customer_id", "name", "latitude", "longitude", "region"}, pgx.CopyFromRows(rows))
}

func (s *Store) InsertProducts(ctx context.Context, products []models.Product) (int64, error) {
	rows := make([][]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, []any{p.ProductID, p.Name, p.WeightPerBox, p.SizePerBox})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"products"}, []string{"product_id", "name", "weight_per_box_kg", "size_per_box_m3"}, pgx.CopyFromRows(rows))
}

func (s *Store) InsertTrucks(ctx context.Context, trucks []models.TruckType) (int64, error) {
	rows := make([][]any, 0, len(trucks))
	for _, t := range trucks {
		rows = append(rows, []any{t.TruckType, t.CapacityTons, t.CostPerKm, t.FuelEfficiency, t.Region})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"trucks"}, []string{"truck_type", "capacity_tons", "cost_per_km", "fuel_efficiency_kmpl", "region"}, pgx.CopyFromRows(rows))
}

func (s *Store) InsertWarehouses(ctx context.Context, warehouses []models.Warehouse) (int64, error) {
	rows := make([][]any, 0, len(warehouses))
	for _, w := range warehouses {
		rows = append(rows, []any{w.Region, w.Name, w.Latitude, w.Longitude})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"warehouses"}, []string{"region", "name", "latitude", "longitude"}, pgx.CopyFromRows(rows))
}

func (s *Store) ListOrders(ctx context.Context, date *time.Time) ([]models.Order, error) {
	query := `SELECT order_id, customer_id, product_id, num_boxes, delivery_date FROM orders`
	var args []any
	if date != nil {
		query += ` WHERE delivery_date = $1`
		args = append(args, date.Format(models.DateOnly))
	}
	query += ` ORDER BY order_id ASC`

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.OrderID, &o.CustomerID, &o.ProductID, &o.NumBoxes, &o.DeliveryDate); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.Pool.Query(ctx, `SELECT customer_id, name, latitude, longitude, region FROM customers ORDER BY customer_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.CustomerID, &c.Name, &c.Latitude, &c.Longitude, &c.Region); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.Pool.Query(ctx, `SELECT product_id, name, weight_per_box_kg, size_per_box_m3 FROM products ORDER BY product_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ProductID, &p.Name, &p.WeightPerBox, &p.SizePerBox); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListTrucks(ctx context.Context) ([]models.TruckType, error) {
	rows, err := s.Pool.Query(ctx, `SELECT truck_type, capacity_tons, cost_per_km, fuel_efficiency_kmpl, COALESCE(region, '') FROM trucks ORDER BY capacity_tons ASC, truck_type ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TruckType
	for rows.Next() {
		var t models.TruckType
		if err := rows.Scan(&t.TruckType, &t.CapacityTons, &t.CostPerKm, &t.FuelEfficiency, &t.Region); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	rows, err := s.Pool.Query(ctx, `SELECT region, name, latitude, longitude FROM warehouses ORDER BY region ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Warehouse
	for rows.Next() {
		var w models.Warehouse
		if err := rows.Scan(&w.Region, &w.Name, &w.Latitude, &w.Longitude); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ReplaceTripsForDate persists one run's output for a delivery date. Prior
// trips and unallocated entries for that date are removed in the same
// transaction, so rerunning a date replaces its ledger entries instead of
// appending.
func (s *Store) ReplaceTripsForDate(ctx context.Context, date time.Time, trips []models.TruckTrip, unallocated []models.UnallocatedDemand) error {
	day := date.Format(models.DateOnly)
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM trips WHERE delivery_date = $1`, day); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM unallocated_demand WHERE delivery_date = $1`, day); err != nil {
			return err
		}

		for _, t := range trips {
			customersJSON, err := json.Marshal(t.Customers)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO trips (trip_id, delivery_date, region, truck_type, customers, total_weight_kg, truck_capacity_kg, utilization_percent, total_distance_km, fuel_litres, fuel_cost, emissions_kg)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			`, t.TripID, day, t.Region, t.TruckType, customersJSON, t.TotalWeightKg, t.TruckCapacityKg, t.UtilizationPercent, t.TotalDistanceKm, t.FuelLitres, t.FuelCost, t.EmissionsKg); err != nil {
				return err
			}
		}

		for _, u := range unallocated {
			if _, err := tx.Exec(ctx, `
				INSERT INTO unallocated_demand (delivery_date, customer_id, name, region, total_weight_kg, reason)
				VALUES ($1,$2,$3,$4,$5,$6)
			`, day, u.CustomerID, u.Name, u.Region, u.TotalWeightKg, u.Reason); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListTripsForDate(ctx context.Context, date time.Time) ([]models.TruckTrip, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT trip_id, delivery_date, region, truck_type, customers, total_weight_kg, truck_capacity_kg, utilization_percent, total_distance_km, fuel_litres, fuel_cost, emissions_kg
		FROM trips WHERE delivery_date = $1
		ORDER BY region ASC, trip_id ASC
	`, date.Format(models.DateOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TruckTrip
	for rows.Next() {
		var t models.TruckTrip
		var customersJSON []byte
		if err := rows.Scan(&t.TripID, &t.DeliveryDate, &t.Region, &t.TruckType, &customersJSON, &t.TotalWeightKg, &t.TruckCapacityKg, &t.UtilizationPercent, &t.TotalDistanceKm, &t.FuelLitres, &t.FuelCost, &t.EmissionsKg); err != nil {
			return nil, err
		}
		if len(customersJSON) > 0 {
			if err := json.Unmarshal(customersJSON, &t.Customers); err != nil {
				return nil, err
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListUnallocatedForDate(ctx context.Context, date time.Time) ([]models.UnallocatedDemand, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT customer_id, name, region, total_weight_kg, reason
		FROM unallocated_demand WHERE delivery_date = $1
		ORDER BY region ASC, customer_id ASC
	`, date.Format(models.DateOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UnallocatedDemand
	for rows.Next() {
		var u models.UnallocatedDemand
		if err := rows.Scan(&u.CustomerID, &u.Name, &u.Region, &u.TotalWeightKg, &u.Reason); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCustomerCoords(ctx context.Context, customerID string, lat, lon float64) error {
	_, err := s.Pool.Exec(ctx, `UPDATE customers SET latitude = $1, longitude = $2 WHERE customer_id = $3`, lat, lon, customerID)
	return err
}

func (s *Store) CreateRun(ctx context.Context, status string) (string, error) {
	id := cuid.New()
	_, err := s.Pool.Exec(ctx, `INSERT INTO runs (id, status, started_at) VALUES ($1, $2, NOW())`, id, status)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context) (map[string]any, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, started_at, finished_at, status, summary FROM runs ORDER BY started_at DESC LIMIT 1`)
	var (
		id       string
		started  time.Time
		finished *time.Time
		status   string
		summary  []byte
	)
	if err := row.Scan(&id, &started, &finished, &status, &summary); err != nil {
		return nil, err
	}

	var summaryValue any
	if len(summary) > 0 {
		var tmp any
		if err := json.Unmarshal(summary, &tmp); err == nil {
			summaryValue = tmp
		}
	}
	return map[string]any{
		"id":          id,
		"started_at":  started,
		"finished_at": finished,
		"status":      status,
		"summary":     summaryValue,
	}, nil
}
