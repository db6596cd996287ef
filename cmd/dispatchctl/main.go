package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/truckdispatch/backend/internal/csvload"
	"github.com/truckdispatch/backend/internal/models"
	"github.com/truckdispatch/backend/internal/service"
)

var (
	dataDir    string
	dateStr    string
	strategy   string
	truckOrder string
	strictMin  bool
	minLoad    float64
	maxLoad    float64
	fuelPrice  float64
	fuelKmpl   float64
	jsonOut    bool
)

var rootCmd = &cobra.Command{
	Use:   "dispatchctl",
	Short: "Run truck allocation offline from CSV files",
	Long: `dispatchctl reads orders, customers, products, trucks, and optionally
warehouses CSV files from a directory, runs the allocation engine for one
delivery date, and prints the planned trips without touching a database.`,
	RunE: runAllocate,
}

func init() {
	rootCmd.Flags().StringVar(&dataDir, "data-dir", ".", "directory containing the CSV files")
	rootCmd.Flags().StringVar(&dateStr, "date", time.Now().UTC().Format(models.DateOnly), "delivery date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&strategy, "strategy", service.StrategyGrouped, "allocation strategy: grouped or per_customer")
	rootCmd.Flags().StringVar(&truckOrder, "truck-order", service.TruckOrderCapacity, "truck preference: capacity or cost_per_kg")
	rootCmd.Flags().BoolVar(&strictMin, "strict-min", true, "reject trips below the minimum load window")
	rootCmd.Flags().Float64Var(&minLoad, "min-load", service.DefaultMinLoadPercent, "minimum load percent")
	rootCmd.Flags().Float64Var(&maxLoad, "max-load", service.DefaultMaxLoadPercent, "maximum load percent")
	rootCmd.Flags().Float64Var(&fuelPrice, "fuel-price", service.DefaultFuelPricePerLitre, "fuel price per litre")
	rootCmd.Flags().Float64Var(&fuelKmpl, "fuel-efficiency", service.DefaultFuelEfficiencyKmpl, "fallback fuel efficiency in km per litre")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "print the full result as JSON")
}

func runAllocate(cmd *cobra.Command, args []string) error {
	date, err := csvload.ParseDate(dateStr)
	if err != nil {
		return fmt.Errorf("invalid --date: %w", err)
	}

	input := service.RunInput{Date: date}
	var parseErrs []string

	if input.Orders, parseErrs, err = loadCSV(dataDir, "orders.csv", csvload.Orders); err != nil {
		return err
	}
	if len(parseErrs) > 0 {
		return fmt.Errorf("orders.csv: %d parse errors, first: %s", len(parseErrs), parseErrs[0])
	}
	if input.Customers, parseErrs, err = loadCSV(dataDir, "customers.csv", csvload.Customers); err != nil {
		return err
	}
	if len(parseErrs) > 0 {
		return fmt.Errorf("customers.csv: %d parse errors, first: %s", len(parseErrs), parseErrs[0])
	}
	if input.Products, parseErrs, err = loadCSV(dataDir, "products.csv", csvload.Products); err != nil {
		return err
	}
	if len(parseErrs) > 0 {
		return fmt.Errorf("products.csv: %d parse errors, first: %s", len(parseErrs), parseErrs[0])
	}
	if input.Trucks, parseErrs, err = loadCSV(dataDir, "trucks.csv", csvload.Trucks); err != nil {
		return err
	}
	if len(parseErrs) > 0 {
		return fmt.Errorf("trucks.csv: %d parse errors, first: %s", len(parseErrs), parseErrs[0])
	}

	// warehouses.csv is optional
	if _, statErr := os.Stat(filepath.Join(dataDir, "warehouses.csv")); statErr == nil {
		if input.Warehouses, parseErrs, err = loadCSV(dataDir, "warehouses.csv", csvload.Warehouses); err != nil {
			return err
		}
		if len(parseErrs) > 0 {
			return fmt.Errorf("warehouses.csv: %d parse errors, first: %s", len(parseErrs), parseErrs[0])
		}
	}

	cfg := service.AllocationConfig{
		Bounds: service.LoadBounds{
			MinLoadPercent: minLoad,
			MaxLoadPercent: maxLoad,
		},
		Strategy:           strategy,
		TruckOrder:         truckOrder,
		StrictMin:          strictMin,
		FuelPricePerLitre:  fuelPrice,
		FuelEfficiencyKmpl: fuelKmpl,
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	engine := service.Engine{Logger: logger}
	result, err := engine.Run(input, cfg)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printReport(date, result)
	return nil
}

func loadCSV[T any](dir, name string, parse func(r io.Reader) ([]T, []string)) ([]T, []string, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	items, errs := parse(f)
	return items, errs, nil
}

func printReport(date time.Time, result service.RunResult) {
	fmt.Printf("Allocation for %s\n\n", date.Format(models.DateOnly))
	for _, t := range result.Trips {
		fmt.Printf("trip %s  region=%s  truck=%s  load=%.2fkg (%.1f%%)  dist=%.2fkm  fuel=%.2fl  cost=%.2f  co2=%.2fkg\n",
			t.TripID, t.Region, t.TruckType, t.TotalWeightKg, t.UtilizationPercent, t.TotalDistanceKm, t.FuelLitres, t.FuelCost, t.EmissionsKg)
		for _, c := range t.Customers {
			fmt.Printf("  %2d. %s (%s)  %.2fkg\n", c.RouteOrder, c.Name, c.CustomerID, c.TotalWeightKg)
		}
	}
	if len(result.Unallocated) > 0 {
		fmt.Printf("\nUnallocated:\n")
		for _, u := range result.Unallocated {
			fmt.Printf("  %s (%s)  %.2fkg  %s\n", u.Name, u.CustomerID, u.TotalWeightKg, u.Reason)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, w := range result.Warnings {
			fmt.Printf("  [%s] %s\n", w.Code, w.Message)
		}
	}
	fmt.Printf("\ntrips=%d customers_allocated=%v unallocated=%d\n",
		len(result.Trips), result.Summary.Counts["customers_allocated"], len(result.Unallocated))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
