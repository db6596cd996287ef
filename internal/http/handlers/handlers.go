package handlers

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/truckdispatch/backend/internal/csvload"
	"github.com/truckdispatch/backend/internal/db"
	"github.com/truckdispatch/backend/internal/geocode"
	"github.com/truckdispatch/backend/internal/models"
	"github.com/truckdispatch/backend/internal/service"
)

type Handler struct {
	Store     *db.Store
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
	Defaults  service.AllocationConfig
	Geocoder  geocode.Geocoder
	Country   string

	boundsMu sync.RWMutex
	bounds   service.LoadBounds

	// last computed result per delivery date, refreshed on every allocate
	cacheMu sync.RWMutex
	results map[string]cachedResult
}

type cachedResult struct {
	Trips       []models.TruckTrip
	Unallocated []models.UnallocatedDemand
}

// NewHandler wires the handler with the configured load bounds as the
// starting runtime values.
func NewHandler(store *db.Store, logger zerolog.Logger, adminKey string, defaults service.AllocationConfig) *Handler {
	return &Handler{
		Store:     store,
		Validator: validator.New(),
		Logger:    logger,
		AdminKey:  adminKey,
		Defaults:  defaults,
		bounds:    defaults.Bounds,
		results:   map[string]cachedResult{},
	}
}

type fileCounts struct {
	Parsed   int `json:"parsed"`
	Inserted int `json:"inserted"`
	Errors   int `json:"errors"`
}

type ImportSummary struct {
	Orders     fileCounts `json:"orders"`
	Customers  fileCounts `json:"customers"`
	Products   fileCounts `json:"products"`
	Trucks     fileCounts `json:"trucks"`
	Warehouses fileCounts `json:"warehouses"`
	Errors     []string   `json:"errors"`
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Import CSV data
// @Description Upload orders, customers, products, trucks, and warehouses CSV files
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param orders formData file true "orders.csv"
// @Param customers formData file true "customers.csv"
// @Param products formData file true "products.csv"
// @Param trucks formData file true "trucks.csv"
// @Param warehouses formData file false "warehouses.csv"
// @Success 200 {object} ImportSummary
// @Failure 400 {object} map[string]any
// @Router /api/import [post]
func (h *Handler) Import(c *gin.Context) {
	ordersFile, err := c.FormFile("orders")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "orders file required", nil)
		return
	}
	customersFile, err := c.FormFile("customers")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "customers file required", nil)
		return
	}
	productsFile, err := c.FormFile("products")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "products file required", nil)
		return
	}
	trucksFile, err := c.FormFile("trucks")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "trucks file required", nil)
		return
	}
	// warehouses are optional: regions without one fall back to the
	// demand centroid as depot.
	warehousesFile, _ := c.FormFile("warehouses")

	files := []*multipart.FileHeader{ordersFile, customersFile, productsFile, trucksFile}
	if warehousesFile != nil {
		files = append(files, warehousesFile)
	}
	for _, f := range files {
		if !validateExt(f.Filename) {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "all files must be .csv", nil)
			return
		}
	}

	summary := ImportSummary{}
	summary.Errors = []string{}
	ctx := c.Request.Context()

	orders, errs := parseCSV(ordersFile, csvload.Orders)
	summary.Orders.Parsed = len(orders)
	summary.Orders.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	customers, errs := parseCSV(customersFile, csvload.Customers)
	summary.Customers.Parsed = len(customers)
	summary.Customers.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	products, errs := parseCSV(productsFile, csvload.Products)
	summary.Products.Parsed = len(products)
	summary.Products.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	trucks, errs := parseCSV(trucksFile, csvload.Trucks)
	summary.Trucks.Parsed = len(trucks)
	summary.Trucks.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	var warehouses []models.Warehouse
	if warehousesFile != nil {
		warehouses, errs = parseCSV(warehousesFile, csvload.Warehouses)
		summary.Warehouses.Parsed = len(warehouses)
		summary.Warehouses.Errors = len(errs)
		summary.Errors = append(summary.Errors, errs...)
	}

	if len(summary.Errors) > 0 {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "CSV validation errors", summary.Errors)
		return
	}

	err = h.Store.WithTx(ctx, func(tx pgx.Tx) error {
		return h.Store.TruncateMasterData(ctx, tx)
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to reset tables", err.Error())
		return
	}

	h.cacheMu.Lock()
	h.results = map[string]cachedResult{}
	h.cacheMu.Unlock()

	inserted, err := h.Store.InsertOrders(ctx, orders)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert orders", err.Error())
		return
	}
	summary.Orders.Inserted = int(inserted)

	inserted, err = h.Store.InsertCustomers(ctx, customers)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert customers", err.Error())
		return
	}
	summary.Customers.Inserted = int(inserted)

	inserted, err = h.Store.InsertProducts(ctx, products)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert products", err.Error())
		return
	}
	summary.Products.Inserted = int(inserted)

	inserted, err = h.Store.InsertTrucks(ctx, trucks)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert trucks", err.Error())
		return
	}
	summary.Trucks.Inserted = int(inserted)

	if len(warehouses) > 0 {
		inserted, err = h.Store.InsertWarehouses(ctx, warehouses)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert warehouses", err.Error())
			return
		}
		summary.Warehouses.Inserted = int(inserted)
	}

	c.JSON(http.StatusOK, summary)
}

func parseCSV[T any](fh *multipart.FileHeader, parse func(io.Reader) ([]T, []string)) ([]T, []string) {
	f, err := fh.Open()
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer f.Close()
	return parse(f)
}

type AllocateRequest struct {
	Date       string `json:"date" validate:"required"`
	Strategy   string `json:"strategy"`
	TruckOrder string `json:"truck_order"`
	StrictMin  *bool  `json:"strict_min"`
}

// @Summary Allocate trips for a delivery date
// @Tags allocate
// @Accept json
// @Produce json
// @Param request body AllocateRequest true "allocation request"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/allocate [post]
func (h *Handler) Allocate(c *gin.Context) {
	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	date, err := csvload.ParseDate(req.Date)
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be YYYY-MM-DD", err.Error())
		return
	}

	cfg := h.Defaults
	cfg.Bounds = h.LoadBounds()
	if req.Strategy != "" {
		cfg.Strategy = req.Strategy
	}
	if req.TruckOrder != "" {
		cfg.TruckOrder = req.TruckOrder
	}
	if req.StrictMin != nil {
		cfg.StrictMin = *req.StrictMin
	}
	if err := cfg.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid allocation config", err.Error())
		return
	}

	ctx := c.Request.Context()
	input, err := h.loadRunInput(ctx, date)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load data", err.Error())
		return
	}

	runID, err := h.Store.CreateRun(ctx, "RUNNING")
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to create run")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create run", err.Error())
		return
	}

	engine := service.Engine{Logger: h.Logger}
	result, err := engine.Run(input, cfg)
	status := "SUCCESS"
	if err == nil {
		if persistErr := h.Store.ReplaceTripsForDate(ctx, date, result.Trips, result.Unallocated); persistErr != nil {
			err = persistErr
		}
	}
	if err != nil {
		status = "FAILED"
	}

	summaryBytes, _ := json.Marshal(result.Summary)
	if finishErr := h.Store.FinishRun(ctx, runID, status, summaryBytes); finishErr != nil {
		h.Logger.Error().Err(finishErr).Msg("failed to finish run")
	}

	if err != nil {
		h.Logger.Error().Err(err).Str("date", req.Date).Msg("allocation failed")
		writeError(c, http.StatusInternalServerError, "ALLOCATION_ERROR", "Allocation failed", err.Error())
		return
	}

	h.cacheMu.Lock()
	h.results[date.Format(models.DateOnly)] = cachedResult{Trips: result.Trips, Unallocated: result.Unallocated}
	h.cacheMu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"run_id":      runID,
		"date":        date.Format(models.DateOnly),
		"trips":       result.Trips,
		"unallocated": result.Unallocated,
		"warnings":    result.Warnings,
		"summary":     result.Summary,
	})
}

func (h *Handler) loadRunInput(ctx context.Context, date time.Time) (service.RunInput, error) {
	var input service.RunInput
	var err error

	input.Date = date
	if input.Orders, err = h.Store.ListOrders(ctx, &date); err != nil {
		return input, err
	}
	if input.Customers, err = h.Store.ListCustomers(ctx); err != nil {
		return input, err
	}
	if input.Products, err = h.Store.ListProducts(ctx); err != nil {
		return input, err
	}
	if input.Trucks, err = h.Store.ListTrucks(ctx); err != nil {
		return input, err
	}
	if input.Warehouses, err = h.Store.ListWarehouses(ctx); err != nil {
		return input, err
	}
	return input, nil
}

// @Summary Trips for a delivery date
// @Tags trips
// @Produce json
// @Param date query string true "YYYY-MM-DD"
// @Success 200 {object} map[string]any
// @Router /api/trips [get]
func (h *Handler) TripsList(c *gin.Context) {
	date, err := csvload.ParseDate(c.Query("date"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be YYYY-MM-DD", err.Error())
		return
	}

	h.cacheMu.RLock()
	cached, ok := h.results[date.Format(models.DateOnly)]
	h.cacheMu.RUnlock()
	if ok {
		c.JSON(http.StatusOK, gin.H{
			"date":        date.Format(models.DateOnly),
			"items":       cached.Trips,
			"unallocated": cached.Unallocated,
		})
		return
	}

	trips, err := h.Store.ListTripsForDate(c.Request.Context(), date)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list trips", err.Error())
		return
	}
	unallocated, err := h.Store.ListUnallocatedForDate(c.Request.Context(), date)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list unallocated demand", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":        date.Format(models.DateOnly),
		"items":       trips,
		"unallocated": unallocated,
	})
}

func (h *Handler) OrdersList(c *gin.Context) {
	var date *time.Time
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		d, err := csvload.ParseDate(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be YYYY-MM-DD", err.Error())
			return
		}
		date = &d
	}
	items, err := h.Store.ListOrders(c.Request.Context(), date)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list orders", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) CustomersList(c *gin.Context) {
	items, err := h.Store.ListCustomers(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list customers", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) ProductsList(c *gin.Context) {
	items, err := h.Store.ListProducts(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list products", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) TrucksList(c *gin.Context) {
	items, err := h.Store.ListTrucks(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list trucks", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) WarehousesList(c *gin.Context) {
	items, err := h.Store.ListWarehouses(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list warehouses", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Latest run
// @Tags runs
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	result, err := h.Store.GetLatestRun(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Geocode customers missing coordinates
// @Tags customers
// @Produce json
// @Param force query string false "re-geocode all customers when 1"
// @Success 200 {object} map[string]any
// @Router /api/customers/regeocode [post]
func (h *Handler) RegeocodeCustomers(c *gin.Context) {
	if h.Geocoder == nil {
		writeError(c, http.StatusServiceUnavailable, "GEOCODER_UNAVAILABLE", "Geocoder not configured", nil)
		return
	}
	force := c.Query("force") == "1" || strings.EqualFold(c.Query("force"), "true")

	ctx := c.Request.Context()
	customers, err := h.Store.ListCustomers(ctx)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list customers", err.Error())
		return
	}

	updated, skipped := 0, 0
	var failures []string
	for _, cust := range customers {
		if !geocode.ShouldGeocode(cust, force) {
			skipped++
			continue
		}
		query := geocode.BuildCustomerQuery(h.Country, cust.Region, cust.Name)
		lat, lon, _, _, err := h.Geocoder.Geocode(ctx, query)
		if err != nil {
			failures = append(failures, cust.CustomerID+": "+err.Error())
			continue
		}
		if err := h.Store.UpdateCustomerCoords(ctx, cust.CustomerID, lat, lon); err != nil {
			failures = append(failures, cust.CustomerID+": "+err.Error())
			continue
		}
		updated++
	}

	h.Logger.Info().Int("updated", updated).Int("skipped", skipped).Int("failed", len(failures)).Msg("customer regeocode finished")
	c.JSON(http.StatusOK, gin.H{
		"updated": updated,
		"skipped": skipped,
		"failed":  failures,
	})
}

// LoadBounds returns the current runtime load window.
func (h *Handler) LoadBounds() service.LoadBounds {
	h.boundsMu.RLock()
	defer h.boundsMu.RUnlock()
	return h.bounds
}

func (h *Handler) ConfigGetBounds(c *gin.Context) {
	b := h.LoadBounds()
	c.JSON(http.StatusOK, gin.H{
		"min_load_percent": b.MinLoadPercent,
		"max_load_percent": b.MaxLoadPercent,
	})
}

// BoundsRequest range tags must admit an explicit 0 minimum; ordering is
// checked by LoadBounds.Validate.
type BoundsRequest struct {
	MinLoadPercent float64 `json:"min_load_percent" validate:"gte=0,lte=100"`
	MaxLoadPercent float64 `json:"max_load_percent" validate:"gte=0,lte=100"`
}

func (h *Handler) ConfigPutBounds(c *gin.Context) {
	var req BoundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	bounds := service.LoadBounds{MinLoadPercent: req.MinLoadPercent, MaxLoadPercent: req.MaxLoadPercent}
	if err := bounds.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid load bounds", err.Error())
		return
	}
	h.boundsMu.Lock()
	h.bounds = bounds
	h.boundsMu.Unlock()
	h.Logger.Info().
		Float64("min_load_percent", bounds.MinLoadPercent).
		Float64("max_load_percent", bounds.MaxLoadPercent).
		Msg("load bounds updated")
	c.JSON(http.StatusOK, gin.H{
		"min_load_percent": bounds.MinLoadPercent,
		"max_load_percent": bounds.MaxLoadPercent,
	})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func validateExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv"
}
