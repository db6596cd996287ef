package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/truckdispatch/backend/internal/csvload"
	"github.com/truckdispatch/backend/internal/models"
	"github.com/truckdispatch/backend/internal/service"
)

func TestParseCSV_OrdersHeaderAliases(t *testing.T) {
	content := "Order ID,Customer ID,Product ID,Quantity,Date\nORD-1,CUST-1,PROD-1,5,2024-03-01\n"
	fh := makeMultipartFile(t, "orders", "orders.csv", content)
	orders, errs := parseCSV(fh, csvload.Orders)
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if orders[0].NumBoxes != 5 {
		t.Fatalf("expected num_boxes=5, got %d", orders[0].NumBoxes)
	}
}

func TestParseCSV_TrucksBadCapacity(t *testing.T) {
	content := "truck_type,capacity_tons,cost_per_km\nSmall,zero,12\n"
	fh := makeMultipartFile(t, "trucks", "trucks.csv", content)
	trucks, errs := parseCSV(fh, csvload.Trucks)
	if len(trucks) != 0 {
		t.Fatalf("expected no trucks, got %d", len(trucks))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}

func TestImport_MissingOrdersFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, zerolog.Nop(), "", service.AllocationConfig{})

	r := gin.New()
	r.POST("/api/import", h.Import)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.Close()

	req, _ := http.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "orders file required") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestAllocate_InvalidDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, zerolog.Nop(), "", service.AllocationConfig{})

	r := gin.New()
	r.POST("/api/allocate", h.Allocate)

	req, _ := http.NewRequest(http.MethodPost, "/api/allocate", strings.NewReader(`{"date":"03/01/2024"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "VALIDATION_ERROR") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestConfigBounds_PutAndGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	defaults := service.AllocationConfig{
		Bounds: service.LoadBounds{MinLoadPercent: 60, MaxLoadPercent: 95},
	}
	h := NewHandler(nil, zerolog.Nop(), "", defaults)

	r := gin.New()
	r.GET("/api/config/load-bounds", h.ConfigGetBounds)
	r.PUT("/api/config/load-bounds", h.ConfigPutBounds)

	req, _ := http.NewRequest(http.MethodPut, "/api/config/load-bounds", strings.NewReader(`{"min_load_percent":50,"max_load_percent":90}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req, _ = http.NewRequest(http.MethodGet, "/api/config/load-bounds", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"min_load_percent":50`) || !strings.Contains(body, `"max_load_percent":90`) {
		t.Fatalf("bounds not updated: %s", body)
	}
}

func TestConfigBounds_AcceptsZeroMinimum(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, zerolog.Nop(), "", service.AllocationConfig{
		Bounds: service.LoadBounds{MinLoadPercent: 60, MaxLoadPercent: 95},
	})

	r := gin.New()
	r.PUT("/api/config/load-bounds", h.ConfigPutBounds)

	req, _ := http.NewRequest(http.MethodPut, "/api/config/load-bounds", strings.NewReader(`{"min_load_percent":0,"max_load_percent":95}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for explicit zero minimum, got %d: %s", w.Code, w.Body.String())
	}
	if h.LoadBounds().MinLoadPercent != 0 {
		t.Fatalf("zero minimum not applied: %+v", h.LoadBounds())
	}
}

func TestConfigBounds_RejectsInvertedWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, zerolog.Nop(), "", service.AllocationConfig{
		Bounds: service.LoadBounds{MinLoadPercent: 60, MaxLoadPercent: 95},
	})

	r := gin.New()
	r.PUT("/api/config/load-bounds", h.ConfigPutBounds)

	req, _ := http.NewRequest(http.MethodPut, "/api/config/load-bounds", strings.NewReader(`{"min_load_percent":90,"max_load_percent":50}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if h.LoadBounds().MinLoadPercent != 60 {
		t.Fatalf("bounds changed despite validation failure")
	}
}

func TestTripsList_ServesCachedResult(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, zerolog.Nop(), "", service.AllocationConfig{})
	h.results["2024-03-01"] = cachedResult{
		Trips: []models.TruckTrip{{TripID: "ab12cd34", Region: "KA", TruckType: "Small"}},
	}

	r := gin.New()
	r.GET("/api/trips", h.TripsList)

	req, _ := http.NewRequest(http.MethodGet, "/api/trips?date=2024-03-01", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ab12cd34") {
		t.Fatalf("cached trip not served: %s", w.Body.String())
	}
}

func makeMultipartFile(t *testing.T, fieldName, filename, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(int64(buf.Len()))
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	files := form.File[fieldName]
	if len(files) == 0 {
		t.Fatalf("no file headers found")
	}
	return files[0]
}
