package httpapi

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/truckdispatch/backend/internal/config"
	"github.com/truckdispatch/backend/internal/service"
)

func TestRouterRegistersListingRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{CORSAllowed: "*", MaxUploadSizeMB: 20}
	r := Router(cfg, nil, service.AllocationConfig{}, zerolog.Nop())

	want := map[string]bool{
		"GET /healthz":                false,
		"GET /api/trips":              false,
		"GET /api/orders":             false,
		"GET /api/customers":          false,
		"GET /api/products":           false,
		"GET /api/trucks":             false,
		"GET /api/warehouses":         false,
		"GET /api/runs/latest":        false,
		"GET /api/config/load-bounds": false,
		"POST /api/import":            false,
		"POST /api/allocate":          false,
	}
	for _, route := range r.Routes() {
		key := route.Method + " " + route.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, seen := range want {
		if !seen {
			t.Fatalf("route not registered: %s", key)
		}
	}
}
