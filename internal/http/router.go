package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/truckdispatch/backend/internal/config"
	"github.com/truckdispatch/backend/internal/db"
	"github.com/truckdispatch/backend/internal/geocode"
	"github.com/truckdispatch/backend/internal/http/handlers"
	"github.com/truckdispatch/backend/internal/http/middleware"
	"github.com/truckdispatch/backend/internal/service"

	_ "github.com/truckdispatch/backend/docs"
)

func Router(cfg config.Config, store *db.Store, defaults service.AllocationConfig, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := handlers.NewHandler(store, logger, cfg.AdminKey, defaults)
	h.Geocoder = &geocode.NominatimGeocoder{}
	h.Country = cfg.CountryDefault

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/trips", h.TripsList)
		api.GET("/orders", h.OrdersList)
		api.GET("/customers", h.CustomersList)
		api.GET("/products", h.ProductsList)
		api.GET("/trucks", h.TrucksList)
		api.GET("/warehouses", h.WarehousesList)
		api.GET("/runs/latest", h.RunsLatest)
		api.GET("/config/load-bounds", h.ConfigGetBounds)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/import", h.Import)
		admin.POST("/allocate", h.Allocate)
		admin.POST("/customers/regeocode", h.RegeocodeCustomers)
		admin.PUT("/config/load-bounds", h.ConfigPutBounds)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
