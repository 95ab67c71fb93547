// Package server wires the fleet services into an HTTP API.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lagoalabs/aquafleet/internal/cities"
	"github.com/lagoalabs/aquafleet/internal/equipment"
	"github.com/lagoalabs/aquafleet/internal/models"
	"github.com/lagoalabs/aquafleet/internal/mw"
	"github.com/lagoalabs/aquafleet/internal/users"
)

var (
	errMissingCityResolver     = errors.New("city resolver dependency required")
	errMissingEquipmentService = errors.New("equipment service dependency required")
	errMissingModelService     = errors.New("model catalog dependency required")
	errMissingUserService      = errors.New("user service dependency required")
)

// Dependencies collects everything the HTTP layer needs.
type Dependencies struct {
	Cities    *cities.Resolver
	Equipment *equipment.Service
	Models    *models.Service
	Users     *users.Service
	Logger    *zap.Logger

	// ListCacheTTL enables the GET response cache when positive.
	ListCacheTTL time.Duration
	// RateLimit enables per-IP limiting when positive; RateBurst defaults
	// to twice the limit.
	RateLimit float64
	RateBurst int
}

// NewHTTPHandler validates the dependencies and builds the router.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Cities == nil {
		return nil, errMissingCityResolver
	}
	if deps.Equipment == nil {
		return nil, errMissingEquipmentService
	}
	if deps.Models == nil {
		return nil, errMissingModelService
	}
	if deps.Users == nil {
		return nil, errMissingUserService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(mw.RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", mw.RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}))
	if deps.RateLimit > 0 {
		burst := deps.RateBurst
		if burst <= 0 {
			burst = int(deps.RateLimit) * 2
		}
		router.Use(mw.RateLimit(rate.Limit(deps.RateLimit), burst))
	}
	if deps.ListCacheTTL > 0 {
		store := cache.New(deps.ListCacheTTL, 2*deps.ListCacheTTL)
		router.Use(mw.CacheGET(store, deps.ListCacheTTL))
	}

	h := &handler{
		cities:    deps.Cities,
		equipment: deps.Equipment,
		models:    deps.Models,
		users:     deps.Users,
		logger:    logger,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/cities/resolve", h.handleResolveCity)
	router.GET("/cities", h.handleListCities)

	router.POST("/equipment", h.handleCreateEquipment)
	router.GET("/equipment", h.handleListEquipment)
	router.GET("/equipment/:id", h.handleGetEquipment)
	router.PUT("/equipment/:id", h.handleUpdateEquipment)
	router.POST("/equipment/:id/deactivate", h.handleDeactivateEquipment)
	router.DELETE("/equipment/:id", h.handleDeleteEquipment)
	router.GET("/equipment/:id/modules", h.handleGetModules)
	router.PUT("/equipment/:id/modules", h.handleReplaceModules)
	router.POST("/equipment/:id/filters", h.handleAddFilterReplacement)
	router.GET("/equipment/:id/filters", h.handleListFilterReplacements)

	router.POST("/models", h.handleCreateModel)
	router.GET("/models", h.handleListModels)
	router.PUT("/models/:id", h.handleUpdateModel)
	router.DELETE("/models/:id", h.handleDeleteModel)

	router.POST("/users", h.handleCreateUser)
	router.GET("/users", h.handleListUsers)
	router.GET("/users/:id", h.handleGetUser)
	router.PUT("/users/:id", h.handleUpdateUser)
	router.DELETE("/users/:id", h.handleDeleteUser)

	return router, nil
}

type handler struct {
	cities    *cities.Resolver
	equipment *equipment.Service
	models    *models.Service
	users     *users.Service
	logger    *zap.Logger
}
