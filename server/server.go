package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/rto-dispatch-api/config"
	"github.com/kendall-kelly/rto-dispatch-api/controllers"
	"github.com/kendall-kelly/rto-dispatch-api/middleware"
	"github.com/kendall-kelly/rto-dispatch-api/services"
)

// Server holds every long-lived resource; main owns it and hands pieces to the router
type Server struct {
	cfg      *config.Config
	conn     *config.Connector
	webhooks *controllers.WebhookController
	trips    *controllers.TripController
	profiles *controllers.ProfileController
	closers  []func() error
}

// New wires stores and services onto the shared connection. It does not touch
// the store; the first request opens the connection.
func New(ctx context.Context, cfg *config.Config, conn *config.Connector) (*Server, error) {
	logger := slog.Default()
	a := &Server{cfg: cfg, conn: conn}
	a.closers = append(a.closers, conn.Close)

	verifier, err := services.NewSvixVerifier(cfg.IdentityWebhookSecret)
	if err != nil {
		return nil, err
	}

	var ledger services.DeliveryLedger = services.NewGormDeliveryLedger(conn)
	if cfg.RedisURL != "" {
		redisLedger, err := services.NewRedisDeliveryLedger(cfg.RedisURL, cfg.DeliveryTTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, redisLedger.Close)
		ledger = redisLedger
		logger.Info("using redis delivery ledger")
	}

	var archive services.EventArchive = services.NopEventArchive{}
	if cfg.AWSEventArchiveBucket != "" {
		s3Archive, err := services.NewS3EventArchive(ctx, cfg)
		if err != nil {
			return nil, err
		}
		archive = s3Archive
		logger.Info("archiving identity events", "bucket", cfg.AWSEventArchiveBucket)
	}

	var userInfo services.UserInfoFetcher
	if cfg.Auth0Domain != "" {
		userInfo = services.NewUserInfoService(cfg.Auth0Domain)
	}

	profileStore := services.NewProfileStore(conn)
	tripStore := services.NewTripStore(conn)
	resolver := services.NewProfileResolver(profileStore, userInfo, logger)

	a.webhooks = controllers.NewWebhookController(
		services.NewReconciler(verifier, profileStore, ledger, archive, logger),
	)
	a.trips = controllers.NewTripController(
		services.NewDispatcher(resolver, tripStore, logger),
		services.NewLifecycleController(resolver, tripStore, logger),
		services.NewTripQuery(resolver, profileStore, tripStore),
	)
	a.profiles = controllers.NewProfileController(resolver)
	return a, nil
}

// Router builds the HTTP routes. auth guards every driver/RTO endpoint.
func (a *Server) Router(auth gin.HandlerFunc) *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.RequestTimeout(a.cfg.RequestTimeout))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus(a.conn))

		v1.POST("/webhooks/identity", a.webhooks.HandleIdentityEvent)

		authed := v1.Group("", auth)
		{
			authed.GET("/profiles/me", a.profiles.GetMyProfile)

			authed.POST("/trips", a.trips.CreateTrip)
			authed.GET("/trips", a.trips.ListTrips)
			authed.GET("/trips/:id", a.trips.GetTrip)
			authed.PATCH("/trips/:id/status", a.trips.UpdateTripStatus)
		}
	}

	return router
}

// Close releases everything New acquired, newest first
func (a *Server) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("failed to release resource", "error", err)
		}
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "RTO Dispatch API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(conn *config.Connector) gin.HandlerFunc {
	return func(c *gin.Context) {
		db, err := conn.DB()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_CONNECTION_ERROR",
					"message": "Database connection failed",
				},
			})
			return
		}

		// Get the underlying SQL database to check connection
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to get database instance",
				},
			})
			return
		}

		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_CONNECTION_ERROR",
					"message": "Database connection failed",
				},
			})
			return
		}

		tables, err := db.WithContext(c.Request.Context()).Migrator().GetTables()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_QUERY_ERROR",
					"message": "Failed to query tables",
				},
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Database connected",
			"tables":  tables,
		})
	}
}
