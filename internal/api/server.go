package api

import (
	"fmt"
	"net/http"

	"felicity/internal/blob"
	"felicity/internal/cache"
	"felicity/internal/config"
	"felicity/internal/database"
	"felicity/internal/handlers"
	"felicity/internal/logger"
	"felicity/internal/messaging"
	"felicity/internal/middleware"
	"felicity/internal/repository"
	"felicity/internal/search"
	"felicity/internal/service"
	"felicity/internal/ticket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the HTTP API together. Postgres is required; NATS,
// Elasticsearch and Valkey are optional and the API degrades without
// them (no announcements, SQL-only listing, no cache).
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	services *service.Services
}

func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	log := logger.Get()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Warn("NATS unavailable, events will not be published", "error", err)
		natsClient = nil
	}

	esClient, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		log.Warn("Elasticsearch unavailable, falling back to SQL listing", "error", err)
		esClient = nil
	}

	valkeyClient, err := cache.NewValkeyClient(cfg.Valkey.Addr, cfg.Valkey.Password, cfg.Valkey.TTL)
	if err != nil {
		log.Warn("Valkey unavailable, listing cache disabled", "error", err)
		valkeyClient = nil
	}

	blobStore, err := blob.NewFSStore(cfg.ProofDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open proof store: %w", err)
	}

	signer := ticket.NewSigner(cfg.TicketSecret)
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, esClient, natsClient, signer, blobStore)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkeyClient,
		services: services,
	}

	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services, s.valkey)

	api := s.router.Group("/api")
	api.Use(middleware.JWTAuth(s.config.JWTSecret))
	{
		events := api.Group("/events")
		{
			events.POST("", middleware.RequireRole(middleware.RoleOrganizer, middleware.RoleAdmin), h.CreateEvent)
			events.GET("", h.ListEvents)
			events.GET("/mine", middleware.RequireRole(middleware.RoleOrganizer, middleware.RoleAdmin), h.ListMyEvents)
			events.GET("/:id", h.GetEvent)
			events.PATCH("/:id", middleware.RequireRole(middleware.RoleOrganizer, middleware.RoleAdmin), h.UpdateEvent)
			events.PATCH("/:id/status", middleware.RequireRole(middleware.RoleOrganizer, middleware.RoleAdmin), h.TransitionEvent)
			events.DELETE("/:id", middleware.RequireRole(middleware.RoleOrganizer, middleware.RoleAdmin), h.DeleteEvent)
			events.GET("/:id/registrations", middleware.RequireRole(middleware.RoleOrganizer, middleware.RoleAdmin), h.ListEventRegistrations)
		}

		registrations := api.Group("/registrations")
		{
			registrations.POST("", middleware.RequireRole(middleware.RoleParticipant), h.CreateRegistration)
			registrations.GET("", middleware.RequireRole(middleware.RoleParticipant), h.ListRegistrations)
			registrations.PATCH("/cancel", middleware.RequireRole(middleware.RoleParticipant), h.CancelRegistration)
			registrations.POST("/:id/proof", middleware.RequireRole(middleware.RoleParticipant), h.UploadProof)
			registrations.GET("/:id/proof", middleware.RequireRole(middleware.RoleOrganizer, middleware.RoleAdmin), h.GetProof)
			registrations.PATCH("/approve", middleware.RequireRole(middleware.RoleOrganizer, middleware.RoleAdmin), h.ApprovePayment)
			registrations.PATCH("/reject", middleware.RequireRole(middleware.RoleOrganizer, middleware.RoleAdmin), h.RejectPayment)
			registrations.GET("/:id/ticket", middleware.RequireRole(middleware.RoleParticipant), h.GetTicket)
		}

		attendance := api.Group("/attendance")
		attendance.Use(middleware.RequireRole(middleware.RoleOrganizer, middleware.RoleAdmin))
		{
			attendance.POST("/scan", h.ScanTicket)
			attendance.POST("/override", h.OverrideAttendance)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	check := s.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if check.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   check.Status,
		"service":  "felicity-api",
		"database": check,
	})
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) Cleanup() error {
	log := logger.Get()

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Error("Error closing NATS connection", "error", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			log.Error("Error closing Valkey connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
