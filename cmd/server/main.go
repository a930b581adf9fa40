package main

import (
	"log"
	"net/http"

	"cutroom-backend/internal/assets"
	"cutroom-backend/internal/config"
	"cutroom-backend/internal/database"
	"cutroom-backend/internal/handlers"
	"cutroom-backend/internal/middleware"
	"cutroom-backend/internal/presence"
	"cutroom-backend/internal/services"
	"cutroom-backend/internal/supabase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	dbURL := cfg.DatabaseURL
	if dbURL == "" {
		log.Println("Warning: DATABASE_URL not set. Migrations will be skipped.")
		log.Println("Please set DATABASE_URL environment variable with your Supabase PostgreSQL connection string")
	}

	// Asset service client is optional; without it the session pipeline
	// reconciles against the existing asset mirror only.
	var assetClient *assets.Client
	if cfg.AssetServiceBaseURL != "" {
		assetClient = assets.NewClient(cfg.AssetServiceBaseURL, cfg.AssetServiceAPIKey)
	} else {
		log.Println("Warning: ASSET_SERVICE_BASE_URL not set. Asset mirror will not refresh.")
	}

	// Initialize Supabase clients
	supabaseClient, err := supabase.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Supabase client: %v", err)
	}

	storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
	if err != nil {
		log.Fatalf("Failed to initialize storage client: %v", err)
	}

	realtimeClient := supabase.NewRealtimeClient(supabaseClient.Supabase)

	// Redis backs the presence registry
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	registry := presence.NewRegistry(rdb)

	// Create database client for direct queries
	var dbClient *supabase.DatabaseClient
	if dbURL != "" {
		var err error
		dbClient, err = supabase.NewDatabaseClient(dbURL)
		if err != nil {
			log.Printf("Warning: Failed to initialize database client: %v", err)
			log.Println("Database operations will be limited. Please configure DATABASE_URL properly.")
		} else {
			defer dbClient.Close()

			// Run migrations
			migrator, err := database.NewMigrator(dbURL)
			if err != nil {
				log.Printf("Warning: Failed to initialize migrator: %v", err)
			} else {
				defer migrator.Close()
				if err := migrator.Run(); err != nil {
					log.Printf("Warning: Migration failed: %v", err)
				} else {
					log.Println("Migrations completed successfully")
				}
			}
		}
	}

	// Initialize services (only if dbClient is available)
	var sessionService *services.SessionService
	var sequenceService *services.SequenceService
	if dbClient != nil {
		sessionService = services.NewSessionService(dbClient, assetClient, realtimeClient)
		sequenceService = services.NewSequenceService(dbClient, storageClient, realtimeClient)
	}

	// Initialize handlers (dbClient might be nil, handlers guard against it)
	sessionsHandler := handlers.NewSessionsHandler(sessionService)
	sequencesHandler := handlers.NewSequencesHandler(dbClient, sequenceService, realtimeClient)
	snapshotsHandler := handlers.NewSnapshotsHandler(sequenceService)
	presenceHandler := handlers.NewPresenceHandler(registry)

	// Setup router
	router := gin.Default()

	// Middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Health check (no auth)
	router.GET("/health", handlers.HealthHandler)

	// API routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))

	// Session routes
	api.GET("/projects/:project_id/session", sessionsHandler.OpenSession)
	api.PUT("/projects/:project_id/session", sessionsHandler.SaveSession)

	// Sequence routes
	api.GET("/projects/:project_id/sequences", sequencesHandler.ListSequences)
	api.POST("/projects/:project_id/sequences", sequencesHandler.CreateSequence)
	api.PATCH("/sequences/:sequence_id", sequencesHandler.RenameSequence)
	api.POST("/sequences/:sequence_id/copy", sequencesHandler.CopySequence)
	api.DELETE("/sequences/:sequence_id", sequencesHandler.DeleteSequence)
	api.POST("/sequences/:sequence_id/lock", sequencesHandler.AcquireLock)
	api.DELETE("/sequences/:sequence_id/lock", sequencesHandler.ReleaseLock)

	// Snapshot routes
	api.POST("/sequences/:sequence_id/snapshots", snapshotsHandler.CreateSnapshot)
	api.GET("/sequences/:sequence_id/snapshots", snapshotsHandler.ListSnapshots)
	api.POST("/sequences/:sequence_id/snapshots/:snapshot_id/restore", snapshotsHandler.RestoreSnapshot)
	api.DELETE("/sequences/:sequence_id/snapshots/:snapshot_id", snapshotsHandler.DeleteSnapshot)

	// Presence routes
	api.PUT("/projects/:project_id/presence", presenceHandler.Heartbeat)
	api.DELETE("/projects/:project_id/presence", presenceHandler.Leave)
	api.GET("/projects/:project_id/presence", presenceHandler.ListActive)
	api.GET("/projects/:project_id/presence/ws", presenceHandler.Subscribe)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
