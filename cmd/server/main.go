package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"facetrack-go/config"
	"facetrack-go/internal/api/handlers"
	"facetrack-go/internal/auth"
	"facetrack-go/internal/cleanup"
	"facetrack-go/internal/core/attendance"
	"facetrack-go/internal/core/snapshot"
	"facetrack-go/internal/db"
	"facetrack-go/internal/db/repository"
	"facetrack-go/internal/integrations/faceapi"
	"facetrack-go/internal/integrations/mqtt"
	"facetrack-go/internal/logger"
	"facetrack-go/internal/server/sse"
	"facetrack-go/internal/util/timezone"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const defaultConfigPath = "/config/config.yaml"

func main() {
	// .env laden, falls vorhanden (lokale Entwicklung)
	_ = godotenv.Load()

	configPath := os.Getenv("FACETRACK_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log); err != nil {
		log.Errorf("Failed to initialize logger completely: %v", err)
	}

	// Zeitzone der Tagesgrenze festlegen
	timezone.Initialize(cfg.Server.Timezone)

	// Initialize database connection
	log.Info("Initializing database...")
	database, err := db.Initialize(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Info("Database initialization complete.")

	repo := repository.NewSQLiteRepository(database)

	// SSE-Hub für das Live-Dashboard
	hub := sse.NewHub()
	go hub.Run()

	// Publisher sammeln: SSE immer, MQTT nur wenn konfiguriert
	publishers := []attendance.Publisher{hub}

	var mqttPublisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		mqttPublisher = mqtt.NewPublisher(cfg.MQTT)
		if err := mqttPublisher.Start(); err != nil {
			log.Warnf("Failed to initialize MQTT publisher: %v. Continuing without MQTT.", err)
			mqttPublisher = nil
		} else {
			publishers = append(publishers, mqttPublisher)
			defer mqttPublisher.Stop()
		}
	} else {
		log.Info("MQTT is disabled in config.")
	}

	// Externer Detektor-/Embedder-Dienst
	detector := faceapi.NewClient(cfg.FaceAPI)

	// Kern: Zustandsmaschine, Schnappschüsse, Orchestrierung
	engine := attendance.NewEngine(time.Duration(cfg.Attendance.CooldownSeconds) * time.Second)
	snapshots := snapshot.NewStore(cfg.Server.SnapshotDir)
	service := attendance.NewService(repo, detector, engine, snapshots, cfg.Attendance.Tolerance, publishers...)

	// Admin-Authentifizierung
	authService := auth.NewService(repo, cfg.Auth)

	// Bereinigung abgelaufener Daten
	cleanupService := cleanup.NewService(repo, cfg.Cleanup.RetentionDays, cfg.Server.SnapshotDir)
	if cleanupService != nil {
		cleanupService.Start()
		defer cleanupService.Stop()
	}

	// --- Router aufbauen ---
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	apiHandler := handlers.NewAPIHandler(cfg, repo, service, authService, hub)
	apiHandler.RegisterRoutes(router.Group("/api"))

	// Schnappschüsse als statische Dateien ausliefern
	router.StaticFS(cfg.Server.SnapshotURL, http.Dir(cfg.Server.SnapshotDir))
	log.Infof("Serving snapshots from %s under %s", cfg.Server.SnapshotDir, cfg.Server.SnapshotURL)

	// Start the server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Infof("Starting server on %s", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
