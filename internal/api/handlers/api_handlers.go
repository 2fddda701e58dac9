package handlers

import (
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"facetrack-go/config"
	"facetrack-go/internal/auth"
	"facetrack-go/internal/core/attendance"
	"facetrack-go/internal/core/models"
	"facetrack-go/internal/core/recognition"
	"facetrack-go/internal/db/repository"
	"facetrack-go/internal/server/sse"
	"facetrack-go/internal/util/timezone"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// APIHandler behandelt API-Anfragen für das System
type APIHandler struct {
	cfg        *config.Config
	repo       repository.Repository
	service    *attendance.Service
	auth       *auth.Service
	hub        *sse.Hub
	timeFormat string
}

// NewAPIHandler erstellt einen neuen API-Handler
func NewAPIHandler(cfg *config.Config, repo repository.Repository, service *attendance.Service, authService *auth.Service, hub *sse.Hub) *APIHandler {
	return &APIHandler{
		cfg:        cfg,
		repo:       repo,
		service:    service,
		auth:       authService,
		hub:        hub,
		timeFormat: "15:04:05",
	}
}

// RegisterRoutes registriert alle API-Routen
func (h *APIHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Öffentliche Endpunkte (Kiosk und Anmeldung)
	router.POST("/recognize", h.Recognize)
	router.POST("/login", h.Login)
	router.GET("/events", h.StreamEvents)

	// Verwaltungs-Endpunkte
	admin := router.Group("/")
	admin.Use(h.auth.Middleware())
	{
		admin.POST("/users", h.CreateUser)
		admin.GET("/users", h.ListUsers)
		admin.DELETE("/users/:id", h.DeleteUser)
		admin.POST("/users/:id/face", h.RegisterFace)
		admin.GET("/users/:id/logs", h.GetUserLogs)

		admin.GET("/stats", h.GetStats)
		admin.GET("/attendance", h.GetAttendanceHistory)
		admin.GET("/export", h.ExportAttendance)

		admin.GET("/system/status", h.GetSystemStatus)
	}
}

// recognizePayload ist die explizit getypte Erkennungsanfrage des Clients
type recognizePayload struct {
	Image string `json:"image" binding:"required"` // Base64, Data-URL-Präfix erlaubt
	Mode  string `json:"mode"`                     // "Auto", "Check-in" oder "Check-out"
}

// Recognize nimmt ein Kamerabild entgegen und führt den Erkennungspfad aus
func (h *APIHandler) Recognize(c *gin.Context) {
	var payload recognizePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	image, err := decodeImage(payload.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data: " + err.Error()})
		return
	}

	outcome, err := h.service.Recognize(c.Request.Context(), attendance.RecognizeRequest{
		Image: image,
		Mode:  attendance.ParseMode(payload.Mode),
	})
	if err != nil {
		log.Errorf("Recognition failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Recognition failed"})
		return
	}

	switch outcome.Status {
	case attendance.StatusSuccess:
		c.JSON(http.StatusOK, gin.H{
			"status":      outcome.Status,
			"name":        outcome.FullName,
			"employee_id": outcome.EmployeeID,
			"type":        outcome.EventType,
			"time":        timezone.Format(outcome.Timestamp, h.timeFormat),
		})
	case attendance.StatusCooldown:
		c.JSON(http.StatusOK, gin.H{
			"status":  outcome.Status,
			"name":    outcome.FullName,
			"message": "Wait a few seconds...",
		})
	case attendance.StatusNoFace:
		c.JSON(http.StatusOK, gin.H{"status": outcome.Status, "message": "No face detected"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": outcome.Status, "message": "Unauthorized or unknown person"})
	}
}

// userPayload ist die Anfrage zum Anlegen einer Person
type userPayload struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	FullName   string `json:"full_name" binding:"required"`
}

// CreateUser legt eine neue Person an
func (h *APIHandler) CreateUser(c *gin.Context) {
	var payload userPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	existing, err := h.repo.FindUserByEmployeeID(payload.EmployeeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check employee ID"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Employee ID already registered"})
		return
	}

	user := models.User{
		EmployeeID: payload.EmployeeID,
		FullName:   payload.FullName,
	}
	if err := h.repo.CreateUser(&user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, userResponse(user))
}

// ListUsers holt alle Personen
func (h *APIHandler) ListUsers(c *gin.Context) {
	users, err := h.repo.GetUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	response := make([]gin.H, 0, len(users))
	for _, user := range users {
		response = append(response, userResponse(user))
	}
	c.JSON(http.StatusOK, response)
}

// DeleteUser löscht eine Person samt Einbettungen, Anwesenheit und Logs
func (h *APIHandler) DeleteUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.repo.GetUserByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := h.repo.DeleteUser(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// registerFacePayload ist die Anfrage zum Einschreiben eines Gesichts
type registerFacePayload struct {
	Image string `json:"image" binding:"required"`
}

// RegisterFace schreibt ein Gesicht für eine Person ein. Das Bild muss genau
// ein Gesicht enthalten; weitere Registrierungen ergänzen weitere Blickwinkel.
func (h *APIHandler) RegisterFace(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var payload registerFacePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	image, err := decodeImage(payload.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data: " + err.Error()})
		return
	}

	if err := h.service.RegisterFace(c.Request.Context(), id, image); err != nil {
		switch {
		case errors.Is(err, attendance.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		case errors.Is(err, recognition.ErrNoFaceDetected):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No face detected in image"})
		case errors.Is(err, recognition.ErrMultipleFacesDetected):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Multiple faces detected. Please provide an image with only one face."})
		default:
			log.Errorf("Face registration failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register face"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Face registered successfully"})
}

// GetUserLogs holt den Audit-Trail einer Person
func (h *APIHandler) GetUserLogs(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.repo.GetUserByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	logs, err := h.repo.GetUserLogs(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load logs"})
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetStats liefert die Dashboard-Übersicht für den heutigen Tag
func (h *APIHandler) GetStats(c *gin.Context) {
	stats, err := h.repo.GetDashboardStats(timezone.DateKey(timezone.Now()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetAttendanceHistory holt die jüngsten Tagesdatensätze
func (h *APIHandler) GetAttendanceHistory(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.repo.GetAttendanceHistory(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load attendance history"})
		return
	}

	response := make([]gin.H, 0, len(records))
	for _, rec := range records {
		entry := gin.H{
			"id":            rec.ID,
			"user_id":       rec.UserID,
			"employee_id":   rec.User.EmployeeID,
			"name":          rec.User.FullName,
			"date":          rec.Date,
			"check_in":      nil,
			"check_out":     nil,
			"snapshot_path": rec.SnapshotPath,
		}
		if rec.CheckIn != nil {
			entry["check_in"] = timezone.Format(*rec.CheckIn, h.timeFormat)
		}
		if rec.CheckOut != nil {
			entry["check_out"] = timezone.Format(*rec.CheckOut, h.timeFormat)
		}
		response = append(response, entry)
	}
	c.JSON(http.StatusOK, response)
}

// ExportAttendance streamt alle Tagesdatensätze als CSV-Anhang
func (h *APIHandler) ExportAttendance(c *gin.Context) {
	records, err := h.repo.GetAllAttendance()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load attendance records"})
		return
	}

	filename := fmt.Sprintf("attendance_export_%s.csv", timezone.DateKey(timezone.Now()))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	if err := writer.Write([]string{"Employee ID", "Full Name", "Date", "Check-in", "Check-out"}); err != nil {
		log.Errorf("CSV export failed: %v", err)
		return
	}
	for _, rec := range records {
		checkIn, checkOut := "", ""
		if rec.CheckIn != nil {
			checkIn = timezone.Format(*rec.CheckIn, h.timeFormat)
		}
		if rec.CheckOut != nil {
			checkOut = timezone.Format(*rec.CheckOut, h.timeFormat)
		}
		if err := writer.Write([]string{rec.User.EmployeeID, rec.User.FullName, rec.Date, checkIn, checkOut}); err != nil {
			log.Errorf("CSV export failed: %v", err)
			return
		}
	}
}

// loginPayload ist die Admin-Anmeldeanfrage
type loginPayload struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login prüft Admin-Zugangsdaten und stellt ein Token aus
func (h *APIHandler) Login(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	token, err := h.auth.Login(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		log.Errorf("Login failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"username":     payload.Username,
		"access_token": token,
		"token_type":   "bearer",
	})
}

// userResponse bildet eine Person auf die API-Darstellung ab
func userResponse(user models.User) gin.H {
	return gin.H{
		"id":              user.ID,
		"employee_id":     user.EmployeeID,
		"full_name":       user.FullName,
		"face_registered": user.FaceRegistered,
		"created_at":      user.CreatedAt,
	}
}

// parseID liest den numerischen ID-Parameter einer Route
func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// decodeImage dekodiert Base64-Bilddaten; ein Data-URL-Präfix
// ("data:image/jpeg;base64,...") wird toleriert
func decodeImage(data string) ([]byte, error) {
	if idx := strings.Index(data, ","); idx >= 0 {
		data = data[idx+1:]
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 data: %w", err)
	}
	if len(decoded) == 0 {
		return nil, errors.New("empty image")
	}
	return decoded, nil
}
