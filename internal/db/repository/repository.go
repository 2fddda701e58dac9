package repository

import (
	"errors"
	"time"

	"facetrack-go/internal/core/models"
	"facetrack-go/internal/core/recognition"
	"facetrack-go/internal/core/vector"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Repository definiert die Schnittstelle für die Datenbank-Operationen
type Repository interface {
	// User-Methoden
	CreateUser(user *models.User) error
	GetUsers() ([]models.User, error)
	GetUserByID(id uint) (*models.User, error)
	FindUserByEmployeeID(employeeID string) (*models.User, error)
	DeleteUser(id uint) error

	// Einbettungs-Methoden
	AppendEncoding(userID uint, blob []byte) error
	ListCandidates() ([]recognition.Candidate, error)

	// Anwesenheits-Methoden
	FindAttendance(userID uint, date string) (*models.Attendance, error)
	SaveAttendance(record *models.Attendance) error
	AppendLog(entry *models.AttendanceLog) error
	GetAttendanceHistory(limit int) ([]models.Attendance, error)
	GetAllAttendance() ([]models.Attendance, error)
	GetUserLogs(userID uint) ([]models.AttendanceLog, error)

	// Statistik-Methoden
	GetDashboardStats(date string) (models.DashboardStats, error)

	// Admin-Methoden
	FindAdminByUsername(username string) (*models.AdminUser, error)
	CreateAdmin(admin *models.AdminUser) error
	CountAdmins() (int64, error)

	// Bereinigung
	DeleteLogsBefore(cutoff time.Time) (int64, error)

	// Transaction führt fn atomar aus; der übergebene Repository-Wert
	// arbeitet auf der Transaktion
	Transaction(fn func(Repository) error) error
}

// SQLiteRepository implementiert die Repository-Schnittstelle für SQLite
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository erstellt eine neue SQLite-Repository-Instanz
func NewSQLiteRepository(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// User-Methoden

// CreateUser legt eine neue Person an
func (r *SQLiteRepository) CreateUser(user *models.User) error {
	return r.db.Create(user).Error
}

// GetUsers holt alle Personen
func (r *SQLiteRepository) GetUsers() ([]models.User, error) {
	var users []models.User
	result := r.db.Order("created_at DESC").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

// GetUserByID holt eine Person anhand ihrer ID
func (r *SQLiteRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	result := r.db.First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

// FindUserByEmployeeID sucht eine Person anhand ihrer Personalnummer
func (r *SQLiteRepository) FindUserByEmployeeID(employeeID string) (*models.User, error) {
	var user models.User
	result := r.db.Where("employee_id = ?", employeeID).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

// DeleteUser löscht eine Person samt Einbettungen, Anwesenheit und Logs
func (r *SQLiteRepository) DeleteUser(id uint) error {
	return r.db.Select("Encodings", "Attendances", "Logs").Delete(&models.User{Model: gorm.Model{ID: id}}).Error
}

// Einbettungs-Methoden

// AppendEncoding hängt eine weitere Einbettung an eine Person an und
// markiert sie als registriert. Bestehende Einbettungen bleiben erhalten.
func (r *SQLiteRepository) AppendEncoding(userID uint, blob []byte) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.FaceEncoding{UserID: userID, Encoding: blob}).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("face_registered", true).Error
	})
}

// ListCandidates liefert das abgeflachte Abgleichregister: ein Kandidat pro
// gespeicherter Einbettung. Zeilen mit defektem Blob werden übersprungen.
func (r *SQLiteRepository) ListCandidates() ([]recognition.Candidate, error) {
	var encodings []models.FaceEncoding
	if err := r.db.Find(&encodings).Error; err != nil {
		return nil, err
	}

	candidates := make([]recognition.Candidate, 0, len(encodings))
	for _, enc := range encodings {
		emb, err := vector.Unmarshal(enc.Encoding)
		if err != nil {
			log.Warnf("Skipping corrupt face encoding %d (user %d): %v", enc.ID, enc.UserID, err)
			continue
		}
		candidates = append(candidates, recognition.Candidate{UserID: enc.UserID, Embedding: emb})
	}
	return candidates, nil
}

// Anwesenheits-Methoden

// FindAttendance holt den Tagesdatensatz einer Person, nil wenn keiner existiert
func (r *SQLiteRepository) FindAttendance(userID uint, date string) (*models.Attendance, error) {
	var record models.Attendance
	result := r.db.Where("user_id = ? AND date = ?", userID, date).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &record, nil
}

// SaveAttendance persistiert einen neuen oder mutierten Tagesdatensatz
func (r *SQLiteRepository) SaveAttendance(record *models.Attendance) error {
	return r.db.Save(record).Error
}

// AppendLog hängt einen Audit-Eintrag an. Einträge werden nie mutiert.
func (r *SQLiteRepository) AppendLog(entry *models.AttendanceLog) error {
	return r.db.Create(entry).Error
}

// GetAttendanceHistory holt die jüngsten Tagesdatensätze inklusive Person
func (r *SQLiteRepository) GetAttendanceHistory(limit int) ([]models.Attendance, error) {
	var records []models.Attendance
	result := r.db.Preload("User").Order("id DESC").Limit(limit).Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

// GetAllAttendance holt alle Tagesdatensätze inklusive Person (für den Export)
func (r *SQLiteRepository) GetAllAttendance() ([]models.Attendance, error) {
	var records []models.Attendance
	result := r.db.Preload("User").Order("date ASC, id ASC").Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

// GetUserLogs holt den Audit-Trail einer Person, neueste zuerst
func (r *SQLiteRepository) GetUserLogs(userID uint) ([]models.AttendanceLog, error) {
	var logs []models.AttendanceLog
	result := r.db.Where("user_id = ?", userID).Order("timestamp DESC").Find(&logs)
	if result.Error != nil {
		return nil, result.Error
	}
	return logs, nil
}

// Statistik-Methoden

// GetDashboardStats liefert die Tagesübersicht für das Dashboard
func (r *SQLiteRepository) GetDashboardStats(date string) (models.DashboardStats, error) {
	var stats models.DashboardStats

	if err := r.db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.Attendance{}).Where("date = ?", date).Count(&stats.CheckedInToday).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.Attendance{}).Where("date = ? AND check_out IS NOT NULL", date).Count(&stats.CheckedOutToday).Error; err != nil {
		return stats, err
	}
	return stats, nil
}

// Admin-Methoden

// FindAdminByUsername sucht ein Administratorkonto, nil wenn keines existiert
func (r *SQLiteRepository) FindAdminByUsername(username string) (*models.AdminUser, error) {
	var admin models.AdminUser
	result := r.db.Where("username = ?", username).First(&admin)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &admin, nil
}

// CreateAdmin legt ein Administratorkonto an
func (r *SQLiteRepository) CreateAdmin(admin *models.AdminUser) error {
	return r.db.Create(admin).Error
}

// CountAdmins zählt die vorhandenen Administratorkonten
func (r *SQLiteRepository) CountAdmins() (int64, error) {
	var count int64
	err := r.db.Model(&models.AdminUser{}).Count(&count).Error
	return count, err
}

// Bereinigung

// DeleteLogsBefore entfernt Audit-Einträge vor dem Stichtag endgültig
func (r *SQLiteRepository) DeleteLogsBefore(cutoff time.Time) (int64, error) {
	result := r.db.Unscoped().Where("timestamp < ?", cutoff).Delete(&models.AttendanceLog{})
	return result.RowsAffected, result.Error
}

// Transaction führt fn in einer Datenbanktransaktion aus
func (r *SQLiteRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&SQLiteRepository{db: tx})
	})
}
