package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventCheckIn und EventCheckOut sind die beiden Log-Typen des Audit-Trails
const (
	EventCheckIn  = "Check-in"
	EventCheckOut = "Check-out"
)

// User repräsentiert eine registrierte Person
type User struct {
	gorm.Model
	EmployeeID     string `gorm:"uniqueIndex;not null"` // Externe Personalnummer
	FullName       string `gorm:"not null"`
	FaceRegistered bool   `gorm:"default:false"` // Mindestens eine Einbettung vorhanden

	Encodings   []FaceEncoding  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
	Attendances []Attendance    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
	Logs        []AttendanceLog `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
}

// FaceEncoding repräsentiert eine gespeicherte Gesichtseinbettung.
// Einträge werden nur angehängt, nie überschrieben: eine erneute
// Registrierung ergänzt einen weiteren Blickwinkel derselben Person.
type FaceEncoding struct {
	gorm.Model
	UserID   uint   `gorm:"index;not null"`
	Encoding []byte `gorm:"not null"` // 128 × float64, Little-Endian (siehe vector.BlobSize)

	User User `gorm:"foreignKey:UserID"`
}

// Attendance ist der veränderliche Tageszustand einer Person: höchstens eine
// Zeile pro (Benutzer, Kalendertag), über den Tag hinweg in-place mutiert.
// Die vollständige Ereignishistorie liegt ausschließlich in AttendanceLog.
type Attendance struct {
	gorm.Model
	UserID       uint       `gorm:"uniqueIndex:idx_attendance_user_date;not null"`
	Date         string     `gorm:"uniqueIndex:idx_attendance_user_date;not null"` // YYYY-MM-DD in Prozesszeitzone
	CheckIn      *time.Time
	CheckOut     *time.Time
	SnapshotPath string

	User User `gorm:"foreignKey:UserID"`
}

// AttendanceLog ist der unveränderliche Audit-Trail: genau eine Zeile pro
// akzeptiertem Erkennungsereignis
type AttendanceLog struct {
	gorm.Model
	UserID       uint      `gorm:"index;not null"`
	Timestamp    time.Time `gorm:"index;not null"`
	LogType      string    `gorm:"not null"` // EventCheckIn oder EventCheckOut
	SnapshotPath string
	Details      datatypes.JSON `gorm:"type:json;null"` // Rohdaten des Erkennungsereignisses

	User User `gorm:"foreignKey:UserID"`
}

// AdminUser repräsentiert ein Dashboard-Administratorkonto
type AdminUser struct {
	gorm.Model
	Username       string `gorm:"uniqueIndex;not null"`
	HashedPassword string `gorm:"not null"` // bcrypt
}

// DashboardStats ist die Projektion für die Dashboard-Übersicht
type DashboardStats struct {
	TotalUsers      int64 `json:"total_users"`
	CheckedInToday  int64 `json:"checked_in_today"`
	CheckedOutToday int64 `json:"checked_out_today"`
}
