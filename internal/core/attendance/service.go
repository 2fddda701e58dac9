package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"facetrack-go/internal/core/models"
	"facetrack-go/internal/core/recognition"
	"facetrack-go/internal/db/repository"
	"facetrack-go/internal/util/timezone"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ErrUserNotFound wird bei der Registrierung für eine unbekannte Person
// zurückgegeben
var ErrUserNotFound = errors.New("user not found")

// Status ist der diskriminierte Ausgang einer Erkennungsanfrage
type Status string

const (
	StatusSuccess  Status = "success"  // Übergang ausgeführt
	StatusCooldown Status = "cooldown" // Duplikat unterdrückt, kein Fehler
	StatusUnknown  Status = "unknown"  // Kein zulässiger Treffer
	StatusNoFace   Status = "no_face"  // Detektor fand kein Gesicht
)

// RecognizeRequest ist die explizit getypte Erkennungsanfrage
type RecognizeRequest struct {
	Image []byte
	Mode  Mode
}

// Outcome ist das Ergebnis einer Erkennungsanfrage
type Outcome struct {
	Status       Status    `json:"status"`
	UserID       uint      `json:"user_id,omitempty"`
	EmployeeID   string    `json:"employee_id,omitempty"`
	FullName     string    `json:"name,omitempty"`
	EventType    string    `json:"type,omitempty"`
	Timestamp    time.Time `json:"time,omitempty"`
	SnapshotPath string    `json:"snapshot_path,omitempty"`
}

// Snapshotter persistiert Beweisbilder. Save darf nie fehlschlagen, ein
// leerer Pfad bedeutet "kein Schnappschuss".
type Snapshotter interface {
	Save(image []byte, employeeID, eventType string, now time.Time) string
}

// Publisher verteilt abgeschlossene Ereignisse (SSE, MQTT). Fire-and-forget:
// Veröffentlichung beeinflusst den Übergang nicht.
type Publisher interface {
	PublishAttendance(outcome Outcome)
}

// Service orchestriert den Erkennungs- und Registrierungspfad. Alle
// Kollaborateure werden injiziert; es gibt keinen ambienten Zustand.
type Service struct {
	repo       repository.Repository
	detector   recognition.Detector
	engine     *Engine
	snapshots  Snapshotter
	publishers []Publisher
	tolerance  float64
	now        func() time.Time
}

// NewService erstellt den Anwesenheitsdienst
func NewService(repo repository.Repository, detector recognition.Detector, engine *Engine, snapshots Snapshotter, tolerance float64, publishers ...Publisher) *Service {
	return &Service{
		repo:       repo,
		detector:   detector,
		engine:     engine,
		snapshots:  snapshots,
		publishers: publishers,
		tolerance:  tolerance,
		now:        timezone.Now,
	}
}

// Recognize führt den vollständigen Erkennungspfad aus: Bild → Einbettung →
// Abgleich → Zustandsübergang → Schnappschuss + Audit-Eintrag. Lesen,
// Entscheiden und Schreiben laufen in einer Transaktion; bei konkurrierenden
// Anfragen darf der Tagesdatensatz last-writer-wins sein, der Audit-Trail
// verliert aber nie einen Eintrag.
func (s *Service) Recognize(ctx context.Context, req RecognizeRequest) (Outcome, error) {
	embeddings, err := s.detector.Detect(ctx, req.Image)
	if err != nil {
		return Outcome{}, fmt.Errorf("face detection failed: %w", err)
	}
	if len(embeddings) == 0 {
		return Outcome{Status: StatusNoFace}, nil
	}
	// Auf dem Erkennungspfad zählt nur das erste Gesicht im Bild
	query := embeddings[0]

	candidates, err := s.repo.ListCandidates()
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load face encodings: %w", err)
	}

	userID, ok := recognition.Match(candidates, query, s.tolerance)
	if !ok {
		return Outcome{Status: StatusUnknown}, nil
	}

	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user == nil {
		// Einbettung zeigt auf eine inzwischen gelöschte Person
		log.Warnf("Face encoding matched deleted user %d", userID)
		return Outcome{Status: StatusUnknown}, nil
	}

	now := s.now()
	date := timezone.DateKey(now)

	var outcome Outcome
	err = s.repo.Transaction(func(tx repository.Repository) error {
		existing, err := tx.FindAttendance(user.ID, date)
		if err != nil {
			return fmt.Errorf("failed to load attendance record: %w", err)
		}

		decision := s.engine.Decide(existing, user.ID, date, req.Mode, now)
		if decision.Cooldown {
			outcome = Outcome{
				Status:     StatusCooldown,
				UserID:     user.ID,
				EmployeeID: user.EmployeeID,
				FullName:   user.FullName,
			}
			return nil
		}

		// Schnappschuss-Fehler sind absichtlich nicht fatal: der Übergang
		// wird auch ohne Beweisbild festgeschrieben
		snapshotPath := s.snapshots.Save(req.Image, user.EmployeeID, decision.EventType, now)
		decision.Record.SnapshotPath = snapshotPath

		if err := tx.SaveAttendance(decision.Record); err != nil {
			return fmt.Errorf("failed to save attendance record: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"mode":       string(req.Mode),
			"candidates": len(candidates),
		})
		entry := &models.AttendanceLog{
			UserID:       user.ID,
			Timestamp:    now,
			LogType:      decision.EventType,
			SnapshotPath: snapshotPath,
			Details:      datatypes.JSON(details),
		}
		if err := tx.AppendLog(entry); err != nil {
			return fmt.Errorf("failed to append attendance log: %w", err)
		}

		outcome = Outcome{
			Status:       StatusSuccess,
			UserID:       user.ID,
			EmployeeID:   user.EmployeeID,
			FullName:     user.FullName,
			EventType:    decision.EventType,
			Timestamp:    now,
			SnapshotPath: snapshotPath,
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if outcome.Status == StatusSuccess {
		s.publish(outcome)
	}
	return outcome, nil
}

// RegisterFace schreibt genau eine Einbettung für eine Person ein. Null oder
// mehrere Gesichter im Bild schlagen mit den Wächter-Fehlern fehl; eine
// erneute Registrierung hängt an, statt zu ersetzen.
func (s *Service) RegisterFace(ctx context.Context, userID uint, image []byte) error {
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	embeddings, err := s.detector.Detect(ctx, image)
	if err != nil {
		return fmt.Errorf("face detection failed: %w", err)
	}

	embedding, err := recognition.Single(embeddings)
	if err != nil {
		return err
	}

	blob, err := embedding.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize embedding: %w", err)
	}

	if err := s.repo.AppendEncoding(user.ID, blob); err != nil {
		return fmt.Errorf("failed to store face encoding: %w", err)
	}

	log.Infof("Registered face encoding for user %d (%s)", user.ID, user.EmployeeID)
	return nil
}

// publish verteilt ein Ereignis an alle registrierten Publisher
func (s *Service) publish(outcome Outcome) {
	for _, p := range s.publishers {
		p.PublishAttendance(outcome)
	}
}
