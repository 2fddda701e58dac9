// Package cleanup entfernt abgelaufene Schnappschüsse und Audit-Einträge
// nach Ablauf der konfigurierten Aufbewahrungsfrist.
package cleanup

import (
	"os"
	"path/filepath"
	"time"

	"facetrack-go/internal/db/repository"
	"facetrack-go/internal/util/timezone"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

// Service handles the automatic cleanup of old data.
type Service struct {
	repo          repository.Repository
	retentionDays int
	snapshotDir   string
	scheduler     *gocron.Scheduler
}

// NewService creates a new cleanup service. Returns nil when cleanup is
// disabled (retention_days <= 0).
func NewService(repo repository.Repository, retentionDays int, snapshotDir string) *Service {
	if retentionDays <= 0 {
		log.Info("Automatic cleanup disabled (retention_days <= 0).")
		return nil
	}
	if snapshotDir == "" {
		log.Error("Cannot initialize cleanup service: snapshot directory is empty")
		return nil
	}
	log.Infof("Initializing cleanup service: RetentionDays=%d, SnapshotDir='%s'", retentionDays, snapshotDir)
	return &Service{
		repo:          repo,
		retentionDays: retentionDays,
		snapshotDir:   snapshotDir,
		scheduler:     gocron.NewScheduler(timezone.Location()),
	}
}

// Start schedules the daily cleanup cycle and runs one immediately.
func (s *Service) Start() {
	if s == nil {
		return // Service was not initialized (cleanup disabled)
	}
	if _, err := s.scheduler.Every(1).Day().At("03:30").Do(s.RunCleanupCycle); err != nil {
		log.Errorf("Failed to schedule cleanup job: %v", err)
		return
	}
	s.scheduler.StartAsync()

	go func() {
		log.Info("Running initial cleanup check on startup...")
		s.RunCleanupCycle()
	}()
}

// Stop stops the scheduler.
func (s *Service) Stop() {
	if s == nil {
		return
	}
	s.scheduler.Stop()
	log.Info("Cleanup service stopped.")
}

// RunCleanupCycle deletes expired audit rows and snapshot files.
func (s *Service) RunCleanupCycle() {
	cutoff := timezone.Now().AddDate(0, 0, -s.retentionDays)
	log.Infof("Running cleanup cycle, removing data older than %s", cutoff.Format(time.RFC3339))

	deleted, err := s.repo.DeleteLogsBefore(cutoff)
	if err != nil {
		log.Errorf("Failed to delete expired attendance logs: %v", err)
	} else if deleted > 0 {
		log.Infof("Deleted %d expired attendance log(s)", deleted)
	}

	removed := 0
	err = filepath.Walk(s.snapshotDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				log.Warnf("Failed to remove expired snapshot '%s': %v", path, err)
				return nil
			}
			removed++
		}
		return nil
	})
	if err != nil {
		log.Errorf("Snapshot cleanup walk failed: %v", err)
	}
	if removed > 0 {
		log.Infof("Removed %d expired snapshot file(s)", removed)
	}
}
