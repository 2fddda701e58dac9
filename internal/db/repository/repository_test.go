package repository

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"facetrack-go/internal/core/models"
	"facetrack-go/internal/core/vector"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.FaceEncoding{}, &models.Attendance{},
		&models.AttendanceLog{}, &models.AdminUser{},
	))
	return NewSQLiteRepository(db), db
}

func validBlob(t *testing.T, first float64) []byte {
	t.Helper()
	emb := make(vector.Embedding, vector.Dim)
	emb[0] = first
	blob, err := emb.Marshal()
	require.NoError(t, err)
	return blob
}

func TestUserLifecycle(t *testing.T) {
	repo, _ := newTestRepo(t)

	user := &models.User{EmployeeID: "EMP-001", FullName: "Ada Lovelace"}
	require.NoError(t, repo.CreateUser(user))
	require.NotZero(t, user.ID)

	// Personalnummern sind eindeutig
	err := repo.CreateUser(&models.User{EmployeeID: "EMP-001", FullName: "Doppelgänger"})
	assert.Error(t, err)

	found, err := repo.FindUserByEmployeeID("EMP-001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	missing, err := repo.FindUserByEmployeeID("EMP-999")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byID, err := repo.GetUserByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "Ada Lovelace", byID.FullName)

	users, err := repo.GetUsers()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestDeleteUserCascades(t *testing.T) {
	repo, db := newTestRepo(t)

	user := &models.User{EmployeeID: "EMP-001", FullName: "Ada Lovelace"}
	require.NoError(t, repo.CreateUser(user))
	require.NoError(t, repo.AppendEncoding(user.ID, validBlob(t, 0.1)))
	require.NoError(t, repo.SaveAttendance(&models.Attendance{UserID: user.ID, Date: "2025-06-02"}))
	require.NoError(t, repo.AppendLog(&models.AttendanceLog{UserID: user.ID, Timestamp: time.Now(), LogType: models.EventCheckIn}))

	require.NoError(t, repo.DeleteUser(user.ID))

	gone, err := repo.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	var encodings int64
	require.NoError(t, db.Model(&models.FaceEncoding{}).Where("user_id = ?", user.ID).Count(&encodings).Error)
	assert.Zero(t, encodings)
}

func TestAppendEncodingMarksUserRegistered(t *testing.T) {
	repo, _ := newTestRepo(t)

	user := &models.User{EmployeeID: "EMP-001", FullName: "Ada Lovelace"}
	require.NoError(t, repo.CreateUser(user))
	assert.False(t, user.FaceRegistered)

	require.NoError(t, repo.AppendEncoding(user.ID, validBlob(t, 0.1)))
	require.NoError(t, repo.AppendEncoding(user.ID, validBlob(t, 0.2)))

	updated, err := repo.GetUserByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.True(t, updated.FaceRegistered)

	candidates, err := repo.ListCandidates()
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestListCandidatesSkipsCorruptBlob(t *testing.T) {
	repo, db := newTestRepo(t)

	user := &models.User{EmployeeID: "EMP-001", FullName: "Ada Lovelace"}
	require.NoError(t, repo.CreateUser(user))
	require.NoError(t, repo.AppendEncoding(user.ID, validBlob(t, 0.1)))
	// Blob mit falscher Länge direkt einschleusen
	require.NoError(t, db.Create(&models.FaceEncoding{UserID: user.ID, Encoding: []byte{0x01, 0x02}}).Error)

	candidates, err := repo.ListCandidates()
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, user.ID, candidates[0].UserID)
}

func TestAttendanceFindAndSave(t *testing.T) {
	repo, _ := newTestRepo(t)

	user := &models.User{EmployeeID: "EMP-001", FullName: "Ada Lovelace"}
	require.NoError(t, repo.CreateUser(user))

	none, err := repo.FindAttendance(user.ID, "2025-06-02")
	require.NoError(t, err)
	assert.Nil(t, none)

	checkIn := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	record := &models.Attendance{UserID: user.ID, Date: "2025-06-02", CheckIn: &checkIn}
	require.NoError(t, repo.SaveAttendance(record))

	found, err := repo.FindAttendance(user.ID, "2025-06-02")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.CheckIn)
	assert.True(t, found.CheckIn.Equal(checkIn))

	// Mutation in place: derselbe Datensatz, kein zweiter
	checkOut := checkIn.Add(8 * time.Hour)
	found.CheckOut = &checkOut
	require.NoError(t, repo.SaveAttendance(found))

	again, err := repo.FindAttendance(user.ID, "2025-06-02")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, record.ID, again.ID)
	require.NotNil(t, again.CheckOut)
}

func TestUserLogsOrdering(t *testing.T) {
	repo, _ := newTestRepo(t)

	user := &models.User{EmployeeID: "EMP-001", FullName: "Ada Lovelace"}
	require.NoError(t, repo.CreateUser(user))

	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AppendLog(&models.AttendanceLog{UserID: user.ID, Timestamp: base, LogType: models.EventCheckIn}))
	require.NoError(t, repo.AppendLog(&models.AttendanceLog{UserID: user.ID, Timestamp: base.Add(time.Hour), LogType: models.EventCheckOut}))

	logs, err := repo.GetUserLogs(user.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.EventCheckOut, logs[0].LogType)
	assert.Equal(t, models.EventCheckIn, logs[1].LogType)
}

func TestGetDashboardStats(t *testing.T) {
	repo, _ := newTestRepo(t)

	ada := &models.User{EmployeeID: "EMP-001", FullName: "Ada Lovelace"}
	grace := &models.User{EmployeeID: "EMP-002", FullName: "Grace Hopper"}
	require.NoError(t, repo.CreateUser(ada))
	require.NoError(t, repo.CreateUser(grace))

	checkIn := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	checkOut := checkIn.Add(8 * time.Hour)
	require.NoError(t, repo.SaveAttendance(&models.Attendance{UserID: ada.ID, Date: "2025-06-02", CheckIn: &checkIn, CheckOut: &checkOut}))
	require.NoError(t, repo.SaveAttendance(&models.Attendance{UserID: grace.ID, Date: "2025-06-02", CheckIn: &checkIn}))
	// Datensatz eines anderen Tages zählt nicht
	require.NoError(t, repo.SaveAttendance(&models.Attendance{UserID: ada.ID, Date: "2025-06-01", CheckIn: &checkIn}))

	stats, err := repo.GetDashboardStats("2025-06-02")
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 2, stats.CheckedInToday)
	assert.EqualValues(t, 1, stats.CheckedOutToday)
}

func TestAdminAccounts(t *testing.T) {
	repo, _ := newTestRepo(t)

	count, err := repo.CountAdmins()
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, repo.CreateAdmin(&models.AdminUser{Username: "admin", HashedPassword: "hash"}))

	admin, err := repo.FindAdminByUsername("admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, "hash", admin.HashedPassword)

	missing, err := repo.FindAdminByUsername("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteLogsBefore(t *testing.T) {
	repo, _ := newTestRepo(t)

	user := &models.User{EmployeeID: "EMP-001", FullName: "Ada Lovelace"}
	require.NoError(t, repo.CreateUser(user))

	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AppendLog(&models.AttendanceLog{UserID: user.ID, Timestamp: cutoff.Add(-48 * time.Hour), LogType: models.EventCheckIn}))
	require.NoError(t, repo.AppendLog(&models.AttendanceLog{UserID: user.ID, Timestamp: cutoff.Add(time.Hour), LogType: models.EventCheckIn}))

	deleted, err := repo.DeleteLogsBefore(cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	logs, err := repo.GetUserLogs(user.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	repo, _ := newTestRepo(t)

	sentinel := errors.New("abort")
	err := repo.Transaction(func(tx Repository) error {
		if err := tx.CreateUser(&models.User{EmployeeID: "EMP-001", FullName: "Ada Lovelace"}); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	users, err := repo.GetUsers()
	require.NoError(t, err)
	assert.Empty(t, users)
}
