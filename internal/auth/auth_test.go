package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"facetrack-go/config"
	"facetrack-go/internal/core/models"
	"facetrack-go/internal/db/repository"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T, cfg config.AuthConfig) (*Service, repository.Repository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AdminUser{}))
	repo := repository.NewSQLiteRepository(db)
	return NewService(repo, cfg), repo
}

func TestLoginWithStoredAccount(t *testing.T) {
	svc, repo := newTestService(t, config.AuthConfig{JWTSecret: "test-secret"})

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, repo.CreateAdmin(&models.AdminUser{Username: "admin", HashedPassword: hash}))

	token, err := svc.Login("admin", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "admin", claims.Username)

	_, err = svc.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginBootstrapOnlyWithoutAccounts(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "test-secret", BootstrapUser: "admin", BootstrapPass: "bootstrap"}
	svc, repo := newTestService(t, cfg)

	token, err := svc.Login("admin", "bootstrap")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// Sobald ein echtes Konto existiert, sind die Bootstrap-Zugangsdaten tot
	hash, err := HashPassword("real")
	require.NoError(t, err)
	require.NoError(t, repo.CreateAdmin(&models.AdminUser{Username: "chief", HashedPassword: hash}))

	_, err = svc.Login("admin", "bootstrap")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t, config.AuthConfig{JWTSecret: "test-secret"})

	router := gin.New()
	router.GET("/protected", svc.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString("adminUser")})
	})

	// Ohne Token
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Mit kaputtem Token
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Mit gültigem Token
	token, err := svc.issueToken("admin")
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin")
}
