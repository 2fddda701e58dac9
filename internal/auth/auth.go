// Package auth implementiert die Admin-Anmeldung (bcrypt) und den
// JWT-Schutz der Verwaltungsrouten.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"facetrack-go/config"
	"facetrack-go/internal/db/repository"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials wird bei falschem Benutzernamen oder Passwort
// zurückgegeben
var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims sind die JWT-Claims eines Admin-Tokens
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service kapselt Anmeldung und Token-Ausstellung
type Service struct {
	repo repository.Repository
	cfg  config.AuthConfig
}

// NewService erstellt den Auth-Dienst
func NewService(repo repository.Repository, cfg config.AuthConfig) *Service {
	if cfg.JWTSecret == "" {
		log.Warn("auth.jwt_secret is empty; admin tokens will not survive restarts securely")
	}
	return &Service{repo: repo, cfg: cfg}
}

// Login prüft die Zugangsdaten und stellt ein JWT aus. Solange noch kein
// Administratorkonto existiert, greifen die Bootstrap-Zugangsdaten aus der
// Konfiguration.
func (s *Service) Login(username, password string) (string, error) {
	admin, err := s.repo.FindAdminByUsername(username)
	if err != nil {
		return "", fmt.Errorf("failed to look up admin: %w", err)
	}

	if admin == nil {
		count, err := s.repo.CountAdmins()
		if err != nil {
			return "", fmt.Errorf("failed to count admins: %w", err)
		}
		if count == 0 && s.cfg.BootstrapPass != "" &&
			username == s.cfg.BootstrapUser && password == s.cfg.BootstrapPass {
			log.Warn("Admin login via bootstrap credentials; create a real admin account")
			return s.issueToken(username)
		}
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.HashedPassword), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.issueToken(admin.Username)
}

// HashPassword erzeugt einen bcrypt-Hash für ein neues Administratorkonto
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// issueToken stellt ein signiertes JWT mit Ablaufzeit aus
func (s *Service) issueToken(username string) (string, error) {
	ttl := time.Duration(s.cfg.TokenTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}

	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Middleware prüft den Bearer-Token der Verwaltungsrouten
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(s.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("adminUser", claims.Username)
		c.Next()
	}
}
