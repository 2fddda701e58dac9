// Package faceapi implementiert den HTTP-Client für den externen
// Detektor-/Embedder-Dienst. Der Dienst nimmt ein Bild entgegen und liefert
// null oder mehr 128-dimensionale Gesichtsvektoren.
package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"facetrack-go/config"
	"facetrack-go/internal/core/vector"

	log "github.com/sirupsen/logrus"
)

// Log-Felder für die FaceAPI-Komponente definieren
var logFields = log.Fields{
	"component": "faceapi",
}

// Client implementiert die Kommunikation mit dem Detektor-Dienst
type Client struct {
	config     config.FaceAPIConfig
	httpClient *http.Client
}

// apiInfoResponse enthält Informationen über den Detektor-Dienst
type apiInfoResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Model   string `json:"model"`
}

// apiDetectResponse enthält die Antwort auf eine Gesichtserkennungsanfrage
type apiDetectResponse struct {
	Status     string `json:"status"`
	FacesCount int    `json:"faces_count"`
	Faces      []struct {
		BoundingBox []int     `json:"bbox"`
		Confidence  float64   `json:"confidence"`
		Embedding   []float64 `json:"embedding"`
	} `json:"faces"`
	ProcessTime float64 `json:"process_time"`
}

// NewClient erstellt einen neuen FaceAPI-Client
func NewClient(cfg config.FaceAPIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

// Ping prüft, ob der Detektor-Dienst verfügbar ist
func (c *Client) Ping(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/info", c.config.URL), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to connect to face service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("face service unavailable, status: %d", resp.StatusCode)
	}

	var info apiInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	return info.Status == "ok", nil
}

// Detect sendet ein Bild an den Dienst und gibt die gefundenen Einbettungen
// zurück. Ein Bild ohne Gesicht liefert ein leeres Slice, keinen Fehler.
func (c *Client) Detect(ctx context.Context, image []byte) ([]vector.Embedding, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/detect", c.config.URL), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face detection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service returned status %d: %s", resp.StatusCode, string(data))
	}

	var result apiDetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode detection response: %w", err)
	}

	embeddings := make([]vector.Embedding, 0, len(result.Faces))
	for _, face := range result.Faces {
		emb, err := vector.New(face.Embedding)
		if err != nil {
			return nil, fmt.Errorf("face service returned invalid embedding: %w", err)
		}
		embeddings = append(embeddings, emb)
	}

	log.WithFields(logFields).Debugf("Detected %d face(s) in %v", len(embeddings), time.Since(start))
	return embeddings, nil
}

// setHeaders setzt den API-Schlüssel, falls konfiguriert
func (c *Client) setHeaders(req *http.Request) {
	if c.config.APIKey != "" {
		req.Header.Set("x-api-key", c.config.APIKey)
	}
}
