package handlers

import (
	"fmt"
	"net/http"

	"facetrack-go/internal/server/sse"

	"github.com/gin-gonic/gin"
)

// StreamEvents hält eine SSE-Verbindung offen und leitet
// Anwesenheitsereignisse des Hubs an den Client weiter
func (h *APIHandler) StreamEvents(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	client := make(sse.Client, 10)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	for {
		select {
		case message, open := <-client:
			if !open {
				return
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", message)
			flusher.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
