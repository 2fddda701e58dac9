package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	log "github.com/sirupsen/logrus"
)

// startTime für die Uptime-Anzeige
var startTime = time.Now()

// GetSystemStatus liefert Prozess- und Hostkennzahlen für das Dashboard
func (h *APIHandler) GetSystemStatus(c *gin.Context) {
	status := gin.H{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
	}

	// CPU-Auslastung über alle Kerne gemittelt
	if cpuPercent, err := cpu.Percent(0, false); err != nil {
		log.Warnf("Failed to read CPU usage: %v", err)
	} else if len(cpuPercent) > 0 {
		status["cpu_percent"] = cpuPercent[0]
	}

	// Speicherauslastung des Hosts
	if vm, err := mem.VirtualMemory(); err != nil {
		log.Warnf("Failed to read memory usage: %v", err)
	} else {
		status["memory_used_percent"] = vm.UsedPercent
		status["memory_total_bytes"] = vm.Total
	}

	c.JSON(http.StatusOK, status)
}
