package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"dualvision-worker-go/internal/logging"
	"dualvision-worker-go/internal/models"
)

// EventStats reports the event fanout counters
type EventStats interface {
	Stats() (delivered, dropped uint64)
	Sinks() []string
}

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	WorkerID  string
	startedAt time.Time
	pipeline  Pipeline
	events    EventStats
	cache     SnapshotCache
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(workerID string, startedAt time.Time, pipeline Pipeline, events EventStats) *SystemHandler {
	return &SystemHandler{
		WorkerID:  workerID,
		startedAt: startedAt,
		pipeline:  pipeline,
		events:    events,
	}
}

// WithCache adds the last cached detection events to GET /system/stats
func (h *SystemHandler) WithCache(cache SnapshotCache) *SystemHandler {
	h.cache = cache
	return h
}

// @Summary Get system stats
// @Description Get process statistics together with the pipeline counters
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	st := h.pipeline.Status()

	stats := gin.H{
		"worker_id":      h.WorkerID,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"memory_mb":      m.Alloc / 1024 / 1024,
		"cpu_cores":      runtime.NumCPU(),
		"goroutines":     runtime.NumGoroutine(),
		"go_version":     runtime.Version(),
		"os":             runtime.GOOS,
		"pipeline": gin.H{
			"state":          st.State,
			"fps":            st.FPS,
			"frames_emitted": st.FramesEmitted,
			"frames_dropped": st.FramesDropped,
			"subscribers":    st.Subscribers,
		},
	}
	if h.events != nil {
		delivered, dropped := h.events.Stats()
		stats["events"] = gin.H{"delivered": delivered, "dropped": dropped}
	}
	if h.cache != nil {
		stats["last_detections"] = h.lastDetections(c)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"stats":     stats,
		"timestamp": time.Now().Unix(),
	})
}

func (h *SystemHandler) lastDetections(c *gin.Context) gin.H {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()
	out := gin.H{}
	for _, source := range models.Sources {
		ev, err := h.cache.LatestDetections(ctx, source)
		if err != nil {
			logging.Warn(c).Err(err).Str("detector", source.String()).Msg("Failed to read cached detections")
			continue
		}
		out[source.String()] = ev
	}
	return out
}

// @Summary Get debug info
// @Description Get debug information for troubleshooting
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/debug [get]
func (h *SystemHandler) GetDebugInfo(c *gin.Context) {
	var sinks []string
	if h.events != nil {
		sinks = h.events.Sinks()
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"debug": gin.H{
			"worker_id":   h.WorkerID,
			"endpoints":   []string{"/health", "/status", "/video_feed", "/settings", "/detect_cameras", "/ws/events", "/system"},
			"event_sinks": sinks,
			"config":      h.pipeline.Config(),
		},
		"timestamp": time.Now().Unix(),
	})
}
