package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dualvision-worker-go/internal/logging"
)

// EventStream upgrades requests to a live event feed
type EventStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

type EventsHandler struct {
	stream EventStream
}

func NewEventsHandler(stream EventStream) *EventsHandler {
	return &EventsHandler{stream: stream}
}

// Subscribe godoc
// @Summary Live events
// @Description WebSocket feed of detection events and status snapshots as JSON text messages
// @Tags events
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {object} ErrorResponse
// @Router /ws/events [get]
func (h *EventsHandler) Subscribe(c *gin.Context) {
	if err := h.stream.ServeWS(c.Writer, c.Request); err != nil {
		// the upgrader has already written the error response
		logging.Warn(c).Err(err).Msg("WebSocket upgrade failed")
	}
}
