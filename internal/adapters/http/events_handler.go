package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/weightandsee/core/internal/domain/entities"
	"github.com/weightandsee/core/internal/infrastructure/logger"
	"github.com/weightandsee/core/internal/ports"
)

const eventBuffer = 32

// EventsHandler streams store events as server-sent events
type EventsHandler struct {
	events    ports.EventSubscriber
	keepAlive time.Duration
	logger    *logger.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(events ports.EventSubscriber, keepAlive time.Duration, logger *logger.Logger) *EventsHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &EventsHandler{
		events:    events,
		keepAlive: keepAlive,
		logger:    logger,
	}
}

type streamEvent struct {
	name string
	data interface{}
}

// Stream writes "change" and "message" events until the client goes away.
// A client that falls more than eventBuffer events behind loses events.
func (h *EventsHandler) Stream(c echo.Context) error {
	res := c.Response()

	ch := make(chan streamEvent, eventBuffer)
	send := func(ev streamEvent) {
		select {
		case ch <- ev:
		default:
			h.logger.Warnw("Event stream client lagging, dropping event", "event", ev.name, "remote_ip", c.RealIP())
		}
	}

	unsubscribeChanges := h.events.SubscribeChanges(func(e entities.ChangeEvent) {
		send(streamEvent{name: "change", data: e})
	})
	defer unsubscribeChanges()

	unsubscribeMessages := h.events.SubscribeMessages(func(m entities.Message) {
		send(streamEvent{name: "message", data: m})
	})
	defer unsubscribeMessages()

	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-ch:
			data, err := json.Marshal(ev.data)
			if err != nil {
				h.logger.Errorw("Failed to encode event", "event", ev.name, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.name, data); err != nil {
				return nil
			}
			res.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": keepalive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
