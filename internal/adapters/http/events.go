package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/snjax/nook/internal/adapters/events"
	"github.com/snjax/nook/internal/core/domain"
)

const keepAliveInterval = 15 * time.Second

// EventsHandler streams broker notifications as server-sent events.
type EventsHandler struct {
	broker *events.Broker
}

func NewEventsHandler(broker *events.Broker) *EventsHandler {
	return &EventsHandler{broker: broker}
}

func writeEvent(w *bufio.Writer, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	return w.Flush()
}

// Stream sends every event, or only those of one pod when ?pod= is given,
// until the client goes away.
func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	podID := c.Query("pod")

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(context.Background())
	sub := h.broker.Subscribe(ctx)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		if _, err := w.WriteString(": connected\n\n"); err != nil || w.Flush() != nil {
			return
		}
		for {
			select {
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if podID != "" && ev.PodID != podID {
					continue
				}
				if err := writeEvent(w, ev); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}
