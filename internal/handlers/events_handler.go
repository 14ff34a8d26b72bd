package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

// EventStream upgrades a request to a live event feed for one tenant.
type EventStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID)
}

type EventsHandler struct {
	Stream EventStream
}

func NewEventsHandler(s EventStream) *EventsHandler {
	return &EventsHandler{Stream: s}
}

func (h *EventsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	h.Stream.ServeWS(w, r, actor.OwnerID)
}
