package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mcp-events/ticketflow/internal/entity"
	"github.com/mcp-events/ticketflow/internal/service"
)

type EventHandler struct {
	eventService service.EventService
}

func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// eventView augments an event with its resolved purchase mode, so clients
// never reimplement the policy mapping.
type eventView struct {
	*entity.Event
	PurchaseMode entity.PurchaseMode `json:"purchase_mode"`
}

func newEventView(e *entity.Event) eventView {
	return eventView{Event: e, PurchaseMode: entity.ResolvePurchaseMode(e)}
}

func (h *EventHandler) GetActiveEvents(c *gin.Context) {
	events, err := h.eventService.GetActiveEvents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, newEventView(e))
	}
	c.JSON(http.StatusOK, views)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	event, err := h.eventService.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEventView(event))
}

func (h *EventHandler) GetAllEvents(c *gin.Context) {
	events, err := h.eventService.GetAllEvents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, newEventView(e))
	}
	c.JSON(http.StatusOK, views)
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newEventView(event))
}

func (h *EventHandler) UpdateEvent(c *gin.Context) {
	var req service.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.eventService.UpdateEvent(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEventView(event))
}

func (h *EventHandler) DeleteEvent(c *gin.Context) {
	if err := h.eventService.DeleteEvent(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
