package transport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mcp-events/ticketflow/internal/entity"
	"github.com/mcp-events/ticketflow/internal/service"
)

type PurchaseHandler struct {
	purchaseService service.PurchaseService
}

func NewPurchaseHandler(purchaseService service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

// sessionView is the session as the stepper UI sees it, with the locking
// and close flags spelled out.
type sessionView struct {
	*entity.PurchaseSession
	FieldsLocked bool `json:"fields_locked"`
	CanClose     bool `json:"can_close"`
}

func newSessionView(s *entity.PurchaseSession) sessionView {
	return sessionView{
		PurchaseSession: s,
		FieldsLocked:    s.FieldsLocked(),
		CanClose:        s.CanClose(),
	}
}

func (h *PurchaseHandler) OpenSession(c *gin.Context) {
	var req service.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.purchaseService.OpenSession(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionView(session))
}

func (h *PurchaseHandler) GetSession(c *gin.Context) {
	session, err := h.purchaseService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

func (h *PurchaseHandler) SaveParticipant(c *gin.Context) {
	var p entity.Participant
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.purchaseService.SaveParticipant(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

func (h *PurchaseHandler) Advance(c *gin.Context) {
	var p entity.Participant
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.purchaseService.Advance(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

func (h *PurchaseHandler) Back(c *gin.Context) {
	session, err := h.purchaseService.Back(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// Submit runs the final validation plus the membership check. A hard
// members-only block returns 403 with the session back in editing.
func (h *PurchaseHandler) Submit(c *gin.Context) {
	var p entity.Participant
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.purchaseService.Submit(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		if errors.Is(err, entity.ErrMembersOnly) && session != nil {
			c.JSON(http.StatusForbidden, gin.H{
				"error":       err.Error(),
				"non_members": session.NonMembers,
				"session":     newSessionView(session),
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

type consentRequest struct {
	Checked bool `json:"checked"`
}

func (h *PurchaseHandler) SetConsent(c *gin.Context) {
	var req consentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.purchaseService.SetConsent(c.Request.Context(), c.Param("id"), req.Checked)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

type finalizeRequest struct {
	NewsletterConsent bool `json:"newsletter_consent"`
}

// Finalize derives the cart from a completed session so the client can
// show the checkout summary. The session stays open until the order is
// created.
func (h *PurchaseHandler) Finalize(c *gin.Context) {
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.purchaseService.Finalize(c.Request.Context(), c.Param("id"), req.NewsletterConsent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *PurchaseHandler) CloseSession(c *gin.Context) {
	if err := h.purchaseService.CloseSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type checkParticipantsRequest struct {
	Participants []entity.Participant `json:"participants" binding:"required"`
}

// CheckParticipants is the standalone membership probe.
func (h *PurchaseHandler) CheckParticipants(c *gin.Context) {
	var req checkParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.purchaseService.CheckParticipants(c.Request.Context(), req.Participants)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
