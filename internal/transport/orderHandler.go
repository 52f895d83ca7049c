package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mcp-events/ticketflow/internal/service"
)

type OrderHandler struct {
	purchaseService service.PurchaseService
	paymentService  service.PaymentService
}

func NewOrderHandler(purchaseService service.PurchaseService, paymentService service.PaymentService) *OrderHandler {
	return &OrderHandler{
		purchaseService: purchaseService,
		paymentService:  paymentService,
	}
}

type createOrderRequest struct {
	SessionID         string `json:"session_id" binding:"required"`
	NewsletterConsent bool   `json:"newsletter_consent"`
}

// CreateOrder finalizes the collection session into a cart, opens the
// provider order and discards the session. The duplicate check rejects the
// cart before the provider is ever contacted.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	cart, err := h.purchaseService.Finalize(ctx, req.SessionID, req.NewsletterConsent)
	if err != nil {
		respondError(c, err)
		return
	}

	order, err := h.paymentService.CreateOrder(ctx, &service.CreateOrderRequest{Cart: *cart})
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.purchaseService.CloseSession(ctx, req.SessionID); err != nil {
		logrus.Errorf("Failed to close session %s after order creation: %v", req.SessionID, err)
	}

	c.JSON(http.StatusCreated, order)
}

// CaptureOrder captures the provider order. The classification always comes
// back with status 200; the body says whether the purchase completed, the
// decline is retryable, or the attempt failed for good.
func (h *OrderHandler) CaptureOrder(c *gin.Context) {
	result, err := h.paymentService.CaptureOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
