package transport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mcp-events/ticketflow/internal/entity"
)

// respondError maps domain errors to HTTP responses. Validation failures
// carry the per-field messages; the duplicate participants rejection
// carries the buyer-facing message.
func respondError(c *gin.Context, err error) {
	var fieldErrs entity.FieldErrors
	if errors.As(err, &fieldErrs) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"fields": fieldErrs,
		})
		return
	}

	switch {
	case errors.Is(err, entity.ErrEventNotFound),
		errors.Is(err, entity.ErrSessionNotFound),
		errors.Is(err, entity.ErrPurchaseNotFound),
		errors.Is(err, entity.ErrTicketNotFound),
		errors.Is(err, entity.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, entity.ErrDuplicateParticipants):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "duplicate_participants",
			"message": entity.MsgDuplicateParticipants,
		})

	case errors.Is(err, entity.ErrAlreadyCheckedIn):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, entity.ErrMembersOnly):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, entity.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

	case errors.Is(err, entity.ErrEventNotPurchasable),
		errors.Is(err, entity.ErrOnRequestOnly),
		errors.Is(err, entity.ErrInvalidQuantity),
		errors.Is(err, entity.ErrNoRecipients):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, entity.ErrFieldsLocked),
		errors.Is(err, entity.ErrConsentRequired),
		errors.Is(err, entity.ErrCloseBlocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
