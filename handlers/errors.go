package handlers

import (
	"errors"
	"net/http"

	"github.com/gatherly-app/gatherly-api/services"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP statuses. Internal detail never
// reaches the client; unknown errors collapse to a generic 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateRecipient), errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Duplicate recipient or conflicting request"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, services.ErrCredentialUnavailable):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Calendar credentials are no longer usable",
			"code":  "reauth_required",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
