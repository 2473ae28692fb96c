// Package handlers is the HTTP boundary (spec §6): gin handlers that
// translate requests into query/store/statemachine/queue calls and
// render the unified success/error envelope. Grounded on the teacher's
// ReconciliationHandler, rebuilt against the full §6 route table.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"payment-reconciliation-backend/internal/apperr"
)

// errorEnvelope is the shape every non-2xx response takes (spec §6:
// "{success:false, error:string, timestamp:ISO-8601}").
type errorEnvelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// respondError maps err to the right HTTP status via apperr.HTTPStatus and
// writes the unified error envelope.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	c.JSON(status, errorEnvelope{
		Success:   false,
		Error:     err.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func badRequest(c *gin.Context, format string, args ...interface{}) {
	respondError(c, apperr.BadRequest(format, args...))
}

func ok(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

func accepted(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusAccepted, payload)
}
