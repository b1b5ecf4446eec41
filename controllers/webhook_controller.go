package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/rto-dispatch-api/services"
	"github.com/kendall-kelly/rto-dispatch-api/utils"
)

// maxEventBytes caps the size of an identity event body
const maxEventBytes = 1 << 20

// WebhookController receives identity provider events
type WebhookController struct {
	reconciler *services.Reconciler
}

// NewWebhookController creates a webhook controller
func NewWebhookController(reconciler *services.Reconciler) *WebhookController {
	return &WebhookController{reconciler: reconciler}
}

// HandleIdentityEvent handles POST /api/v1/webhooks/identity
func (wc *WebhookController) HandleIdentityEvent(c *gin.Context) {
	// The signature covers the exact bytes, so read the raw body
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxEventBytes))
	if err != nil {
		utils.Fail(c, http.StatusBadRequest, "INVALID_BODY", "Could not read request body")
		return
	}

	delivery := services.Delivery{Headers: c.Request.Header, Body: body}
	outcome, err := wc.reconciler.Handle(c.Request.Context(), delivery)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	status := http.StatusOK
	if outcome == services.OutcomeCreated {
		status = http.StatusCreated
	}
	utils.Succeed(c, status, gin.H{
		"delivery_id": delivery.ID(),
		"outcome":     outcome,
	})
}
