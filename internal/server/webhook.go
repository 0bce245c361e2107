package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// maxWebhookBodyBytes bounds inbound event payloads. Stripe events are a
// few KB; anything near this limit is not a legitimate delivery.
const maxWebhookBodyBytes = 1 << 20

// HandleWebhook ingests one signed billing provider event. The response
// contract follows the provider's expectations: 200 acknowledges receipt
// (including no-op and unresolvable events), 400 rejects a bad signature
// so the provider does not retry the same body, and 500 asks for
// redelivery after a fatal handling failure.
func (s *Server) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.billingSvc.IngestWebhook(c.Request.Context(), c.Param("provider"), payload, c.Request.Header)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
