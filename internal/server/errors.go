package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lagoalabs/aquafleet/internal/fault"
)

// writeError translates a service failure into the client-facing status and
// body. Timeouts surface as 504 so clients can distinguish "try again" from
// a generic server fault.
func (h *handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch fault.KindOf(err) {
	case fault.KindValidation, fault.KindCityNeedsState:
		status = http.StatusBadRequest
	case fault.KindDuplicateSerial, fault.KindDuplicateEmail, fault.KindAmbiguousCity:
		status = http.StatusConflict
	case fault.KindNotFound:
		status = http.StatusNotFound
	case fault.KindStoreTimeout:
		status = http.StatusGatewayTimeout
	}

	body := gin.H{"error": http.StatusText(status)}
	var typed *fault.Error
	if errors.As(err, &typed) {
		body["error"] = typed.Code()
		if fields := typed.Fields(); len(fields) > 0 {
			body["fields"] = fields
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.JSON(status, body)
}
