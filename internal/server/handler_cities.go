package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lagoalabs/aquafleet/internal/normalize"
)

type resolveCityRequest struct {
	// City accepts either a plain name or the "Name/UF" designator; an
	// explicit StateCode wins over the designator's suffix.
	City      string `json:"city"`
	StateCode string `json:"state_code"`
}

func (h *handler) handleResolveCity(c *gin.Context) {
	var request resolveCityRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.City) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	name, stateCode := normalize.SplitCityUF(request.City)
	if strings.TrimSpace(request.StateCode) != "" {
		stateCode = strings.ToUpper(strings.TrimSpace(request.StateCode))
	}

	cityID, err := h.cities.Resolve(c.Request.Context(), name, stateCode)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"city_id": cityID})
}

func (h *handler) handleListCities(c *gin.Context) {
	rows, err := h.cities.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
