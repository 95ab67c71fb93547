package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lagoalabs/aquafleet/internal/equipment"
)

const dateLayout = "2006-01-02"

type equipmentRequest struct {
	ModelID          int64   `json:"model_id"`
	Name             string  `json:"name"`
	SerialNumber     string  `json:"serial_number"`
	InvoiceNumber    string  `json:"invoice_number"`
	Address          string  `json:"address"`
	ZipCode          string  `json:"zip_code"`
	InstalledAt      string  `json:"installed_at"`
	Status           string  `json:"status"`
	City             string  `json:"city"`
	Observation      *string `json:"observation"`
	SprinklerEnabled *bool   `json:"sprinkler_enabled"`
	OwnerID          *int64  `json:"owner_id"`
	ColdWater        bool    `json:"cold_water"`
	HotWater         bool    `json:"hot_water"`
	PetFountain      bool    `json:"pet_fountain"`
}

// parseDate maps an optional "2006-01-02" string to a time. An empty string
// yields the zero time so field-presence validation reports it as missing; a
// non-empty malformed one is an error so clients can tell the two apart.
func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, trimmed)
}

func (r equipmentRequest) toPayload() (equipment.Payload, error) {
	installedAt, err := parseDate(r.InstalledAt)
	if err != nil {
		return equipment.Payload{}, err
	}
	return equipment.Payload{
		ModelID:          r.ModelID,
		Name:             r.Name,
		SerialNumber:     r.SerialNumber,
		InvoiceNumber:    r.InvoiceNumber,
		Address:          r.Address,
		ZipCode:          r.ZipCode,
		InstalledAt:      installedAt,
		Status:           r.Status,
		City:             r.City,
		Observation:      r.Observation,
		SprinklerEnabled: r.SprinklerEnabled,
		OwnerID:          r.OwnerID,
		Modules: equipment.ModuleFlags{
			ColdWater:   r.ColdWater,
			HotWater:    r.HotWater,
			PetFountain: r.PetFountain,
		},
	}, nil
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return id, true
}

func (h *handler) handleCreateEquipment(c *gin.Context) {
	var request equipmentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	payload, err := request.toPayload()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_installed_at"})
		return
	}

	id, err := h.equipment.Create(c.Request.Context(), payload)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"equipment_id": id})
}

func (h *handler) handleListEquipment(c *gin.Context) {
	rows, err := h.equipment.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) handleGetEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	row, err := h.equipment.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// handleUpdateEquipment dispatches on payload shape: a body containing
// exactly the status key takes the fast path that touches only the status
// column, anything else is a full update.
func (h *handler) handleUpdateEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if _, statusPresent := shape["status"]; statusPresent && len(shape) == 1 {
		var fast struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(raw, &fast); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		if err := h.equipment.UpdateStatus(c.Request.Context(), id, fast.Status); err != nil {
			h.writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}

	var request equipmentRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	payload, err := request.toPayload()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_installed_at"})
		return
	}
	// An owner key absent from the body means "leave the association
	// unchanged"; an explicit null means "clear it".
	if rawOwner, present := shape["owner_id"]; present && request.OwnerID == nil && string(rawOwner) == "null" {
		cleared := int64(0)
		payload.OwnerID = &cleared
	}

	if err := h.equipment.Update(c.Request.Context(), id, payload); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) handleDeactivateEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.equipment.Deactivate(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) handleDeleteEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.equipment.SoftDelete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type replaceModulesRequest struct {
	OwnerID     int64 `json:"owner_id"`
	ColdWater   bool  `json:"cold_water"`
	HotWater    bool  `json:"hot_water"`
	PetFountain bool  `json:"pet_fountain"`
}

func (h *handler) handleReplaceModules(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var request replaceModulesRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	flags := equipment.ModuleFlags{
		ColdWater:   request.ColdWater,
		HotWater:    request.HotWater,
		PetFountain: request.PetFountain,
	}
	if err := h.equipment.ReplaceModules(c.Request.Context(), request.OwnerID, id, flags); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) handleGetModules(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	association, err := h.equipment.Modules(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if association == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no_association"})
		return
	}
	c.JSON(http.StatusOK, association)
}

type filterRequest struct {
	FilterType string  `json:"filter_type"`
	FilterName string  `json:"filter_name"`
	ReplacedAt string  `json:"replaced_at"`
	FlowRate   float64 `json:"flow_rate"`
}

func (h *handler) handleAddFilterReplacement(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var request filterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	replacedAt, err := parseDate(request.ReplacedAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_replaced_at"})
		return
	}
	recordID, err := h.equipment.AddFilterReplacement(c.Request.Context(), id, equipment.FilterPayload{
		FilterType: request.FilterType,
		FilterName: request.FilterName,
		ReplacedAt: replacedAt,
		FlowRate:   request.FlowRate,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"filter_replacement_id": recordID})
}

func (h *handler) handleListFilterReplacements(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	records, err := h.equipment.ListFilterReplacements(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
