package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type modelRequest struct {
	Name string `json:"name"`
}

func (h *handler) handleCreateModel(c *gin.Context) {
	var request modelRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	id, err := h.models.Create(c.Request.Context(), request.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"model_id": id})
}

func (h *handler) handleListModels(c *gin.Context) {
	rows, err := h.models.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) handleUpdateModel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var request modelRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.models.Update(c.Request.Context(), id, request.Name); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) handleDeleteModel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.models.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
