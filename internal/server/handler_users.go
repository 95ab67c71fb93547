package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lagoalabs/aquafleet/internal/users"
)

type userRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

func (r userRequest) toPayload() users.Payload {
	return users.Payload{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Phone:    r.Phone,
	}
}

func (h *handler) handleCreateUser(c *gin.Context) {
	var request userRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	id, err := h.users.Create(c.Request.Context(), request.toPayload())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": id})
}

func (h *handler) handleListUsers(c *gin.Context) {
	rows, err := h.users.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) handleGetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	row, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *handler) handleUpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var request userRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.users.Update(c.Request.Context(), id, request.toPayload()); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) handleDeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
