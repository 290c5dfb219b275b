package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/service"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
	"github.com/noah-isme/memoire-api/pkg/response"
)

// AllocationHandler wires the topic allocation endpoints.
type AllocationHandler struct {
	service *service.AllocationService
}

// NewAllocationHandler creates a new handler.
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: svc}
}

// Assign godoc
// @Summary Assign a topic manually
// @Description Confirm one student onto a topic, bypassing the automatic batch
// @Tags Allocation
// @Accept json
// @Produce json
// @Param payload body dto.ManualAssignRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments [post]
func (h *AllocationHandler) Assign(c *gin.Context) {
	var req dto.ManualAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	assignment, err := h.service.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// AutoAssign godoc
// @Summary Run automatic allocation
// @Description Place every choosing student on their best available preference
// @Tags Allocation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assignments/auto [post]
func (h *AllocationHandler) AutoAssign(c *gin.Context) {
	result, err := h.service.RunAutoAllocation(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reassign godoc
// @Summary Move an assignment
// @Description Move a confirmed assignment onto a new topic
// @Tags Allocation
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.ReassignRequest true "New topic"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id}/reassign [post]
func (h *AllocationHandler) Reassign(c *gin.Context) {
	var req dto.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reassignment payload"))
		return
	}

	assignment, err := h.service.Reassign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Remove godoc
// @Summary Remove an assignment
// @Description Delete a confirmed assignment without supervision history
// @Tags Allocation
// @Param id path string true "Assignment ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id} [delete]
func (h *AllocationHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get an assignment
// @Tags Allocation
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AllocationHandler) Get(c *gin.Context) {
	assignment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// List godoc
// @Summary List assignments
// @Tags Allocation
// @Produce json
// @Param status query string false "Assignment status"
// @Param supervisor_id query string false "Supervisor ID"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AllocationHandler) List(c *gin.Context) {
	var query dto.AssignmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment filters"))
		return
	}

	assignments, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, pagination)
}
