package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/service"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
	"github.com/noah-isme/memoire-api/pkg/response"
)

// JuryHandler wires the jury management endpoints.
type JuryHandler struct {
	service *service.JuryService
}

// NewJuryHandler creates a new handler.
func NewJuryHandler(svc *service.JuryService) *JuryHandler {
	return &JuryHandler{service: svc}
}

// Form godoc
// @Summary Form a jury
// @Description Compose a four-seat jury from available members
// @Tags Juries
// @Accept json
// @Produce json
// @Param payload body dto.FormJuryRequest true "Jury composition"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /juries [post]
func (h *JuryHandler) Form(c *gin.Context) {
	var req dto.FormJuryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid jury payload"))
		return
	}

	jury, err := h.service.Form(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, jury)
}

// Update godoc
// @Summary Recompose a jury
// @Description Replace the composition of a jury without active defenses
// @Tags Juries
// @Accept json
// @Produce json
// @Param id path string true "Jury ID"
// @Param payload body dto.FormJuryRequest true "New composition"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /juries/{id} [put]
func (h *JuryHandler) Update(c *gin.Context) {
	var req dto.FormJuryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid jury payload"))
		return
	}

	jury, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jury, nil)
}

// Dissolve godoc
// @Summary Dissolve a jury
// @Description Release all members and close the jury
// @Tags Juries
// @Param id path string true "Jury ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /juries/{id} [delete]
func (h *JuryHandler) Dissolve(c *gin.Context) {
	if err := h.service.Dissolve(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get a jury
// @Tags Juries
// @Produce json
// @Param id path string true "Jury ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /juries/{id} [get]
func (h *JuryHandler) Get(c *gin.Context) {
	jury, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jury, nil)
}

// List godoc
// @Summary List juries
// @Tags Juries
// @Produce json
// @Param status query string false "Jury status"
// @Success 200 {object} response.Envelope
// @Router /juries [get]
func (h *JuryHandler) List(c *gin.Context) {
	var query dto.JuryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid jury filters"))
		return
	}

	juries, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, juries, pagination)
}

// AvailableMembers godoc
// @Summary List available jury members
// @Tags Juries
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /juries/members/available [get]
func (h *JuryHandler) AvailableMembers(c *gin.Context) {
	members, err := h.service.AvailableMembers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil)
}
