package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/service"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
	"github.com/noah-isme/memoire-api/pkg/response"
)

// DefenseHandler wires the defense session endpoints.
type DefenseHandler struct {
	service *service.DefenseService
}

// NewDefenseHandler creates a new handler.
func NewDefenseHandler(svc *service.DefenseService) *DefenseHandler {
	return &DefenseHandler{service: svc}
}

// Schedule godoc
// @Summary Schedule a defense
// @Description Book a session slot for an authorized student and a formed jury
// @Tags Defenses
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleDefenseRequest true "Defense slot"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /defenses [post]
func (h *DefenseHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleDefenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid defense payload"))
		return
	}

	defense, err := h.service.Schedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, defense)
}

// Start godoc
// @Summary Start a defense
// @Description Open a scheduled session for grading
// @Tags Defenses
// @Param id path string true "Defense ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /defenses/{id}/start [post]
func (h *DefenseHandler) Start(c *gin.Context) {
	if err := h.service.Start(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SubmitScore godoc
// @Summary Submit a score
// @Description Jury member submits the score for their seat on the panel
// @Tags Defenses
// @Accept json
// @Produce json
// @Param id path string true "Defense ID"
// @Param payload body dto.SubmitScoreRequest true "Score"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /defenses/{id}/scores [post]
func (h *DefenseHandler) SubmitScore(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SubmitScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid score payload"))
		return
	}

	defense, err := h.service.SubmitScore(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, defense, nil)
}

// Finalize godoc
// @Summary Finalize a defense
// @Description Close the deliberation and archive the memoir
// @Tags Defenses
// @Accept json
// @Produce json
// @Param id path string true "Defense ID"
// @Param payload body dto.FinalizeDefenseRequest true "Deliberation outcome"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /defenses/{id}/finalize [post]
func (h *DefenseHandler) Finalize(c *gin.Context) {
	var req dto.FinalizeDefenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid finalize payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	defense, entry, err := h.service.Finalize(c.Request.Context(), claims.UserID, claims.Role, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"defense": defense, "archive_entry": entry}, nil)
}

// Postpone godoc
// @Summary Postpone a defense
// @Tags Defenses
// @Accept json
// @Produce json
// @Param id path string true "Defense ID"
// @Param payload body dto.PostponeDefenseRequest true "Postponement reason"
// @Success 204 {object} response.Envelope
// @Router /defenses/{id}/postpone [post]
func (h *DefenseHandler) Postpone(c *gin.Context) {
	var req dto.PostponeDefenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid postpone payload"))
		return
	}

	if err := h.service.Postpone(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reschedule godoc
// @Summary Reschedule a postponed defense
// @Tags Defenses
// @Accept json
// @Produce json
// @Param id path string true "Defense ID"
// @Param payload body dto.RescheduleDefenseRequest true "New slot"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /defenses/{id}/reschedule [post]
func (h *DefenseHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleDefenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reschedule payload"))
		return
	}

	defense, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, defense, nil)
}

// Get godoc
// @Summary Get a defense
// @Tags Defenses
// @Produce json
// @Param id path string true "Defense ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /defenses/{id} [get]
func (h *DefenseHandler) Get(c *gin.Context) {
	defense, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, defense, nil)
}

// List godoc
// @Summary List defenses
// @Tags Defenses
// @Produce json
// @Param status query string false "Defense status"
// @Param jury_id query string false "Jury ID"
// @Success 200 {object} response.Envelope
// @Router /defenses [get]
func (h *DefenseHandler) List(c *gin.Context) {
	var query dto.DefenseQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid defense filters"))
		return
	}

	defenses, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, defenses, pagination)
}

// Report godoc
// @Summary Download the deliberation report
// @Description PDF report of a completed defense
// @Tags Defenses
// @Produce application/pdf
// @Param id path string true "Defense ID"
// @Success 200 {file} binary
// @Failure 409 {object} response.Envelope
// @Router /defenses/{id}/report [get]
func (h *DefenseHandler) Report(c *gin.Context) {
	defenseID := c.Param("id")
	data, err := h.service.Report(c.Request.Context(), defenseID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=proces-verbal-%s.pdf", defenseID))
	c.Data(http.StatusOK, "application/pdf", data)
}
