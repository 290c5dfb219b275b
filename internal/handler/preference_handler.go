package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/models"
	"github.com/noah-isme/memoire-api/internal/service"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
	"github.com/noah-isme/memoire-api/pkg/response"
)

// PreferenceHandler wires the student topic-choice endpoints.
type PreferenceHandler struct {
	preferences *service.PreferenceService
	topics      *service.TopicService
}

// NewPreferenceHandler creates a new handler.
func NewPreferenceHandler(preferences *service.PreferenceService, topics *service.TopicService) *PreferenceHandler {
	return &PreferenceHandler{preferences: preferences, topics: topics}
}

// Choose godoc
// @Summary Choose preferred topics
// @Description Student submits up to three ranked topic preferences
// @Tags Preferences
// @Accept json
// @Produce json
// @Param payload body dto.ChooseTopicsRequest true "Ordered topic IDs"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /preferences [put]
func (h *PreferenceHandler) Choose(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ChooseTopicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preference payload"))
		return
	}

	prefs, err := h.preferences.ChooseTopics(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}

// ListMine godoc
// @Summary List my preferences
// @Description Student lists their pending ranked preferences
// @Tags Preferences
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /preferences [get]
func (h *PreferenceHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	prefs, err := h.preferences.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}

// OpenTopics godoc
// @Summary Browse open topics
// @Description Approved topics with free seats for a given level
// @Tags Preferences
// @Produce json
// @Param level query string true "Academic level"
// @Success 200 {object} response.Envelope
// @Router /preferences/topics [get]
func (h *PreferenceHandler) OpenTopics(c *gin.Context) {
	level := models.AcademicLevel(c.Query("level"))
	if level == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "level is required"))
		return
	}

	topics, err := h.topics.ListOpenForLevel(c.Request.Context(), level)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topics, nil)
}
