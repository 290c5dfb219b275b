package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/service"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
	"github.com/noah-isme/memoire-api/pkg/response"
)

// DossierHandler wires the defense dossier endpoints.
type DossierHandler struct {
	service *service.DossierService
}

// NewDossierHandler creates a new handler.
func NewDossierHandler(svc *service.DossierService) *DossierHandler {
	return &DossierHandler{service: svc}
}

// Upload godoc
// @Summary Upload a dossier document
// @Description Student uploads one of the five required PDF documents
// @Tags Dossiers
// @Accept multipart/form-data
// @Produce json
// @Param kind path string true "Document kind"
// @Param file formData file true "PDF document"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /dossiers/documents/{kind} [post]
func (h *DossierHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	kind := dto.DocumentKind(c.Param("kind"))
	dossier, err := h.service.UploadDocument(c.Request.Context(), claims.UserID, kind, fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dossier, nil)
}

// Mine godoc
// @Summary Get my dossier
// @Tags Dossiers
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dossiers/mine [get]
func (h *DossierHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	dossier, err := h.service.GetMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dossier, nil)
}

// Authorize godoc
// @Summary Authorize a defense
// @Description Supervising faculty member signs off on a complete dossier
// @Tags Dossiers
// @Accept json
// @Produce json
// @Param id path string true "Dossier ID"
// @Param payload body dto.AuthorizeDefenseRequest true "Authorization decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /dossiers/{id}/authorize [post]
func (h *DossierHandler) Authorize(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AuthorizeDefenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid authorization payload"))
		return
	}

	dossier, err := h.service.Authorize(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dossier, nil)
}

// Verify godoc
// @Summary Verify a dossier
// @Description Administration records the documentary review outcome
// @Tags Dossiers
// @Accept json
// @Produce json
// @Param id path string true "Dossier ID"
// @Param payload body dto.VerifyDossierRequest true "Review outcome"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dossiers/{id}/verify [post]
func (h *DossierHandler) Verify(c *gin.Context) {
	var req dto.VerifyDossierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verification payload"))
		return
	}

	dossier, err := h.service.Verify(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dossier, nil)
}

// PendingReview godoc
// @Summary List dossiers pending review
// @Tags Dossiers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dossiers/pending [get]
func (h *DossierHandler) PendingReview(c *gin.Context) {
	dossiers, err := h.service.ListPendingReview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dossiers, nil)
}
