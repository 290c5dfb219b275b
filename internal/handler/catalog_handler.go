package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/service"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
	"github.com/noah-isme/memoire-api/pkg/response"
)

// CatalogHandler wires the public archive catalog endpoints.
type CatalogHandler struct {
	service *service.ArchiveService
}

// NewCatalogHandler creates a new handler.
func NewCatalogHandler(svc *service.ArchiveService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// Browse godoc
// @Summary Browse the memoir catalog
// @Description Public archived memoirs with filtering and pagination
// @Tags Catalog
// @Produce json
// @Param year query int false "Defense year"
// @Param level query string false "Academic level"
// @Param mention query string false "Mention"
// @Param search query string false "Free text search"
// @Success 200 {object} response.Envelope
// @Router /catalog [get]
func (h *CatalogHandler) Browse(c *gin.Context) {
	var query dto.CatalogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid catalog filters"))
		return
	}

	entries, pagination, err := h.service.Browse(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get a catalog entry
// @Tags Catalog
// @Produce json
// @Param id path string true "Archive entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Years godoc
// @Summary List catalog years
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/years [get]
func (h *CatalogHandler) Years(c *gin.Context) {
	years, err := h.service.Years(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// DownloadLink godoc
// @Summary Request a memoir download link
// @Description Issues a signed expiring URL for the memoir file
// @Tags Catalog
// @Produce json
// @Param id path string true "Archive entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/{id}/download-link [post]
func (h *CatalogHandler) DownloadLink(c *gin.Context) {
	link, err := h.service.DownloadLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download a memoir
// @Description Streams the memoir PDF referenced by a signed token
// @Tags Catalog
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /catalog/download [get]
func (h *CatalogHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, entry, err := h.service.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(entry.MemoirFile)))
	c.Header("Content-Type", "application/pdf")
	if _, err := io.Copy(c.Writer, file); err != nil {
		// headers are already written, nothing sensible to send
		_ = c.Error(err)
	}
}
