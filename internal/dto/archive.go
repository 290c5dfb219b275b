package dto

import "github.com/noah-isme/memoire-api/internal/models"

// CatalogQuery mirrors the public catalog browsing filters.
type CatalogQuery struct {
	Year      int                  `form:"year"`
	Level     models.AcademicLevel `form:"level"`
	Program   string               `form:"program"`
	Mention   models.Mention       `form:"mention"`
	Search    string               `form:"search"`
	Page      int                  `form:"page"`
	PageSize  int                  `form:"page_size"`
	SortBy    string               `form:"sort_by"`
	SortOrder string               `form:"sort_order"`
}

// DownloadLink is the signed, expiring URL handed out for a memoir file.
type DownloadLink struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}
