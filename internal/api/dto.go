package api

import (
	"github.com/starford/envtest/internal/history"
	"github.com/starford/envtest/internal/models"
)

// RecordListResponse wraps paginated record listings.
type RecordListResponse struct {
	Records []history.RecordItem `json:"records"`
	Total   int                  `json:"total" example:"42"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []history.SearchHit `json:"results"`
}

// LogListResponse lists daily log files.
type LogListResponse struct {
	Logs []models.LogFileMeta `json:"logs"`
}
