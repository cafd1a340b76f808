package dto

import (
	"time"

	"github.com/allisson/filecatalog/internal/catalog/domain"
	"github.com/allisson/filecatalog/internal/importer"
	"github.com/allisson/filecatalog/internal/integrity"
)

// SearchStateResponse represents the confirmed index state of a file.
type SearchStateResponse struct {
	SchemaVersion   int        `json:"schema_version"`
	Stale           bool       `json:"stale"`
	LastIndexedAt   *time.Time `json:"last_indexed_at,omitempty"`
	ContentHash     string     `json:"content_hash,omitempty"`
	TokenHash       string     `json:"token_hash,omitempty"`
	AnalyzerVersion int        `json:"analyzer_version,omitempty"`
	IndexedTitle    string     `json:"indexed_title,omitempty"`
}

// FileResponse represents a file in API responses.
type FileResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Extension string              `json:"extension"`
	MimeType  string              `json:"mime_type"`
	Author    string              `json:"author"`
	SizeBytes int64               `json:"size_bytes"`
	Version   int64               `json:"version"`
	Title     string              `json:"title"`
	Search    SearchStateResponse `json:"search"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// MapFileToResponse converts a domain file to an API response.
func MapFileToResponse(file *domain.File) FileResponse {
	return FileResponse{
		ID:        file.ID.String(),
		Name:      file.Name,
		Extension: file.Extension,
		MimeType:  file.MimeType,
		Author:    file.Author,
		SizeBytes: file.SizeBytes,
		Version:   file.Version,
		Title:     file.Title,
		Search: SearchStateResponse{
			SchemaVersion:   file.Search.SchemaVersion,
			Stale:           file.Search.Stale,
			LastIndexedAt:   file.Search.LastIndexedAt,
			ContentHash:     file.Search.ContentHash,
			TokenHash:       file.Search.TokenHash,
			AnalyzerVersion: file.Search.AnalyzerVersion,
			IndexedTitle:    file.Search.IndexedTitle,
		},
		CreatedAt: file.CreatedAt,
		UpdatedAt: file.UpdatedAt,
	}
}

// ImportResponse represents the outcome of a batch import run.
type ImportResponse struct {
	Imported    int `json:"imported"`
	Skipped     int `json:"skipped"`
	Updated     int `json:"updated"`
	BusyRetries int `json:"busy_retries"`
}

// MapImportResultToResponse converts an import result to an API response.
func MapImportResultToResponse(result importer.Result) ImportResponse {
	return ImportResponse{
		Imported:    result.Imported,
		Skipped:     result.Skipped,
		Updated:     result.Updated,
		BusyRetries: result.BusyRetries,
	}
}

// IntegrityReportResponse represents an index verification report.
type IntegrityReportResponse struct {
	Clean          bool     `json:"clean"`
	MissingFileIDs []string `json:"missing_file_ids"`
	OrphanIndexIDs []string `json:"orphan_index_ids"`
}

// MapReportToResponse converts an integrity report to an API response.
func MapReportToResponse(report integrity.Report) IntegrityReportResponse {
	response := IntegrityReportResponse{
		Clean:          report.Clean(),
		MissingFileIDs: make([]string, 0, len(report.MissingFileIDs)),
		OrphanIndexIDs: make([]string, 0, len(report.OrphanIndexIDs)),
	}
	for _, id := range report.MissingFileIDs {
		response.MissingFileIDs = append(response.MissingFileIDs, id.String())
	}
	for _, id := range report.OrphanIndexIDs {
		response.OrphanIndexIDs = append(response.OrphanIndexIDs, id.String())
	}
	return response
}

// RepairResponse represents the outcome of a repair run.
type RepairResponse struct {
	ReindexedDocuments int `json:"reindexed_documents"`
}
