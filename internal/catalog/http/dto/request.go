// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/allisson/filecatalog/internal/validation"
)

// FileRequest contains the parameters for creating or updating a file.
type FileRequest struct {
	Name      string `json:"name" binding:"required"`
	Extension string `json:"extension" binding:"required"`
	MimeType  string `json:"mime_type" binding:"required"`
	Author    string `json:"author" binding:"required"`
	SizeBytes int64  `json:"size_bytes"`
	Title     string `json:"title"`
}

// Validate checks if the file request is valid. Deeper field validation
// happens in the use case; this rejects obviously malformed payloads early.
func (r *FileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required,
			appValidation.NotBlank,
		),
		validation.Field(&r.Extension,
			validation.Required,
			appValidation.Extension,
		),
		validation.Field(&r.MimeType,
			validation.Required,
			appValidation.MimeType,
		),
		validation.Field(&r.Author,
			validation.Required,
			appValidation.NotBlank,
		),
		validation.Field(&r.SizeBytes,
			validation.Min(int64(0)),
		),
	)
}

// ImportRequest contains the parameters for a batch import run.
type ImportRequest struct {
	Items            []ImportItem `json:"items" binding:"required"`
	BatchSize        int          `json:"batch_size"`
	UpsertSearch     bool         `json:"upsert_search"`
	DetachAfterBatch bool         `json:"detach_after_batch"`
}

// ImportItem is one row of a batch import payload.
type ImportItem struct {
	FileID    string `json:"file_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Extension string `json:"extension" binding:"required"`
	MimeType  string `json:"mime_type" binding:"required"`
	Author    string `json:"author" binding:"required"`
	SizeBytes int64  `json:"size_bytes"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Version   int64  `json:"version"`
}

// Validate checks if the import request is valid.
func (r *ImportRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Items,
			validation.Required,
			validation.Length(1, 0),
		),
		validation.Field(&r.BatchSize,
			validation.Min(0),
		),
	)
}

// Validate checks if a single import item is valid.
func (i ImportItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.FileID,
			validation.Required,
			appValidation.UUID,
		),
		validation.Field(&i.Name,
			validation.Required,
			appValidation.NotBlank,
		),
		validation.Field(&i.Extension,
			validation.Required,
			appValidation.Extension,
		),
		validation.Field(&i.MimeType,
			validation.Required,
			appValidation.MimeType,
		),
		validation.Field(&i.SizeBytes,
			validation.Min(int64(0)),
		),
		validation.Field(&i.Version,
			validation.Min(int64(0)),
		),
	)
}
