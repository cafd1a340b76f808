package projection

import (
	"context"
	"fmt"

	catalogDomain "github.com/allisson/filecatalog/internal/catalog/domain"
	searchDomain "github.com/allisson/filecatalog/internal/search/domain"
)

// ContentProvider supplies the indexable body for a file. Implementations
// may read extracted text from a content store or synthesize it from
// metadata.
type ContentProvider interface {
	Fetch(ctx context.Context, file *catalogDomain.File) (string, error)
}

// MetadataContentProvider builds index content from the aggregate's metadata
// alone. Used when no extracted body is available for a file.
type MetadataContentProvider struct{}

// Fetch returns a content string derived from the file's descriptive fields.
func (MetadataContentProvider) Fetch(_ context.Context, file *catalogDomain.File) (string, error) {
	return fmt.Sprintf("%s %s %s", file.Title, file.Name, file.Author), nil
}

// DocumentFor maps a file aggregate and its indexable content into a search
// document.
func DocumentFor(file *catalogDomain.File, content string) searchDomain.Document {
	return searchDomain.Document{
		FileID:    file.ID,
		Title:     file.Title,
		Author:    file.Author,
		Extension: file.Extension,
		MimeType:  file.MimeType,
		Content:   content,
	}
}
