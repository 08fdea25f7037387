package port

import (
	"context"

	"github.com/fhuszti/media-pipeline-go/internal/model"
)

// DocumentRepository defines persistence operations for raw content documents.
type DocumentRepository interface {
	Save(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, collection, id string) (*model.Document, error)
}
