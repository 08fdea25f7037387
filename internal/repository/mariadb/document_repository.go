package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fhuszti/media-pipeline-go/internal/logger"
	"github.com/fhuszti/media-pipeline-go/internal/model"
	"github.com/fhuszti/media-pipeline-go/internal/port"
)

// ErrDocumentNotFound is returned when no document matches the lookup.
var ErrDocumentNotFound = errors.New("document not found")

type DocumentRepository struct {
	db *sql.DB
}

// compile-time check: *DocumentRepository must satisfy port.DocumentRepository
var _ port.DocumentRepository = (*DocumentRepository)(nil)

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Save upserts the raw document, replacing the payload when the same
// content is processed again.
func (r *DocumentRepository) Save(ctx context.Context, doc *model.Document) error {
	logger.Debugf(ctx, "saving document %s/%s...", doc.Collection, doc.ID)

	const query = `
      INSERT INTO documents
        (id, collection, data)
      VALUES (?, ?, ?)
      ON DUPLICATE KEY UPDATE data = VALUES(data)
    `
	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.Collection, []byte(doc.Data),
	)
	if err != nil {
		return err
	}

	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, collection, id string) (*model.Document, error) {
	logger.Debugf(ctx, "fetching document %s/%s from the database...", collection, id)

	const query = `
      SELECT id, collection, data
      FROM documents
      WHERE collection = ? AND id = ?
    `
	row := r.db.QueryRowContext(ctx, query, collection, id)
	var doc model.Document
	var data []byte
	if err := row.Scan(&doc.ID, &doc.Collection, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, id)
		}
		return nil, err
	}
	doc.Data = data

	return &doc, nil
}
