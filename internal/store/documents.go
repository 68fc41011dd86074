package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"google.golang.org/api/iterator"
)

// DocumentRepository reads and writes the Document records of entities.
type DocumentRepository struct {
	client     *firestore.Client
	collection string
}

func NewDocumentRepository(client *firestore.Client, collection string) *DocumentRepository {
	return &DocumentRepository{client: client, collection: collection}
}

// ListForEntity returns every document of entityID, oldest first.
func (r *DocumentRepository) ListForEntity(ctx context.Context, entityID string) ([]models.Document, error) {
	iter := r.client.Collection(r.collection).
		Where("entityId", "==", entityID).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var docs []models.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list documents for entity %s: %w", entityID, err)
		}
		var d models.Document
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", snap.Ref.ID, err)
		}
		d.ID = snap.Ref.ID
		docs = append(docs, d)
	}
	return docs, nil
}

// FindByHash returns the ID of an existing document of entityID with the same content hash.
func (r *DocumentRepository) FindByHash(ctx context.Context, entityID, fileHash string) (string, bool, error) {
	docs, err := r.client.Collection(r.collection).
		Where("entityId", "==", entityID).
		Where("fileHash", "==", fileHash).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return "", false, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return docs[0].Ref.ID, true, nil
	}
	return "", false, nil
}

// Create stores doc and returns its generated ID.
func (r *DocumentRepository) Create(ctx context.Context, doc models.Document) (string, error) {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	ref, _, err := r.client.Collection(r.collection).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create document record: %w", err)
	}
	return ref.ID, nil
}
