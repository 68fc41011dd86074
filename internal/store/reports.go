package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreReports keeps one document per ReportKey.
type FirestoreReports struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

func NewFirestoreReports(client *firestore.Client, collection string) *FirestoreReports {
	return &FirestoreReports{client: client, collection: collection, now: time.Now}
}

func (s *FirestoreReports) Get(ctx context.Context, key ReportKey) (*models.StoredReport, error) {
	snap, err := s.client.Collection(s.collection).Doc(key.ID()).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", key.ID(), err)
	}
	var r models.StoredReport
	if err := snap.DataTo(&r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", key.ID(), err)
	}
	r.ID = snap.Ref.ID
	if r.Expired(s.now()) {
		return nil, nil
	}
	return &r, nil
}

func (s *FirestoreReports) Put(ctx context.Context, r *models.StoredReport) error {
	id := KeyOf(r).ID()
	if _, err := s.client.Collection(s.collection).Doc(id).Set(ctx, r); err != nil {
		return fmt.Errorf("failed to store report %s: %w", id, err)
	}
	r.ID = id
	return nil
}

// Invalidate deletes every report of entityID.
func (s *FirestoreReports) Invalidate(ctx context.Context, entityID string) error {
	docs, err := s.client.Collection(s.collection).Where("entityId", "==", entityID).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("failed to query reports of entity %s: %w", entityID, err)
	}
	for _, d := range docs {
		if _, err := d.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("failed to delete report %s: %w", d.Ref.ID, err)
		}
	}
	return nil
}
