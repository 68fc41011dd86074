package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/duediligenceflow/internal/models"
)

// UsageRecord is written once per generated report.
type UsageRecord struct {
	UserID     string            `firestore:"userId"`
	EntityID   string            `firestore:"entityId"`
	ReportKind models.ReportKind `firestore:"reportKind"`
	CreatedAt  time.Time         `firestore:"createdAt"`
}

// UsageCounter counts report requests per user and UTC day.
type UsageCounter struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

func NewUsageCounter(client *firestore.Client, collection string) *UsageCounter {
	return &UsageCounter{client: client, collection: collection, now: time.Now}
}

// CountToday returns how many reports userID generated since midnight UTC.
func (u *UsageCounter) CountToday(ctx context.Context, userID string) (int, error) {
	docs, err := u.client.Collection(u.collection).
		Where("userId", "==", userID).
		Where("createdAt", ">=", StartOfDay(u.now())).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to count usage for user %s: %w", userID, err)
	}
	return len(docs), nil
}

func (u *UsageCounter) Record(ctx context.Context, userID, entityID string, kind models.ReportKind) error {
	rec := UsageRecord{UserID: userID, EntityID: entityID, ReportKind: kind, CreatedAt: u.now().UTC()}
	if _, _, err := u.client.Collection(u.collection).Add(ctx, rec); err != nil {
		return fmt.Errorf("failed to record usage for user %s: %w", userID, err)
	}
	return nil
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
