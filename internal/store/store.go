// Package store persists document records, generated reports and per-user usage. Firestore is the
// system of record; Redis optionally caches reports in front of it.
package store

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/duediligenceflow/internal/models"
)

// ReportKey identifies the single current report of one kind for one entity.
type ReportKey struct {
	EntityID   string
	EntityType models.EntityType
	Kind       models.ReportKind
}

// ID is the Firestore document ID and the suffix of the Redis key.
func (k ReportKey) ID() string {
	return fmt.Sprintf("%s_%s_%s", k.EntityType, k.EntityID, k.Kind)
}

// KeyOf returns the key a stored report is filed under.
func KeyOf(r *models.StoredReport) ReportKey {
	return ReportKey{EntityID: r.EntityID, EntityType: r.EntityType, Kind: r.ReportKind}
}

// entityKeys lists every key that can exist for entityID.
func entityKeys(entityID string) []ReportKey {
	var keys []ReportKey
	for _, et := range []models.EntityType{models.EntityTypeStartup, models.EntityTypeInvestor} {
		for _, k := range []models.ReportKind{models.ReportKindLegal, models.ReportKindFinancial} {
			keys = append(keys, ReportKey{EntityID: entityID, EntityType: et, Kind: k})
		}
	}
	return keys
}

// ReportCache stores reports by key. Get returns nil without error on a miss or an expired entry.
type ReportCache interface {
	Get(ctx context.Context, key ReportKey) (*models.StoredReport, error)
	Put(ctx context.Context, report *models.StoredReport) error
	Invalidate(ctx context.Context, entityID string) error
}
