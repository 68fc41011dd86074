package store

import (
	"context"
	"log/slog"

	"github.com/Lllllllleong/duediligenceflow/internal/models"
)

// TieredReports reads from a fast cache first and falls back to the system of record,
// refilling the cache on the way out. Cache errors are logged and never fail a call.
type TieredReports struct {
	cache  ReportCache
	record ReportCache
	logger *slog.Logger
}

func NewTieredReports(cache, record ReportCache, logger *slog.Logger) *TieredReports {
	if logger == nil {
		logger = slog.Default()
	}
	return &TieredReports{cache: cache, record: record, logger: logger}
}

func (t *TieredReports) Get(ctx context.Context, key ReportKey) (*models.StoredReport, error) {
	logCtx := t.logger.With("reportKey", key.ID())
	r, err := t.cache.Get(ctx, key)
	if err != nil {
		logCtx.Warn("Report cache read failed, falling back to Firestore.", "error", err)
	}
	if r != nil {
		return r, nil
	}

	r, err = t.record.Get(ctx, key)
	if err != nil || r == nil {
		return nil, err
	}
	if err := t.cache.Put(ctx, r); err != nil {
		logCtx.Warn("Failed to backfill report cache.", "error", err)
	}
	return r, nil
}

func (t *TieredReports) Put(ctx context.Context, r *models.StoredReport) error {
	if err := t.record.Put(ctx, r); err != nil {
		return err
	}
	if err := t.cache.Put(ctx, r); err != nil {
		t.logger.Warn("Failed to cache report.", "reportKey", KeyOf(r).ID(), "error", err)
	}
	return nil
}

func (t *TieredReports) Invalidate(ctx context.Context, entityID string) error {
	if err := t.cache.Invalidate(ctx, entityID); err != nil {
		t.logger.Warn("Failed to invalidate report cache.", "entityId", entityID, "error", err)
	}
	return t.record.Invalidate(ctx, entityID)
}
