package store

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emulatorClient connects to the Firestore emulator, skipping the test when none is running.
func emulatorClient(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "dd-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDocumentRepositoryEmulator(t *testing.T) {
	client := emulatorClient(t)
	ctx := context.Background()
	repo := NewDocumentRepository(client, "documents_"+uuid.NewString()[:8])
	entity := "ent-" + uuid.NewString()[:8]

	first, err := repo.Create(ctx, models.Document{EntityID: entity, DocumentType: "legal_cap_table", OriginalName: "cap.pdf", FileHash: "h1", CreatedAt: now})
	require.NoError(t, err)
	_, err = repo.Create(ctx, models.Document{EntityID: entity, DocumentType: "legal_nda", OriginalName: "nda.txt", FileHash: "h2", CreatedAt: now.Add(time.Minute)})
	require.NoError(t, err)

	docs, err := repo.ListForEntity(ctx, entity)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, first, docs[0].ID)
	assert.Equal(t, "nda.txt", docs[1].OriginalName)

	id, found, err := repo.FindByHash(ctx, entity, "h1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, first, id)

	_, found, err = repo.FindByHash(ctx, "other-entity", "h1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFirestoreReportsEmulator(t *testing.T) {
	client := emulatorClient(t)
	ctx := context.Background()
	reports := NewFirestoreReports(client, "reports_"+uuid.NewString()[:8])
	reports.now = func() time.Time { return now }

	r := storedReport("ent-1", models.ReportKindLegal, time.Hour)
	require.NoError(t, reports.Put(ctx, r))
	assert.Equal(t, "startup_ent-1_legal", r.ID)

	got, err := reports.Get(ctx, KeyOf(r))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "h", got.Report.ExecutiveSummary.Headline)

	reports.now = func() time.Time { return now.Add(2 * time.Hour) }
	got, err = reports.Get(ctx, KeyOf(r))
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, reports.Invalidate(ctx, "ent-1"))
	reports.now = func() time.Time { return now }
	got, err = reports.Get(ctx, KeyOf(r))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUsageCounterEmulator(t *testing.T) {
	client := emulatorClient(t)
	ctx := context.Background()
	usage := NewUsageCounter(client, "usage_"+uuid.NewString()[:8])
	usage.now = func() time.Time { return now }

	require.NoError(t, usage.Record(ctx, "user-1", "ent-1", models.ReportKindLegal))
	require.NoError(t, usage.Record(ctx, "user-1", "ent-2", models.ReportKindFinancial))
	require.NoError(t, usage.Record(ctx, "user-2", "ent-1", models.ReportKindLegal))

	n, err := usage.CountToday(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	usage.now = func() time.Time { return now.Add(24 * time.Hour) }
	n, err = usage.CountToday(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
