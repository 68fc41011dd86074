package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/duediligenceflow/internal/audit"
	"github.com/Lllllllleong/duediligenceflow/internal/config"
	"github.com/Lllllllleong/duediligenceflow/internal/gcp"
	"github.com/Lllllllleong/duediligenceflow/internal/metrics"
	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/Lllllllleong/duediligenceflow/internal/ocr"
	"github.com/Lllllllleong/duediligenceflow/internal/openai"
	"github.com/Lllllllleong/duediligenceflow/internal/pdf"
	"github.com/Lllllllleong/duediligenceflow/internal/pipeline"
	"github.com/Lllllllleong/duediligenceflow/internal/prompts"
	"github.com/Lllllllleong/duediligenceflow/internal/report"
	"github.com/Lllllllleong/duediligenceflow/internal/store"
	"github.com/google/uuid"
)

// DocumentLister lists the uploaded documents of an entity.
type DocumentLister interface {
	ListForEntity(ctx context.Context, entityID string) ([]models.Document, error)
}

// UsageTracker enforces the per-user daily allowance.
type UsageTracker interface {
	CountToday(ctx context.Context, userID string) (int, error)
	Record(ctx context.Context, userID, entityID string, kind models.ReportKind) error
}

// DocumentProcessor turns an entity's documents into one text corpus.
type DocumentProcessor interface {
	Process(ctx context.Context, refs []models.DocumentRef, cfg pdf.SplitConfig) (string, error)
}

// ReportGenerator produces the raw analysis for a corpus.
type ReportGenerator interface {
	Generate(ctx context.Context, in report.Input) (models.RawReport, error)
}

// ReportConfig holds the tunables of the report use case.
type ReportConfig struct {
	DailyRequestLimit int
	ReportTTL         time.Duration
	Split             pdf.SplitConfig
}

// ReportFunction generates, validates and caches due diligence reports.
type ReportFunction struct {
	documents DocumentLister
	usage     UsageTracker
	reports   store.ReportCache
	pipeline  DocumentProcessor
	generator ReportGenerator
	config    ReportConfig
	now       func() time.Time
	closers   []func() error
}

// NewReportFunction wires the production dependencies from the environment.
func NewReportFunction(ctx context.Context) (_ *ReportFunction, err error) {
	var closers []func() error
	defer releaseOnError(&err, &closers)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	set, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID, cfg.FirestoreDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	closers = append(closers, firestoreClient.Close)

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	closers = append(closers, storageClient.Close)

	vertexClient, err := gcp.NewVertexClient(ctx, gcp.VertexConfig{
		ProjectID:           cfg.ProjectID,
		Region:              cfg.VertexAIRegion,
		OCRModel:            cfg.OCRModel,
		AnalysisModel:       cfg.AnalysisModel,
		AnalysisTemperature: cfg.AnalysisTemperature,
		MaxOutputTokens:     cfg.MaxOutputTokens,
	}, set)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	closers = append(closers, vertexClient.Close)

	var analysis report.Model = vertexClient
	if cfg.AnalysisProvider == config.ProviderOpenAI {
		analysis, err = openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			BaseURL:     cfg.OpenAIBaseURL,
			MaxTokens:   int(cfg.MaxOutputTokens),
			Temperature: cfg.AnalysisTemperature,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
	}

	var reports store.ReportCache = store.NewFirestoreReports(firestoreClient, cfg.ReportsCollection)
	if cfg.RedisAddr != "" {
		redisClient, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		closers = append(closers, redisClient.Close)
		reports = store.NewTieredReports(store.NewRedisReports(redisClient), reports, nil)
	}

	var sink report.AuditSink = audit.Nop{}
	switch {
	case cfg.AuditBucket != "":
		sink = audit.NewGCSSink(storageClient, cfg.AuditBucket, cfg.AuditPrefix)
	case cfg.AuditDir != "":
		sink = audit.NewDirSink(cfg.AuditDir)
	}

	logger := slog.Default()
	executor := ocr.NewExecutor(vertexClient, cfg.OCRPolicy(), cfg.SizeWarningBytes, logger)
	coordinator := ocr.NewCoordinator(executor, cfg.BatchPause, logger)
	loader := pipeline.RoutingLoader{Local: pipeline.FileLoader{}, Remote: gcp.NewObjectLoader(storageClient)}

	f := &ReportFunction{
		documents: store.NewDocumentRepository(firestoreClient, cfg.DocumentsCollection),
		usage:     store.NewUsageCounter(firestoreClient, cfg.UsageCollection),
		reports:   reports,
		pipeline:  pipeline.New(pdf.NewCombiner(logger), pdf.NewChunker(logger), coordinator, loader, logger),
		generator: report.NewGenerator(analysis, set, cfg.GenerationPolicy(), sink, logger),
		config: ReportConfig{
			DailyRequestLimit: cfg.DailyRequestLimit,
			ReportTTL:         cfg.ReportTTL,
			Split:             cfg.SplitConfig(),
		},
		now:     time.Now,
		closers: closers,
	}
	slog.Info("Report generator initialized.", "analysisProvider", cfg.AnalysisProvider, "redisCache", cfg.RedisAddr != "")
	return f, nil
}

// Close releases the clients created by NewReportFunction.
func (f *ReportFunction) Close() error {
	return closeAll(f.closers)
}

// Process runs one report request end to end. When the analysis provider is unavailable the
// response carries the fallback report and the error wraps report.ErrProviderUnavailable.
func (f *ReportFunction) Process(ctx context.Context, req *models.GenerateReportRequest) (*models.GenerateReportResponse, error) {
	entityType, kind, err := validateRequest(req)
	if err != nil {
		return nil, err
	}
	logCtx := slog.With("entityId", req.EntityID, "entityType", entityType, "reportKind", kind, "userId", req.UserID)
	logCtx.Info("Processing report request.", "forceRefresh", req.ForceRefresh)

	used, err := f.usage.CountToday(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if used >= f.config.DailyRequestLimit {
		logCtx.Warn("Daily report limit reached.", "used", used, "limit", f.config.DailyRequestLimit)
		metrics.Reports.WithLabelValues(string(kind), "rate_limited").Inc()
		return nil, fmt.Errorf("%w: %d of %d reports used today", ErrRateLimited, used, f.config.DailyRequestLimit)
	}
	remaining := f.config.DailyRequestLimit - used

	key := store.ReportKey{EntityID: req.EntityID, EntityType: entityType, Kind: kind}
	if !req.ForceRefresh {
		cached, err := f.reports.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			logCtx.Info("Serving cached report.", "reportId", cached.ID, "expiresAt", cached.ExpiresAt)
			metrics.Reports.WithLabelValues(string(kind), "cached").Inc()
			return cachedResponse(cached, remaining), nil
		}
	}

	docs, err := f.documents.ListForEntity(ctx, req.EntityID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDocuments, req.EntityID)
	}
	available, refs := summarize(docs)
	missing := kind.MissingDocumentTypes(available)
	logCtx.Info("Documents found.", "documents", len(docs), "availableTypes", len(available), "missingTypes", len(missing))

	text, err := f.pipeline.Process(ctx, refs, f.config.Split)
	if err != nil {
		metrics.Reports.WithLabelValues(string(kind), "extraction_failed").Inc()
		return nil, fmt.Errorf("failed to extract document content: %w", err)
	}

	entityName := req.EntityName
	if entityName == "" {
		entityName = req.EntityID
	}
	raw, genErr := f.generator.Generate(ctx, report.Input{
		Kind:                 kind,
		EntityName:           entityName,
		EntityContext:        entityContext(entityType, docs),
		DocumentText:         text,
		MissingDocumentTypes: missing,
	})

	now := f.now().UTC()
	resp := &models.GenerateReportResponse{
		EntityID:             req.EntityID,
		EntityType:           entityType,
		ReportKind:           kind,
		AvailableDocuments:   available,
		MissingDocumentTypes: missing,
		GeneratedAt:          now,
		RemainingRequests:    remaining,
	}

	if genErr != nil || report.IsFallback(raw) {
		resp.Fallback = raw
		if genErr != nil {
			metrics.Reports.WithLabelValues(string(kind), "provider_unavailable").Inc()
			return resp, genErr
		}
		metrics.Reports.WithLabelValues(string(kind), "fallback").Inc()
		f.recordUsage(ctx, logCtx, req, kind)
		resp.RemainingRequests--
		logCtx.Warn("Returning fallback report; it will not be cached.")
		return resp, nil
	}

	validated, err := report.Validate(raw)
	if err != nil {
		var verr *report.ValidationError
		if errors.As(err, &verr) {
			metrics.ValidationFailures.WithLabelValues(verr.TopLevelField()).Inc()
		}
		metrics.Reports.WithLabelValues(string(kind), "invalid").Inc()
		logCtx.Error("Analysis response failed validation.", "error", err)
		return nil, err
	}

	stored := &models.StoredReport{
		EntityID:             req.EntityID,
		EntityType:           entityType,
		ReportKind:           kind,
		GeneratedBy:          req.UserID,
		Report:               validated,
		ReportCalculated:     true,
		AvailableDocuments:   available,
		MissingDocumentTypes: missing,
		CreatedAt:            now,
		ExpiresAt:            now.Add(f.config.ReportTTL),
	}
	if err := f.reports.Put(ctx, stored); err != nil {
		return nil, err
	}
	f.recordUsage(ctx, logCtx, req, kind)
	metrics.Reports.WithLabelValues(string(kind), "generated").Inc()

	resp.ReportID = stored.ID
	if resp.ReportID == "" {
		resp.ReportID = uuid.NewString()
	}
	resp.ReportCalculated = true
	resp.Report = validated
	resp.ExpiresAt = stored.ExpiresAt
	resp.RemainingRequests--
	logCtx.Info("Report generated and stored.", "reportId", resp.ReportID, "expiresAt", stored.ExpiresAt)
	return resp, nil
}

func (f *ReportFunction) recordUsage(ctx context.Context, logCtx *slog.Logger, req *models.GenerateReportRequest, kind models.ReportKind) {
	if err := f.usage.Record(ctx, req.UserID, req.EntityID, kind); err != nil {
		logCtx.Error("Failed to record usage.", "error", err)
	}
}

func validateRequest(req *models.GenerateReportRequest) (models.EntityType, models.ReportKind, error) {
	if req == nil {
		return "", "", fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.EntityID) == "" {
		return "", "", fmt.Errorf("%w: entityId is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return "", "", fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	entityType, err := models.ParseEntityType(string(req.EntityType))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	kind, err := models.ParseReportKind(string(req.ReportKind))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return entityType, kind, nil
}

// summarize returns the sorted distinct document types and the pipeline refs of docs.
func summarize(docs []models.Document) ([]string, []models.DocumentRef) {
	seen := make(map[string]bool)
	available := []string{}
	refs := make([]models.DocumentRef, 0, len(docs))
	for _, d := range docs {
		if d.DocumentType != "" && !seen[d.DocumentType] {
			seen[d.DocumentType] = true
			available = append(available, d.DocumentType)
		}
		refs = append(refs, d.Ref())
	}
	sort.Strings(available)
	return available, refs
}

func entityContext(entityType models.EntityType, docs []models.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ENTITY TYPE: %s\n", entityType)
	b.WriteString("DOCUMENTS PROVIDED:\n")
	for _, d := range docs {
		fmt.Fprintf(&b, "- %s (%s)", d.OriginalName, d.DocumentType)
		if d.TimePeriod != "" {
			fmt.Fprintf(&b, ", period %s", d.TimePeriod)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func cachedResponse(r *models.StoredReport, remaining int) *models.GenerateReportResponse {
	return &models.GenerateReportResponse{
		ReportID:             r.ID,
		EntityID:             r.EntityID,
		EntityType:           r.EntityType,
		ReportKind:           r.ReportKind,
		FromCache:            true,
		ReportCalculated:     r.ReportCalculated,
		Report:               r.Report,
		AvailableDocuments:   r.AvailableDocuments,
		MissingDocumentTypes: r.MissingDocumentTypes,
		GeneratedAt:          r.CreatedAt,
		ExpiresAt:            r.ExpiresAt,
		RemainingRequests:    remaining,
	}
}
