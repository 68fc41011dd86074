package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/duediligenceflow/internal/config"
	"github.com/Lllllllleong/duediligenceflow/internal/gcp"
	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/Lllllllleong/duediligenceflow/internal/pdf"
	"github.com/Lllllllleong/duediligenceflow/internal/store"
)

// GCSEvent is the payload of a Cloud Storage object-finalize event.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

// ObjectReader downloads an uploaded object.
type ObjectReader interface {
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}

// DocumentRecorder stores Document records and detects re-uploads of the same content.
type DocumentRecorder interface {
	FindByHash(ctx context.Context, entityID, fileHash string) (string, bool, error)
	Create(ctx context.Context, doc models.Document) (string, error)
}

// ReportInvalidator drops cached reports of an entity.
type ReportInvalidator interface {
	Invalidate(ctx context.Context, entityID string) error
}

// WorkflowStarter kicks off report regeneration after a new document was registered.
type WorkflowStarter interface {
	Start(ctx context.Context, req models.RegenerationRequest) error
}

// IntakeFunction registers uploaded documents named <entityId>/<documentType>/<fileName>.
type IntakeFunction struct {
	objects   ObjectReader
	documents DocumentRecorder
	reports   ReportInvalidator
	workflow  WorkflowStarter
	now       func() time.Time
	closers   []func() error
}

type bucketReader struct {
	client *storage.Client
}

func (r bucketReader) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	return gcp.ReadObject(ctx, r.client.Bucket(bucket), object)
}

// ExecutionsStarter starts a Cloud Workflows execution with the request as its argument.
type ExecutionsStarter struct {
	client *executions.Client
	parent string
}

func NewExecutionsStarter(client *executions.Client, projectID, location, workflowID string) *ExecutionsStarter {
	return &ExecutionsStarter{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}
}

func (s *ExecutionsStarter) Start(ctx context.Context, req models.RegenerationRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	exec, err := s.client.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent:    s.parent,
		Execution: &executionspb.Execution{Argument: string(payload)},
	})
	if err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	slog.Info("Workflow execution started.", "execution", exec.GetName(), "entityId", req.EntityID)
	return nil
}

// NewIntakeFunction wires the production dependencies from the environment.
func NewIntakeFunction(ctx context.Context) (_ *IntakeFunction, err error) {
	var closers []func() error
	defer releaseOnError(&err, &closers)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID, cfg.FirestoreDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	closers = append(closers, firestoreClient.Close)

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	closers = append(closers, storageClient.Close)

	var reports store.ReportCache = store.NewFirestoreReports(firestoreClient, cfg.ReportsCollection)
	if cfg.RedisAddr != "" {
		redisClient, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		closers = append(closers, redisClient.Close)
		reports = store.NewTieredReports(store.NewRedisReports(redisClient), reports, nil)
	}

	f := &IntakeFunction{
		objects:   bucketReader{client: storageClient},
		documents: store.NewDocumentRepository(firestoreClient, cfg.DocumentsCollection),
		reports:   reports,
		now:       time.Now,
	}
	if cfg.WorkflowID != "" {
		executionsClient, err := executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
		closers = append(closers, executionsClient.Close)
		f.workflow = NewExecutionsStarter(executionsClient, cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID)
	}
	f.closers = closers
	slog.Info("Document intake initialized.", "workflowId", cfg.WorkflowID)
	return f, nil
}

// Close releases the clients created by NewIntakeFunction.
func (f *IntakeFunction) Close() error {
	return closeAll(f.closers)
}

// ParseObjectName splits <entityId>/<documentType>/<fileName>. The file name may itself contain
// slashes.
func ParseObjectName(name string) (entityID, documentType, fileName string, err error) {
	parts := strings.SplitN(name, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" || strings.HasSuffix(parts[2], "/") {
		return "", "", "", fmt.Errorf("object name %q is not <entityId>/<documentType>/<fileName>", name)
	}
	return parts[0], parts[1], parts[2], nil
}

// Process registers one uploaded object. Objects outside the naming scheme and re-uploads of
// identical content are skipped without error.
func (f *IntakeFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	entityID, documentType, fileName, err := ParseObjectName(e.Name)
	if err != nil {
		logCtx.Warn("Ignoring object outside the document layout.", "error", err)
		return nil
	}
	logCtx = logCtx.With("entityId", entityID, "documentType", documentType)

	buf, err := f.objects.Read(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download object.", "error", err)
		return err
	}

	sum := sha256.Sum256(buf)
	fileHash := hex.EncodeToString(sum[:])
	logCtx = logCtx.With("fileHash", fileHash)

	existingID, duplicate, err := f.documents.FindByHash(ctx, entityID, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate.", "error", err)
		return err
	}
	if duplicate {
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", existingID)
		return nil
	}

	doc := models.Document{
		EntityID:     entityID,
		DocumentType: documentType,
		OriginalName: path.Base(fileName),
		FileType:     strings.ToLower(strings.TrimPrefix(path.Ext(fileName), ".")),
		FileSize:     int64(len(buf)),
		FileHash:     fileHash,
		GCSUri:       fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name),
		CreatedAt:    f.now().UTC(),
	}
	if doc.FileType == "pdf" {
		pages, err := pdf.PageCount(buf)
		if err != nil {
			logCtx.Warn("Could not read PDF page count; registering the document anyway.", "error", err)
		}
		doc.PageCount = pages
	}

	docID, err := f.documents.Create(ctx, doc)
	if err != nil {
		logCtx.Error("Failed to create document record.", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docID)
	logCtx.Info("Document registered.", "pageCount", doc.PageCount, "fileSize", doc.FileSize)

	if err := f.reports.Invalidate(ctx, entityID); err != nil {
		logCtx.Error("Failed to invalidate cached reports.", "error", err)
	}

	if f.workflow != nil {
		req := models.RegenerationRequest{EntityID: entityID, DocumentID: docID, Reason: "document_uploaded"}
		if err := f.workflow.Start(ctx, req); err != nil {
			logCtx.Error("Failed to trigger report regeneration.", "error", err)
			return err
		}
	}
	return nil
}
