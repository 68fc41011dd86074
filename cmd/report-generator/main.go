package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/duediligenceflow/internal/metrics"
	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/Lllllllleong/duediligenceflow/internal/pipeline"
	"github.com/Lllllllleong/duediligenceflow/internal/report"
	"github.com/Lllllllleong/duediligenceflow/internal/services"
)

var (
	reportInstance *services.ReportFunction
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("GenerateReport", handleGenerateReport)
	functions.HTTP("Metrics", metrics.Handler().ServeHTTP)
}

// main is required by the Go Functions Framework.
func main() {}

func handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		reportInstance, initErr = services.NewReportFunction(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: report generator initialization failed", "error", initErr)
		writeError(w, initErr)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		writeError(w, errors.Join(services.ErrInvalidRequest, err))
		return
	}

	res, err := reportInstance.Process(r.Context(), &req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case res != nil && errors.Is(err, report.ErrProviderUnavailable):
		// The fallback report still goes back to the caller.
		writeJSON(w, http.StatusServiceUnavailable, res)
	default:
		slog.Error("Report request failed", "error", err, "entityId", req.EntityID, "reportKind", req.ReportKind)
		writeError(w, err)
	}
}

// errorResponse maps an error from the report use case to an HTTP status and body.
func errorResponse(err error, now time.Time) (int, models.ErrorResponse) {
	body := models.ErrorResponse{
		ErrorCode: "PROCESSING_ERROR",
		Error:     err.Error(),
		Timestamp: now.UTC().Format(time.RFC3339),
	}

	var verr *report.ValidationError
	switch {
	case errors.As(err, &verr):
		body.ErrorCode = "VALIDATION_ERROR"
		body.Message = "The generated report is incomplete and was not saved."
		body.Field = verr.Field
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, services.ErrInvalidRequest):
		body.ErrorCode = "VALIDATION_ERROR"
		body.Message = "The request is invalid."
		return http.StatusBadRequest, body
	case errors.Is(err, services.ErrRateLimited):
		body.Message = "Daily report limit reached. Try again tomorrow."
		return http.StatusTooManyRequests, body
	case errors.Is(err, services.ErrNoDocuments):
		body.Message = "No documents have been uploaded for this entity."
		return http.StatusNotFound, body
	case errors.Is(err, report.ErrProviderUnavailable):
		body.Message = "The analysis service is temporarily unavailable."
		return http.StatusServiceUnavailable, body
	case errors.Is(err, pipeline.ErrNoExtractableContent):
		body.Message = "None of the documents could be read."
		return http.StatusInternalServerError, body
	case errors.Is(err, context.DeadlineExceeded):
		body.Message = "Report generation timed out."
		return http.StatusGatewayTimeout, body
	}
	body.Message = "Failed to generate the report."
	return http.StatusInternalServerError, body
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err, time.Now())
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
