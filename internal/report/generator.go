// Package report turns extracted document text into a due diligence report: it prompts the
// analysis model, parses the answer and validates it field by field.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lllllllleong/duediligenceflow/internal/metrics"
	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/Lllllllleong/duediligenceflow/internal/prompts"
	"github.com/Lllllllleong/duediligenceflow/internal/retry"
)

// ErrProviderUnavailable is returned, together with a fallback report, when the analysis model
// kept failing after every retry.
var ErrProviderUnavailable = errors.New("analysis provider unavailable")

// Audit prefixes.
const (
	AuditRawResponse = "due_diligence_raw_response"
	AuditParsedData  = "due_diligence_parsed_data"
	AuditFallback    = "due_diligence_fallback_object"
)

// Model produces a JSON completion for a prompt under a system instruction.
type Model interface {
	GenerateJSON(ctx context.Context, system, prompt string) (string, error)
}

// AuditSink keeps copies of model responses for later debugging. Failures are the sink's problem.
type AuditSink interface {
	Record(ctx context.Context, prefix string, payload any)
}

// Input is everything the analysis prompt is built from.
type Input struct {
	Kind                 models.ReportKind
	EntityName           string
	EntityContext        string
	DocumentText         string
	MissingDocumentTypes []string
}

// Generator prompts the analysis model and parses its response.
type Generator struct {
	model   Model
	prompts *prompts.Set
	policy  retry.Policy
	audit   AuditSink
	logger  *slog.Logger
	now     func() time.Time
}

func NewGenerator(model Model, set *prompts.Set, policy retry.Policy, audit AuditSink, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.OnRetry == nil {
		policy.OnRetry = func(int, time.Duration, error) {
			metrics.ProviderRetries.WithLabelValues(policy.Name).Inc()
		}
	}
	policy.Logger = logger
	return &Generator{model: model, prompts: set, policy: policy, audit: audit, logger: logger, now: time.Now}
}

// Generate always returns a report-shaped object. When the response cannot be parsed it returns a
// fallback with reportCalculated set to false and a nil error. When the provider is unreachable it
// returns the fallback together with an error wrapping ErrProviderUnavailable.
func (g *Generator) Generate(ctx context.Context, in Input) (models.RawReport, error) {
	logCtx := g.logger.With("reportKind", in.Kind, "entityName", in.EntityName)

	p, err := g.prompts.ForReport(in.Kind)
	if err != nil {
		return g.fallback(ctx, in, err), err
	}
	prompt := BuildPrompt(p, in)
	logCtx.Info("Requesting analysis.", "promptChars", len(prompt), "missingDocuments", len(in.MissingDocumentTypes))

	raw, err := retry.Do(ctx, g.policy, func(ctx context.Context) (string, error) {
		return g.model.GenerateJSON(ctx, p.System, prompt)
	})
	if err != nil {
		logCtx.Error("Analysis model failed after all retries.", "error", err)
		fb := g.fallback(ctx, in, err)
		if ctx.Err() != nil {
			return fb, ctx.Err()
		}
		return fb, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	g.record(ctx, AuditRawResponse, map[string]any{"entityName": in.EntityName, "reportKind": in.Kind, "response": raw})

	parsed, err := ParseResponse(raw)
	if err != nil {
		logCtx.Warn("Failed to parse analysis response, using fallback report.", "error", err, "responseChars", len(raw))
		return g.fallback(ctx, in, nil), nil
	}
	g.record(ctx, AuditParsedData, parsed)
	logCtx.Info("Analysis response parsed.", "fields", len(parsed))
	return parsed, nil
}

// BuildPrompt assembles the analysis prompt for one entity.
func BuildPrompt(p prompts.Report, in Input) string {
	missing := "All required documents are available."
	if len(in.MissingDocumentTypes) > 0 {
		missing = "Missing Documents: " + strings.Join(in.MissingDocumentTypes, ", ")
	}

	var b strings.Builder
	b.WriteString(p.Task)
	b.WriteString("\n\nCOMPANY NAME: ")
	b.WriteString(in.EntityName)
	b.WriteString("\n")
	if in.EntityContext != "" {
		b.WriteString(in.EntityContext)
		b.WriteString("\n")
	}
	b.WriteString(missing)
	b.WriteString("\n\nIF YOU FIND MORE INCOMPLETE DOCUMENTS, ADD THEM TO THE MISSING DOCUMENTS LIST.\n")
	b.WriteString("IF DOCUMENTS LISTED AS MISSING ARE ACTUALLY PRESENT, REMOVE THEM FROM THE LIST.\n\n")
	b.WriteString("DOCUMENT CONTENT:\n")
	b.WriteString(in.DocumentText)
	b.WriteString("\n\nRESPONSE FORMAT:\n")
	b.WriteString(p.Structure)
	return b.String()
}

// Fallback builds the report returned when generation did not produce a usable response.
// cause is recorded under "error" when it is not nil.
func Fallback(in Input, cause error, now time.Time) models.RawReport {
	list := make([]any, 0, len(in.MissingDocumentTypes))
	for _, t := range in.MissingDocumentTypes {
		list = append(list, map[string]any{
			"documentCategory":     "Unknown",
			"specificDocument":     t,
			"requirementReference": "Required for analysis",
		})
	}
	fb := models.RawReport{
		"companyName":  in.EntityName,
		"reportDate":   now.Format("2006-01-02"),
		"introduction": fmt.Sprintf("Failed to generate a complete %s due diligence report due to parsing errors.", in.Kind),
		"items":        []any{},
		"missingDocuments": map[string]any{
			"documentList": list,
			"note":         "Unable to process documents due to technical issues.",
		},
		"riskScore": map[string]any{
			"score":         "N/A",
			"riskLevel":     "Unknown",
			"justification": "Unable to assess risk due to technical issues with report generation.",
		},
		"reportCalculated": false,
	}
	if cause != nil {
		fb["introduction"] = fmt.Sprintf("Failed to generate a complete %s due diligence report due to a technical error.", in.Kind)
		fb["error"] = cause.Error()
	}
	return fb
}

// IsFallback reports whether r was produced by Fallback.
func IsFallback(r models.RawReport) bool {
	calculated, ok := r["reportCalculated"].(bool)
	return ok && !calculated
}

func (g *Generator) fallback(ctx context.Context, in Input, cause error) models.RawReport {
	fb := Fallback(in, cause, g.now())
	g.record(ctx, AuditFallback, fb)
	return fb
}

func (g *Generator) record(ctx context.Context, prefix string, payload any) {
	if g.audit != nil {
		g.audit.Record(ctx, prefix, payload)
	}
}
