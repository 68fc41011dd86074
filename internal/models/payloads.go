package models

import "time"

// These structs define the JSON payloads exchanged with the report-generator function
// and the workflow started by document intake.

// GenerateReportRequest is the input for the report-generator function.
type GenerateReportRequest struct {
	EntityID     string     `json:"entityId"`
	EntityType   EntityType `json:"entityType"`
	ReportKind   ReportKind `json:"reportKind"`
	EntityName   string     `json:"entityName,omitempty"`
	UserID       string     `json:"userId"`
	ForceRefresh bool       `json:"forceRefresh,omitempty"`
}

// GenerateReportResponse is the output of the report-generator function.
type GenerateReportResponse struct {
	ReportID             string           `json:"reportId,omitempty"`
	EntityID             string           `json:"entityId"`
	EntityType           EntityType       `json:"entityType"`
	ReportKind           ReportKind       `json:"reportKind"`
	FromCache            bool             `json:"fromCache"`
	ReportCalculated     bool             `json:"reportCalculated"`
	Report               *ValidatedReport `json:"report,omitempty"`
	Fallback             RawReport        `json:"fallback,omitempty"`
	AvailableDocuments   []string         `json:"availableDocuments"`
	MissingDocumentTypes []string         `json:"missingDocumentTypes"`
	GeneratedAt          time.Time        `json:"generatedAt"`
	ExpiresAt            time.Time        `json:"expiresAt,omitempty"`
	RemainingRequests    int              `json:"remainingRequests"`
}

// ErrorResponse is written by the HTTP functions for any failed request.
type ErrorResponse struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Timestamp string `json:"timestamp"`
}

// RegenerationRequest is the workflow argument sent when a new document lands for an entity.
type RegenerationRequest struct {
	EntityID   string `json:"entityId"`
	DocumentID string `json:"documentId"`
	Reason     string `json:"reason"`
}
