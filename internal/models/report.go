package models

import "time"

// RawReport is the untrusted JSON object returned by the analysis model.
type RawReport map[string]any

// MissingDocumentEntry names one document the analysis could not find.
type MissingDocumentEntry struct {
	DocumentCategory     string `json:"documentCategory" firestore:"documentCategory"`
	SpecificDocument     string `json:"specificDocument" firestore:"specificDocument"`
	RequirementReference string `json:"requirementReference" firestore:"requirementReference"`
}

type MissingDocuments struct {
	DocumentList []MissingDocumentEntry `json:"documentList" firestore:"documentList"`
	Note         string                 `json:"note,omitempty" firestore:"note,omitempty"`
}

type RiskScore struct {
	Score         string `json:"score" firestore:"score"`
	RiskLevel     string `json:"riskLevel" firestore:"riskLevel"`
	Justification string `json:"justification" firestore:"justification"`
}

type ComplianceAssessment struct {
	ComplianceScore string `json:"complianceScore" firestore:"complianceScore"`
	Status          string `json:"status,omitempty" firestore:"status,omitempty"`
	Details         string `json:"details" firestore:"details"`
}

// ReportItem is one analysed area of the report.
type ReportItem struct {
	Title              string   `json:"title" firestore:"title"`
	Facts              []string `json:"facts,omitempty" firestore:"facts,omitempty"`
	KeyFindings        []string `json:"keyFindings,omitempty" firestore:"keyFindings,omitempty"`
	RecommendedActions string   `json:"recommendedActions,omitempty" firestore:"recommendedActions,omitempty"`
}

type ExecutiveSummary struct {
	Headline             string   `json:"headline" firestore:"headline"`
	Summary              string   `json:"summary" firestore:"summary"`
	KeyFindings          []string `json:"keyFindings,omitempty" firestore:"keyFindings,omitempty"`
	RecommendedActions   string   `json:"recommendedActions,omitempty" firestore:"recommendedActions,omitempty"`
	OverallRisk          string   `json:"overallRisk,omitempty" firestore:"overallRisk,omitempty"`
	LegalStructureRating string   `json:"legalStructureRating,omitempty" firestore:"legalStructureRating,omitempty"`
	ComplianceRating     string   `json:"complianceRating,omitempty" firestore:"complianceRating,omitempty"`
	TransactionReadiness string   `json:"transactionReadiness,omitempty" firestore:"transactionReadiness,omitempty"`
	CriticalIssues       []string `json:"criticalIssues,omitempty" firestore:"criticalIssues,omitempty"`
}

type TotalCompanyScore struct {
	Score       float64 `json:"score" firestore:"score"`
	Rating      string  `json:"rating" firestore:"rating"`
	Description string  `json:"description" firestore:"description"`
}

type InvestmentDecision struct {
	Recommendation     string   `json:"recommendation" firestore:"recommendation"`
	SuccessProbability float64  `json:"successProbability" firestore:"successProbability"`
	Justification      string   `json:"justification" firestore:"justification"`
	KeyConsiderations  []string `json:"keyConsiderations,omitempty" firestore:"keyConsiderations,omitempty"`
	SuggestedTerms     []string `json:"suggestedTerms,omitempty" firestore:"suggestedTerms,omitempty"`
}

type DetailedFinding struct {
	Area           string `json:"area" firestore:"area"`
	Document       string `json:"document" firestore:"document"`
	Finding        string `json:"finding" firestore:"finding"`
	RiskLevel      string `json:"riskLevel" firestore:"riskLevel"`
	Recommendation string `json:"recommendation" firestore:"recommendation"`
	Timeline       string `json:"timeline" firestore:"timeline"`
	Impact         string `json:"impact" firestore:"impact"`
}

type Recommendation struct {
	Area             string `json:"area" firestore:"area"`
	Recommendation   string `json:"recommendation" firestore:"recommendation"`
	Priority         string `json:"priority" firestore:"priority"`
	Timeline         string `json:"timeline" firestore:"timeline"`
	ResponsibleParty string `json:"responsibleParty" firestore:"responsibleParty"`
	Cost             string `json:"cost,omitempty" firestore:"cost,omitempty"`
	Rationale        string `json:"rationale,omitempty" firestore:"rationale,omitempty"`
	ExpectedOutcome  string `json:"expectedOutcome,omitempty" firestore:"expectedOutcome,omitempty"`
}

type ReportMetadata struct {
	DocumentsReviewed         float64 `json:"documentsReviewed" firestore:"documentsReviewed"`
	ComplianceAreasChecked    float64 `json:"complianceAreasChecked" firestore:"complianceAreasChecked"`
	TotalFindings             float64 `json:"totalFindings" firestore:"totalFindings"`
	CriticalIssuesCount       float64 `json:"criticalIssuesCount" firestore:"criticalIssuesCount"`
	HighPriorityIssuesCount   float64 `json:"highPriorityIssuesCount" firestore:"highPriorityIssuesCount"`
	MediumPriorityIssuesCount float64 `json:"mediumPriorityIssuesCount" firestore:"mediumPriorityIssuesCount"`
	LowPriorityIssuesCount    float64 `json:"lowPriorityIssuesCount" firestore:"lowPriorityIssuesCount"`
	ReportVersion             string  `json:"reportVersion,omitempty" firestore:"reportVersion,omitempty"`
	AssessmentDate            string  `json:"assessmentDate,omitempty" firestore:"assessmentDate,omitempty"`
	AssessorName              string  `json:"assessorName,omitempty" firestore:"assessorName,omitempty"`
}

// AnalysisSection is a free-form area such as corporateStructure. Fields holds every
// string-valued key other than findings and riskLevel.
type AnalysisSection struct {
	Fields    map[string]string `json:"fields,omitempty" firestore:"fields,omitempty"`
	Findings  []string          `json:"findings,omitempty" firestore:"findings,omitempty"`
	RiskLevel string            `json:"riskLevel,omitempty" firestore:"riskLevel,omitempty"`
}

// ValidatedReport is the checked, persist-ready report. Pointer and nil-slice fields are
// optional and stay unset when the model did not provide them.
type ValidatedReport struct {
	CompanyName          string                     `json:"companyName,omitempty" firestore:"companyName,omitempty"`
	ReportDate           string                     `json:"reportDate,omitempty" firestore:"reportDate,omitempty"`
	Introduction         string                     `json:"introduction,omitempty" firestore:"introduction,omitempty"`
	Disclaimer           string                     `json:"disclaimer,omitempty" firestore:"disclaimer,omitempty"`
	MissingDocuments     MissingDocuments           `json:"missingDocuments" firestore:"missingDocuments"`
	RiskScore            *RiskScore                 `json:"riskScore,omitempty" firestore:"riskScore,omitempty"`
	ComplianceAssessment *ComplianceAssessment      `json:"complianceAssessment,omitempty" firestore:"complianceAssessment,omitempty"`
	Items                []ReportItem               `json:"items" firestore:"items"`
	ExecutiveSummary     ExecutiveSummary           `json:"executiveSummary" firestore:"executiveSummary"`
	TotalCompanyScore    TotalCompanyScore          `json:"totalCompanyScore" firestore:"totalCompanyScore"`
	InvestmentDecision   InvestmentDecision         `json:"investmentDecision" firestore:"investmentDecision"`
	DetailedFindings     []DetailedFinding          `json:"detailedFindings,omitempty" firestore:"detailedFindings,omitempty"`
	Recommendations      []Recommendation           `json:"recommendations,omitempty" firestore:"recommendations,omitempty"`
	ReportMetadata       *ReportMetadata            `json:"reportMetadata,omitempty" firestore:"reportMetadata,omitempty"`
	AnalysisSections     map[string]AnalysisSection `json:"analysisSections,omitempty" firestore:"analysisSections,omitempty"`
}

// StoredReport is the persisted form of a validated report, keyed by entity and kind.
type StoredReport struct {
	ID                   string           `json:"id" firestore:"-"`
	EntityID             string           `json:"entityId" firestore:"entityId"`
	EntityType           EntityType       `json:"entityType" firestore:"entityType"`
	ReportKind           ReportKind       `json:"reportKind" firestore:"reportKind"`
	GeneratedBy          string           `json:"generatedBy" firestore:"generatedBy"`
	Report               *ValidatedReport `json:"report" firestore:"report"`
	ReportCalculated     bool             `json:"reportCalculated" firestore:"reportCalculated"`
	AvailableDocuments   []string         `json:"availableDocuments" firestore:"availableDocuments"`
	MissingDocumentTypes []string         `json:"missingDocumentTypes" firestore:"missingDocumentTypes"`
	CreatedAt            time.Time        `json:"createdAt" firestore:"createdAt"`
	ExpiresAt            time.Time        `json:"expiresAt" firestore:"expiresAt"`
}

// Expired reports whether the cached report should no longer be served at now.
func (r *StoredReport) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
