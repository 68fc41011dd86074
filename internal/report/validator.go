package report

import (
	"fmt"
	"sort"

	"github.com/Lllllllleong/duediligenceflow/internal/models"
)

// DefaultSuccessProbability replaces a missing or out-of-range investmentDecision.successProbability.
const DefaultSuccessProbability = 50

var (
	riskLevels = enum{"Critical", "High", "Medium", "Low", "Significant", "Moderate", "Minor", "Informational"}

	complianceStatuses = enum{"Compliant", "Partially Compliant", "Non-Compliant", "Not Assessed"}

	// AnalysisSectionKeys are the free-form areas a report may carry next to its items.
	AnalysisSectionKeys = []string{
		"corporateStructure",
		"regulatoryCompliance",
		"materialAgreements",
		"intellectualProperty",
		"litigationAndDisputes",
		"regulatoryFilings",
	}
)

// Validate checks an untrusted model response and converts it into a ValidatedReport. It never
// fills in a required field: the first violation is returned as a *ValidationError.
func Validate(raw models.RawReport) (*models.ValidatedReport, error) {
	if raw == nil {
		return nil, invalid("report", "must be a JSON object")
	}
	obj := map[string]any(raw)

	if err := checkRequired(obj); err != nil {
		return nil, err
	}

	out := &models.ValidatedReport{}
	var err error

	if out.MissingDocuments, err = missingDocuments(obj["missingDocuments"]); err != nil {
		return nil, err
	}
	if out.Items, err = items(obj); err != nil {
		return nil, err
	}
	if out.ExecutiveSummary, err = executiveSummary(obj); err != nil {
		return nil, err
	}
	if out.TotalCompanyScore, err = totalCompanyScore(obj); err != nil {
		return nil, err
	}
	if out.InvestmentDecision, err = investmentDecision(obj); err != nil {
		return nil, err
	}
	if out.RiskScore, err = riskScore(obj); err != nil {
		return nil, err
	}
	if out.ComplianceAssessment, err = complianceAssessment(obj); err != nil {
		return nil, err
	}
	if out.DetailedFindings, err = detailedFindings(obj); err != nil {
		return nil, err
	}
	if out.Recommendations, err = recommendations(obj); err != nil {
		return nil, err
	}
	if out.ReportMetadata, err = reportMetadata(obj); err != nil {
		return nil, err
	}
	if out.AnalysisSections, err = analysisSections(obj); err != nil {
		return nil, err
	}

	if err := readStrings(obj, "", optionalString,
		stringField{"companyName", &out.CompanyName},
		stringField{"reportDate", &out.ReportDate},
		stringField{"introduction", &out.Introduction},
		stringField{"disclaimer", &out.Disclaimer},
	); err != nil {
		return nil, err
	}
	return out, nil
}

// checkRequired verifies the fields no report can do without before anything is shaped.
func checkRequired(obj map[string]any) error {
	for _, key := range []string{"missingDocuments", "totalCompanyScore", "investmentDecision", "items", "executiveSummary"} {
		if !present(obj, key) {
			return invalid(key, "is required")
		}
	}
	list, ok := obj["items"].([]any)
	if !ok {
		return invalid("items", "must be an array, got %s", typeName(obj["items"]))
	}
	if len(list) == 0 {
		return invalid("items", "must not be empty")
	}
	summary, ok := obj["executiveSummary"].(map[string]any)
	if !ok {
		return invalid("executiveSummary", "must be an object, got %s", typeName(obj["executiveSummary"]))
	}
	if _, err := requiredString(summary, "headline", "executiveSummary"); err != nil {
		return err
	}
	_, err := requiredString(summary, "summary", "executiveSummary")
	return err
}

// missingDocuments accepts either a list of document names or the canonical
// {documentList, note} object.
func missingDocuments(v any) (models.MissingDocuments, error) {
	const field = "missingDocuments"
	switch md := v.(type) {
	case []any:
		list := make([]models.MissingDocumentEntry, 0, len(md))
		for i, item := range md {
			name, ok := item.(string)
			if !ok || name == "" {
				return models.MissingDocuments{}, invalid(index(field, i), "must be a non-empty string, got %s", typeName(item))
			}
			list = append(list, models.MissingDocumentEntry{
				DocumentCategory:     "Uncategorized",
				SpecificDocument:     name,
				RequirementReference: "Not specified",
			})
		}
		return models.MissingDocuments{
			DocumentList: list,
			Note:         fmt.Sprintf("%d document(s) identified as missing.", len(list)),
		}, nil

	case map[string]any:
		entries, ok, err := optionalObjectList(md, "documentList", field)
		if err != nil {
			return models.MissingDocuments{}, err
		}
		if !ok {
			return models.MissingDocuments{}, invalid(join(field, "documentList"), "is required")
		}
		out := models.MissingDocuments{DocumentList: make([]models.MissingDocumentEntry, 0, len(entries))}
		for i, entry := range entries {
			path := index(join(field, "documentList"), i)
			var e models.MissingDocumentEntry
			if e.DocumentCategory, err = requiredString(entry, "documentCategory", path); err != nil {
				return models.MissingDocuments{}, err
			}
			if e.SpecificDocument, err = requiredString(entry, "specificDocument", path); err != nil {
				return models.MissingDocuments{}, err
			}
			if e.RequirementReference, err = requiredString(entry, "requirementReference", path); err != nil {
				return models.MissingDocuments{}, err
			}
			out.DocumentList = append(out.DocumentList, e)
		}
		if out.Note, err = optionalString(md, "note", field); err != nil {
			return models.MissingDocuments{}, err
		}
		return out, nil
	}
	return models.MissingDocuments{}, invalid(field, "must be an array or an object, got %s", typeName(v))
}

func items(obj map[string]any) ([]models.ReportItem, error) {
	list, _, err := optionalObjectList(obj, "items", "")
	if err != nil {
		return nil, err
	}
	out := make([]models.ReportItem, 0, len(list))
	for i, item := range list {
		path := index("items", i)
		var it models.ReportItem
		if it.Title, err = requiredString(item, "title", path); err != nil {
			return nil, err
		}
		if it.Facts, err = optionalStringList(item, "facts", path); err != nil {
			return nil, err
		}
		if it.KeyFindings, err = optionalStringList(item, "keyFindings", path); err != nil {
			return nil, err
		}
		if it.RecommendedActions, err = optionalString(item, "recommendedActions", path); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func executiveSummary(obj map[string]any) (models.ExecutiveSummary, error) {
	const path = "executiveSummary"
	var es models.ExecutiveSummary
	m, err := requiredObject(obj, path, "")
	if err != nil {
		return es, err
	}
	if es.Headline, err = requiredString(m, "headline", path); err != nil {
		return es, err
	}
	if es.Summary, err = requiredString(m, "summary", path); err != nil {
		return es, err
	}
	if es.KeyFindings, err = optionalStringList(m, "keyFindings", path); err != nil {
		return es, err
	}
	if es.RecommendedActions, err = optionalString(m, "recommendedActions", path); err != nil {
		return es, err
	}
	if es.OverallRisk, err = riskLevels.optional(m, "overallRisk", path); err != nil {
		return es, err
	}
	if es.LegalStructureRating, err = optionalString(m, "legalStructureRating", path); err != nil {
		return es, err
	}
	if es.ComplianceRating, err = optionalString(m, "complianceRating", path); err != nil {
		return es, err
	}
	if es.TransactionReadiness, err = optionalString(m, "transactionReadiness", path); err != nil {
		return es, err
	}
	if es.CriticalIssues, err = optionalStringList(m, "criticalIssues", path); err != nil {
		return es, err
	}
	return es, nil
}

func totalCompanyScore(obj map[string]any) (models.TotalCompanyScore, error) {
	const path = "totalCompanyScore"
	var tcs models.TotalCompanyScore
	m, err := requiredObject(obj, path, "")
	if err != nil {
		return tcs, err
	}
	if tcs.Score, err = requiredNumber(m, "score", path); err != nil {
		return tcs, err
	}
	if tcs.Rating, err = requiredString(m, "rating", path); err != nil {
		return tcs, err
	}
	if tcs.Description, err = requiredString(m, "description", path); err != nil {
		return tcs, err
	}
	return tcs, nil
}

func investmentDecision(obj map[string]any) (models.InvestmentDecision, error) {
	const path = "investmentDecision"
	var id models.InvestmentDecision
	m, err := requiredObject(obj, path, "")
	if err != nil {
		return id, err
	}
	if id.Recommendation, err = requiredString(m, "recommendation", path); err != nil {
		return id, err
	}
	if id.Justification, err = requiredString(m, "justification", path); err != nil {
		return id, err
	}
	if id.KeyConsiderations, err = optionalStringList(m, "keyConsiderations", path); err != nil {
		return id, err
	}
	if id.SuggestedTerms, err = optionalStringList(m, "suggestedTerms", path); err != nil {
		return id, err
	}
	id.SuccessProbability = successProbability(m["successProbability"])
	return id, nil
}

// successProbability is advisory: anything that is not a number in [0, 100] becomes the default.
func successProbability(v any) float64 {
	if p, ok := v.(float64); ok && p >= 0 && p <= 100 {
		return p
	}
	return DefaultSuccessProbability
}

func riskScore(obj map[string]any) (*models.RiskScore, error) {
	const path = "riskScore"
	m, err := optionalObject(obj, path, "")
	if err != nil || m == nil {
		return nil, err
	}
	rs := &models.RiskScore{}
	if rs.Score, err = requiredString(m, "score", path); err != nil {
		return nil, err
	}
	if rs.RiskLevel, err = riskLevels.required(m, "riskLevel", path); err != nil {
		return nil, err
	}
	if rs.Justification, err = requiredString(m, "justification", path); err != nil {
		return nil, err
	}
	return rs, nil
}

func complianceAssessment(obj map[string]any) (*models.ComplianceAssessment, error) {
	const path = "complianceAssessment"
	m, err := optionalObject(obj, path, "")
	if err != nil || m == nil {
		return nil, err
	}
	ca := &models.ComplianceAssessment{}
	if ca.ComplianceScore, err = requiredString(m, "complianceScore", path); err != nil {
		return nil, err
	}
	if ca.Details, err = requiredString(m, "details", path); err != nil {
		return nil, err
	}
	if ca.Status, err = complianceStatuses.optional(m, "status", path); err != nil {
		return nil, err
	}
	return ca, nil
}

func detailedFindings(obj map[string]any) ([]models.DetailedFinding, error) {
	list, ok, err := optionalObjectList(obj, "detailedFindings", "")
	if err != nil || !ok {
		return nil, err
	}
	out := make([]models.DetailedFinding, 0, len(list))
	for i, m := range list {
		path := index("detailedFindings", i)
		var f models.DetailedFinding
		if err := readStrings(m, path, requiredString,
			stringField{"area", &f.Area},
			stringField{"document", &f.Document},
			stringField{"finding", &f.Finding},
			stringField{"recommendation", &f.Recommendation},
			stringField{"timeline", &f.Timeline},
			stringField{"impact", &f.Impact},
		); err != nil {
			return nil, err
		}
		if f.RiskLevel, err = riskLevels.required(m, "riskLevel", path); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func recommendations(obj map[string]any) ([]models.Recommendation, error) {
	list, ok, err := optionalObjectList(obj, "recommendations", "")
	if err != nil || !ok {
		return nil, err
	}
	out := make([]models.Recommendation, 0, len(list))
	for i, m := range list {
		path := index("recommendations", i)
		var r models.Recommendation
		if err := readStrings(m, path, requiredString,
			stringField{"area", &r.Area},
			stringField{"recommendation", &r.Recommendation},
			stringField{"priority", &r.Priority},
			stringField{"timeline", &r.Timeline},
			stringField{"responsibleParty", &r.ResponsibleParty},
		); err != nil {
			return nil, err
		}
		if err := readStrings(m, path, optionalString,
			stringField{"cost", &r.Cost},
			stringField{"rationale", &r.Rationale},
			stringField{"expectedOutcome", &r.ExpectedOutcome},
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func reportMetadata(obj map[string]any) (*models.ReportMetadata, error) {
	const path = "reportMetadata"
	m, err := optionalObject(obj, path, "")
	if err != nil || m == nil {
		return nil, err
	}
	rm := &models.ReportMetadata{}
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"documentsReviewed", &rm.DocumentsReviewed},
		{"complianceAreasChecked", &rm.ComplianceAreasChecked},
		{"totalFindings", &rm.TotalFindings},
		{"criticalIssuesCount", &rm.CriticalIssuesCount},
		{"highPriorityIssuesCount", &rm.HighPriorityIssuesCount},
		{"mediumPriorityIssuesCount", &rm.MediumPriorityIssuesCount},
		{"lowPriorityIssuesCount", &rm.LowPriorityIssuesCount},
	} {
		if *f.dst, err = requiredNumber(m, f.key, path); err != nil {
			return nil, err
		}
	}
	if err := readStrings(m, path, optionalString,
		stringField{"reportVersion", &rm.ReportVersion},
		stringField{"assessmentDate", &rm.AssessmentDate},
		stringField{"assessorName", &rm.AssessorName},
	); err != nil {
		return nil, err
	}
	return rm, nil
}

// analysisSections validates the free-form areas. Apart from findings and riskLevel every value in
// a section must be a string.
func analysisSections(obj map[string]any) (map[string]models.AnalysisSection, error) {
	var out map[string]models.AnalysisSection
	for _, key := range AnalysisSectionKeys {
		m, err := optionalObject(obj, key, "")
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		var section models.AnalysisSection
		if section.Findings, err = optionalStringList(m, "findings", key); err != nil {
			return nil, err
		}
		if section.RiskLevel, err = riskLevels.optional(m, "riskLevel", key); err != nil {
			return nil, err
		}

		names := make([]string, 0, len(m))
		for name := range m {
			if name != "findings" && name != "riskLevel" {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			s, err := optionalString(m, name, key)
			if err != nil {
				return nil, err
			}
			if section.Fields == nil {
				section.Fields = make(map[string]string)
			}
			section.Fields[name] = s
		}

		if out == nil {
			out = make(map[string]models.AnalysisSection)
		}
		out[key] = section
	}
	return out, nil
}
