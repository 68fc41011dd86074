package report

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validRaw returns a fresh minimal report with the six required parts.
func validRaw(t *testing.T) models.RawReport {
	t.Helper()
	const body = `{
		"missingDocuments": {"documentList": [], "note": "All documents provided."},
		"totalCompanyScore": {"score": 7.5, "rating": "Good", "description": "Solid structure."},
		"investmentDecision": {"recommendation": "Proceed", "successProbability": 72, "justification": "Clean records."},
		"items": [{"title": "Corporate Structure", "facts": ["Incorporated in 2019"], "keyFindings": ["No issues"]}],
		"executiveSummary": {"headline": "Low risk", "summary": "The company is in order."}
	}`
	var raw models.RawReport
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func requireField(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	assert.Equal(t, field, verr.Field)
}

func TestValidateMinimalReport(t *testing.T) {
	v, err := Validate(validRaw(t))
	require.NoError(t, err)

	assert.Equal(t, "Low risk", v.ExecutiveSummary.Headline)
	assert.Equal(t, 7.5, v.TotalCompanyScore.Score)
	assert.Equal(t, float64(72), v.InvestmentDecision.SuccessProbability)
	require.Len(t, v.Items, 1)
	assert.Equal(t, []string{"Incorporated in 2019"}, v.Items[0].Facts)
	assert.Empty(t, v.MissingDocuments.DocumentList)
	assert.Nil(t, v.RiskScore)
	assert.Nil(t, v.ReportMetadata)
	assert.Nil(t, v.AnalysisSections)
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(models.RawReport)
		field  string
	}{
		{"missingDocuments absent", func(r models.RawReport) { delete(r, "missingDocuments") }, "missingDocuments"},
		{"totalCompanyScore absent", func(r models.RawReport) { delete(r, "totalCompanyScore") }, "totalCompanyScore"},
		{"investmentDecision null", func(r models.RawReport) { r["investmentDecision"] = nil }, "investmentDecision"},
		{"items absent", func(r models.RawReport) { delete(r, "items") }, "items"},
		{"items empty", func(r models.RawReport) { r["items"] = []any{} }, "items"},
		{"items scalar", func(r models.RawReport) { r["items"] = "none" }, "items"},
		{"executiveSummary absent", func(r models.RawReport) { delete(r, "executiveSummary") }, "executiveSummary"},
		{"headline missing", func(r models.RawReport) {
			r["executiveSummary"] = map[string]any{"summary": "x"}
		}, "executiveSummary.headline"},
		{"summary blank", func(r models.RawReport) {
			r["executiveSummary"] = map[string]any{"headline": "x", "summary": "  "}
		}, "executiveSummary.summary"},
		{"score not a number", func(r models.RawReport) {
			r["totalCompanyScore"].(map[string]any)["score"] = "7"
		}, "totalCompanyScore.score"},
		{"recommendation missing", func(r models.RawReport) {
			delete(r["investmentDecision"].(map[string]any), "recommendation")
		}, "investmentDecision.recommendation"},
		{"item title missing", func(r models.RawReport) {
			r["items"] = []any{map[string]any{"title": "ok"}, map[string]any{"facts": []any{}}}
		}, "items[1].title"},
		{"facts scalar", func(r models.RawReport) {
			r["items"] = []any{map[string]any{"title": "ok", "facts": "one fact"}}
		}, "items[0].facts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw(t)
			tt.mutate(raw)
			_, err := Validate(raw)
			requireField(t, err, tt.field)
		})
	}
}

func TestValidateEmptyItemsScenario(t *testing.T) {
	raw := validRaw(t)
	raw["items"] = []any{}
	raw["missingDocuments"] = []any{}

	_, err := Validate(raw)
	requireField(t, err, "items")
	assert.ErrorContains(t, err, "must not be empty")
}

func TestValidateSuccessProbabilityClamp(t *testing.T) {
	for name, value := range map[string]any{
		"null":       nil,
		"negative":   float64(-5),
		"too large":  float64(150),
		"not number": "N/A",
	} {
		t.Run(name, func(t *testing.T) {
			raw := validRaw(t)
			raw["investmentDecision"].(map[string]any)["successProbability"] = value
			v, err := Validate(raw)
			require.NoError(t, err)
			assert.Equal(t, float64(DefaultSuccessProbability), v.InvestmentDecision.SuccessProbability)
		})
	}

	t.Run("undefined", func(t *testing.T) {
		raw := validRaw(t)
		delete(raw["investmentDecision"].(map[string]any), "successProbability")
		v, err := Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, float64(DefaultSuccessProbability), v.InvestmentDecision.SuccessProbability)
	})

	for _, p := range []float64{0, 33.3, 100} {
		raw := validRaw(t)
		raw["investmentDecision"].(map[string]any)["successProbability"] = p
		v, err := Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, p, v.InvestmentDecision.SuccessProbability)
	}
}

func TestValidateLiftsMissingDocumentArray(t *testing.T) {
	raw := validRaw(t)
	raw["missingDocuments"] = []any{"Shareholder Agreement", "Cap Table"}

	v, err := Validate(raw)
	require.NoError(t, err)
	require.Len(t, v.MissingDocuments.DocumentList, 2)
	assert.Equal(t, models.MissingDocumentEntry{
		DocumentCategory:     "Uncategorized",
		SpecificDocument:     "Cap Table",
		RequirementReference: "Not specified",
	}, v.MissingDocuments.DocumentList[1])
	assert.Equal(t, "2 document(s) identified as missing.", v.MissingDocuments.Note)
}

func TestValidateMissingDocumentEntries(t *testing.T) {
	raw := validRaw(t)
	raw["missingDocuments"] = map[string]any{
		"documentList": []any{
			map[string]any{"documentCategory": "Legal", "specificDocument": "NDA", "requirementReference": "Sec 2"},
			map[string]any{"documentCategory": "Legal", "requirementReference": "Sec 3"},
		},
	}
	_, err := Validate(raw)
	requireField(t, err, "missingDocuments.documentList[1].specificDocument")

	raw["missingDocuments"] = map[string]any{"note": "none"}
	_, err = Validate(raw)
	requireField(t, err, "missingDocuments.documentList")

	raw["missingDocuments"] = "none"
	_, err = Validate(raw)
	requireField(t, err, "missingDocuments")
}

func TestValidateEnums(t *testing.T) {
	raw := validRaw(t)
	raw["riskScore"] = map[string]any{"score": "3/10", "riskLevel": "low", "justification": "Few issues."}
	raw["complianceAssessment"] = map[string]any{"complianceScore": "80%", "status": "partially compliant", "details": "Gaps in filings."}

	v, err := Validate(raw)
	require.NoError(t, err)
	require.NotNil(t, v.RiskScore)
	assert.Equal(t, "Low", v.RiskScore.RiskLevel)
	require.NotNil(t, v.ComplianceAssessment)
	assert.Equal(t, "Partially Compliant", v.ComplianceAssessment.Status)

	raw["riskScore"].(map[string]any)["riskLevel"] = "Catastrophic"
	_, err = Validate(raw)
	requireField(t, err, "riskScore.riskLevel")

	raw = validRaw(t)
	raw["complianceAssessment"] = map[string]any{"complianceScore": "80%", "status": "Mostly", "details": "x"}
	_, err = Validate(raw)
	requireField(t, err, "complianceAssessment.status")
}

func TestValidateOptionalSections(t *testing.T) {
	raw := validRaw(t)
	raw["detailedFindings"] = []any{map[string]any{
		"area": "IP", "document": "Patent filing", "finding": "Pending", "riskLevel": "Medium",
		"recommendation": "Follow up", "timeline": "30 days", "impact": "Moderate",
	}}
	raw["recommendations"] = []any{map[string]any{
		"area": "Governance", "recommendation": "Appoint board", "priority": "High",
		"timeline": "Q3", "responsibleParty": "CEO", "cost": "Low",
	}}
	raw["reportMetadata"] = map[string]any{
		"documentsReviewed": float64(8), "complianceAreasChecked": float64(5), "totalFindings": float64(4),
		"criticalIssuesCount": float64(0), "highPriorityIssuesCount": float64(1),
		"mediumPriorityIssuesCount": float64(2), "lowPriorityIssuesCount": float64(1),
		"reportVersion": "1.0",
	}
	raw["corporateStructure"] = map[string]any{
		"entityType": "Pty Ltd", "findings": []any{"Single class of shares"}, "riskLevel": "low",
	}
	raw["companyName"] = "Acme"

	v, err := Validate(raw)
	require.NoError(t, err)
	require.Len(t, v.DetailedFindings, 1)
	assert.Equal(t, "Medium", v.DetailedFindings[0].RiskLevel)
	require.Len(t, v.Recommendations, 1)
	assert.Equal(t, "Low", v.Recommendations[0].Cost)
	require.NotNil(t, v.ReportMetadata)
	assert.Equal(t, float64(8), v.ReportMetadata.DocumentsReviewed)
	assert.Equal(t, "1.0", v.ReportMetadata.ReportVersion)
	require.Contains(t, v.AnalysisSections, "corporateStructure")
	section := v.AnalysisSections["corporateStructure"]
	assert.Equal(t, "Low", section.RiskLevel)
	assert.Equal(t, map[string]string{"entityType": "Pty Ltd"}, section.Fields)
	assert.Equal(t, "Acme", v.CompanyName)
}

func TestValidateRejectsMalformedOptionalSections(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		field string
	}{
		{"findings missing impact", "detailedFindings", []any{map[string]any{
			"area": "a", "document": "d", "finding": "f", "riskLevel": "Low", "recommendation": "r", "timeline": "t",
		}}, "detailedFindings[0].impact"},
		{"recommendations not array", "recommendations", map[string]any{}, "recommendations"},
		{"metadata count as string", "reportMetadata", map[string]any{
			"documentsReviewed": "8", "complianceAreasChecked": float64(1), "totalFindings": float64(1),
			"criticalIssuesCount": float64(0), "highPriorityIssuesCount": float64(0),
			"mediumPriorityIssuesCount": float64(0), "lowPriorityIssuesCount": float64(0),
		}, "reportMetadata.documentsReviewed"},
		{"section findings scalar", "materialAgreements", map[string]any{"findings": "none"}, "materialAgreements.findings"},
		{"section nested object", "intellectualProperty", map[string]any{"patents": map[string]any{}}, "intellectualProperty.patents"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw(t)
			raw[tt.key] = tt.value
			_, err := Validate(raw)
			requireField(t, err, tt.field)
		})
	}
}

func TestValidateDropsUnknownFields(t *testing.T) {
	raw := validRaw(t)
	raw["reportCalculated"] = true
	raw["somethingElse"] = map[string]any{"x": 1}

	v, err := Validate(raw)
	require.NoError(t, err)
	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "somethingElse")
}

func TestValidationErrorTopLevelField(t *testing.T) {
	err := &ValidationError{Field: "items[2].title", Reason: "is required"}
	assert.Equal(t, "items", err.TopLevelField())
	assert.Equal(t, "invalid report field items[2].title: is required", err.Error())
	assert.Equal(t, "riskScore", (&ValidationError{Field: "riskScore.score"}).TopLevelField())
}

func TestValidateReportsFirstFailingFieldInDeclaredOrder(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		field string
	}{
		{"detailed finding", "detailedFindings", []any{map[string]any{"document": "d", "recommendation": "r", "timeline": "t", "riskLevel": "Low"}}, "detailedFindings[0].area"},
		{"recommendation", "recommendations", []any{map[string]any{"area": "a", "recommendation": "r", "cost": 5, "rationale": 6}}, "recommendations[0].priority"},
		{"report metadata", "reportMetadata", map[string]any{
			"documentsReviewed": 1.0, "complianceAreasChecked": 1.0, "totalFindings": 1.0, "criticalIssuesCount": 0.0,
			"highPriorityIssuesCount": 0.0, "mediumPriorityIssuesCount": 0.0, "lowPriorityIssuesCount": 1.0,
			"reportVersion": 2, "assessmentDate": 3, "assessorName": 4,
		}, "reportMetadata.reportVersion"},
		{"top-level strings", "companyName", 1, "companyName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw(t)
			raw[tt.key] = tt.value
			if tt.key == "companyName" {
				raw["disclaimer"] = false
				raw["introduction"] = []any{}
			}
			for range 50 {
				_, err := Validate(raw)
				requireField(t, err, tt.field)
			}
		})
	}
}
