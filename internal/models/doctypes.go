package models

import "fmt"

// ReportKind selects the analysis prompt and the catalogue of documents a report expects.
type ReportKind string

const (
	ReportKindLegal     ReportKind = "legal"
	ReportKindFinancial ReportKind = "financial"
)

// EntityType is the kind of profile a report is generated for.
type EntityType string

const (
	EntityTypeStartup  EntityType = "startup"
	EntityTypeInvestor EntityType = "investor"
)

var requiredDocumentTypes = map[ReportKind][]string{
	ReportKindLegal: {
		"legal_incorporation_certificate",
		"legal_moa_aoa",
		"legal_board_resolutions",
		"legal_shareholders_agreement",
		"legal_share_certificates",
		"legal_valuation_reports",
		"legal_loan_agreements",
		"legal_annual_filings",
	},
	ReportKindFinancial: {
		"financial_balance_sheet",
		"financial_income_statement",
		"financial_cash_flow",
		"financial_tax_returns",
		"financial_audit_report",
		"financial_bank_statements",
		"financial_gst_returns",
		"financial_projections",
	},
}

// ParseReportKind defaults an empty value to a legal report.
func ParseReportKind(s string) (ReportKind, error) {
	switch ReportKind(s) {
	case "":
		return ReportKindLegal, nil
	case ReportKindLegal, ReportKindFinancial:
		return ReportKind(s), nil
	}
	return "", fmt.Errorf("unknown report kind %q", s)
}

// ParseEntityType defaults an empty value to a startup.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case "":
		return EntityTypeStartup, nil
	case EntityTypeStartup, EntityTypeInvestor:
		return EntityType(s), nil
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// RequiredDocumentTypes returns a copy of the document types a report of this kind expects.
func (k ReportKind) RequiredDocumentTypes() []string {
	types := requiredDocumentTypes[k]
	out := make([]string, len(types))
	copy(out, types)
	return out
}

// MissingDocumentTypes returns the required types, in catalogue order, that are not in available.
func (k ReportKind) MissingDocumentTypes(available []string) []string {
	have := make(map[string]bool, len(available))
	for _, t := range available {
		have[t] = true
	}
	missing := []string{}
	for _, t := range requiredDocumentTypes[k] {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	return missing
}
