package domain

import (
	"sort"
	"time"
)

// VariantSet is the parsed product of one uploaded variant file. It is
// created once per upload, stored under the session key, and read-only for
// the remainder of the session.
type VariantSet struct {
	SampleID      string                 `json:"sample_id,omitempty"`
	TotalLines    int                    `json:"total_lines"`
	TotalVariants int                    `json:"total_variants"`
	Calls         map[Gene][]VariantCall `json:"calls"`
	ParseErrors   []string               `json:"parse_errors,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// PGxVariantCount returns the number of pharmacogene-relevant calls.
func (s *VariantSet) PGxVariantCount() int {
	n := 0
	for _, calls := range s.Calls {
		n += len(calls)
	}
	return n
}

// CallsFor returns the calls observed for one gene, or nil.
func (s *VariantSet) CallsFor(gene Gene) []VariantCall {
	return s.Calls[gene]
}

// GenesWithVariants returns the symbols of genes with at least one call,
// sorted for stable output.
func (s *VariantSet) GenesWithVariants() []string {
	genes := make([]string, 0, len(s.Calls))
	for gene, calls := range s.Calls {
		if len(calls) > 0 {
			genes = append(genes, string(gene))
		}
	}
	sort.Strings(genes)
	return genes
}

// PhenotypeResult is the classified metabolizer phenotype for one gene,
// a pure function of the diplotype and the activity-score table.
type PhenotypeResult struct {
	Gene             Gene           `json:"gene"`
	Diplotype        Diplotype      `json:"diplotype"`
	Phenotype        Phenotype      `json:"phenotype"`
	Basis            PhenotypeBasis `json:"basis"`
	ActivityScore    *float64       `json:"activity_score,omitempty"`
	DetectedVariants []VariantCall  `json:"detected_variants,omitempty"`
}

// RiskAssessment is the drug-specific risk verdict.
type RiskAssessment struct {
	RiskLabel       RiskLabel `json:"risk_label"`
	ConfidenceScore float64   `json:"confidence_score"`
	Severity        Severity  `json:"severity"`
}

// PharmacogenomicProfile summarizes the genetic evidence behind a verdict.
type PharmacogenomicProfile struct {
	PrimaryGene      string        `json:"primary_gene"`
	Diplotype        string        `json:"diplotype"`
	Phenotype        Phenotype     `json:"phenotype"`
	DetectedVariants []VariantCall `json:"detected_variants"`
}

// ClinicalRecommendation carries the actionable guidance from the matched
// rule. DoseAdjustment and Monitoring are present only when the rule
// specifies them.
type ClinicalRecommendation struct {
	Action           string   `json:"action"`
	AlternativeDrugs []string `json:"alternative_drugs"`
	DoseAdjustment   string   `json:"dose_adjustment,omitempty"`
	Monitoring       string   `json:"monitoring,omitempty"`
}

// ExplanationSource identifies which path produced the narrative text.
type ExplanationSource string

const (
	ExplanationSourceLLM      ExplanationSource = "llm"
	ExplanationSourceTemplate ExplanationSource = "template"
)

// Explanation is the narrative companion to a verdict: a clinician-readable
// summary, the pharmacological mechanism, and the guideline citation.
// Template-sourced text is deterministic; LLM-sourced text may vary.
type Explanation struct {
	Summary            string            `json:"summary"`
	Mechanism          string            `json:"mechanism"`
	GuidelineReference string            `json:"guideline_reference"`
	Source             ExplanationSource `json:"source"`
}

// QualityMetrics reports how well the input file parsed.
type QualityMetrics struct {
	VCFParsingSuccess   bool     `json:"vcf_parsing_success"`
	TotalVariantsParsed int      `json:"total_variants_parsed"`
	PGxVariantsFound    int      `json:"pgx_variants_found"`
	ParseErrors         []string `json:"parse_errors"`
	GenesWithVariants   []string `json:"genes_with_variants"`
}

// AnalysisReport is the per-drug output artifact.
type AnalysisReport struct {
	PatientID      string                 `json:"patient_id"`
	Drug           string                 `json:"drug"`
	Timestamp      time.Time              `json:"timestamp"`
	RiskAssessment RiskAssessment         `json:"risk_assessment"`
	Profile        PharmacogenomicProfile `json:"pharmacogenomic_profile"`
	Recommendation ClinicalRecommendation `json:"clinical_recommendation"`
	Explanation    Explanation            `json:"llm_generated_explanation"`
	QualityMetrics QualityMetrics         `json:"quality_metrics"`
}

// BatchReport wraps an ordered list of per-drug reports. Report order always
// matches the requested drug order regardless of evaluation order.
type BatchReport struct {
	PatientID string            `json:"patient_id"`
	Timestamp time.Time         `json:"timestamp"`
	DrugCount int               `json:"drug_count"`
	Analyses  []*AnalysisReport `json:"analyses"`
}
