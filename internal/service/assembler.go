package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
)

const defaultExplainTimeout = 10 * time.Second

// ReportAssembler combines parser quality metrics, the winning gene profile,
// and the risk verdict into the documented report shape. The narrative
// section is produced by the configured explainer under a bounded timeout;
// any failure is absorbed synchronously by the deterministic template
// fallback so the report schema is always complete.
type ReportAssembler struct {
	logger         *logrus.Logger
	explainer      domain.Explainer
	fallback       domain.Explainer
	explainTimeout time.Duration
}

// NewReportAssembler creates a report assembler. explainer may be nil, in
// which case every report uses the template fallback. fallback must be the
// deterministic template explainer and is required.
func NewReportAssembler(logger *logrus.Logger, explainer, fallback domain.Explainer, explainTimeout time.Duration) *ReportAssembler {
	if explainTimeout <= 0 {
		explainTimeout = defaultExplainTimeout
	}
	return &ReportAssembler{
		logger:         logger,
		explainer:      explainer,
		fallback:       fallback,
		explainTimeout: explainTimeout,
	}
}

// Assemble builds the per-drug report from one parsed variant set and one
// drug assessment.
func (a *ReportAssembler) Assemble(ctx context.Context, set *domain.VariantSet, assessment DrugAssessment) *domain.AnalysisReport {
	profile := a.profileSection(assessment)
	facts := explanationFacts(assessment, profile)

	return &domain.AnalysisReport{
		PatientID:      set.SampleID,
		Drug:           assessment.Drug,
		Timestamp:      time.Now().UTC(),
		RiskAssessment: assessment.Assessment,
		Profile:        profile,
		Recommendation: recommendationSection(assessment.Rule.Action, assessment.Rule.AlternativeDrugs, assessment.Rule.DoseAdjustment, assessment.Rule.Monitoring),
		Explanation:    a.explanation(ctx, facts),
		QualityMetrics: qualityMetrics(set),
	}
}

// profileSection renders the genetic evidence behind the verdict. Drugs
// outside the registry consulted no gene, so every field reads Unknown.
func (a *ReportAssembler) profileSection(assessment DrugAssessment) domain.PharmacogenomicProfile {
	if !assessment.Supported {
		return domain.PharmacogenomicProfile{
			PrimaryGene:      "Unknown",
			Diplotype:        "Unknown",
			Phenotype:        "Unknown",
			DetectedVariants: []domain.VariantCall{},
		}
	}

	variants := assessment.Result.DetectedVariants
	if variants == nil {
		variants = []domain.VariantCall{}
	}

	return domain.PharmacogenomicProfile{
		PrimaryGene:      assessment.Gene.String(),
		Diplotype:        assessment.Result.Diplotype.String(),
		Phenotype:        assessment.Result.Phenotype,
		DetectedVariants: variants,
	}
}

func recommendationSection(action string, alternatives []string, doseAdjustment, monitoring string) domain.ClinicalRecommendation {
	alt := make([]string, len(alternatives))
	copy(alt, alternatives)
	return domain.ClinicalRecommendation{
		Action:           action,
		AlternativeDrugs: alt,
		DoseAdjustment:   doseAdjustment,
		Monitoring:       monitoring,
	}
}

func explanationFacts(assessment DrugAssessment, profile domain.PharmacogenomicProfile) domain.ExplanationFacts {
	rsids := make([]string, 0, len(profile.DetectedVariants))
	for _, call := range profile.DetectedVariants {
		if call.RSID != "" {
			rsids = append(rsids, call.RSID)
		}
	}

	return domain.ExplanationFacts{
		Drug:             assessment.Drug,
		Gene:             domain.Gene(profile.PrimaryGene),
		Diplotype:        profile.Diplotype,
		Phenotype:        profile.Phenotype,
		RiskLabel:        assessment.Assessment.RiskLabel,
		Action:           assessment.Rule.Action,
		Guideline:        assessment.Rule.Guideline,
		DetectedVariants: rsids,
	}
}

// explanation runs the configured explainer under the bounded timeout and
// substitutes the template fallback on any failure. The fallback runs on the
// caller's context and never fails; there is no retry of the primary path.
func (a *ReportAssembler) explanation(ctx context.Context, facts domain.ExplanationFacts) domain.Explanation {
	if a.explainer != nil {
		explainCtx, cancel := context.WithTimeout(ctx, a.explainTimeout)
		explanation, err := a.explainer.Explain(explainCtx, facts)
		cancel()
		if err == nil && explanation != nil {
			return *explanation
		}
		a.logger.WithError(err).WithFields(logrus.Fields{
			"drug": facts.Drug,
			"gene": facts.Gene,
		}).Warn("Explanation generation failed, using template fallback")
	}

	explanation, err := a.fallback.Explain(ctx, facts)
	if err != nil || explanation == nil {
		return domain.Explanation{Source: domain.ExplanationSourceTemplate}
	}
	return *explanation
}

func qualityMetrics(set *domain.VariantSet) domain.QualityMetrics {
	parseErrors := set.ParseErrors
	if parseErrors == nil {
		parseErrors = []string{}
	}
	return domain.QualityMetrics{
		VCFParsingSuccess:   len(set.ParseErrors) == 0,
		TotalVariantsParsed: set.TotalVariants,
		PGxVariantsFound:    set.PGxVariantCount(),
		ParseErrors:         parseErrors,
		GenesWithVariants:   set.GenesWithVariants(),
	}
}
