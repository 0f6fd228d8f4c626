package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-server/internal/domain"
)

// stubExplainer returns a fixed explanation or error and counts invocations.
type stubExplainer struct {
	explanation *domain.Explanation
	err         error
	calls       int
}

func (s *stubExplainer) Explain(_ context.Context, _ domain.ExplanationFacts) (*domain.Explanation, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.explanation, nil
}

// blockingExplainer waits for context cancellation, modelling a hung
// upstream narrative service.
type blockingExplainer struct{}

func (b *blockingExplainer) Explain(ctx context.Context, _ domain.ExplanationFacts) (*domain.Explanation, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func templateStub() *stubExplainer {
	return &stubExplainer{explanation: &domain.Explanation{
		Summary:            "template summary",
		Mechanism:          "template mechanism",
		GuidelineReference: "template guideline",
		Source:             domain.ExplanationSourceTemplate,
	}}
}

func testVariantSet() *domain.VariantSet {
	return &domain.VariantSet{
		SampleID:      "PATIENT_001",
		TotalLines:    10,
		TotalVariants: 3,
		Calls: map[domain.Gene][]domain.VariantCall{
			domain.GeneCYP2C19: {
				{RSID: "rs4244285", Gene: domain.GeneCYP2C19, StarAllele: "*2", Zygosity: domain.ZygosityHomozygousAlt},
			},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func clopidogrelAssessment(t *testing.T) DrugAssessment {
	t.Helper()
	engine := NewRiskRuleEngine(testLogger())
	profile := profileWith(t, diplotypeOf(domain.GeneCYP2C19, "*2", "*2"))
	return engine.Assess("CLOPIDOGREL", profile)
}

func TestReportAssembler_Assemble(t *testing.T) {
	primary := &stubExplainer{explanation: &domain.Explanation{
		Summary: "llm summary",
		Source:  domain.ExplanationSourceLLM,
	}}
	assembler := NewReportAssembler(testLogger(), primary, templateStub(), time.Second)

	report := assembler.Assemble(context.Background(), testVariantSet(), clopidogrelAssessment(t))

	assert.Equal(t, "PATIENT_001", report.PatientID)
	assert.Equal(t, "CLOPIDOGREL", report.Drug)
	assert.Equal(t, domain.RiskLabelIneffective, report.RiskAssessment.RiskLabel)
	assert.Equal(t, "CYP2C19", report.Profile.PrimaryGene)
	assert.Equal(t, "*2/*2", report.Profile.Diplotype)
	assert.Equal(t, domain.PhenotypePoor, report.Profile.Phenotype)
	assert.Equal(t, []string{"Prasugrel", "Ticagrelor"}, report.Recommendation.AlternativeDrugs)
	assert.Equal(t, domain.ExplanationSourceLLM, report.Explanation.Source)
	assert.Equal(t, 1, primary.calls)

	assert.True(t, report.QualityMetrics.VCFParsingSuccess)
	assert.Equal(t, 3, report.QualityMetrics.TotalVariantsParsed)
	assert.Equal(t, 1, report.QualityMetrics.PGxVariantsFound)
	assert.Equal(t, []string{"CYP2C19"}, report.QualityMetrics.GenesWithVariants)
	assert.NotNil(t, report.QualityMetrics.ParseErrors)
}

func TestReportAssembler_FallbackOnExplainerError(t *testing.T) {
	primary := &stubExplainer{err: errors.New("upstream unavailable")}
	fallback := templateStub()
	assembler := NewReportAssembler(testLogger(), primary, fallback, time.Second)

	report := assembler.Assemble(context.Background(), testVariantSet(), clopidogrelAssessment(t))

	assert.Equal(t, domain.ExplanationSourceTemplate, report.Explanation.Source)
	assert.Equal(t, "template summary", report.Explanation.Summary)
	assert.Equal(t, 1, primary.calls, "failed explainer must not be retried")
	assert.Equal(t, 1, fallback.calls)
}

func TestReportAssembler_FallbackOnTimeout(t *testing.T) {
	fallback := templateStub()
	assembler := NewReportAssembler(testLogger(), &blockingExplainer{}, fallback, 20*time.Millisecond)

	start := time.Now()
	report := assembler.Assemble(context.Background(), testVariantSet(), clopidogrelAssessment(t))
	elapsed := time.Since(start)

	assert.Equal(t, domain.ExplanationSourceTemplate, report.Explanation.Source)
	assert.Less(t, elapsed, 5*time.Second, "timeout must bound the explanation call")
}

func TestReportAssembler_NilExplainerUsesTemplate(t *testing.T) {
	fallback := templateStub()
	assembler := NewReportAssembler(testLogger(), nil, fallback, 0)

	report := assembler.Assemble(context.Background(), testVariantSet(), clopidogrelAssessment(t))

	assert.Equal(t, domain.ExplanationSourceTemplate, report.Explanation.Source)
	assert.Equal(t, 1, fallback.calls)
}

func TestReportAssembler_UnknownDrugProfile(t *testing.T) {
	engine := NewRiskRuleEngine(testLogger())
	assembler := NewReportAssembler(testLogger(), nil, templateStub(), time.Second)
	assessment := engine.Assess("aspirin", map[domain.Gene]domain.PhenotypeResult{})

	report := assembler.Assemble(context.Background(), testVariantSet(), assessment)

	assert.Equal(t, "ASPIRIN", report.Drug)
	assert.Equal(t, domain.RiskLabelUnknown, report.RiskAssessment.RiskLabel)
	assert.Zero(t, report.RiskAssessment.ConfidenceScore)
	assert.Equal(t, domain.SeverityNone, report.RiskAssessment.Severity)
	assert.Equal(t, "Unknown", report.Profile.PrimaryGene)
	assert.Equal(t, "Unknown", report.Profile.Diplotype)
	assert.Equal(t, domain.Phenotype("Unknown"), report.Profile.Phenotype)
	assert.Empty(t, report.Profile.DetectedVariants)
	assert.NotNil(t, report.Profile.DetectedVariants)
}

func TestReportAssembler_ParseErrorsPropagate(t *testing.T) {
	set := testVariantSet()
	set.ParseErrors = []string{"line 4: expected at least 8 columns, got 3"}
	assembler := NewReportAssembler(testLogger(), nil, templateStub(), time.Second)

	report := assembler.Assemble(context.Background(), set, clopidogrelAssessment(t))

	assert.False(t, report.QualityMetrics.VCFParsingSuccess)
	require.Len(t, report.QualityMetrics.ParseErrors, 1)
	assert.Contains(t, report.QualityMetrics.ParseErrors[0], "line 4")
}
