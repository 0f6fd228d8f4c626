package explain

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

func clopidogrelFacts() domain.ExplanationFacts {
	return domain.ExplanationFacts{
		Drug:             "clopidogrel",
		Gene:             domain.GeneCYP2C19,
		Diplotype:        "*2/*2",
		Phenotype:        domain.PhenotypePoor,
		RiskLabel:        domain.RiskLabelIneffective,
		Action:           "Use alternative antiplatelet therapy.",
		Guideline:        "CPIC Guideline for Clopidogrel and CYP2C19",
		DetectedVariants: []string{"rs4244285", "rs4986893"},
	}
}

func TestTemplateExplainer_Explain(t *testing.T) {
	explainer := NewTemplateExplainer()

	t.Run("clopidogrel poor metabolizer summary", func(t *testing.T) {
		explanation, err := explainer.Explain(context.Background(), clopidogrelFacts())
		require.NoError(t, err)

		expected := "This patient's CYP2C19 genotype (*2/*2) is classified as Poor Metabolizer. " +
			"Detected pharmacogenomic variants: rs4244285, rs4986893. " +
			"For CLOPIDOGREL, this phenotype predicts predicted drug INEFFECTIVENESS due to pharmacogenomic factors. " +
			"Use alternative antiplatelet therapy."
		assert.Equal(t, expected, explanation.Summary)
		assert.Equal(t, domain.ExplanationSourceTemplate, explanation.Source)
	})

	t.Run("mechanism includes dosing implication", func(t *testing.T) {
		explanation, err := explainer.Explain(context.Background(), clopidogrelFacts())
		require.NoError(t, err)

		assert.Contains(t, explanation.Mechanism, "Homozygous CYP2C19 loss-of-function variants")
		assert.Contains(t, explanation.Mechanism, "\n\nDosing Implication: Switch to prasugrel 10mg/day or ticagrelor 90mg BID.")
	})

	t.Run("guideline reference extends known guideline", func(t *testing.T) {
		explanation, err := explainer.Explain(context.Background(), clopidogrelFacts())
		require.NoError(t, err)

		assert.Equal(t,
			"CPIC Guideline for Clopidogrel and CYP2C19. Full prescribing guidance at cpicpgx.org and PharmGKB.",
			explanation.GuidelineReference)
	})

	t.Run("wildtype renders assumed reference text", func(t *testing.T) {
		facts := domain.ExplanationFacts{
			Drug:      "codeine",
			Gene:      domain.GeneCYP2D6,
			Diplotype: "*1/*1",
			Phenotype: domain.PhenotypeNormal,
			RiskLabel: domain.RiskLabelSafe,
			Action:    "Use label-recommended dosing.",
			Guideline: "CPIC Guideline for Codeine and CYP2D6",
		}

		explanation, err := explainer.Explain(context.Background(), facts)
		require.NoError(t, err)

		assert.Contains(t, explanation.Summary, "Detected pharmacogenomic variants: no pathogenic variants (wildtype assumed).")
		assert.Contains(t, explanation.Summary, "predicts no clinically significant pharmacogenomic risk")
		assert.Contains(t, explanation.Mechanism, "Two functional CYP2D6 alleles")
		assert.Contains(t, explanation.Mechanism, "Standard codeine 30-60mg every 4-6 hours.")
	})

	t.Run("unsupported drug falls back everywhere", func(t *testing.T) {
		facts := domain.ExplanationFacts{
			Drug:      "Ibuprofen",
			Gene:      domain.Gene("Unknown"),
			Diplotype: "Unknown",
			Phenotype: domain.Phenotype("Unknown"),
			RiskLabel: domain.RiskLabelUnknown,
			Action:    "No pharmacogenomic guideline available for IBUPROFEN. Use standard prescribing information.",
			Guideline: "No CPIC/DPWG guideline available",
		}

		explanation, err := explainer.Explain(context.Background(), facts)
		require.NoError(t, err)

		assert.Contains(t, explanation.Summary, "predicts an UNKNOWN pharmacogenomic risk profile")
		assert.Equal(t, "Unknown activity is altered, affecting IBUPROFEN pharmacokinetics.", explanation.Mechanism)
		assert.Equal(t,
			"No specific CPIC guideline for IBUPROFEN. Consult FDA Pharmacogenomic Biomarkers table.",
			explanation.GuidelineReference)
	})

	t.Run("transporter phenotypes map to curated texts", func(t *testing.T) {
		facts := domain.ExplanationFacts{
			Drug:      "simvastatin",
			Gene:      domain.GeneSLCO1B1,
			Diplotype: "*5/*5",
			Phenotype: domain.PhenotypePoor,
			RiskLabel: domain.RiskLabelToxic,
			Action:    "Avoid simvastatin.",
			Guideline: "CPIC Guideline for Simvastatin and SLCO1B1",
		}

		explanation, err := explainer.Explain(context.Background(), facts)
		require.NoError(t, err)

		assert.Contains(t, explanation.Mechanism, "OATP1B1")
		assert.Contains(t, explanation.Mechanism, "Dosing Implication: Avoid simvastatin. Use pravastatin 40mg or rosuvastatin 10-20mg instead.")
	})

	t.Run("curated mechanism exists for every panel gene", func(t *testing.T) {
		for _, gene := range domain.Genes() {
			for _, phenotype := range []domain.Phenotype{domain.PhenotypePoor, domain.PhenotypeIntermediate, domain.PhenotypeNormal} {
				facts := domain.ExplanationFacts{
					Drug:      "warfarin",
					Gene:      gene,
					Diplotype: "*1/*1",
					Phenotype: phenotype,
					RiskLabel: domain.RiskLabelSafe,
					Action:    "Use label-recommended dosing.",
				}

				explanation, err := explainer.Explain(context.Background(), facts)
				require.NoError(t, err)
				assert.NotContains(t, explanation.Mechanism, "activity is altered",
					"gene %s phenotype %s should have a curated mechanism", gene, phenotype)
			}
		}
	})
}

func TestTemplateExplainer_Deterministic(t *testing.T) {
	explainer := NewTemplateExplainer()
	facts := clopidogrelFacts()

	first, err := explainer.Explain(context.Background(), facts)
	require.NoError(t, err)
	second, err := explainer.Explain(context.Background(), facts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
