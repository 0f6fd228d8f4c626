package service

import (
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/registry"
)

// PhenotypeClassifier assigns a metabolizer phenotype to a diplotype. The
// result is a pure function of the diplotype and the static tables.
type PhenotypeClassifier struct {
	logger *logrus.Logger
}

// NewPhenotypeClassifier creates a new phenotype classifier
func NewPhenotypeClassifier(logger *logrus.Logger) *PhenotypeClassifier {
	return &PhenotypeClassifier{logger: logger}
}

// Classify resolves the phenotype for one gene. The primary path is an exact
// diplotype table match. Diplotypes absent from the table fall back to the
// summed activity score when both alleles carry a registered score; otherwise
// the result is Indeterminate, never a guessed bucket. The basis field
// records which path applied and drives the confidence reported downstream.
func (c *PhenotypeClassifier) Classify(diplotype domain.Diplotype, calls []domain.VariantCall) domain.PhenotypeResult {
	result := domain.PhenotypeResult{
		Gene:             diplotype.Gene,
		Diplotype:        diplotype,
		DetectedVariants: calls,
	}

	if phenotype, ok := registry.PhenotypeForDiplotype(diplotype); ok {
		result.Phenotype = phenotype
		result.Basis = domain.BasisExactDiplotype
		return result
	}

	if score, ok := registry.DiplotypeActivity(diplotype); ok {
		result.Phenotype = registry.PhenotypeForActivity(score)
		result.Basis = domain.BasisActivityScore
		result.ActivityScore = &score
		c.logger.WithFields(logrus.Fields{
			"gene":           diplotype.Gene,
			"diplotype":      diplotype.String(),
			"activity_score": score,
			"phenotype":      result.Phenotype,
		}).Debug("Classified phenotype from activity score")
		return result
	}

	result.Phenotype = domain.PhenotypeIndeterminate
	result.Basis = domain.BasisIndeterminate
	c.logger.WithFields(logrus.Fields{
		"gene":      diplotype.Gene,
		"diplotype": diplotype.String(),
	}).Debug("Diplotype not classifiable, marking indeterminate")
	return result
}
