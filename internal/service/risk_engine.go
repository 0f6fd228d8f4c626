package service

import (
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/registry"
)

// DrugAssessment couples the risk verdict for one drug with the rule and the
// gene evidence that produced it. Supported is false for drugs absent from
// the registry, in which case Gene and Result are zero valued.
type DrugAssessment struct {
	Drug       string
	Supported  bool
	Gene       domain.Gene
	Result     domain.PhenotypeResult
	Rule       registry.DrugRule
	Assessment domain.RiskAssessment
}

// RiskRuleEngine evaluates the drug risk rule table against a per-gene
// phenotype profile.
type RiskRuleEngine struct {
	logger *logrus.Logger
}

// NewRiskRuleEngine creates a new risk rule engine
func NewRiskRuleEngine(logger *logrus.Logger) *RiskRuleEngine {
	return &RiskRuleEngine{logger: logger}
}

// Assess resolves the risk verdict for one drug. Drugs absent from the
// registry return label Unknown with confidence zero and severity None, and
// no gene lookup is attempted. For registered drugs every governing gene is
// evaluated against the rule table, with the designed safe default covering
// phenotypes that match no curated row. When several genes apply, the
// verdict with the highest label precedence wins; ties on label keep the
// higher confidence.
func (e *RiskRuleEngine) Assess(drug string, profile map[domain.Gene]domain.PhenotypeResult) DrugAssessment {
	normalized := domain.NormalizeDrugName(drug)

	genes, ok := registry.GenesForDrug(normalized)
	if !ok {
		rule := registry.UnknownDrugRule(normalized)
		e.logger.WithField("drug", normalized).Info("Drug not in registry, returning unknown risk")
		return DrugAssessment{
			Drug: normalized,
			Rule: rule,
			Assessment: domain.RiskAssessment{
				RiskLabel:       rule.RiskLabel,
				ConfidenceScore: 0.0,
				Severity:        rule.Severity,
			},
		}
	}

	var best DrugAssessment
	for i, gene := range genes {
		candidate := e.assessGene(normalized, gene, profile)
		if i == 0 || outranks(candidate, best) {
			best = candidate
		}
	}

	e.logger.WithFields(logrus.Fields{
		"drug":       normalized,
		"gene":       best.Gene,
		"phenotype":  best.Result.Phenotype,
		"risk_label": best.Assessment.RiskLabel,
		"confidence": best.Assessment.ConfidenceScore,
	}).Info("Assessed drug risk")

	return best
}

// assessGene evaluates one governing gene. A gene missing from the profile
// is treated as the reference diplotype so registered drugs always get the
// baseline rule rather than Unknown.
func (e *RiskRuleEngine) assessGene(drug string, gene domain.Gene, profile map[domain.Gene]domain.PhenotypeResult) DrugAssessment {
	result, ok := profile[gene]
	if !ok {
		result = referenceResult(gene)
	}

	rule, ok := registry.RuleFor(drug, gene, result.Phenotype)
	if !ok {
		rule = registry.DefaultRule(drug, gene, result.Phenotype)
	}

	return DrugAssessment{
		Drug:      drug,
		Supported: true,
		Gene:      gene,
		Result:    result,
		Rule:      rule,
		Assessment: domain.RiskAssessment{
			RiskLabel:       rule.RiskLabel,
			ConfidenceScore: result.Basis.Confidence(),
			Severity:        rule.Severity,
		},
	}
}

// outranks reports whether candidate a should replace b as the winning
// verdict: higher label precedence first, then higher confidence.
func outranks(a, b DrugAssessment) bool {
	if a.Assessment.RiskLabel.Precedence() != b.Assessment.RiskLabel.Precedence() {
		return a.Assessment.RiskLabel.Outranks(b.Assessment.RiskLabel)
	}
	return a.Assessment.ConfidenceScore > b.Assessment.ConfidenceScore
}

func referenceResult(gene domain.Gene) domain.PhenotypeResult {
	diplotype := domain.ReferenceDiplotype(gene)
	phenotype, ok := registry.PhenotypeForDiplotype(diplotype)
	if !ok {
		phenotype = domain.PhenotypeNormal
	}
	return domain.PhenotypeResult{
		Gene:      gene,
		Diplotype: diplotype,
		Phenotype: phenotype,
		Basis:     domain.BasisExactDiplotype,
	}
}
