package service

import (
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
)

// DiplotypeComposer combines the resolved star alleles of one gene into a
// two-allele diplotype.
type DiplotypeComposer struct {
	logger *logrus.Logger
}

// NewDiplotypeComposer creates a new diplotype composer
func NewDiplotypeComposer(logger *logrus.Logger) *DiplotypeComposer {
	return &DiplotypeComposer{logger: logger}
}

// Compose builds the diplotype for one gene. Each resolved allele occupies
// as many slots as its copy count, in call order. No variant alleles yields
// the reference diplotype; a single variant allele pairs with reference; with
// two or more, the first two slots are kept and ordered lexicographically.
// A pair of two distinct non-reference alleles is flagged as compound
// heterozygous so downstream consumers never mistake it for a single-variant
// carrier.
func (c *DiplotypeComposer) Compose(gene domain.Gene, resolved []ResolvedAllele) domain.Diplotype {
	alleles := make([]domain.StarAllele, 0, len(resolved)*2)
	for _, r := range resolved {
		for i := 0; i < r.Copies; i++ {
			alleles = append(alleles, r.Allele)
		}
	}

	switch len(alleles) {
	case 0:
		return domain.ReferenceDiplotype(gene)
	case 1:
		return domain.Diplotype{
			Gene:    gene,
			Allele1: domain.AlleleReference,
			Allele2: alleles[0],
		}
	}

	first, second := alleles[0], alleles[1]
	if second < first {
		first, second = second, first
	}

	diplotype := domain.Diplotype{
		Gene:                 gene,
		Allele1:              first,
		Allele2:              second,
		CompoundHeterozygote: first != second && !first.IsReference() && !second.IsReference(),
	}

	if diplotype.CompoundHeterozygote {
		c.logger.WithFields(logrus.Fields{
			"gene":      gene,
			"diplotype": diplotype.String(),
		}).Debug("Detected compound heterozygous diplotype")
	}

	return diplotype
}
