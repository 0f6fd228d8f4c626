package service

import (
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/registry"
)

// ResolvedAllele is one star allele observed in a sample together with the
// number of chromosome copies carrying it.
type ResolvedAllele struct {
	Allele domain.StarAllele  `json:"allele"`
	Copies int                `json:"copies"`
	Call   domain.VariantCall `json:"call"`
}

// AlleleResolver maps variant calls to named star alleles using the static
// allele registry.
type AlleleResolver struct {
	logger *logrus.Logger
}

// NewAlleleResolver creates a new allele resolver
func NewAlleleResolver(logger *logrus.Logger) *AlleleResolver {
	return &AlleleResolver{logger: logger}
}

// Resolve maps each call for one gene to a star allele with a copy count
// taken from zygosity. Calls already annotated by the parser keep their
// allele; unannotated calls are matched by rsID and alternate against the
// registry, with unrecognized alternates tagged as unknown variants rather
// than dropped. Homozygous-reference calls contribute no copies and are
// omitted.
func (r *AlleleResolver) Resolve(gene domain.Gene, calls []domain.VariantCall) []ResolvedAllele {
	resolved := make([]ResolvedAllele, 0, len(calls))

	for _, call := range calls {
		copies := call.Zygosity.AlleleCopies()
		if copies == 0 {
			continue
		}

		allele := call.StarAllele
		if allele == "" {
			allele = lookupAllele(gene, call)
		}

		resolved = append(resolved, ResolvedAllele{
			Allele: allele,
			Copies: copies,
			Call:   call,
		})
	}

	if len(resolved) > 0 {
		r.logger.WithFields(logrus.Fields{
			"gene":    gene,
			"calls":   len(calls),
			"alleles": len(resolved),
		}).Debug("Resolved star alleles")
	}

	return resolved
}

func lookupAllele(gene domain.Gene, call domain.VariantCall) domain.StarAllele {
	def, ok := registry.Definition(call.RSID)
	if !ok || def.Gene != gene {
		return domain.AlleleUnknown
	}
	if def.MatchesAlt(call.Alternate) {
		return def.Allele
	}
	return domain.AlleleUnknown
}
