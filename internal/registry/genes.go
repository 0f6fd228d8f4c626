// Package registry holds the curated pharmacogenomic knowledge base used by
// the analysis pipeline: star-allele definitions keyed by reference-SNP
// identifier, diplotype phenotype tables, allele activity values, and the
// per-drug clinical risk rule table.
//
// Data is compiled from CPIC gene/drug guidelines (cpicpgx.org) and PharmGKB
// allele definition tables. All tables are static package-level values;
// lookups are pure functions and safe for concurrent use.
package registry

import (
	"strings"

	"github.com/pharmaguard-server/internal/domain"
)

// GeneRegion is the genomic interval of a pharmacogene in GRCh38 coordinates.
type GeneRegion struct {
	Chromosome string
	Start      int64
	End        int64
}

// geneRegions is the positional fallback used when a variant record carries
// no recognized identifier and no gene annotation.
var geneRegions = map[domain.Gene]GeneRegion{
	domain.GeneCYP2D6:  {Chromosome: "chr22", Start: 42522500, End: 42526882},
	domain.GeneCYP2C19: {Chromosome: "chr10", Start: 94762681, End: 94855547},
	domain.GeneCYP2C9:  {Chromosome: "chr10", Start: 94938657, End: 94990529},
	domain.GeneSLCO1B1: {Chromosome: "chr12", Start: 21281117, End: 21391780},
	domain.GeneTPMT:    {Chromosome: "chr6", Start: 18128541, End: 18155376},
	domain.GeneDPYD:    {Chromosome: "chr1", Start: 97543299, End: 98388615},
}

// NormalizeChromosome maps bare chromosome names onto the chr-prefixed form
// used by the region table, so "22" and "chr22" compare equal.
func NormalizeChromosome(chrom string) string {
	chrom = strings.TrimSpace(chrom)
	if chrom == "" || strings.HasPrefix(chrom, "chr") {
		return chrom
	}
	return "chr" + chrom
}

// Region returns the GRCh38 locus of a pharmacogene.
func Region(gene domain.Gene) (GeneRegion, bool) {
	r, ok := geneRegions[gene]
	return r, ok
}

// GeneForPosition returns the pharmacogene whose locus contains the given
// coordinate, if any.
func GeneForPosition(chromosome string, position int64) (domain.Gene, bool) {
	norm := NormalizeChromosome(chromosome)
	for _, gene := range domain.Genes() {
		r := geneRegions[gene]
		if norm == r.Chromosome && position >= r.Start && position <= r.End {
			return gene, true
		}
	}
	return "", false
}

// GeneForRSID returns the pharmacogene a defining identifier belongs to.
func GeneForRSID(rsid string) (domain.Gene, bool) {
	def, ok := Definition(rsid)
	if !ok {
		return "", false
	}
	return def.Gene, true
}

// IsPharmacogene reports whether a gene symbol from an annotation field names
// one of the supported pharmacogenes.
func IsPharmacogene(symbol string) (domain.Gene, bool) {
	gene := domain.Gene(strings.ToUpper(strings.TrimSpace(symbol)))
	if gene.IsValid() {
		return gene, true
	}
	return "", false
}
