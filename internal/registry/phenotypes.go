package registry

import "github.com/pharmaguard-server/internal/domain"

// diplotypePhenotypes holds the curated diplotype rows per gene. Keys use
// star nomenclature "a/b". Lookups try both allele orders, so each pair
// appears once. SLCO1B1 transporter function and CYP2C19 rapid metabolizer
// status are expressed on the shared five-category metabolizer scale.
var diplotypePhenotypes = map[domain.Gene]map[string]domain.Phenotype{
	domain.GeneCYP2D6: {
		"*1/*1":   domain.PhenotypeNormal,
		"*1/*2":   domain.PhenotypeNormal,
		"*2/*2":   domain.PhenotypeNormal,
		"*1/*4":   domain.PhenotypeIntermediate,
		"*1/*5":   domain.PhenotypeIntermediate,
		"*1/*10":  domain.PhenotypeIntermediate,
		"*1/*41":  domain.PhenotypeIntermediate,
		"*4/*10":  domain.PhenotypeIntermediate,
		"*10/*10": domain.PhenotypeIntermediate,
		"*41/*41": domain.PhenotypeIntermediate,
		"*4/*4":   domain.PhenotypePoor,
		"*4/*5":   domain.PhenotypePoor,
		"*3/*4":   domain.PhenotypePoor,
		"*5/*5":   domain.PhenotypePoor,
		"*3/*5":   domain.PhenotypePoor,
		"*6/*6":   domain.PhenotypePoor,
		"*1/*1xN": domain.PhenotypeUltrarapid,
		"*2/*2xN": domain.PhenotypeUltrarapid,
		"*1/*2xN": domain.PhenotypeUltrarapid,
	},
	domain.GeneCYP2C19: {
		"*1/*1":   domain.PhenotypeNormal,
		"*1/*17":  domain.PhenotypeUltrarapid,
		"*17/*17": domain.PhenotypeUltrarapid,
		"*1/*2":   domain.PhenotypeIntermediate,
		"*1/*3":   domain.PhenotypeIntermediate,
		"*2/*17":  domain.PhenotypeIntermediate,
		"*1/*4":   domain.PhenotypeIntermediate,
		"*2/*2":   domain.PhenotypePoor,
		"*2/*3":   domain.PhenotypePoor,
		"*3/*3":   domain.PhenotypePoor,
		"*2/*4":   domain.PhenotypePoor,
	},
	domain.GeneCYP2C9: {
		"*1/*1": domain.PhenotypeNormal,
		"*1/*2": domain.PhenotypeIntermediate,
		"*1/*3": domain.PhenotypeIntermediate,
		"*2/*2": domain.PhenotypeIntermediate,
		"*1/*5": domain.PhenotypeIntermediate,
		"*1/*6": domain.PhenotypeIntermediate,
		"*2/*3": domain.PhenotypePoor,
		"*3/*3": domain.PhenotypePoor,
	},
	domain.GeneSLCO1B1: {
		"*1/*1":   domain.PhenotypeNormal,
		"*1/*1b":  domain.PhenotypeNormal,
		"*1b/*1b": domain.PhenotypeNormal,
		"*1/*5":   domain.PhenotypeIntermediate,
		"*1b/*5":  domain.PhenotypeIntermediate,
		"*5/*5":   domain.PhenotypePoor,
		"*5/*15":  domain.PhenotypePoor,
		"*15/*15": domain.PhenotypePoor,
	},
	domain.GeneTPMT: {
		"*1/*1":   domain.PhenotypeNormal,
		"*1/*2":   domain.PhenotypeIntermediate,
		"*1/*3A":  domain.PhenotypeIntermediate,
		"*1/*3B":  domain.PhenotypeIntermediate,
		"*1/*3C":  domain.PhenotypeIntermediate,
		"*1/*4":   domain.PhenotypeIntermediate,
		"*2/*2":   domain.PhenotypePoor,
		"*2/*3A":  domain.PhenotypePoor,
		"*3A/*3A": domain.PhenotypePoor,
		"*3B/*3B": domain.PhenotypePoor,
		"*3B/*3C": domain.PhenotypePoor,
		"*3C/*3C": domain.PhenotypePoor,
		"*4/*4":   domain.PhenotypePoor,
	},
	domain.GeneDPYD: {
		"*1/*1":       domain.PhenotypeNormal,
		"*1/*2A":      domain.PhenotypeIntermediate,
		"*1/*13":      domain.PhenotypeIntermediate,
		"*1/HapB3":    domain.PhenotypeIntermediate,
		"HapB3/HapB3": domain.PhenotypeIntermediate,
		"*2A/*2A":     domain.PhenotypePoor,
		"*2A/*13":     domain.PhenotypePoor,
		"*13/*13":     domain.PhenotypePoor,

		"*1/c.2846A>T":        domain.PhenotypeIntermediate,
		"c.2846A>T/c.2846A>T": domain.PhenotypeIntermediate,
		"*2A/c.2846A>T":       domain.PhenotypePoor,
	},
}

// PhenotypeForDiplotype returns the curated phenotype for a diplotype,
// trying both allele orders. ok is false when the pair has no table row.
func PhenotypeForDiplotype(d domain.Diplotype) (domain.Phenotype, bool) {
	table, ok := diplotypePhenotypes[d.Gene]
	if !ok {
		return domain.PhenotypeIndeterminate, false
	}
	if p, ok := table[d.String()]; ok {
		return p, true
	}
	swapped := domain.Diplotype{Gene: d.Gene, Allele1: d.Allele2, Allele2: d.Allele1}
	if p, ok := table[swapped.String()]; ok {
		return p, true
	}
	return domain.PhenotypeIndeterminate, false
}

// PhenotypeForActivity buckets a summed diplotype activity score onto the
// metabolizer scale. Cutoffs are uniform across genes: zero is poor, below
// 1.25 intermediate, up to 2.25 inclusive normal, above that ultrarapid.
func PhenotypeForActivity(score float64) domain.Phenotype {
	switch {
	case score <= 0:
		return domain.PhenotypePoor
	case score < 1.25:
		return domain.PhenotypeIntermediate
	case score <= 2.25:
		return domain.PhenotypeNormal
	default:
		return domain.PhenotypeUltrarapid
	}
}
