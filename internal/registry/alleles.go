package registry

import "github.com/pharmaguard-server/internal/domain"

// AlleleDefinition ties a defining reference-SNP identifier to the star
// allele it tags on a pharmacogene.
type AlleleDefinition struct {
	RSID   string
	Gene   domain.Gene
	Allele domain.StarAllele

	// Alt is the alternate base that defines the allele. Empty means any
	// non-reference alternate is accepted, used for indel-defined alleles
	// whose VCF representation varies between callers.
	Alt string
}

// MatchesAlt reports whether an observed alternate value matches the
// defining base. Multi-allelic records match when any listed alternate does.
func (d AlleleDefinition) MatchesAlt(alt string) bool {
	if d.Alt == "" {
		return alt != "" && alt != "."
	}
	for _, candidate := range splitAlternates(alt) {
		if candidate == d.Alt {
			return true
		}
	}
	return false
}

func splitAlternates(alt string) []string {
	if alt == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(alt); i++ {
		if i == len(alt) || alt[i] == ',' {
			if i > start {
				out = append(out, alt[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// alleleDefinitions is the defining-variant table. One row per identifier;
// haplotypes defined by multiple variants (e.g. TPMT*3A) are not composed
// here, their component alleles are reported instead.
var alleleDefinitions = map[string]AlleleDefinition{
	// CYP2D6
	"rs3892097":  {RSID: "rs3892097", Gene: domain.GeneCYP2D6, Allele: "*4", Alt: "A"},
	"rs5030655":  {RSID: "rs5030655", Gene: domain.GeneCYP2D6, Allele: "*6"}, // 1707delT
	"rs16947":    {RSID: "rs16947", Gene: domain.GeneCYP2D6, Allele: "*2", Alt: "A"},
	"rs1065852":  {RSID: "rs1065852", Gene: domain.GeneCYP2D6, Allele: "*10", Alt: "A"},
	"rs28371706": {RSID: "rs28371706", Gene: domain.GeneCYP2D6, Allele: "*41", Alt: "A"},
	"rs35742686": {RSID: "rs35742686", Gene: domain.GeneCYP2D6, Allele: "*3"}, // 2549delA

	// CYP2C19
	"rs4244285":  {RSID: "rs4244285", Gene: domain.GeneCYP2C19, Allele: "*2", Alt: "A"},
	"rs4986893":  {RSID: "rs4986893", Gene: domain.GeneCYP2C19, Allele: "*3", Alt: "A"},
	"rs12248560": {RSID: "rs12248560", Gene: domain.GeneCYP2C19, Allele: "*17", Alt: "T"},
	"rs28399504": {RSID: "rs28399504", Gene: domain.GeneCYP2C19, Allele: "*4", Alt: "G"},

	// CYP2C9
	"rs1799853":  {RSID: "rs1799853", Gene: domain.GeneCYP2C9, Allele: "*2", Alt: "T"},
	"rs1057910":  {RSID: "rs1057910", Gene: domain.GeneCYP2C9, Allele: "*3", Alt: "C"},
	"rs28371686": {RSID: "rs28371686", Gene: domain.GeneCYP2C9, Allele: "*5", Alt: "G"},
	"rs7900194":  {RSID: "rs7900194", Gene: domain.GeneCYP2C9, Allele: "*6", Alt: "A"},

	// SLCO1B1
	"rs4149056": {RSID: "rs4149056", Gene: domain.GeneSLCO1B1, Allele: "*5", Alt: "C"},
	"rs2306283": {RSID: "rs2306283", Gene: domain.GeneSLCO1B1, Allele: "*1b", Alt: "G"},

	// TPMT
	"rs1800462": {RSID: "rs1800462", Gene: domain.GeneTPMT, Allele: "*2", Alt: "G"},
	"rs1800460": {RSID: "rs1800460", Gene: domain.GeneTPMT, Allele: "*3B", Alt: "T"},
	"rs1142345": {RSID: "rs1142345", Gene: domain.GeneTPMT, Allele: "*3C", Alt: "G"},
	"rs1800584": {RSID: "rs1800584", Gene: domain.GeneTPMT, Allele: "*4", Alt: "A"},

	// DPYD
	"rs3918290":  {RSID: "rs3918290", Gene: domain.GeneDPYD, Allele: "*2A", Alt: "T"},
	"rs55886062": {RSID: "rs55886062", Gene: domain.GeneDPYD, Allele: "*13", Alt: "C"},
	"rs67376798": {RSID: "rs67376798", Gene: domain.GeneDPYD, Allele: "c.2846A>T", Alt: "A"},
	"rs75017182": {RSID: "rs75017182", Gene: domain.GeneDPYD, Allele: "HapB3", Alt: "C"},
}

// Definition returns the allele definition for a reference-SNP identifier.
func Definition(rsid string) (AlleleDefinition, bool) {
	def, ok := alleleDefinitions[rsid]
	return def, ok
}

// RSIDGeneMap returns the identifier-to-gene mapping for every defining
// variant the registry tracks.
func RSIDGeneMap() map[string]string {
	out := make(map[string]string, len(alleleDefinitions))
	for rsid, def := range alleleDefinitions {
		out[rsid] = def.Gene.String()
	}
	return out
}

// activityScores carries CPIC activity values where the guideline assigns
// them. Genes classified purely by diplotype table rows have no entries;
// unscored alleles make the activity fallback unavailable and the
// classification falls through to indeterminate.
var activityScores = map[domain.Gene]map[domain.StarAllele]float64{
	domain.GeneCYP2D6: {
		"*1": 1.0, "*2": 1.0,
		"*10": 0.25, "*17": 0.5, "*41": 0.5,
		"*3": 0.0, "*4": 0.0, "*5": 0.0, "*6": 0.0, "*7": 0.0, "*8": 0.0, "*29": 0.0,
		"*1xN": 2.0, "*2xN": 2.0,
	},
	domain.GeneCYP2C9: {
		"*1": 1.0,
		"*2": 0.5, "*11": 0.5,
		"*3": 0.0, "*5": 0.0, "*6": 0.0,
	},
}

// ActivityScore returns the CPIC activity value assigned to an allele.
func ActivityScore(gene domain.Gene, allele domain.StarAllele) (float64, bool) {
	scores, ok := activityScores[gene]
	if !ok {
		return 0, false
	}
	v, ok := scores[allele]
	return v, ok
}

// DiplotypeActivity sums the activity values of both alleles. The second
// return is false when either allele carries no registered value, including
// the unknown-variant tag.
func DiplotypeActivity(d domain.Diplotype) (float64, bool) {
	a1, ok1 := ActivityScore(d.Gene, d.Allele1)
	a2, ok2 := ActivityScore(d.Gene, d.Allele2)
	if !ok1 || !ok2 {
		return 0, false
	}
	return a1 + a2, true
}
