// Package domain contains core business entities and types for pharmacogenomic
// drug risk assessment following CPIC (Clinical Pharmacogenetics Implementation
// Consortium) guidelines.
//
// Reference: Relling & Klein (2011) CPIC: Clinical Pharmacogenetics Implementation
// Consortium of the Pharmacogenomics Research Network. Clin Pharmacol Ther.
// 89(3):464-7. doi: 10.1038/clpt.2010.279
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Gene represents a pharmacogene tracked by the analysis pipeline.
// The registry is fixed: six genes with CPIC Level A drug guidelines.
type Gene string

const (
	GeneCYP2D6  Gene = "CYP2D6"
	GeneCYP2C19 Gene = "CYP2C19"
	GeneCYP2C9  Gene = "CYP2C9"
	GeneSLCO1B1 Gene = "SLCO1B1"
	GeneTPMT    Gene = "TPMT"
	GeneDPYD    Gene = "DPYD"
)

// Genes lists all tracked pharmacogenes in canonical order.
func Genes() []Gene {
	return []Gene{GeneCYP2D6, GeneCYP2C19, GeneCYP2C9, GeneSLCO1B1, GeneTPMT, GeneDPYD}
}

// IsValid reports whether the gene is part of the fixed pharmacogene registry.
func (g Gene) IsValid() bool {
	switch g {
	case GeneCYP2D6, GeneCYP2C19, GeneCYP2C9, GeneSLCO1B1, GeneTPMT, GeneDPYD:
		return true
	default:
		return false
	}
}

// String returns the HGNC gene symbol.
func (g Gene) String() string {
	return string(g)
}

// Zygosity describes how many chromosome copies carry the alternate allele.
// Values match the VCF genotype semantics of the upstream caller.
type Zygosity string

const (
	ZygosityHomozygousRef Zygosity = "homozygous_ref"
	ZygosityHeterozygous  Zygosity = "heterozygous"
	ZygosityHomozygousAlt Zygosity = "homozygous_alt"
	ZygosityMissing       Zygosity = "missing"
)

// IsValid validates the zygosity value.
func (z Zygosity) IsValid() bool {
	switch z {
	case ZygosityHomozygousRef, ZygosityHeterozygous, ZygosityHomozygousAlt, ZygosityMissing:
		return true
	default:
		return false
	}
}

// AlleleCopies returns how many chromosome copies carry the variant allele.
// A missing genotype is treated as single-copy uncertain evidence rather
// than being dropped, so it stays visible downstream.
func (z Zygosity) AlleleCopies() int {
	switch z {
	case ZygosityHomozygousAlt:
		return 2
	case ZygosityHeterozygous, ZygosityMissing:
		return 1
	default:
		return 0
	}
}

// Phenotype represents the metabolizer phenotype category predicted from a
// diplotype. The vocabulary is closed: five categories, display spelling.
//
// Reference: Caudle et al. (2017) Standardizing terms for clinical
// pharmacogenetic test results. Genet Med. 19(2):215-223.
type Phenotype string

const (
	PhenotypeUltrarapid    Phenotype = "Ultrarapid Metabolizer"
	PhenotypeNormal        Phenotype = "Normal Metabolizer"
	PhenotypeIntermediate  Phenotype = "Intermediate Metabolizer"
	PhenotypePoor          Phenotype = "Poor Metabolizer"
	PhenotypeIndeterminate Phenotype = "Indeterminate"
)

// IsValid validates the phenotype category.
func (p Phenotype) IsValid() bool {
	switch p {
	case PhenotypeUltrarapid, PhenotypeNormal, PhenotypeIntermediate, PhenotypePoor, PhenotypeIndeterminate:
		return true
	default:
		return false
	}
}

// String returns the display spelling used in reports and registry rows.
func (p Phenotype) String() string {
	return string(p)
}

// PhenotypeBasis records which classification path produced a phenotype.
// The risk engine's confidence policy is a function of this path.
type PhenotypeBasis string

const (
	BasisExactDiplotype PhenotypeBasis = "exact_diplotype"
	BasisActivityScore  PhenotypeBasis = "activity_score"
	BasisIndeterminate  PhenotypeBasis = "indeterminate"
)

// Confidence returns the confidence score assigned to risk verdicts derived
// from this classification path: exact table match 0.95, activity-score
// fallback 0.80, indeterminate 0.50.
func (b PhenotypeBasis) Confidence() float64 {
	switch b {
	case BasisExactDiplotype:
		return 0.95
	case BasisActivityScore:
		return 0.80
	case BasisIndeterminate:
		return 0.50
	default:
		return 0.0
	}
}

// RiskLabel represents the drug risk verdict vocabulary.
type RiskLabel string

const (
	RiskLabelSafe         RiskLabel = "Safe"
	RiskLabelAdjustDosage RiskLabel = "Adjust Dosage"
	RiskLabelToxic        RiskLabel = "Toxic"
	RiskLabelIneffective  RiskLabel = "Ineffective"
	RiskLabelUnknown      RiskLabel = "Unknown"
)

// riskLabelRank is the written-out total precedence order used when several
// governing genes produce verdicts for one drug. Higher rank wins.
var riskLabelRank = map[RiskLabel]int{
	RiskLabelToxic:        4,
	RiskLabelIneffective:  3,
	RiskLabelAdjustDosage: 2,
	RiskLabelSafe:         1,
	RiskLabelUnknown:      0,
}

// IsValid validates the risk label.
func (l RiskLabel) IsValid() bool {
	_, ok := riskLabelRank[l]
	return ok
}

// String returns the display spelling used in reports.
func (l RiskLabel) String() string {
	return string(l)
}

// Precedence returns the label's rank in the Toxic > Ineffective >
// Adjust Dosage > Safe > Unknown order. Unlisted labels rank lowest.
func (l RiskLabel) Precedence() int {
	return riskLabelRank[l]
}

// Outranks reports whether l takes precedence over other when resolving
// multi-gene verdicts for one drug.
func (l RiskLabel) Outranks(other RiskLabel) bool {
	return l.Precedence() > other.Precedence()
}

// Severity represents the clinical severity tier of a risk verdict.
// Canonical vocabulary is title-case and applied uniformly across registry
// rows, JSON output, and logs.
type Severity string

const (
	SeverityNone     Severity = "None"
	SeverityLow      Severity = "Low"
	SeverityModerate Severity = "Moderate"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// IsValid validates the severity tier.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityNone, SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// String returns the canonical tier spelling.
func (s Severity) String() string {
	return string(s)
}

// StarAllele names a pharmacogene haplotype, e.g. "*4" or "*1". The reference
// allele is "*1"; AlleleUnknown tags a known variant position carrying an
// unrecognized alternate allele.
type StarAllele string

const (
	AlleleReference StarAllele = "*1"
	AlleleUnknown   StarAllele = "*?"
)

// IsReference reports whether the allele is the reference haplotype.
func (a StarAllele) IsReference() bool {
	return a == AlleleReference
}

// IsUnknown reports whether the allele is the tagged unknown-variant marker.
func (a StarAllele) IsUnknown() bool {
	return a == AlleleUnknown
}

// String returns the star nomenclature name.
func (a StarAllele) String() string {
	return string(a)
}

// VariantCall is one observed genomic difference from reference for a sample.
// Calls are immutable once parsed; the resolver annotates a copy.
type VariantCall struct {
	Chromosome string     `json:"chromosome"`
	Position   int64      `json:"position"`
	RSID       string     `json:"rsid,omitempty"`
	Reference  string     `json:"ref"`
	Alternate  string     `json:"alt"`
	Quality    string     `json:"quality,omitempty"`
	Filter     string     `json:"filter,omitempty"`
	Genotype   string     `json:"genotype"`
	Zygosity   Zygosity   `json:"zygosity"`
	SampleID   string     `json:"sample_id,omitempty"`
	Gene       Gene       `json:"gene,omitempty"`
	StarAllele StarAllele `json:"star_allele,omitempty"`
}

// Validate ensures the call carries the fields the pipeline depends on.
func (v *VariantCall) Validate() error {
	if v.Chromosome == "" {
		return fmt.Errorf("variant call validation: %w", errors.New("chromosome is required"))
	}
	if v.Position <= 0 {
		return fmt.Errorf("variant call validation: %w", errors.New("position must be positive"))
	}
	if !v.Zygosity.IsValid() {
		return fmt.Errorf("variant call validation: %w", ErrInvalidZygosity)
	}
	return nil
}

// Diplotype is the pair of star alleles a sample carries for a gene, one per
// chromosome copy. Exactly two slots; absent variant evidence defaults both
// slots to the reference allele.
type Diplotype struct {
	Gene                 Gene       `json:"gene"`
	Allele1              StarAllele `json:"allele1"`
	Allele2              StarAllele `json:"allele2"`
	CompoundHeterozygote bool       `json:"compound_heterozygote,omitempty"`
}

// ReferenceDiplotype returns the default *1/*1 diplotype for a gene.
func ReferenceDiplotype(gene Gene) Diplotype {
	return Diplotype{Gene: gene, Allele1: AlleleReference, Allele2: AlleleReference}
}

// String renders the diplotype in star nomenclature, e.g. "*1/*4".
func (d Diplotype) String() string {
	return string(d.Allele1) + "/" + string(d.Allele2)
}

// IsReference reports whether both slots carry the reference allele.
func (d Diplotype) IsReference() bool {
	return d.Allele1.IsReference() && d.Allele2.IsReference()
}

// HasUnknownAllele reports whether either slot carries the unknown-variant tag.
func (d Diplotype) HasUnknownAllele() bool {
	return d.Allele1.IsUnknown() || d.Allele2.IsUnknown()
}

// NormalizeDrugName canonicalizes a requested drug name for registry lookup.
// Registry keys are upper-case generic names.
func NormalizeDrugName(drug string) string {
	return strings.ToUpper(strings.TrimSpace(drug))
}
