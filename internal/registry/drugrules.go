package registry

import (
	"fmt"
	"sort"

	"github.com/pharmaguard-server/internal/domain"
)

// DrugRule is one row of the clinical risk rule table: the verdict and
// recommendation for a (drug, gene, phenotype) combination. Guideline names
// the CPIC/DPWG/FDA source the row is derived from. Confidence is not part
// of the row; the risk engine derives it from the classification path.
type DrugRule struct {
	Drug             string
	Gene             domain.Gene
	Phenotype        domain.Phenotype
	RiskLabel        domain.RiskLabel
	Severity         domain.Severity
	Action           string
	AlternativeDrugs []string
	DoseAdjustment   string
	Monitoring       string
	Guideline        string
}

const (
	guidelineCodeine          = "CPIC guideline for codeine and CYP2D6 (2014, updated 2022)"
	guidelineTramadol         = "CPIC guideline for tramadol and CYP2D6 (2021)"
	guidelineWarfarin         = "CPIC guideline for warfarin, CYP2C9, VKORC1, CYP4F2 (2017)"
	guidelinePhenytoin        = "CPIC guideline for phenytoin and CYP2C9, HLA-B (2020)"
	guidelineClopidogrel      = "CPIC guideline for clopidogrel and CYP2C19 (2013, updated 2022)"
	guidelineStatins          = "CPIC guideline for statins and SLCO1B1, ABCG2, CYP2C9 (2022)"
	guidelineStatinsSLCO1B1   = "CPIC guideline for statins and SLCO1B1 (2022)"
	guidelineThiopurines      = "CPIC guideline for thiopurines and TPMT, NUDT15 (2018, updated 2021)"
	guidelineFluoropyrimidine = "CPIC guideline for fluoropyrimidines and DPYD (2017, updated 2022)"
	guidelineTricyclics       = "CPIC guideline for tricyclic antidepressants and CYP2D6, CYP2C19 (2016)"
	guidelineSSRIs            = "CPIC guideline for SSRIs and CYP2C19 (2015)"
)

// drugGenes orders each drug's governing genes by evaluation precedence.
// Most drugs are governed by a single pharmacogene; tricyclics consult two.
var drugGenes = map[string][]domain.Gene{
	"CODEINE":        {domain.GeneCYP2D6},
	"TRAMADOL":       {domain.GeneCYP2D6},
	"WARFARIN":       {domain.GeneCYP2C9},
	"PHENYTOIN":      {domain.GeneCYP2C9},
	"CLOPIDOGREL":    {domain.GeneCYP2C19},
	"SIMVASTATIN":    {domain.GeneSLCO1B1},
	"ATORVASTATIN":   {domain.GeneSLCO1B1},
	"AZATHIOPRINE":   {domain.GeneTPMT},
	"MERCAPTOPURINE": {domain.GeneTPMT},
	"THIOGUANINE":    {domain.GeneTPMT},
	"FLUOROURACIL":   {domain.GeneDPYD},
	"CAPECITABINE":   {domain.GeneDPYD},
	"AMITRIPTYLINE":  {domain.GeneCYP2D6, domain.GeneCYP2C19},
	"CITALOPRAM":     {domain.GeneCYP2C19},
}

// drugRules enumerates every curated row. Multi-phenotype guideline
// statements are expanded to one row per phenotype so the index stays a
// plain composite-key lookup.
var drugRules = []DrugRule{
	// Opioids.
	{
		Drug: "CODEINE", Gene: domain.GeneCYP2D6, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelIneffective, Severity: domain.SeverityModerate,
		Action:           "Use alternative opioid (morphine, hydromorphone, oxycodone). Codeine will not be converted to active morphine.",
		AlternativeDrugs: []string{"Morphine", "Hydromorphone", "Oxycodone"},
		Guideline:        guidelineCodeine,
	},
	{
		Drug: "CODEINE", Gene: domain.GeneCYP2D6, Phenotype: domain.PhenotypeUltrarapid,
		RiskLabel: domain.RiskLabelToxic, Severity: domain.SeverityCritical,
		Action:           "CONTRAINDICATED. Risk of life-threatening morphine toxicity (respiratory depression). Select alternative opioid.",
		AlternativeDrugs: []string{"Morphine (dose-titrated)", "Tramadol", "Buprenorphine"},
		Guideline:        guidelineCodeine + "; FDA black box warning",
	},
	{
		Drug: "CODEINE", Gene: domain.GeneCYP2D6, Phenotype: domain.PhenotypeIntermediate,
		RiskLabel: domain.RiskLabelAdjustDosage, Severity: domain.SeverityModerate,
		Action:           "Reduced analgesic effect expected. Consider alternative opioid or careful dose titration.",
		AlternativeDrugs: []string{"Morphine", "Oxycodone"},
		DoseAdjustment:   "Consider dose increase with caution or switch to non-CYP2D6-metabolised opioid.",
		Guideline:        guidelineCodeine,
	},
	{
		Drug: "CODEINE", Gene: domain.GeneCYP2D6, Phenotype: domain.PhenotypeNormal,
		RiskLabel: domain.RiskLabelSafe, Severity: domain.SeverityLow,
		Action:    "Use label-recommended dosing.",
		Guideline: guidelineCodeine,
	},
	{
		Drug: "TRAMADOL", Gene: domain.GeneCYP2D6, Phenotype: domain.PhenotypeUltrarapid,
		RiskLabel: domain.RiskLabelToxic, Severity: domain.SeverityHigh,
		Action:           "Risk of excessive O-desmethyltramadol accumulation. Consider alternative.",
		AlternativeDrugs: []string{"Morphine", "Oxycodone"},
		Guideline:        guidelineTramadol,
	},
	{
		Drug: "TRAMADOL", Gene: domain.GeneCYP2D6, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelIneffective, Severity: domain.SeverityModerate,
		Action:           "Reduced O-desmethyltramadol formation; reduced analgesia. Consider alternative.",
		AlternativeDrugs: []string{"Morphine", "Hydromorphone"},
		Guideline:        guidelineTramadol,
	},

	// Anticoagulants and anticonvulsants.
	{
		Drug: "WARFARIN", Gene: domain.GeneCYP2C9, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelAdjustDosage, Severity: domain.SeverityHigh,
		Action:         "Significantly reduced warfarin metabolism. Start at 25-50% of standard dose. Frequent INR monitoring required.",
		DoseAdjustment: "Reduce initial dose by 50%. Target INR 2.0-3.0 with enhanced monitoring.",
		Monitoring:     "INR twice weekly for first 2 weeks, then weekly until stable.",
		Guideline:      guidelineWarfarin,
	},
	{
		Drug: "WARFARIN", Gene: domain.GeneCYP2C9, Phenotype: domain.PhenotypeIntermediate,
		RiskLabel: domain.RiskLabelAdjustDosage, Severity: domain.SeverityModerate,
		Action:         "Reduced warfarin clearance. Initiate at 75% of standard dose with close INR monitoring.",
		DoseAdjustment: "Reduce initial dose by 25%. Increase INR monitoring frequency.",
		Monitoring:     "Weekly INR for first month.",
		Guideline:      guidelineWarfarin,
	},
	{
		Drug: "WARFARIN", Gene: domain.GeneCYP2C9, Phenotype: domain.PhenotypeNormal,
		RiskLabel: domain.RiskLabelSafe, Severity: domain.SeverityLow,
		Action:    "Use standard label dosing. Routine INR monitoring.",
		Guideline: guidelineWarfarin,
	},
	{
		Drug: "PHENYTOIN", Gene: domain.GeneCYP2C9, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelToxic, Severity: domain.SeverityHigh,
		Action:         "Severely reduced phenytoin metabolism. High risk of toxicity at standard doses. Reduce dose by 25-50%.",
		DoseAdjustment: "Reduce by 25-50%, use lower maintenance dose. Monitor serum levels closely.",
		Guideline:      guidelinePhenytoin,
	},

	// Antiplatelets.
	{
		Drug: "CLOPIDOGREL", Gene: domain.GeneCYP2C19, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelIneffective, Severity: domain.SeverityHigh,
		Action:           "Clopidogrel will not be converted to its active thiol metabolite. Use prasugrel or ticagrelor instead.",
		AlternativeDrugs: []string{"Prasugrel", "Ticagrelor"},
		Guideline:        guidelineClopidogrel,
	},
	{
		Drug: "CLOPIDOGREL", Gene: domain.GeneCYP2C19, Phenotype: domain.PhenotypeIntermediate,
		RiskLabel: domain.RiskLabelAdjustDosage, Severity: domain.SeverityModerate,
		Action:           "Reduced activation of clopidogrel. Consider alternative antiplatelet if high cardiovascular risk.",
		AlternativeDrugs: []string{"Prasugrel", "Ticagrelor"},
		Guideline:        guidelineClopidogrel,
	},
	{
		Drug: "CLOPIDOGREL", Gene: domain.GeneCYP2C19, Phenotype: domain.PhenotypeUltrarapid,
		RiskLabel: domain.RiskLabelSafe, Severity: domain.SeverityLow,
		Action:    "Enhanced clopidogrel activation. Use label-recommended dosing.",
		Guideline: guidelineClopidogrel,
	},
	{
		Drug: "CLOPIDOGREL", Gene: domain.GeneCYP2C19, Phenotype: domain.PhenotypeNormal,
		RiskLabel: domain.RiskLabelSafe, Severity: domain.SeverityLow,
		Action:    "Standard clopidogrel dosing recommended.",
		Guideline: guidelineClopidogrel,
	},

	// Statins. Reduced and poor transporter function share the myopathy row.
	{
		Drug: "SIMVASTATIN", Gene: domain.GeneSLCO1B1, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelToxic, Severity: domain.SeverityHigh,
		Action:           "High risk of simvastatin-induced myopathy due to reduced hepatic uptake. Use pravastatin or rosuvastatin. If simvastatin must be used, limit dose to 20 mg/day.",
		AlternativeDrugs: []string{"Pravastatin", "Rosuvastatin", "Atorvastatin (lower risk)"},
		DoseAdjustment:   "Maximum simvastatin dose 20 mg/day if no alternative available.",
		Monitoring:       "Monitor for muscle pain, weakness, elevated CK.",
		Guideline:        guidelineStatins,
	},
	{
		Drug: "SIMVASTATIN", Gene: domain.GeneSLCO1B1, Phenotype: domain.PhenotypeIntermediate,
		RiskLabel: domain.RiskLabelToxic, Severity: domain.SeverityHigh,
		Action:           "High risk of simvastatin-induced myopathy due to reduced hepatic uptake. Use pravastatin or rosuvastatin. If simvastatin must be used, limit dose to 20 mg/day.",
		AlternativeDrugs: []string{"Pravastatin", "Rosuvastatin", "Atorvastatin (lower risk)"},
		DoseAdjustment:   "Maximum simvastatin dose 20 mg/day if no alternative available.",
		Monitoring:       "Monitor for muscle pain, weakness, elevated CK.",
		Guideline:        guidelineStatins,
	},
	{
		Drug: "SIMVASTATIN", Gene: domain.GeneSLCO1B1, Phenotype: domain.PhenotypeNormal,
		RiskLabel: domain.RiskLabelSafe, Severity: domain.SeverityLow,
		Action:    "Standard simvastatin dosing. Routine monitoring.",
		Guideline: guidelineStatins,
	},
	{
		Drug: "ATORVASTATIN", Gene: domain.GeneSLCO1B1, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelAdjustDosage, Severity: domain.SeverityModerate,
		Action:         "Increased atorvastatin exposure. Use lowest effective dose and monitor for myopathy.",
		DoseAdjustment: "Consider dose reduction. Max 40 mg/day.",
		Guideline:      guidelineStatinsSLCO1B1,
	},

	// Thiopurines.
	{
		Drug: "AZATHIOPRINE", Gene: domain.GeneTPMT, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelToxic, Severity: domain.SeverityCritical,
		Action:           "TPMT-deficient patient. Life-threatening myelosuppression risk at standard doses. Use non-thiopurine immunosuppressant or reduce dose to 10% with weekly CBC monitoring.",
		AlternativeDrugs: []string{"Mycophenolate mofetil", "Methotrexate"},
		DoseAdjustment:   "If thiopurine required: reduce dose to 10% of standard, titrate based on CBC.",
		Monitoring:       "Weekly CBC for first month, then bi-weekly.",
		Guideline:        guidelineThiopurines,
	},
	{
		Drug: "AZATHIOPRINE", Gene: domain.GeneTPMT, Phenotype: domain.PhenotypeIntermediate,
		RiskLabel: domain.RiskLabelAdjustDosage, Severity: domain.SeverityModerate,
		Action:         "Reduced TPMT activity. Start at 50% of standard dose and titrate based on tolerance and CBC.",
		DoseAdjustment: "Reduce initial dose by 30-50%.",
		Monitoring:     "CBC every 2 weeks for first 3 months.",
		Guideline:      guidelineThiopurines,
	},
	{
		Drug: "AZATHIOPRINE", Gene: domain.GeneTPMT, Phenotype: domain.PhenotypeNormal,
		RiskLabel: domain.RiskLabelSafe, Severity: domain.SeverityLow,
		Action:    "Standard dosing. Routine CBC monitoring per label.",
		Guideline: guidelineThiopurines,
	},
	{
		Drug: "MERCAPTOPURINE", Gene: domain.GeneTPMT, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelToxic, Severity: domain.SeverityCritical,
		Action:           "CONTRAINDICATED at standard doses. Use 10% of standard dose with aggressive CBC monitoring or select alternative.",
		AlternativeDrugs: []string{"Mycophenolate mofetil"},
		Guideline:        guidelineThiopurines,
	},
	{
		Drug: "MERCAPTOPURINE", Gene: domain.GeneTPMT, Phenotype: domain.PhenotypeIntermediate,
		RiskLabel: domain.RiskLabelAdjustDosage, Severity: domain.SeverityHigh,
		Action:         "Start at 30-70% of standard dose, titrate based on CBC and clinical response.",
		DoseAdjustment: "Reduce dose by 30-70%.",
		Guideline:      guidelineThiopurines,
	},
	{
		Drug: "THIOGUANINE", Gene: domain.GeneTPMT, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelToxic, Severity: domain.SeverityCritical,
		Action:           "Reduce dose to 10% with weekly CBC monitoring or use non-thiopurine alternative.",
		AlternativeDrugs: []string{"Cytarabine"},
		Guideline:        guidelineThiopurines,
	},

	// Fluoropyrimidines.
	{
		Drug: "FLUOROURACIL", Gene: domain.GeneDPYD, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelToxic, Severity: domain.SeverityCritical,
		Action:           "CONTRAINDICATED. DPYD-deficient patient has <1% residual enzyme activity. Life-threatening 5-FU toxicity. Use alternative chemotherapy.",
		AlternativeDrugs: []string{"Irinotecan-based regimens (if applicable)", "Oxaliplatin"},
		Guideline:        guidelineFluoropyrimidine + "; EMA recommendation",
	},
	{
		Drug: "FLUOROURACIL", Gene: domain.GeneDPYD, Phenotype: domain.PhenotypeIntermediate,
		RiskLabel: domain.RiskLabelAdjustDosage, Severity: domain.SeverityHigh,
		Action:         "Reduce starting dose by 50%. If well-tolerated after 2 cycles consider dose escalation with close monitoring.",
		DoseAdjustment: "Start at 50% of standard dose.",
		Monitoring:     "CBC, LFTs, and toxicity assessment each cycle.",
		Guideline:      guidelineFluoropyrimidine + "; EMA recommendation",
	},
	{
		Drug: "FLUOROURACIL", Gene: domain.GeneDPYD, Phenotype: domain.PhenotypeNormal,
		RiskLabel: domain.RiskLabelSafe, Severity: domain.SeverityLow,
		Action:    "Standard dosing per oncology protocol.",
		Guideline: guidelineFluoropyrimidine,
	},
	{
		Drug: "CAPECITABINE", Gene: domain.GeneDPYD, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelToxic, Severity: domain.SeverityCritical,
		Action:    "CONTRAINDICATED. Capecitabine is a prodrug of 5-FU. Use alternative therapy.",
		Guideline: guidelineFluoropyrimidine,
	},
	{
		Drug: "CAPECITABINE", Gene: domain.GeneDPYD, Phenotype: domain.PhenotypeIntermediate,
		RiskLabel: domain.RiskLabelAdjustDosage, Severity: domain.SeverityHigh,
		Action:         "Reduce starting dose to 50%. Monitor for fluoropyrimidine toxicity.",
		DoseAdjustment: "Start at 50% of standard dose.",
		Guideline:      guidelineFluoropyrimidine,
	},

	// Antidepressants.
	{
		Drug: "AMITRIPTYLINE", Gene: domain.GeneCYP2D6, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelToxic, Severity: domain.SeverityHigh,
		Action:           "Reduced amitriptyline metabolism. High plasma levels possible. Reduce dose by 50% or use alternative (nortriptyline at reduced dose).",
		AlternativeDrugs: []string{"SSRIs", "SNRIs"},
		DoseAdjustment:   "Reduce dose to 50% of standard.",
		Guideline:        guidelineTricyclics,
	},
	{
		Drug: "AMITRIPTYLINE", Gene: domain.GeneCYP2C19, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelAdjustDosage, Severity: domain.SeverityModerate,
		Action:         "Reduced demethylation of amitriptyline. Use 50% of standard dose or alternative.",
		DoseAdjustment: "Reduce initial dose by 50%.",
		Guideline:      guidelineTricyclics,
	},
	{
		Drug: "CITALOPRAM", Gene: domain.GeneCYP2C19, Phenotype: domain.PhenotypePoor,
		RiskLabel: domain.RiskLabelAdjustDosage, Severity: domain.SeverityModerate,
		Action:         "Reduced citalopram metabolism raises plasma levels and QTc prolongation risk. Reduce dose by 50%. Maximum 20 mg/day.",
		DoseAdjustment: "Maximum dose 20 mg/day.",
		Monitoring:     "ECG monitoring recommended.",
		Guideline:      guidelineSSRIs + "; FDA Drug Safety Communication",
	},
	{
		Drug: "CITALOPRAM", Gene: domain.GeneCYP2C19, Phenotype: domain.PhenotypeUltrarapid,
		RiskLabel: domain.RiskLabelIneffective, Severity: domain.SeverityModerate,
		Action:           "Rapid citalopram metabolism may reduce efficacy. Consider alternative SSRI.",
		AlternativeDrugs: []string{"Sertraline", "Mirtazapine"},
		Guideline:        guidelineSSRIs,
	},
}

// ruleIndex is the composite-key lookup built once at package load:
// drug name, then gene, then phenotype.
var ruleIndex = buildRuleIndex()

func buildRuleIndex() map[string]map[domain.Gene]map[domain.Phenotype]DrugRule {
	idx := make(map[string]map[domain.Gene]map[domain.Phenotype]DrugRule, len(drugGenes))
	for _, r := range drugRules {
		byGene, ok := idx[r.Drug]
		if !ok {
			byGene = make(map[domain.Gene]map[domain.Phenotype]DrugRule)
			idx[r.Drug] = byGene
		}
		byPhenotype, ok := byGene[r.Gene]
		if !ok {
			byPhenotype = make(map[domain.Phenotype]DrugRule)
			byGene[r.Gene] = byPhenotype
		}
		byPhenotype[r.Phenotype] = r
	}
	return idx
}

// RuleFor returns the curated row for a (drug, gene, phenotype) combination.
// The drug name must already be normalized.
func RuleFor(drug string, gene domain.Gene, phenotype domain.Phenotype) (DrugRule, bool) {
	byGene, ok := ruleIndex[drug]
	if !ok {
		return DrugRule{}, false
	}
	byPhenotype, ok := byGene[gene]
	if !ok {
		return DrugRule{}, false
	}
	r, ok := byPhenotype[phenotype]
	return r, ok
}

// GenesForDrug returns a drug's governing genes in evaluation precedence
// order. ok is false for drugs absent from the registry.
func GenesForDrug(drug string) ([]domain.Gene, bool) {
	genes, ok := drugGenes[domain.NormalizeDrugName(drug)]
	if !ok {
		return nil, false
	}
	out := make([]domain.Gene, len(genes))
	copy(out, genes)
	return out, true
}

// PrimaryGene returns the first governing gene for a drug.
func PrimaryGene(drug string) (domain.Gene, bool) {
	genes, ok := GenesForDrug(drug)
	if !ok || len(genes) == 0 {
		return "", false
	}
	return genes[0], true
}

// IsSupportedDrug reports whether the registry carries rules for a drug.
func IsSupportedDrug(drug string) bool {
	_, ok := drugGenes[domain.NormalizeDrugName(drug)]
	return ok
}

// SupportedDrugs lists all registry drugs in alphabetical order.
func SupportedDrugs() []string {
	out := make([]string, 0, len(drugGenes))
	for drug := range drugGenes {
		out = append(out, drug)
	}
	sort.Strings(out)
	return out
}

// RuleCount returns the number of curated phenotype rows for a drug.
func RuleCount(drug string) int {
	n := 0
	for _, byPhenotype := range ruleIndex[domain.NormalizeDrugName(drug)] {
		n += len(byPhenotype)
	}
	return n
}

// DefaultRule is the designed fallback row for a supported drug whose
// patient phenotype matches no curated entry: no identified risk at
// standard dosing.
func DefaultRule(drug string, gene domain.Gene, phenotype domain.Phenotype) DrugRule {
	return DrugRule{
		Drug:      domain.NormalizeDrugName(drug),
		Gene:      gene,
		Phenotype: phenotype,
		RiskLabel: domain.RiskLabelSafe,
		Severity:  domain.SeverityLow,
		Action:    "No pharmacogenomic risk factors identified. Use standard prescribing information.",
		Guideline: "CPIC / DPWG guidelines consulted",
	}
}

// UnknownDrugRule is the designed fallback for a drug absent from the
// registry entirely. No further lookup is attempted for such drugs.
func UnknownDrugRule(drug string) DrugRule {
	name := domain.NormalizeDrugName(drug)
	return DrugRule{
		Drug:      name,
		RiskLabel: domain.RiskLabelUnknown,
		Severity:  domain.SeverityNone,
		Action:    fmt.Sprintf("No pharmacogenomic guideline available for %s. Use standard prescribing information.", name),
		Guideline: "No CPIC/DPWG guideline available",
	}
}
