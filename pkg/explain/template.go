// Package explain generates the narrative section of analysis reports. The
// primary path calls an LLM completion API; the template path renders the
// same facts through curated per-gene and per-drug texts. Template output is
// fully deterministic: equal facts yield byte-identical narratives, which
// makes the fallback safe to substitute at any point without destabilizing
// report content.
package explain

import (
	"context"
	"fmt"
	"strings"

	"github.com/pharmaguard-server/internal/domain"
)

// geneMechanisms holds the curated mechanism narrative per gene and
// phenotype. Texts follow CPIC publications and product labelling.
var geneMechanisms = map[domain.Gene]map[domain.Phenotype]string{
	domain.GeneCYP2D6: {
		domain.PhenotypePoor:         "CYP2D6 is a hepatic cytochrome P450 enzyme metabolising ~25% of clinical drugs. Biallelic loss-of-function variants (e.g. *4, *5, *6) abolish enzymatic activity. For prodrugs like codeine requiring O-demethylation to active morphine, this causes therapeutic failure. For active parent drugs, toxic accumulation occurs at standard doses.",
		domain.PhenotypeUltrarapid:   "CYP2D6 gene duplication (*1xN, *2xN) markedly increases enzymatic capacity. For codeine, ultrarapid morphine conversion produces plasma levels 3-5x higher than normal, causing life-threatening respiratory depression. FDA has issued black box warnings for codeine in ultrarapid metabolizers.",
		domain.PhenotypeIntermediate: "Decreased-function CYP2D6 alleles (*10, *41, *17) yield activity scores of 0.25-1.25. Enzyme capacity is reduced but not absent, causing 1.5-2x elevated drug exposure. Prodrug activation is reduced (lower efficacy) while parent compound clearance is delayed (mild toxicity risk).",
		domain.PhenotypeNormal:       "Two functional CYP2D6 alleles confirm normal hepatic enzyme activity. Drug metabolism proceeds at expected rates yielding predictable plasma concentrations. Standard label dosing is appropriate.",
	},
	domain.GeneCYP2C19: {
		domain.PhenotypePoor:         "Homozygous CYP2C19 loss-of-function variants (*2/*2, *2/*3) eliminate functional enzyme. For clopidogrel requiring two-step CYP2C19 bioactivation, <10% of normal active metabolite is generated, rendering antiplatelet effect effectively absent and leaving the patient at high thrombotic risk.",
		domain.PhenotypeUltrarapid:   "CYP2C19*17 (rs12248560) increases transcription yielding enhanced enzyme activity. For CYP2C19-metabolised antidepressants (citalopram, escitalopram), rapid clearance reduces plasma concentrations below therapeutic levels, compromising efficacy.",
		domain.PhenotypeIntermediate: "Heterozygous CYP2C19 variants (*1/*2, *1/*3) produce intermediate activity. For clopidogrel, reduced activation leads to ~25-30% increased risk of major adverse cardiovascular events compared to normal metabolizers.",
		domain.PhenotypeNormal:       "Wildtype CYP2C19 alleles confirm normal enzyme activity. Standard pharmacokinetics expected for all CYP2C19 substrates including clopidogrel and antidepressants.",
	},
	domain.GeneCYP2C9: {
		domain.PhenotypePoor:         "CYP2C9 metabolises S-warfarin (the potent enantiomer), phenytoin and NSAIDs. Biallelic loss-of-function variants reduce activity to <5% of wildtype, causing 2-3 fold elevated warfarin plasma concentrations at standard doses with life-threatening bleeding risk.",
		domain.PhenotypeIntermediate: "Decreased-function CYP2C9 alleles (*2, *3) reduce total activity to 25-75% of normal. S-warfarin clearance is partially impaired requiring 15-35% dose reduction to achieve stable INR.",
		domain.PhenotypeNormal:       "Wildtype CYP2C9 confirms full enzyme activity. Standard warfarin pharmacokinetics expected with routine INR monitoring.",
	},
	domain.GeneSLCO1B1: {
		domain.PhenotypePoor:         "SLCO1B1 encodes hepatic OATP1B1 transporter mediating statin uptake from portal blood into hepatocytes. Homozygous rs4149056 (CC, *5/*5) reduces transport capacity by 70-90%, causing markedly elevated systemic simvastatin concentrations and dramatically increased myopathy risk including potentially fatal rhabdomyolysis.",
		domain.PhenotypeIntermediate: "Heterozygous rs4149056 C allele (TC) partially reduces OATP1B1 hepatic uptake. Simvastatin AUC increases ~2-fold conferring intermediate myopathy risk. Pravastatin and rosuvastatin are less OATP1B1-dependent and represent safer alternatives.",
		domain.PhenotypeNormal:       "Wildtype SLCO1B1 (TT) confirms normal OATP1B1-mediated hepatic statin uptake. Standard statin dosing is appropriate.",
	},
	domain.GeneTPMT: {
		domain.PhenotypePoor:         "TPMT S-methylates and inactivates thiopurines (azathioprine, mercaptopurine). In TPMT-deficient patients (biallelic loss-of-function), metabolism shifts entirely to cytotoxic thioguanine nucleotides (TGN), causing TGN accumulation in hematopoietic cells and potentially fatal myelosuppression at standard doses.",
		domain.PhenotypeIntermediate: "Heterozygous TPMT variants reduce activity to ~50% of normal, causing partial TGN accumulation. Risk of myelosuppression is elevated especially with concurrent allopurinol. Dose reductions of 30-50% with enhanced CBC monitoring are required.",
		domain.PhenotypeNormal:       "Normal TPMT activity ensures adequate thiopurine inactivation. Standard dosing with routine CBC monitoring per label is appropriate.",
	},
	domain.GeneDPYD: {
		domain.PhenotypePoor:         "DPYD encodes dihydropyrimidine dehydrogenase (DPD), responsible for >80% of 5-FU catabolism. Biallelic DPYD loss-of-function (*2A IVS14+1G>A, *13) eliminates DPD activity, causing life-threatening 5-FU accumulation with severe mucositis, myelosuppression, and neurotoxicity at standard doses.",
		domain.PhenotypeIntermediate: "Heterozygous DPYD variants (*1/*2A, *1/HapB3) reduce DPD to 30-70% of normal. Fluoropyrimidine exposure is significantly increased. CPIC and EMA recommend 50% dose reduction with escalation only if initial cycles are well-tolerated.",
		domain.PhenotypeNormal:       "Normal DPYD activity ensures adequate 5-FU catabolism. Standard fluoropyrimidine dosing per oncology protocol is appropriate.",
	},
}

// drugDosingNotes holds per-drug dosing guidance appended to the mechanism
// when the drug has curated phenotype-specific advice.
var drugDosingNotes = map[string]map[domain.Phenotype]string{
	"CODEINE": {
		domain.PhenotypePoor:         "Avoid codeine. Prescribe morphine or hydromorphone at standard doses.",
		domain.PhenotypeUltrarapid:   "Contraindicated. Use alternative opioid (morphine, buprenorphine) with careful titration.",
		domain.PhenotypeIntermediate: "Reduced analgesic effect. Switch to morphine or oxycodone at standard doses.",
		domain.PhenotypeNormal:       "Standard codeine 30-60mg every 4-6 hours. No pharmacogenomic adjustment needed.",
	},
	"WARFARIN": {
		domain.PhenotypePoor:         "Initiate at ≤2mg/day. Twice-weekly INR until stable. Expect 40-70% lower maintenance dose.",
		domain.PhenotypeIntermediate: "Start at 75% of algorithm-predicted dose. Weekly INR for first month.",
		domain.PhenotypeNormal:       "Use validated dosing algorithm (IWPC). Standard monitoring.",
	},
	"CLOPIDOGREL": {
		domain.PhenotypePoor:         "Switch to prasugrel 10mg/day or ticagrelor 90mg BID. Note prasugrel is contraindicated post-TIA/stroke.",
		domain.PhenotypeIntermediate: "Consider ticagrelor or prasugrel in high cardiovascular risk patients.",
		domain.PhenotypeNormal:       "Standard clopidogrel 75mg/day. 300-600mg loading for ACS.",
	},
	"SIMVASTATIN": {
		domain.PhenotypePoor:         "Avoid simvastatin. Use pravastatin 40mg or rosuvastatin 10-20mg instead.",
		domain.PhenotypeIntermediate: "Limit to maximum 20mg/day. Monitor CK and for myalgia symptoms.",
		domain.PhenotypeNormal:       "Standard simvastatin dosing (20-80mg/day) as clinically indicated.",
	},
	"AZATHIOPRINE": {
		domain.PhenotypePoor:         "If required, use 10% of standard dose (0.5-1mg/kg) with weekly CBC.",
		domain.PhenotypeIntermediate: "Start at 50% of standard dose (1mg/kg). Escalate slowly with bi-weekly CBC.",
		domain.PhenotypeNormal:       "Standard 1.5-2.5mg/kg/day with monthly CBC monitoring.",
	},
	"FLUOROURACIL": {
		domain.PhenotypePoor:         "Do NOT administer 5-FU or capecitabine. Select alternative cytotoxic regimen.",
		domain.PhenotypeIntermediate: "Reduce starting dose by 50%. Escalate after cycle 2 if tolerated.",
		domain.PhenotypeNormal:       "Standard 5-FU dosing per protocol. TDM can guide adjustments.",
	},
}

// riskPhrases renders each risk label as the clinical consequence named in
// the summary sentence.
var riskPhrases = map[domain.RiskLabel]string{
	domain.RiskLabelSafe:         "no clinically significant pharmacogenomic risk",
	domain.RiskLabelAdjustDosage: "a clinically significant interaction requiring dose modification",
	domain.RiskLabelToxic:        "HIGH RISK of drug toxicity",
	domain.RiskLabelIneffective:  "predicted drug INEFFECTIVENESS due to pharmacogenomic factors",
	domain.RiskLabelUnknown:      "an UNKNOWN pharmacogenomic risk profile",
}

// TemplateExplainer renders explanations from the curated text tables. It
// performs no I/O and never fails.
type TemplateExplainer struct{}

// NewTemplateExplainer creates the deterministic template explainer.
func NewTemplateExplainer() *TemplateExplainer {
	return &TemplateExplainer{}
}

// Explain renders the narrative for one verdict. The error is always nil; it
// exists to satisfy the Explainer contract.
func (t *TemplateExplainer) Explain(_ context.Context, facts domain.ExplanationFacts) (*domain.Explanation, error) {
	drug := domain.NormalizeDrugName(facts.Drug)

	variantText := "no pathogenic variants (wildtype assumed)"
	if len(facts.DetectedVariants) > 0 {
		variantText = strings.Join(facts.DetectedVariants, ", ")
	}

	riskPhrase, ok := riskPhrases[facts.RiskLabel]
	if !ok {
		riskPhrase = "an unclassified interaction"
	}

	summary := fmt.Sprintf(
		"This patient's %s genotype (%s) is classified as %s. Detected pharmacogenomic variants: %s. For %s, this phenotype predicts %s. %s",
		facts.Gene, facts.Diplotype, facts.Phenotype, variantText, drug, riskPhrase, facts.Action,
	)

	mechanism, ok := geneMechanisms[facts.Gene][facts.Phenotype]
	if !ok {
		mechanism = fmt.Sprintf("%s activity is altered, affecting %s pharmacokinetics.", facts.Gene, drug)
	}
	if dosing, ok := drugDosingNotes[drug][facts.Phenotype]; ok {
		mechanism += "\n\nDosing Implication: " + dosing
	}

	guidelineReference := fmt.Sprintf("No specific CPIC guideline for %s. Consult FDA Pharmacogenomic Biomarkers table.", drug)
	if facts.Guideline != "" && !strings.Contains(facts.Guideline, "No CPIC") {
		guidelineReference = facts.Guideline + ". Full prescribing guidance at cpicpgx.org and PharmGKB."
	}

	return &domain.Explanation{
		Summary:            summary,
		Mechanism:          mechanism,
		GuidelineReference: guidelineReference,
		Source:             domain.ExplanationSourceTemplate,
	}, nil
}
