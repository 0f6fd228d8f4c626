package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/registry"
)

// AnalyzeDrugRiskParams defines parameters for the analyze_drug_risk tool
type AnalyzeDrugRiskParams struct {
	VCFText   string   `json:"vcf_text"`
	Drugs     []string `json:"drugs"`
	PatientID string   `json:"patient_id,omitempty"`
}

// ListSupportedDrugsParams defines parameters for list_supported_drugs
type ListSupportedDrugsParams struct{}

// ListSupportedGenesParams defines parameters for list_supported_genes
type ListSupportedGenesParams struct{}

// SupportedDrugEntry is one row of the drug registry listing
type SupportedDrugEntry struct {
	Drug        string `json:"drug"`
	PrimaryGene string `json:"primary_gene"`
	RuleCount   int    `json:"rule_count"`
}

// SupportedDrugsResult defines the result structure for list_supported_drugs
type SupportedDrugsResult struct {
	SupportedDrugs []SupportedDrugEntry `json:"supported_drugs"`
	Total          int                  `json:"total"`
}

// SupportedGenesResult defines the result structure for list_supported_genes
type SupportedGenesResult struct {
	Genes        []string          `json:"genes"`
	TrackedRSIDs int               `json:"tracked_rsids"`
	RSIDGeneMap  map[string]string `json:"rsid_gene_map"`
}

// handleAnalyzeDrugRisk handles the analyze_drug_risk tool invocation
func (s *Server) handleAnalyzeDrugRisk(ctx context.Context, req *mcp.CallToolRequest, params AnalyzeDrugRiskParams) (*mcp.CallToolResult, *domain.BatchReport, error) {
	s.logger.WithFields(logrus.Fields{
		"tool":  "analyze_drug_risk",
		"drugs": len(params.Drugs),
	}).Info("Tool invoked")

	if strings.TrimSpace(params.VCFText) == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("vcf_text is required")), nil, nil
	}
	if len(params.Drugs) == 0 {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("at least one drug is required")), nil, nil
	}

	batch, err := s.service.AnalyzeText(ctx, params.VCFText, params.Drugs, "")
	if err != nil {
		return s.createErrorResult("Analysis failed", err), nil, nil
	}

	if params.PatientID != "" {
		batch.PatientID = params.PatientID
		for _, report := range batch.Analyses {
			report.PatientID = params.PatientID
		}
	}

	lines := make([]string, 0, len(batch.Analyses))
	for _, report := range batch.Analyses {
		lines = append(lines, fmt.Sprintf("%s: %s (%s, %s %s, confidence %.2f)",
			report.Drug,
			report.RiskAssessment.RiskLabel,
			report.Profile.PrimaryGene,
			report.Profile.Diplotype,
			report.Profile.Phenotype,
			report.RiskAssessment.ConfidenceScore,
		))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: strings.Join(lines, "\n")},
		},
	}, batch, nil
}

// handleListSupportedDrugs handles the list_supported_drugs tool invocation
func (s *Server) handleListSupportedDrugs(ctx context.Context, req *mcp.CallToolRequest, params ListSupportedDrugsParams) (*mcp.CallToolResult, SupportedDrugsResult, error) {
	s.logger.WithField("tool", "list_supported_drugs").Info("Tool invoked")

	drugs := s.service.SupportedDrugs()

	result := SupportedDrugsResult{
		SupportedDrugs: make([]SupportedDrugEntry, 0, len(drugs)),
		Total:          len(drugs),
	}
	for _, drug := range drugs {
		primaryGene := "Unknown"
		if gene, ok := registry.PrimaryGene(drug); ok {
			primaryGene = gene.String()
		}
		result.SupportedDrugs = append(result.SupportedDrugs, SupportedDrugEntry{
			Drug:        drug,
			PrimaryGene: primaryGene,
			RuleCount:   registry.RuleCount(drug),
		})
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%d supported drugs: %s", len(drugs), strings.Join(drugs, ", "))},
		},
	}, result, nil
}

// handleListSupportedGenes handles the list_supported_genes tool invocation
func (s *Server) handleListSupportedGenes(ctx context.Context, req *mcp.CallToolRequest, params ListSupportedGenesParams) (*mcp.CallToolResult, SupportedGenesResult, error) {
	s.logger.WithField("tool", "list_supported_genes").Info("Tool invoked")

	genes := s.service.SupportedGenes()
	rsidMap := registry.RSIDGeneMap()

	result := SupportedGenesResult{
		Genes:        genes,
		TrackedRSIDs: len(rsidMap),
		RSIDGeneMap:  rsidMap,
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%d screened pharmacogenes: %s", len(genes), strings.Join(genes, ", "))},
		},
	}, result, nil
}

// createErrorResult builds an error tool result
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
