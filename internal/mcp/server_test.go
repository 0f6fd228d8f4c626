package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/service"
	"github.com/pharmaguard-server/internal/session"
	"github.com/pharmaguard-server/pkg/explain"
	"github.com/pharmaguard-server/pkg/vcf"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := testLogger()

	store := session.NewMemoryStore(domain.SessionConfig{}, logger)
	t.Cleanup(func() { store.Close() })

	assembler := service.NewReportAssembler(logger, nil, explain.NewTemplateExplainer(), time.Second)
	analysis := service.NewAnalysisService(logger, vcf.NewParser(), store, assembler, service.AnalysisConfig{})

	config := domain.MCPConfig{ServerName: "pharmaguard", ServerVersion: "1.0.0"}
	return NewServer(config, analysis, logger)
}

func clopidogrelPoorVCF() string {
	lines := []string{
		"##fileformat=VCFv4.2",
		strings.Join([]string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO", "FORMAT", "PATIENT_001"}, "\t"),
		strings.Join([]string{"10", "94781859", "rs4244285", "G", "A", "99", "PASS", "GENE=CYP2C19", "GT", "1/1"}, "\t"),
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestNewServer(t *testing.T) {
	server := newTestServer(t)

	assert.NotNil(t, server.mcpServer)
	assert.NotNil(t, server.service)
	assert.NotNil(t, server.logger)
}

func TestAnalyzeDrugRiskTool(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	t.Run("returns batch verdicts", func(t *testing.T) {
		result, batch, err := server.handleAnalyzeDrugRisk(ctx, nil, AnalyzeDrugRiskParams{
			VCFText: clopidogrelPoorVCF(),
			Drugs:   []string{"clopidogrel", "CODEINE"},
		})
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.False(t, result.IsError)

		require.NotNil(t, batch)
		assert.Equal(t, "PATIENT_001", batch.PatientID)
		require.Len(t, batch.Analyses, 2)
		assert.Equal(t, "CLOPIDOGREL", batch.Analyses[0].Drug)
		assert.Equal(t, domain.RiskLabelIneffective, batch.Analyses[0].RiskAssessment.RiskLabel)
		assert.Equal(t, "*2/*2", batch.Analyses[0].Profile.Diplotype)
		assert.Equal(t, "CODEINE", batch.Analyses[1].Drug)

		require.Len(t, result.Content, 1)
		text, ok := result.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "CLOPIDOGREL: Ineffective")
		assert.Contains(t, text.Text, "*2/*2")
	})

	t.Run("patient override", func(t *testing.T) {
		_, batch, err := server.handleAnalyzeDrugRisk(ctx, nil, AnalyzeDrugRiskParams{
			VCFText:   clopidogrelPoorVCF(),
			Drugs:     []string{"WARFARIN"},
			PatientID: "PX-42",
		})
		require.NoError(t, err)
		require.NotNil(t, batch)
		assert.Equal(t, "PX-42", batch.PatientID)
		assert.Equal(t, "PX-42", batch.Analyses[0].PatientID)
	})

	t.Run("missing vcf_text", func(t *testing.T) {
		result, batch, err := server.handleAnalyzeDrugRisk(ctx, nil, AnalyzeDrugRiskParams{
			Drugs: []string{"CODEINE"},
		})
		require.NoError(t, err)
		assert.Nil(t, batch)
		require.NotNil(t, result)
		assert.True(t, result.IsError)

		text, ok := result.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "vcf_text is required")
	})

	t.Run("missing drugs", func(t *testing.T) {
		result, batch, err := server.handleAnalyzeDrugRisk(ctx, nil, AnalyzeDrugRiskParams{
			VCFText: clopidogrelPoorVCF(),
		})
		require.NoError(t, err)
		assert.Nil(t, batch)
		require.NotNil(t, result)
		assert.True(t, result.IsError)
	})
}

func TestListSupportedDrugsTool(t *testing.T) {
	server := newTestServer(t)

	result, listing, err := server.handleListSupportedDrugs(context.Background(), nil, ListSupportedDrugsParams{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	require.NotEmpty(t, listing.SupportedDrugs)
	assert.Equal(t, len(listing.SupportedDrugs), listing.Total)

	byDrug := make(map[string]SupportedDrugEntry)
	for _, entry := range listing.SupportedDrugs {
		byDrug[entry.Drug] = entry
	}
	assert.Equal(t, "CYP2D6", byDrug["CODEINE"].PrimaryGene)
	assert.Greater(t, byDrug["CODEINE"].RuleCount, 0)
	assert.Equal(t, "CYP2C19", byDrug["CLOPIDOGREL"].PrimaryGene)
}

func TestListSupportedGenesTool(t *testing.T) {
	server := newTestServer(t)

	result, listing, err := server.handleListSupportedGenes(context.Background(), nil, ListSupportedGenesParams{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	assert.ElementsMatch(t,
		[]string{"CYP2D6", "CYP2C19", "CYP2C9", "SLCO1B1", "TPMT", "DPYD"},
		listing.Genes)
	assert.Equal(t, len(listing.RSIDGeneMap), listing.TrackedRSIDs)
	assert.Equal(t, "CYP2C19", listing.RSIDGeneMap["rs4244285"])
}
