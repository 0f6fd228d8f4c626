package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/pkg/vcf"
)

// mapSessionStore is an in-memory SessionStore for tests.
type mapSessionStore struct {
	mu   sync.Mutex
	sets map[string]*domain.VariantSet
}

func newMapSessionStore() *mapSessionStore {
	return &mapSessionStore{sets: make(map[string]*domain.VariantSet)}
}

func (s *mapSessionStore) Put(_ context.Context, sessionID string, set *domain.VariantSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[sessionID] = set
	return nil
}

func (s *mapSessionStore) Get(_ context.Context, sessionID string) (*domain.VariantSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return set, nil
}

func (s *mapSessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, sessionID)
	return nil
}

func (s *mapSessionStore) Close() error { return nil }

func newTestAnalysisService(store domain.SessionStore) *AnalysisService {
	logger := testLogger()
	assembler := NewReportAssembler(logger, nil, templateStub(), time.Second)
	return NewAnalysisService(logger, vcf.NewParser(), store, assembler, AnalysisConfig{MaxConcurrentDrugs: 2})
}

func vcfDocument(dataLines ...string) string {
	lines := []string{
		"##fileformat=VCFv4.2",
		"##source=test",
		strings.Join([]string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO", "FORMAT", "PATIENT_001"}, "\t"),
	}
	lines = append(lines, dataLines...)
	return strings.Join(lines, "\n") + "\n"
}

func dataLine(fields ...string) string {
	return strings.Join(fields, "\t")
}

func clopidogrelPoorVCF() string {
	return vcfDocument(
		dataLine("10", "94781859", "rs4244285", "G", "A", "99", "PASS", "GENE=CYP2C19", "GT", "1/1"),
	)
}

func TestAnalysisService_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMapSessionStore()
	service := newTestAnalysisService(store)

	sessionID, set, err := service.CreateSession(ctx, clopidogrelPoorVCF(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)
	assert.Equal(t, "PATIENT_001", set.SampleID)
	assert.Equal(t, 1, set.PGxVariantCount())

	stored, err := service.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, set.SampleID, stored.SampleID)

	require.NoError(t, service.DeleteSession(ctx, sessionID))
	_, err = service.GetSession(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAnalysisService_CreateSessionSampleHint(t *testing.T) {
	ctx := context.Background()
	service := newTestAnalysisService(newMapSessionStore())

	// Header without a sample column leaves the parser placeholder, which
	// the upload filename then replaces.
	headerOnly := strings.Join([]string{
		"##fileformat=VCFv4.2",
		strings.Join([]string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}, "\t"),
	}, "\n") + "\n"

	_, set, err := service.CreateSession(ctx, headerOnly, "patient7.vcf")
	require.NoError(t, err)
	assert.Equal(t, "patient7.vcf", set.SampleID)

	_, set, err = service.CreateSession(ctx, clopidogrelPoorVCF(), "patient7.vcf")
	require.NoError(t, err)
	assert.Equal(t, "PATIENT_001", set.SampleID, "named sample must not be overridden")
}

func TestAnalysisService_AnalyzeSessionPoorMetabolizer(t *testing.T) {
	ctx := context.Background()
	service := newTestAnalysisService(newMapSessionStore())

	sessionID, _, err := service.CreateSession(ctx, clopidogrelPoorVCF(), "")
	require.NoError(t, err)

	batch, err := service.AnalyzeSession(ctx, sessionID, []string{"CLOPIDOGREL"})
	require.NoError(t, err)
	require.Len(t, batch.Analyses, 1)

	report := batch.Analyses[0]
	assert.Equal(t, "PATIENT_001", batch.PatientID)
	assert.Equal(t, 1, batch.DrugCount)
	assert.Equal(t, domain.RiskLabelIneffective, report.RiskAssessment.RiskLabel)
	assert.InDelta(t, 0.95, report.RiskAssessment.ConfidenceScore, 1e-9)
	assert.Equal(t, "*2/*2", report.Profile.Diplotype)
	assert.Equal(t, domain.PhenotypePoor, report.Profile.Phenotype)
	require.Len(t, report.Profile.DetectedVariants, 1)
	assert.Equal(t, "rs4244285", report.Profile.DetectedVariants[0].RSID)
}

func TestAnalysisService_RepeatAnalysisDeterministic(t *testing.T) {
	ctx := context.Background()
	service := newTestAnalysisService(newMapSessionStore())

	sessionID, _, err := service.CreateSession(ctx, clopidogrelPoorVCF(), "")
	require.NoError(t, err)

	first, err := service.AnalyzeSession(ctx, sessionID, []string{"CLOPIDOGREL"})
	require.NoError(t, err)
	second, err := service.AnalyzeSession(ctx, sessionID, []string{"CLOPIDOGREL"})
	require.NoError(t, err)

	// Timestamps differ between runs; everything clinical must not.
	assert.Equal(t, first.Analyses[0].RiskAssessment, second.Analyses[0].RiskAssessment)
	assert.Equal(t, first.Analyses[0].Profile, second.Analyses[0].Profile)
	assert.Equal(t, first.Analyses[0].Explanation, second.Analyses[0].Explanation)
	assert.Equal(t, first.Analyses[0].Recommendation, second.Analyses[0].Recommendation)
}

func TestAnalysisService_AnalyzeSessionNotFound(t *testing.T) {
	service := newTestAnalysisService(newMapSessionStore())

	_, err := service.AnalyzeSession(context.Background(), "missing-session", []string{"CODEINE"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAnalysisService_EmptyDrugList(t *testing.T) {
	service := newTestAnalysisService(newMapSessionStore())
	set := &domain.VariantSet{SampleID: "PATIENT_001"}

	_, err := service.AnalyzeVariantSet(context.Background(), set, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyDrugList)
}

func TestAnalysisService_BatchOrderPreserved(t *testing.T) {
	ctx := context.Background()
	service := newTestAnalysisService(newMapSessionStore())
	drugs := []string{"CODEINE", "IBUPROFEN", "CLOPIDOGREL", "WARFARIN", "CAPECITABINE"}

	batch, err := service.AnalyzeText(ctx, clopidogrelPoorVCF(), drugs, "")
	require.NoError(t, err)
	require.Len(t, batch.Analyses, len(drugs))
	assert.Equal(t, len(drugs), batch.DrugCount)

	for i, drug := range drugs {
		assert.Equal(t, drug, batch.Analyses[i].Drug, "report %d out of order", i)
	}
	assert.Equal(t, domain.RiskLabelUnknown, batch.Analyses[1].RiskAssessment.RiskLabel)
	assert.Equal(t, domain.RiskLabelIneffective, batch.Analyses[2].RiskAssessment.RiskLabel)
}

func TestAnalysisService_NoVariantsYieldsReferenceBaseline(t *testing.T) {
	ctx := context.Background()
	service := newTestAnalysisService(newMapSessionStore())

	batch, err := service.AnalyzeText(ctx, vcfDocument(), []string{"CODEINE"}, "")
	require.NoError(t, err)
	require.Len(t, batch.Analyses, 1)

	report := batch.Analyses[0]
	assert.Equal(t, domain.RiskLabelSafe, report.RiskAssessment.RiskLabel)
	assert.Equal(t, "CYP2D6", report.Profile.PrimaryGene)
	assert.Equal(t, "*1/*1", report.Profile.Diplotype)
	assert.Equal(t, domain.PhenotypeNormal, report.Profile.Phenotype)
	assert.InDelta(t, 0.95, report.RiskAssessment.ConfidenceScore, 1e-9)
	assert.Empty(t, report.Profile.DetectedVariants)
}

func TestAnalysisService_BuildProfileCoversAllGenes(t *testing.T) {
	service := newTestAnalysisService(newMapSessionStore())
	set := &domain.VariantSet{SampleID: "PATIENT_001"}

	profile := service.BuildProfile(set)

	require.Len(t, profile, len(domain.Genes()))
	for _, gene := range domain.Genes() {
		result, ok := profile[gene]
		require.True(t, ok, "missing gene %s", gene)
		assert.Equal(t, domain.PhenotypeNormal, result.Phenotype)
		assert.True(t, result.Diplotype.IsReference())
	}
}

func TestAnalysisService_ExtractErrorPropagates(t *testing.T) {
	service := newTestAnalysisService(newMapSessionStore())

	_, _, err := service.CreateSession(context.Background(), "   ", "")
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestAnalysisService_SupportedCatalogues(t *testing.T) {
	service := newTestAnalysisService(newMapSessionStore())

	drugs := service.SupportedDrugs()
	assert.Len(t, drugs, 14)
	assert.Contains(t, drugs, "CLOPIDOGREL")

	genes := service.SupportedGenes()
	assert.Equal(t, []string{"CYP2D6", "CYP2C19", "CYP2C9", "SLCO1B1", "TPMT", "DPYD"}, genes)
}

func TestAnalysisService_StorePutErrorWrapped(t *testing.T) {
	service := NewAnalysisService(testLogger(), vcf.NewParser(), failingStore{}, NewReportAssembler(testLogger(), nil, templateStub(), time.Second), AnalysisConfig{})

	_, _, err := service.CreateSession(context.Background(), clopidogrelPoorVCF(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storing session")
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, *domain.VariantSet) error {
	return errors.New("backend down")
}

func (failingStore) Get(context.Context, string) (*domain.VariantSet, error) {
	return nil, domain.ErrSessionNotFound
}

func (failingStore) Delete(context.Context, string) error { return nil }

func (failingStore) Close() error { return nil }
