// Package service implements the pharmacogenomic analysis pipeline: variant
// calls resolve to star alleles, star alleles compose into diplotypes,
// diplotypes classify into metabolizer phenotypes, and phenotypes drive the
// drug risk rule table. AnalysisService orchestrates the stages and owns
// session lifecycle.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/registry"
	"github.com/pharmaguard-server/pkg/vcf"
)

const defaultMaxConcurrentDrugs = 4

// AnalysisConfig carries tunables for the analysis service.
type AnalysisConfig struct {
	// MaxConcurrentDrugs bounds the per-request drug evaluation fan-out.
	MaxConcurrentDrugs int
}

// AnalysisService runs the full pipeline from raw variant text to per-drug
// risk reports. A parsed variant set is written once at session creation and
// only read afterwards, so concurrent analyses of one session need no
// coordination.
type AnalysisService struct {
	logger        *logrus.Logger
	extractor     domain.VariantExtractor
	sessions      domain.SessionStore
	resolver      *AlleleResolver
	composer      *DiplotypeComposer
	classifier    *PhenotypeClassifier
	engine        *RiskRuleEngine
	assembler     *ReportAssembler
	maxConcurrent int
}

// NewAnalysisService creates the pipeline orchestrator with its stage
// services.
func NewAnalysisService(
	logger *logrus.Logger,
	extractor domain.VariantExtractor,
	sessions domain.SessionStore,
	assembler *ReportAssembler,
	config AnalysisConfig,
) *AnalysisService {
	if config.MaxConcurrentDrugs <= 0 {
		config.MaxConcurrentDrugs = defaultMaxConcurrentDrugs
	}

	return &AnalysisService{
		logger:        logger,
		extractor:     extractor,
		sessions:      sessions,
		resolver:      NewAlleleResolver(logger),
		composer:      NewDiplotypeComposer(logger),
		classifier:    NewPhenotypeClassifier(logger),
		engine:        NewRiskRuleEngine(logger),
		assembler:     assembler,
		maxConcurrent: config.MaxConcurrentDrugs,
	}
}

// CreateSession parses raw variant text and stores the result under a fresh
// session ID. sampleHint, typically the upload filename, replaces the
// parser's placeholder when the file itself names no sample.
func (s *AnalysisService) CreateSession(ctx context.Context, text, sampleHint string) (string, *domain.VariantSet, error) {
	set, err := s.extractor.Extract(text)
	if err != nil {
		return "", nil, err
	}
	applySampleHint(set, sampleHint)

	sessionID := uuid.New().String()
	if err := s.sessions.Put(ctx, sessionID, set); err != nil {
		return "", nil, fmt.Errorf("storing session: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"session_id":   sessionID,
		"sample_id":    set.SampleID,
		"pgx_variants": set.PGxVariantCount(),
		"parse_errors": len(set.ParseErrors),
	}).Info("Created analysis session")

	return sessionID, set, nil
}

// GetSession returns the stored variant set for a session ID, or
// domain.ErrSessionNotFound for unknown or expired IDs.
func (s *AnalysisService) GetSession(ctx context.Context, sessionID string) (*domain.VariantSet, error) {
	return s.sessions.Get(ctx, sessionID)
}

// DeleteSession removes a stored session.
func (s *AnalysisService) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// AnalyzeSession runs the pipeline for every requested drug against a stored
// session. Returns domain.ErrSessionNotFound when the session does not
// exist.
func (s *AnalysisService) AnalyzeSession(ctx context.Context, sessionID string, drugs []string) (*domain.BatchReport, error) {
	set, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.AnalyzeVariantSet(ctx, set, drugs)
}

// AnalyzeText parses raw variant text and analyzes it in one step without
// creating a session.
func (s *AnalysisService) AnalyzeText(ctx context.Context, text string, drugs []string, sampleHint string) (*domain.BatchReport, error) {
	set, err := s.extractor.Extract(text)
	if err != nil {
		return nil, err
	}
	applySampleHint(set, sampleHint)
	return s.AnalyzeVariantSet(ctx, set, drugs)
}

// AnalyzeVariantSet classifies the per-gene profile once, then assesses
// every requested drug against it. Drug evaluations fan out under a bounded
// semaphore; reports are reassembled in request order regardless of
// completion order.
func (s *AnalysisService) AnalyzeVariantSet(ctx context.Context, set *domain.VariantSet, drugs []string) (*domain.BatchReport, error) {
	if len(drugs) == 0 {
		return nil, domain.ErrEmptyDrugList
	}

	profile := s.BuildProfile(set)

	reports := make([]*domain.AnalysisReport, len(drugs))
	semaphore := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup

	for i, drug := range drugs {
		wg.Add(1)
		go func(i int, drug string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			assessment := s.engine.Assess(drug, profile)
			reports[i] = s.assembler.Assemble(ctx, set, assessment)
		}(i, drug)
	}

	wg.Wait()

	s.logger.WithFields(logrus.Fields{
		"sample_id": set.SampleID,
		"drugs":     len(drugs),
	}).Info("Completed drug risk analysis")

	return &domain.BatchReport{
		PatientID: set.SampleID,
		Timestamp: time.Now().UTC(),
		DrugCount: len(reports),
		Analyses:  reports,
	}, nil
}

// BuildProfile classifies every pharmacogene from the parsed call set. Genes
// without observed variants classify from the reference diplotype, so the
// profile always covers the full screened panel.
func (s *AnalysisService) BuildProfile(set *domain.VariantSet) map[domain.Gene]domain.PhenotypeResult {
	genes := domain.Genes()
	profile := make(map[domain.Gene]domain.PhenotypeResult, len(genes))
	for _, gene := range genes {
		calls := set.CallsFor(gene)
		resolved := s.resolver.Resolve(gene, calls)
		diplotype := s.composer.Compose(gene, resolved)
		profile[gene] = s.classifier.Classify(diplotype, calls)
	}
	return profile
}

// SupportedDrugs lists the drugs covered by the risk rule registry.
func (s *AnalysisService) SupportedDrugs() []string {
	return registry.SupportedDrugs()
}

// SupportedGenes lists the pharmacogenes screened by the pipeline.
func (s *AnalysisService) SupportedGenes() []string {
	genes := domain.Genes()
	out := make([]string, len(genes))
	for i, gene := range genes {
		out[i] = gene.String()
	}
	return out
}

func applySampleHint(set *domain.VariantSet, hint string) {
	if hint == "" {
		return
	}
	if set.SampleID == "" || set.SampleID == vcf.DefaultSampleID {
		set.SampleID = hint
	}
}
