package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/registry"
)

const serverVersion = "1.0.0"

// analyzeRequest is the analysis request body. Drug accepts either a single
// name or a list; Drugs is the explicit list form.
type analyzeRequest struct {
	SessionID string          `json:"session_id"`
	Drug      json.RawMessage `json:"drug,omitempty"`
	Drugs     []string        `json:"drugs,omitempty"`
	PatientID string          `json:"patient_id,omitempty"`
}

// drugList normalizes the single-vs-list request shapes into an ordered,
// non-empty drug list.
func (r *analyzeRequest) drugList() ([]string, error) {
	if len(r.Drugs) > 0 {
		return r.Drugs, nil
	}
	if len(r.Drug) == 0 {
		return nil, errors.New("drug name is required")
	}

	var single string
	if err := json.Unmarshal(r.Drug, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			return nil, errors.New("drug name is required")
		}
		return []string{single}, nil
	}

	var list []string
	if err := json.Unmarshal(r.Drug, &list); err == nil {
		if len(list) == 0 {
			return nil, errors.New("drug name is required")
		}
		return list, nil
	}

	return nil, errors.New("drug must be a string or a list of strings")
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   serverVersion,
		"timestamp": time.Now().UTC(),
	})
}

// handleUploadVCF parses an uploaded variant file and stores it under a
// fresh session ID for later analysis.
func (s *Server) handleUploadVCF(c *gin.Context) {
	text, filename, ok := s.readVariantText(c)
	if !ok {
		return
	}

	sessionID, set, err := s.service.CreateSession(c.Request.Context(), text, sampleHint(filename))
	if err != nil {
		s.respondPipelineError(c, err)
		return
	}

	summary := geneSummary(set)
	parseErrors := set.ParseErrors
	if parseErrors == nil {
		parseErrors = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":            sessionID,
		"sample_id":             set.SampleID,
		"filename":              filename,
		"total_variants_parsed": set.TotalVariants,
		"pgx_variants_found":    set.PGxVariantCount(),
		"genes_with_variants":   summary,
		"parse_errors":          parseErrors,
		"status":                "ready_for_analysis",
		"message": fmt.Sprintf(
			"VCF parsed successfully. Found %d pharmacogenomic variants across %d gene(s). "+
				"Use session_id with POST /api/v1/analyze to get drug risk assessment.",
			set.PGxVariantCount(), len(summary)),
	})
}

// handleAnalyze runs the risk pipeline for a stored session
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body", err.Error())
		return
	}
	if req.SessionID == "" {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "session_id is required", "")
		return
	}
	drugs, err := req.drugList()
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, err.Error(), "")
		return
	}

	batch, err := s.service.AnalyzeSession(c.Request.Context(), req.SessionID, drugs)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrCodeSessionNotFound,
				fmt.Sprintf("Session '%s' not found. Please upload a VCF file first using POST /api/v1/upload-vcf.",
					req.SessionID), "")
			return
		}
		s.respondPipelineError(c, err)
		return
	}

	s.respondReports(c, batch, req.PatientID)
}

// handleAnalyzeFile uploads and analyzes in one request without persisting a
// session. The drug form field accepts a comma-separated list.
func (s *Server) handleAnalyzeFile(c *gin.Context) {
	if c.ContentType() != "multipart/form-data" {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "multipart form upload is required", "")
		return
	}

	text, filename, ok := s.readVariantText(c)
	if !ok {
		return
	}

	drugs := splitDrugField(c.PostForm("drug"))
	if len(drugs) == 0 {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "drug form field is required", "")
		return
	}

	batch, err := s.service.AnalyzeText(c.Request.Context(), text, drugs, sampleHint(filename))
	if err != nil {
		s.respondPipelineError(c, err)
		return
	}

	s.respondReports(c, batch, c.PostForm("patient_id"))
}

// handleSupportedDrugs lists the drugs covered by the risk rule registry
func (s *Server) handleSupportedDrugs(c *gin.Context) {
	drugs := s.service.SupportedDrugs()

	listing := make([]gin.H, 0, len(drugs))
	for _, drug := range drugs {
		primaryGene := "Unknown"
		if gene, ok := registry.PrimaryGene(drug); ok {
			primaryGene = gene.String()
		}
		listing = append(listing, gin.H{
			"drug":         drug,
			"primary_gene": primaryGene,
			"rule_count":   registry.RuleCount(drug),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"supported_drugs": listing,
		"total":           len(listing),
	})
}

// handleSupportedGenes lists the screened pharmacogenes and their defining
// variant identifiers
func (s *Server) handleSupportedGenes(c *gin.Context) {
	genes := s.service.SupportedGenes()
	sort.Strings(genes)

	rsidMap := registry.RSIDGeneMap()

	c.JSON(http.StatusOK, gin.H{
		"genes":         genes,
		"tracked_rsids": len(rsidMap),
		"rsid_gene_map": rsidMap,
	})
}

// readVariantText accepts either a multipart upload under the "file" field
// or a raw request body. It writes the error response itself when ok is
// false.
func (s *Server) readVariantText(c *gin.Context) (text, filename string, ok bool) {
	maxUpload := s.configManager.GetServerConfig().MaxUploadSize

	if c.ContentType() == "multipart/form-data" {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "file form field is required", "")
			return "", "", false
		}
		defer file.Close()

		if !hasVCFExtension(header.Filename) {
			s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation,
				"Only .vcf files are supported. Please upload a standard VCF file.", "")
			return "", "", false
		}
		if maxUpload > 0 && header.Size > maxUpload {
			s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation,
				fmt.Sprintf("file exceeds maximum upload size of %d bytes", maxUpload), "")
			return "", "", false
		}

		data, err := io.ReadAll(file)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
				"failed to read uploaded file", err.Error())
			return "", "", false
		}
		return string(data), header.Filename, true
	}

	body := io.Reader(c.Request.Body)
	if maxUpload > 0 {
		body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"failed to read request body", err.Error())
		return "", "", false
	}
	if strings.TrimSpace(string(data)) == "" {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "request body is empty", "")
		return "", "", false
	}
	return string(data), "", true
}

// respondReports applies the optional patient override and picks the
// response shape: a single requested drug yields the bare report, several
// yield the batch envelope.
func (s *Server) respondReports(c *gin.Context, batch *domain.BatchReport, patientID string) {
	if patientID != "" {
		batch.PatientID = patientID
		for _, report := range batch.Analyses {
			report.PatientID = patientID
		}
	}

	if len(batch.Analyses) == 1 {
		c.JSON(http.StatusOK, batch.Analyses[0])
		return
	}
	c.JSON(http.StatusOK, batch)
}

// respondPipelineError maps service errors onto API error payloads.
// Unknown drugs, ambiguous variants, and explanation failures never reach
// here; they are data in the report, not errors.
func (s *Server) respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "no variant data found in input", "")
	case errors.Is(err, domain.ErrEmptyDrugList):
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "drug name is required", "")
	default:
		s.logger.WithError(err).Error("Analysis request failed")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, "internal server error", "")
	}
}

func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.JSON(status, domain.NewAPIError(code, message, details, c.GetString("request_id")))
}

func geneSummary(set *domain.VariantSet) map[string]int {
	summary := make(map[string]int)
	for gene, calls := range set.Calls {
		if len(calls) > 0 {
			summary[gene.String()] = len(calls)
		}
	}
	return summary
}

func hasVCFExtension(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".vcf") || strings.HasSuffix(lower, ".vcf.gz")
}

// sampleHint derives a sample identifier from an upload filename, used only
// when the file itself names no sample.
func sampleHint(filename string) string {
	if filename == "" {
		return ""
	}
	base := filepath.Base(filename)
	for _, suffix := range []string{".gz", ".vcf"} {
		if ext := filepath.Ext(base); strings.EqualFold(ext, suffix) {
			base = strings.TrimSuffix(base, ext)
		}
	}
	return base
}

// splitDrugField parses the comma-separated drug form field
func splitDrugField(raw string) []string {
	parts := strings.Split(raw, ",")
	drugs := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			drugs = append(drugs, trimmed)
		}
	}
	return drugs
}
