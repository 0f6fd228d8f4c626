// Package mcp exposes the pharmacogenomic analysis pipeline as Model
// Context Protocol tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/service"
)

// Server wraps an MCP server exposing the analyzer as typed tools. Tools
// delegate to the same AnalysisService as the HTTP API and return the same
// verdicts.
type Server struct {
	config    domain.MCPConfig
	mcpServer *mcp.Server
	service   *service.AnalysisService
	logger    *logrus.Logger
}

// NewServer creates a new MCP tool server instance
func NewServer(config domain.MCPConfig, analysis *service.AnalysisService, logger *logrus.Logger) *Server {
	serverInfo := &mcp.Implementation{
		Name:    config.ServerName,
		Version: config.ServerVersion,
	}

	server := &Server{
		config:    config,
		mcpServer: mcp.NewServer(serverInfo, nil),
		service:   analysis,
		logger:    logger,
	}

	server.registerTools()

	return server
}

// registerTools registers the analyzer tools with the MCP SDK
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "analyze_drug_risk",
		Description: "Analyze pharmacogenomic drug risk from VCF text for one or more drugs. " +
			"Returns per-drug risk reports with diplotype, phenotype, and clinical recommendations.",
	}, s.handleAnalyzeDrugRisk)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_supported_drugs",
		Description: "List the drugs covered by the pharmacogenomic risk rule registry.",
	}, s.handleListSupportedDrugs)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_supported_genes",
		Description: "List the pharmacogenes screened by the analysis pipeline and their defining variant identifiers.",
	}, s.handleListSupportedGenes)
}

// Run serves MCP requests over stdio until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"server":  s.config.ServerName,
		"version": s.config.ServerVersion,
	}).Info("Starting MCP server on stdio")

	err := s.mcpServer.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
