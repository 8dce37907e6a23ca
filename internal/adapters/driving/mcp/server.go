package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Audits make one model call per topic and can run for minutes.
const keepAlive = 30 * time.Second

// Server exposes the audit and knowledge base services to MCP clients.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a server over the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "licita", Title: "Licita auditor", Version: Version},
			&mcp.ServerOptions{Instructions: instructions(), KeepAlive: keepAlive},
		),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// instructions tells the client which document types exist and in what
// order to use the tools.
func instructions() string {
	var types []string
	for _, t := range domain.AllDocumentTypes() {
		types = append(types, fmt.Sprintf("%s (%s)", t, t.Label()))
	}

	var b strings.Builder
	b.WriteString("licita audits Brazilian public procurement documents against Lei 14.133/21 ")
	b.WriteString("and a local library of legal references.\n")
	fmt.Fprintf(&b, "Document types: %s.\n", strings.Join(types, ", "))
	b.WriteString("Read licita://protocols/{documentType} to see the topics an audit covers. ")
	b.WriteString("Call audit_document with the file path and type; verdicts are in Portuguese and ")
	b.WriteString("cite their sources as [FONTE: file]. ")
	b.WriteString("Use search_knowledge_base to quote the law behind a verdict.")
	return b.String()
}

// Serve blocks until ctx is cancelled. An empty addr serves over stdio,
// anything else over streamable HTTP.
func (s *Server) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		logger.Debug("MCP server running on stdio")
		return s.server.Run(ctx, &mcp.StdioTransport{})
	}
	return s.serveHTTP(ctx, addr)
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("MCP server shutdown: %v", err)
		}
	}()

	logger.Info("MCP server listening on %s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the streamable HTTP handler, every session sharing one server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}
