package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aguiargov/licita/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for licita resources.
	uriScheme = "licita://"

	protocolsURI = uriScheme + "protocols"
	reportURI    = uriScheme + "knowledge-base/report"
)

// protocolInfo is the JSON form of an audit protocol.
type protocolInfo struct {
	Type   string      `json:"type"`
	Label  string      `json:"label"`
	Topics []topicInfo `json:"topics"`
}

type topicInfo struct {
	Topic string `json:"topic"`
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         protocolsURI,
		Name:        "protocols",
		Description: "Audit protocols for every document type",
		MIMEType:    "application/json",
	}, s.handleProtocolsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: protocolsURI + "/{documentType}",
		Name:        "protocol",
		Description: "Audit protocol for one document type",
		MIMEType:    "application/json",
	}, s.handleProtocolResource)

	s.server.AddResource(&mcp.Resource{
		URI:         reportURI,
		Name:        "knowledge-base-report",
		Description: "Ingest report and snapshot status of the legal knowledge base",
		MIMEType:    "application/json",
	}, s.handleReportResource)
}

// handleProtocolsResource returns every protocol in menu order.
func (s *Server) handleProtocolsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	types := domain.AllDocumentTypes()
	infos := make([]protocolInfo, 0, len(types))
	for _, t := range types {
		info, err := describeProtocol(t)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return jsonResult(req.Params.URI, infos)
}

// handleProtocolResource returns the protocol of one document type.
func (s *Server) handleProtocolResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractDocumentType(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	docType, err := domain.ParseDocumentType(name)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	info, err := describeProtocol(docType)
	if err != nil {
		return nil, err
	}
	return jsonResult(req.Params.URI, info)
}

// handleReportResource returns the knowledge base status without building it.
func (s *Server) handleReportResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status, err := s.ports.KnowledgeBase.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("knowledge base status: %w", err)
	}
	return jsonResult(req.Params.URI, status)
}

func describeProtocol(t domain.DocumentType) (protocolInfo, error) {
	protocol, err := domain.ProtocolFor(t)
	if err != nil {
		return protocolInfo{}, err
	}
	info := protocolInfo{
		Type:   t.String(),
		Label:  t.Label(),
		Topics: make([]topicInfo, len(protocol.Entries)),
	}
	for i, e := range protocol.Entries {
		info.Topics[i] = topicInfo{Topic: e.Topic, Query: e.Query, K: e.K}
	}
	return info, nil
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentType extracts the type from a URI like licita://protocols/{documentType}.
func extractDocumentType(uri string) string {
	const prefix = protocolsURI + "/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
