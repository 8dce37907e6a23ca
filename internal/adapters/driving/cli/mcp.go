package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aguiargov/licita/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose audits to MCP clients",
	Long:  `Serve licita audits and the legal reference library over the Model Context Protocol.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve audit_document and search_knowledge_base",
	Long: `Start an MCP server so an assistant can audit procurement documents.

Tools:
  audit_document          run a document through its audit protocol
  search_knowledge_base   quote passages from the reference library

Resources:
  licita://protocols                  every audit protocol
  licita://protocols/{documentType}   the topics for one document type
  licita://knowledge-base/report      which reference files were indexed

The server speaks JSON-RPC over stdio unless --port is given, in which case
it serves streamable HTTP on that port (useful with MCP Inspector).

The knowledge base is built on the first request that needs it, so point
the client at a config where 'licita kb build' already succeeded.

Client configuration:
  {"mcpServers": {"licita": {"command": "licita", "args": ["mcp", "serve"]}}}`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Audit:         auditService,
		KnowledgeBase: knowledgeBaseService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	var addr string
	if port > 0 {
		addr = fmt.Sprintf(":%d", port)
		cmd.Printf("MCP server listening on http://localhost%s\n", addr)
	}
	return server.Serve(cmd.Context(), addr)
}
