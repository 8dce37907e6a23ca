package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aguiargov/licita/internal/adapters/driving/mcp"
)

func TestMCPServe_RequiresServices(t *testing.T) {
	withServices(t, &Dependencies{Audit: &MockAuditService{}})

	_, _, err := executeCommand(t, "", "mcp", "serve")

	assert.ErrorIs(t, err, mcp.ErrMissingKnowledgeBaseService)
}

func TestMCPServe_PortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")

	assert.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
	assert.Equal(t, "p", flag.Shorthand)
}
