package cli

import (
	"github.com/spf13/cobra"

	"github.com/aguiargov/licita/internal/core/domain"
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols [TYPE]",
	Short: "List the audit topics per document type",
	Long: `List the topics and focus queries applied to each document type,
in the order they appear in the report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProtocols,
}

func init() {
	rootCmd.AddCommand(protocolsCmd)
}

func runProtocols(cmd *cobra.Command, args []string) error {
	types := domain.AllDocumentTypes()
	if len(args) == 1 {
		t, err := domain.ParseDocumentType(args[0])
		if err != nil {
			return err
		}
		types = []domain.DocumentType{t}
	}

	for i, t := range types {
		protocol, err := domain.ProtocolFor(t)
		if err != nil {
			return err
		}
		if i > 0 {
			cmd.Println()
		}
		cmd.Printf("%s (%s)\n", t.Label(), t)
		for n, entry := range protocol.Entries {
			if entry.K > 0 {
				cmd.Printf("  %d. %s [k=%d]\n", n+1, entry.Topic, entry.K)
			} else {
				cmd.Printf("  %d. %s\n", n+1, entry.Topic)
			}
			cmd.Printf("     %s\n", entry.Query)
		}
	}
	return nil
}
