package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/services"
	"github.com/aguiargov/licita/internal/logger"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the reference knowledge base",
	Long: `Build, inspect and query the knowledge base indexed from the reference
library (laws, TCU decisions, manuals) under knowledge_base.root.`,
}

var kbBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Index the reference library",
	Long: `Index every PDF under the reference directory.

A snapshot from a previous build is reused when it was built with the
configured embedding model. Use --force after changing the reference files.`,
	Args: cobra.NoArgs,
	RunE: runKBBuild,
}

var kbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the knowledge base state",
	Args:  cobra.NoArgs,
	RunE:  runKBStatus,
}

var kbSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Retrieve reference passages for a query",
	Long: `Retrieve the passages most similar to QUERY, as an audit topic would.

Examples:
  licita kb search "capital social mínimo"
  licita kb search "parcelamento do objeto" -k 8 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKBSearch,
}

var kbWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the index when reference files change",
	Long: `Build the knowledge base, then watch the reference directory and rebuild
after PDFs are added, changed or removed. Stops on Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runKBWatch,
}

func init() {
	kbBuildCmd.Flags().Bool("force", false, "ignore the snapshot and rebuild")
	kbSearchCmd.Flags().IntP("k", "k", services.DefaultRetrievalK, "number of passages")
	kbSearchCmd.Flags().Bool("json", false, "print JSON")

	kbCmd.AddCommand(kbBuildCmd)
	kbCmd.AddCommand(kbStatusCmd)
	kbCmd.AddCommand(kbSearchCmd)
	kbCmd.AddCommand(kbWatchCmd)
	rootCmd.AddCommand(kbCmd)
}

func runKBBuild(cmd *cobra.Command, _ []string) error {
	if knowledgeBaseService == nil {
		return unavailable("knowledge base")
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("getting force flag: %w", err)
	}

	report, err := knowledgeBaseService.Build(cmd.Context(), force)
	if err != nil {
		return err
	}
	printIngestReport(cmd.OutOrStdout(), report)
	return nil
}

func printIngestReport(w io.Writer, report *domain.IngestReport) {
	if report.FromSnapshot {
		fmt.Fprintf(w, "Índice carregado do snapshot (%s)\n", report.BuiltAt.Format("2006-01-02 15:04"))
	}
	for _, f := range report.Files {
		fmt.Fprintf(w, "✅ Lido: %s (%d caracteres)\n", f.Path, f.Chars)
	}
	for _, f := range report.Skipped {
		fmt.Fprintf(w, "❌ Erro ao ler: %s (%s)\n", f.Path, f.Reason)
	}
	fmt.Fprintf(w, "\n%d arquivo(s), %d trecho(s) indexado(s), %d descartado(s)\n",
		report.Processed(), report.Chunks, report.Filtered)
	fmt.Fprintf(w, "Modelo de embedding: %s\n", report.EmbeddingModel)
	if !report.FromSnapshot && report.Duration > 0 {
		fmt.Fprintf(w, "Tempo: %s\n", report.Duration.Round(time.Millisecond))
	}
}

func runKBStatus(cmd *cobra.Command, _ []string) error {
	if knowledgeBaseService == nil {
		return unavailable("knowledge base")
	}

	status, err := knowledgeBaseService.Status(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Println("Knowledge Base")
	cmd.Println("==============")
	cmd.Printf("  Root: %s\n", status.Root)
	cmd.Printf("  Loaded: %t\n", status.Loaded)
	if status.Report != nil {
		cmd.Printf("  Files: %d (skipped %d)\n", status.Report.Processed(), len(status.Report.Skipped))
		cmd.Printf("  Chunks: %d\n", status.Report.Chunks)
	}
	cmd.Println()

	cmd.Println("Snapshot")
	cmd.Println("========")
	cmd.Printf("  Path: %s\n", status.SnapshotPath)
	if status.Snapshot == nil {
		cmd.Println("  (none)")
		return nil
	}
	cmd.Printf("  Model: %s (%d dimensions)\n", status.Snapshot.EmbeddingModel, status.Snapshot.Dimensions)
	cmd.Printf("  Entries: %d from %d files\n", status.Snapshot.Entries, status.Snapshot.Files)
	cmd.Printf("  Created: %s\n", status.Snapshot.CreatedAt)
	return nil
}

type passageJSON struct {
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
}

func runKBSearch(cmd *cobra.Command, args []string) error {
	if knowledgeBaseService == nil {
		return unavailable("knowledge base")
	}

	k, err := cmd.Flags().GetInt("k")
	if err != nil {
		return fmt.Errorf("getting k flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("getting json flag: %w", err)
	}

	query := strings.Join(args, " ")
	passages, err := knowledgeBaseService.Search(cmd.Context(), query, k)
	if err != nil {
		return err
	}

	if asJSON {
		out := make([]passageJSON, len(passages))
		for i, p := range passages {
			out[i] = passageJSON{Source: p.Source, Score: p.Score, Content: p.Content}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(passages) == 0 {
		cmd.Println("Nenhum trecho encontrado.")
		return nil
	}
	for i, p := range passages {
		cmd.Printf("%d. [%s] score %.3f\n", i+1, p.Source, p.Score)
		cmd.Printf("   %s\n\n", snippet(p.Content, 300))
	}
	return nil
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func runKBWatch(cmd *cobra.Command, _ []string) error {
	if knowledgeBaseService == nil {
		return unavailable("knowledge base")
	}
	if fileWatcher == nil {
		return unavailable("file watcher")
	}

	ctx := cmd.Context()
	report, err := knowledgeBaseService.Build(ctx, false)
	if err != nil && !errors.Is(err, domain.ErrEmptyKnowledgeBase) {
		return err
	}
	if report != nil {
		printIngestReport(cmd.OutOrStdout(), report)
	} else {
		cmd.Println(describeError(err))
	}

	status, err := knowledgeBaseService.Status(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("\nObservando %s (Ctrl+C para sair)\n", status.Root)
	return fileWatcher.Watch(ctx, status.Root, func(paths []string) {
		logger.Info("reference files changed: %s", strings.Join(paths, ", "))
		knowledgeBaseService.Invalidate()

		report, err := knowledgeBaseService.Build(ctx, true)
		if err != nil {
			cmd.PrintErrln("Erro: " + describeError(err))
			return
		}
		cmd.Printf("\nReindexado após alteração em %d arquivo(s)\n", len(paths))
		printIngestReport(cmd.OutOrStdout(), report)
	})
}
