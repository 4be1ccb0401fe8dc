package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docintel/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC. Use --port
to serve streamable HTTP instead; Prometheus metrics are then exposed at
/metrics on the same port.

Tools: ask, submit_document, document_status, list_documents, evaluate.
Resources: docintel://schemas, docintel://documents,
docintel://documents/{id}.

Examples:
  # Stdio mode (default, for desktop assistants)
  docintel mcp serve

  # HTTP mode (for MCP Inspector, remote access and metrics scraping)
  docintel mcp serve --port 8080`,
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
		Query:      queryService,
		Documents:  documentService,
		Evaluation: evaluationService,
		Metrics:    metricsHandler,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
