package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caseflow/playbook/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <playbook-id>",
	Short: "Export a playbook as a Mermaid diagram",
	Long: `Renders the playbook's decision graph as a Mermaid flowchart (graph TD).
With --session the nodes that session has visited and its current position
are highlighted.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sessionID, _ := cmd.Flags().GetString("session")

		rt := mustRuntime(cmd)
		defer rt.Close()

		g, err := rt.Provider.Graph(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error loading playbook '%s': %v\n", args[0], err)
			os.Exit(1)
		}

		var overlay *graph.Overlay
		if sessionID != "" {
			sess, err := rt.Engine.GetSession(cmd.Context(), sessionID)
			if err != nil {
				fmt.Printf("Error loading session '%s': %v\n", sessionID, err)
				os.Exit(1)
			}
			overlay = graph.SessionOverlay(sess)
		}

		fmt.Print(graph.GenerateMermaid(g, overlay))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the visited path of a session")
}
