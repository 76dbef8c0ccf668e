package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caseflow/playbook/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate [playbook-id...]",
	Short: "Check playbook graphs for structural problems",
	Long: `Runs deep diagnostics over playbook graphs: dangling option targets,
unreachable nodes, cycles, duplicate option labels, and graphs with no
terminal outcome. Without arguments every playbook in the configured
directory is checked.`,
	Run: func(cmd *cobra.Command, args []string) {
		rt := mustRuntime(cmd)
		defer rt.Close()

		ctx := cmd.Context()
		ids := args
		if len(ids) == 0 {
			var err error
			ids, err = rt.Provider.Playbooks(ctx)
			if err != nil {
				fmt.Printf("Error listing playbooks: %v\n", err)
				os.Exit(1)
			}
		}
		if len(ids) == 0 {
			fmt.Println("No playbooks found.")
			return
		}

		failed := false
		for _, id := range ids {
			g, err := rt.Provider.Graph(ctx, id)
			if err != nil {
				fmt.Printf("Playbook %q: %v\n", id, err)
				failed = true
				continue
			}
			report := validator.Validate(g)
			fmt.Print(report.String())
			if !report.Valid() {
				failed = true
			}
		}

		if failed {
			os.Exit(1)
		}
		fmt.Println("All playbooks are valid.")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
