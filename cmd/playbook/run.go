package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caseflow/playbook/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [playbook-id]",
	Short: "Walk a playbook interactively",
	Long: `Starts or resumes a decision session and walks it in the terminal,
prompting for an option, a rationale, and a confidence score at every node.
Interrupting with CTRL+C pauses the session; running the same case and
playbook again resumes where it left off.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		sessionID, _ := cmd.Flags().GetString("session")
		caseID, _ := cmd.Flags().GetString("case")
		playbookID, _ := cmd.Flags().GetString("playbook")
		if !cmd.Flags().Changed("playbook") && len(args) > 0 {
			playbookID = args[0]
		}
		headless, _ := cmd.Flags().GetBool("headless")
		debug, _ := cmd.Flags().GetBool("debug")

		err := cli.RunInteractive(cli.RunOptions{
			ConfigPath: configPath,
			SessionID:  sessionID,
			CaseID:     caseID,
			PlaybookID: playbookID,
			Headless:   headless,
			Debug:      debug,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("session", "", "Resume an existing session by id")
	runCmd.Flags().String("case", "", "Case identifier for a new session")
	runCmd.Flags().String("playbook", "", "Playbook to walk for a new session")
	runCmd.Flags().Bool("headless", false, "Run in headless mode (no banner, plain IO)")
	runCmd.Flags().Bool("debug", false, "Log lifecycle events at debug level")
}
