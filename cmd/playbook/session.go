package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage decision sessions",
	Long:  `Start, inspect, advance, reset, and remove persisted decision sessions.`,
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <case-id> <playbook-id>",
	Short: "Start a new session at the playbook root",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		rt := mustRuntime(cmd)
		defer rt.Close()

		sess, err := rt.Engine.StartSession(cmd.Context(), args[0], args[1])
		if err != nil {
			fmt.Printf("Error starting session: %v\n", err)
			os.Exit(1)
		}
		printJSON(sess)
	},
}

var sessionSubmitCmd = &cobra.Command{
	Use:   "submit <session-id>",
	Short: "Record a decision on the session's current node",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		option, _ := cmd.Flags().GetString("option")
		rationale, _ := cmd.Flags().GetString("rationale")
		confidence, _ := cmd.Flags().GetFloat64("confidence")
		version, _ := cmd.Flags().GetInt64("expected-version")
		diffOnly, _ := cmd.Flags().GetBool("diff")

		rt := mustRuntime(cmd)
		defer rt.Close()

		var before *domain.DecisionSession
		if diffOnly {
			prev, err := rt.Engine.GetSession(cmd.Context(), args[0])
			if err != nil {
				fmt.Printf("Error loading session '%s': %v\n", args[0], err)
				os.Exit(1)
			}
			before = prev
		}

		sess, err := rt.Engine.SubmitDecision(cmd.Context(), args[0], ports.SubmitDecisionCommand{
			SelectedOption:  option,
			Rationale:       rationale,
			Confidence:      confidence,
			ExpectedVersion: version,
		})
		if err != nil {
			fmt.Printf("Error submitting decision: %v\n", err)
			os.Exit(1)
		}

		if diffOnly {
			printJSON(domain.Diff(before, sess))
			return
		}
		printJSON(sess)
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Inspect the full state of a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rt := mustRuntime(cmd)
		defer rt.Close()

		sess, err := rt.Engine.GetSession(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error loading session '%s': %v\n", args[0], err)
			os.Exit(1)
		}
		printJSON(sess)
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset <session-id>",
	Short: "Reset a session to the playbook root",
	Long:  `Clears the session's decision history and recommendations and moves it back to the graph root. The audit trail in the store is replaced, not appended.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rt := mustRuntime(cmd)
		defer rt.Close()

		sess, err := rt.Engine.ResetSession(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error resetting session '%s': %v\n", args[0], err)
			os.Exit(1)
		}
		printJSON(sess)
	},
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	Run: func(cmd *cobra.Command, args []string) {
		rt := mustRuntime(cmd)
		defer rt.Close()

		ids, err := rt.Store.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing sessions: %v\n", err)
			os.Exit(1)
		}

		if len(ids) == 0 {
			fmt.Println("No sessions found.")
			return
		}

		fmt.Println("Sessions:")
		for _, id := range ids {
			fmt.Println("- " + id)
		}
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rt := mustRuntime(cmd)
		defer rt.Close()

		hasError := false
		for _, sessionID := range args {
			if err := rt.Store.Delete(cmd.Context(), sessionID); err != nil {
				fmt.Printf("Error removing '%s': %v\n", sessionID, err)
				hasError = true
			} else {
				fmt.Printf("Removed session '%s'\n", sessionID)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionSubmitCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionResetCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionSubmitCmd.Flags().String("option", "", "Option label to select (required)")
	sessionSubmitCmd.Flags().String("rationale", "", "Reasoning behind the decision (required)")
	sessionSubmitCmd.Flags().Float64("confidence", 0, "Confidence score between 0 and 1 (required)")
	sessionSubmitCmd.Flags().Int64("expected-version", 0, "Fail if the session version has moved past this value (0 accepts the current version)")
	sessionSubmitCmd.Flags().Bool("diff", false, "Print only the fields this decision changed")
	_ = sessionSubmitCmd.MarkFlagRequired("option")
	_ = sessionSubmitCmd.MarkFlagRequired("rationale")
	_ = sessionSubmitCmd.MarkFlagRequired("confidence")
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
