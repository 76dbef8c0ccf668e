package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// starterConfig is written as playbook.yaml so the scaffolded project runs
// with file-backed sessions out of the box.
const starterConfig = `# Playbook engine configuration. Every key can also be set through the
# environment with a PLAYBOOK_ prefix, e.g. PLAYBOOK_STORE_BACKEND=redis.
server:
  addr: ":8080"

store:
  backend: file
  path: .playbook/sessions

playbooks:
  dir: playbooks

logging:
  level: info
  format: text
`

// starterPlaybook is a small contract dispute triage that exercises research
// context, tags, and a recommendation catalog.
const starterPlaybook = `playbook: contract-dispute
title: Contract Dispute Triage
root: breach
nodes:
  - id: breach
    question: Did the counterparty materially breach the agreement?
    research:
      - Agreement section 12 (termination for cause)
      - Correspondence log for the past 90 days
    options:
      - label: "yes"
        next: cure
      - label: "no"
        next: negotiate
  - id: cure
    question: Was the breach cured within the contractual cure period?
    options:
      - label: "yes"
        next: negotiate
      - label: "no"
        next: escalate
  - id: escalate
    question: Do expected damages justify formal proceedings?
    tags:
      - litigation
    options:
      - label: "yes"
      - label: "no"
        next: negotiate
  - id: negotiate
    question: Is the counterparty open to a negotiated resolution?
    tags:
      - settlement
    options:
      - label: "yes"
      - label: "no"
catalog:
  tags:
    litigation:
      assessment: The dispute is positioned for formal proceedings.
      recommendations:
        - Preserve all correspondence and delivery records.
      next_steps:
        - Draft the demand letter.
    settlement:
      assessment: A negotiated resolution is within reach.
      next_steps:
        - Schedule a settlement conference.
  default:
    assessment: Triage complete.
`

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Scaffold a starter project",
	Long: `Creates a playbook.yaml configuration and a playbooks/ directory with a
starter decision graph, so 'playbook run contract-dispute' works immediately.
Existing files are left untouched.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		targetDir := "."
		if len(args) > 0 {
			targetDir = args[0]
		}

		if err := os.MkdirAll(filepath.Join(targetDir, "playbooks"), 0o755); err != nil {
			fmt.Printf("Error creating project directory: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Scaffolding playbook project in: %s\n", targetDir)

		files := []struct {
			path    string
			content string
		}{
			{filepath.Join(targetDir, "playbook.yaml"), starterConfig},
			{filepath.Join(targetDir, "playbooks", "contract-dispute.yaml"), starterPlaybook},
		}
		for _, f := range files {
			if _, err := os.Stat(f.path); err == nil {
				fmt.Printf("  skip   %s (already exists)\n", f.path)
				continue
			}
			if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
				fmt.Printf("Error writing %s: %v\n", f.path, err)
				os.Exit(1)
			}
			fmt.Printf("  create %s\n", f.path)
		}

		fmt.Println("Done. Try: playbook run contract-dispute --case demo-001")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
