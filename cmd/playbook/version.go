package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caseflow/playbook"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of playbook",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("playbook version %s\n", strings.TrimSpace(playbook.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
