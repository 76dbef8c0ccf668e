// Command playbook is the command line surface of the decision engine:
// interactive session walks, session administration, the HTTP API, MCP
// transports, graph validation, and Mermaid export.
package main

import "github.com/joho/godotenv"

func main() {
	// A local .env keeps secrets like PLAYBOOK_SECURITY_ENCRYPTION_KEY out
	// of shell history. Absence is not an error.
	_ = godotenv.Load()

	Execute()
}
