/*
Package playbook is a deterministic decision-graph engine for walking legal
playbooks: directed acyclic graphs of yes/no strategy questions whose answers
are recorded with rationale and confidence, and whose terminal points yield
synthesized recommendations.

It implements a "versioned session walk with synthesized outcomes"
architecture, separating the decision graph (Logic) from the session record
(State) and the recommendation synthesis (Outcome).

# Concept

A playbook treats a legal decision process as a graph of question nodes. The
engine manages session state, option validation, and persistence, while your
application ("Host") manages the I/O and where graphs come from. This
Hexagonal Architecture allows the engine to be embedded in any interface:
CLI, HTTP server, or MCP agent infrastructure.

# Key Features

  - Deterministic Traversal: given the same graph and decisions, the path and
    the final recommendations are always reproducible.
  - Hexagonal Architecture: core logic is decoupled from adapters (storage,
    transport, graph sources).
  - Versioned Persistence: every write is a compare-and-swap on the session
    version, so concurrent submissions cannot interleave.
  - Auditable History: each step records the question, the selected option,
    the rationale, and the confidence, with timestamps.

# Usage

Initialize the engine with a session store and a graph provider. The
adapters under pkg/adapters cover the common backends.

	package main

	import (
		"context"
		"log"

		"github.com/caseflow/playbook"
		"github.com/caseflow/playbook/pkg/adapters/memory"
		"github.com/caseflow/playbook/pkg/dsl"
		"github.com/caseflow/playbook/pkg/ports"
	)

	func main() {
		// Author a graph in code (production graphs usually load from YAML).
		b := dsl.New("contract-dispute").Root("start")
		b.Node("start").
			Question("Is there a signed contract?").
			Option("yes", "breach").
			Option("no", "")
		b.Node("breach").
			Question("Did the other party breach?").
			Option("yes", "").
			Option("no", "")
		graph, err := b.Build()
		if err != nil {
			log.Fatal(err)
		}

		// Wire the engine.
		eng, err := playbook.New(memory.NewStore(), memory.NewProvider(graph))
		if err != nil {
			log.Fatal(err)
		}

		// Walk a session.
		ctx := context.Background()
		sess, err := eng.StartSession(ctx, "case-123", "contract-dispute")
		if err != nil {
			log.Fatal(err)
		}

		sess, err = eng.SubmitDecision(ctx, sess.SessionID, ports.SubmitDecisionCommand{
			SelectedOption: "yes",
			Rationale:      "Signed agreement on file.",
			Confidence:     0.9,
		})
		if err != nil {
			log.Fatal(err)
		}

		sess, err = eng.SubmitDecision(ctx, sess.SessionID, ports.SubmitDecisionCommand{
			SelectedOption: "yes",
			Rationale:      "Delivery was never made.",
			Confidence:     0.8,
		})
		if err != nil {
			log.Fatal(err)
		}

		log.Println("Risk:", sess.FinalRecommendations.RiskAssessment.Level)
	}
*/
package playbook
