/*
Package dsl provides a fluent Go builder for constructing decision graphs in code.

It lets developers define playbooks with a type-safe builder instead of external
YAML documents. This is particularly useful for unit tests, examples, and dynamic
graph generation, with IDE autocompletion and compile-time checking.

Example usage:

	b := dsl.New("contract-dispute").
		Title("Contract Dispute Intake").
		Root("start")

	b.Node("start").
		Question("What is the primary claim type?").
		Option("Contract Breach", "contract_analysis").
		Option("Tort Claim", "tort_analysis")

	b.Node("contract_analysis").
		Question("Does the evidence support breach?").
		Research("UCC 2-601").
		Option("Breach confirmed", "").
		Option("No breach", "").
		Tags("contract")

	b.Terminal("tort_analysis").
		Question("Tort intake complete.").
		Tags("tort")

	graph, err := b.Build()
	// graph satisfies the provider contracts and may be served from a
	// memory.Provider.
*/
package dsl
