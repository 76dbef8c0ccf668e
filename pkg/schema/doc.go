// Package schema defines the portable document format for playbook graphs.
//
// A playbook is authored as a single YAML document: an id, a root node, and
// an ordered list of nodes. Options keep their authoring order, and an option
// without a "next" ends the traversal at its node.
//
//	playbook: contract-dispute
//	title: Contract Dispute Intake
//	root: start
//	nodes:
//	  - id: start
//	    question: "What is the primary claim?"
//	    options:
//	      - label: "Contract Breach"
//	        next: contract_analysis
//	  - id: contract_analysis
//	    question: "Is the agreement signed by both parties?"
//	    tags: [breach]
//	    options:
//	      - label: "Breach confirmed"
//
// Parse and ParseFile return the document after structural validation;
// Document.Graph converts it into the runtime representation:
//
//	doc, err := schema.ParseFile("playbooks/contract-dispute.yaml")
//	if err != nil {
//	    // SchemaError values carry a positional path like nodes[1].options[0].label
//	}
//	graph, err := doc.Graph()
//
// A document may carry a "catalog" section mapping terminal nodes or tags to
// recommendation text; it is decoded here and interpreted by the engine.
//
// This package has no dependency on any storage or transport layer and can be
// used standalone by authoring tools.
package schema
