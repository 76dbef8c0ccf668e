/*
Package domain contains the core domain models for the playbook decision
engine.

It defines the fundamental entities of the traversal state machine: decision
graphs, sessions, history records, and the synthesized recommendations. This
package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - DecisionGraph / DecisionNode: the externally authored question graph.
  - DecisionSession: the runtime snapshot of one traversal (current node,
    history, status, version).
  - DecisionRecord: the audit entry for one answered question.
  - FinalRecommendations: the frozen output synthesized at the terminal.
*/
package domain
