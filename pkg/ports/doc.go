/*
Package ports defines the driven ports (interfaces) for the decision engine.

These interfaces decouple the core logic from external implementations,
allowing the engine to work with various session stores, graph sources, and
lock providers.

# Key Interfaces

  - SessionStore: versioned persistence for decision sessions (compare-and-
    swap writes, active-pair uniqueness).
  - GraphProvider: read-only retrieval of externally authored decision graphs.
  - DistributedLocker: cross-replica serialization of per-session mutation.
  - DecisionEngine: the driving port transports (HTTP, MCP, CLI) consume.

RunSessionStoreContract is the shared acceptance suite every SessionStore
adapter must pass.
*/
package ports
