/*
Package ports defines the driven ports (interfaces) for the Tessera engine.

These interfaces decouple the dispatcher from infrastructure, allowing scripts
to be persisted in different backends and dispatch reports to be audited.

# Key Interfaces

  - ScriptStore: Persists authored scripts (e.g., in memory or BoltDB).
  - ReportSink: Receives every dispatch Report (e.g., a Postgres audit log).
  - DistributedLocker: Coordinates replicas so scheduled events fire once.
*/
package ports
