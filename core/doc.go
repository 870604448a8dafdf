// Package core provides the foundational domain types shared by the agent
// feed packages:
//
//   - Records (immutable activity entries with a closed Kind tag)
//   - Drafts (producer input to a store append) and store Stats
//   - The Recorder contract producers write through
//   - Content / Part values exchanged with model adapters
//   - ToolContext and TurnLimiter used while an agent session runs
//
// Implementations (the bounded event store, the fan-out hub, HTTP endpoints,
// the client reconciler) live in sibling packages and depend only on these
// small contracts.
package core
