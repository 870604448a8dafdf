// Package agent contains the treasury executor: the model and tool loop that
// serves one inbound message and reports its progress as records.
//
// An Executor is stateless between calls. Each Execute call:
//
//  1. resolves the system instruction for the session
//  2. asks the model for the next step, bounded by a core.TurnLimiter
//  3. runs requested tools, recording a tool_use record per call
//  4. records intermediate reasoning as assistant_update and the final answer as result
//
// Failures are recorded as error records and returned to the caller.
package agent
