// Package toolexecutor holds the tool catalog and dispatches model tool calls
// to the task tracker and notes vault.
//
// Invariants:
// - Tool names are unique and schemas are compiled once, at catalog construction.
// - Input is schema-validated and decoded into a typed struct before any handler runs.
// - Failures are returned in-band as text (PARSING_ERROR, SERVICE_ERROR,
//   Unknown tool, Tool error); panics in handlers are recovered.
// - archive_card never touches the task tracker. It records a PendingApproval
//   for the bound conversation and returns OutcomeConfirmationRequired.
//
// Usage:
//
//	approvals := toolexecutor.NewApprovalStore()
//	exec, _ := toolexecutor.New(toolexecutor.Config{Tasks: trelloClient, Notes: vault, Approvals: approvals})
//	outcome := exec.Bind(chatID).Execute(ctx, "get_boards", nil)
package toolexecutor
