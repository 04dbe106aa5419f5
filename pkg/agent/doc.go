// Package agent runs the bounded tool-calling loop against the completion endpoint.
//
// Invariants:
// - At most MaxIterations completion calls per run; the next one fails with AGENT_LOOP_LIMIT.
// - Each completion call is retried once, after RetryDelay, on rate limits and transport errors.
// - Every tool use in a turn is answered by exactly one tool result with the same ID
//   before the next completion call.
// - A ConfirmationRequired outcome ends the run; later tool calls in that turn are not executed.
// - Failures returned by Run are *Error values (API_ERROR, AGENT_ERROR, AGENT_LOOP_LIMIT).
//
// Usage:
//
//	runner, _ := agent.NewRunner(agent.Config{Client: agent.NewAnthropicClient(key)})
//	reply, err := runner.Run(ctx, "remind me to call nancy thursday", executor.Bind(chatID))
package agent
