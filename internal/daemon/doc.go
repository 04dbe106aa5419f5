// Package daemon runs ctx as a long-lived service.
//
// A message from any transport goes through the Router, which queues it on
// the conversation's lane ("chat-<id>") so one conversation is handled one
// message at a time, and then through the FrontDoor. The FrontDoor settles a
// pending yes/no confirmation before anything else and otherwise runs the
// agent with tools bound to the conversation.
//
// Invariants:
// - A pending confirmation is taken, and so cleared, by the very next
//   message of its conversation, whatever that message says.
// - Only an exact yes (any case, surrounding space ignored) performs the
//   confirmed action. Nothing from a dropped confirmation reaches the agent.
// - Intake (Telegram polling or the webhook) stops before the queue drains.
//
// Usage:
//
//	d, err := daemon.New(cfg, log)
//	if err != nil {
//		return err
//	}
//	if err := d.Start(); err != nil {
//		return err
//	}
//	d.Wait()
package daemon
